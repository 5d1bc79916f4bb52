// Package claims reads individual claims out of compact JWS tokens without
// validating them. The launcher flow receives id tokens over TLS from
// endpoints it just authenticated against, so the payload is decoded but the
// signature is never checked.
package claims

import (
	"encoding/json"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// parser tolerates padded base64url segments; some provider legs pad the
// payload segment and some do not.
var parser = jwt.NewParser(jwt.WithPaddingAllowed())

// Extract decodes the payload segment of a header.payload[.signature] token
// and returns the named top-level claim as a string.
//
// A missing claim is routine (a refresh response may omit id_token entirely,
// an id token may omit optional claims), so every failure mode reports
// "absent" rather than an error: empty token, fewer than two dot separated
// segments, undecodable payload, non-JSON payload, missing claim, or a claim
// that is not a string.
func Extract(token, claim string) (string, bool) {
	if token == "" || claim == "" {
		return "", false
	}

	segments := strings.Split(token, ".")
	if len(segments) < 2 {
		return "", false
	}

	payload, err := parser.DecodeSegment(segments[1])
	if err != nil {
		return "", false
	}

	claims := jwt.MapClaims{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", false
	}

	value, ok := claims[claim].(string)
	if !ok {
		return "", false
	}
	return value, true
}
