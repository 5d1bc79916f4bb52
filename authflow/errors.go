package authflow

import "errors"

var (
	MissingRefreshTokenErr = errors.New("session has no refresh token")
)
