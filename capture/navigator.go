package capture

import "net/http"

// NavigationKind distinguishes the browser surface notifications the
// controller consumes.
type NavigationKind int

const (
	// NavigationStarted fires when the surface begins navigating to a URL.
	// The controller may cancel the navigation in response.
	NavigationStarted NavigationKind = iota

	// NavigationCompleted fires when a navigation finished rendering.
	NavigationCompleted

	// SurfaceClosed fires when the user closes the capture surface.
	SurfaceClosed
)

// NavigationEvent is one notification from the browser surface.
type NavigationEvent struct {
	Kind NavigationKind
	URL  string
}

// Navigator is the browser/navigation surface collaborator. Any embedded
// browser engine can sit behind it; the controller never touches a rendering
// engine directly.
type Navigator interface {
	// Navigate starts a programmatic navigation to the URL.
	Navigate(url string) error

	// CancelNavigation aborts the navigation reported by the most recent
	// NavigationStarted event.
	CancelNavigation()

	// Cookies returns the cookies currently stored for a domain.
	Cookies(domain string) ([]*http.Cookie, error)

	// EvalScript executes a script in the rendered page and returns its
	// JSON-serialized result.
	EvalScript(script string) (string, error)

	// Events delivers navigation notifications in occurrence order.
	Events() <-chan NavigationEvent
}
