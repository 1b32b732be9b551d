// Package navigation holds the application's routes and the one-shot state handed from one
// view to the next.
package navigation

// Route path constants
const (
	RouteHome        = "/"
	RouteLogin       = "/login"
	RouteSignup      = "/signup"
	RouteLogout      = "/logout"
	RouteScan        = "/scan"
	RouteManualEntry = "/manual-entry"
	RouteChat        = "/chat"
	RouteResult      = "/result"
	RouteProfile     = "/profile"
	RouteHistory     = "/history"

	// StateParam carries a navigation state id in the query string
	StateParam = "state"
)

// GuardedRoutes are only rendered for an authenticated session
var GuardedRoutes = []string{RouteScan, RouteManualEntry, RouteChat, RouteResult}

// IsGuarded reports whether route requires authentication
func IsGuarded(route string) bool {
	for _, r := range GuardedRoutes {
		if r == route {
			return true
		}
	}
	return false
}

// Upstream is where a view that needs navigation state sends the user when it has none
func Upstream(route string) string {
	switch route {
	case RouteResult, RouteChat:
		return RouteScan
	case RouteHistory:
		return RouteProfile
	default:
		return RouteHome
	}
}

// WithState appends a state id to route
func WithState(route, id string) string {
	if id == "" {
		return route
	}
	return route + "?" + StateParam + "=" + id
}
