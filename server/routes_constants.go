package server

// Route path constants. The login page itself is configurable (PAGE_PATH).
const (
	RouteRoot        = "/{$}"
	RouteGitHubBegin = "/auth/github"
	RouteInvite      = "/invite"
	RouteLogout      = "/logout"
	RouteHealth      = "/healthz"

	// ParamReturnTo is where a GitHub flow started from the page should land.
	ParamReturnTo = "return_to"
)
