package server

func (s *Server) initRoutes() {
	pagePath := s.links.PagePath

	if pagePath != "/" {
		s.RegisterRouteHandler("GET "+RouteRoot, ChainMiddleware(s.RootRedirectHandler(), s.HTMLMiddleWare()...))
	}

	// LOGIN
	s.RegisterRouteHandler("GET "+pagePath, ChainMiddleware(s.PageHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware)...))
	s.RegisterRouteHandler("GET "+RouteGitHubBegin, ChainMiddleware(s.GitHubBeginHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware)...))

	// Actions with side effects on the backend session are POST only and same-origin.
	s.RegisterRouteHandler("POST "+RouteInvite, ChainMiddleware(s.InviteHandler(), s.HTMLMiddleWare(s.SameOriginMiddleware, s.NoStoreMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare(s.SameOriginMiddleware, s.NoStoreMiddleware)...))

	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))
}
