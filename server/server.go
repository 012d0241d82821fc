package server

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/boxer-login/backend"
	"github.com/jrsteele09/boxer-login/internal/config"
	"github.com/jrsteele09/boxer-login/login"
	"github.com/jrsteele09/boxer-login/oauthflow"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env     string
	appName string
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	backend *backend.Client
	flows   *oauthflow.Manager
	links   login.Links
	page    *template.Template

	secureCookies bool
	stateTTL      time.Duration
}

func New(cfg config.Config, backendClient *backend.Client, flows *oauthflow.Manager) (*Server, error) {
	page, err := ParseTemplate(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse page template: %w", err)
	}

	s := &Server{
		env:     cfg.GetEnv(),
		appName: cfg.GetAppName(),
		mux:     http.NewServeMux(),
		config:  cfg,
		backend: backendClient,
		flows:   flows,
		page:    page,
		links: login.Links{
			PagePath:        cfg.GetPagePath(),
			CompletionPath:  cfg.GetCompletionPath(),
			GitHubBeginPath: RouteGitHubBegin,
			InvitePath:      RouteInvite,
			InviteReviewURL: cfg.GetInviteReviewURL(),
		},
		secureCookies: cfg.GetSecureCookies(),
		stateTTL:      flows.TTL(),
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "", route
		}
		log.Debug().Str("method", method).Str("path", path).Msg("route registered")
	}
}

// resolver binds a Login Resolver to one browser session.
func (s *Server) resolver(session *backend.Session) *login.Resolver {
	return login.NewResolver(session, s.flows, s.links)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
