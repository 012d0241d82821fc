package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/boxer-login/backend"
	"github.com/jrsteele09/boxer-login/login"
	"github.com/rs/zerolog"
)

const logoutRedirect = "/"

type healthResponse struct {
	Status         string `json:"status"`
	RedeemedStates int    `json:"redeemed_states"`
}

// PageData is what the login page template renders.
type PageData struct {
	AppName    string
	Prompt     *login.Prompt
	SignedIn   bool
	LogoutPath string
}

// PageHandler runs the Login Resolver for the page load and applies its outcome.
func (s *Server) PageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := s.backendSession(r)
		outcome := s.resolver(session).Resolve(r.Context(), login.Request{
			Params:       login.ParseCallbackParams(r.URL.RawQuery),
			BrowserState: browserState(r),
		})
		s.writeOutcome(w, r, session, outcome)
	}
}

// GitHubBeginHandler starts the GitHub OAuth flow linked from the page.
func (s *Server) GitHubBeginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := s.backendSession(r)
		outcome := s.resolver(session).BeginGitHub(r.Context(), r.URL.Query().Get(ParamReturnTo))
		s.writeOutcome(w, r, session, outcome)
	}
}

func (s *Server) InviteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := s.backendSession(r)
		outcome := s.resolver(session).Invite(r.Context())
		s.writeOutcome(w, r, session, outcome)
	}
}

// LogoutHandler ends the backend session and always sends the browser home.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := s.backendSession(r)
		if err := session.Logout(r.Context()); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("backend logout failed")
		}
		relayCookies(w, session)
		s.ClearStateCookie(w, r)
		http.Redirect(w, r, logoutRedirect, http.StatusSeeOther)
	}
}

func (s *Server) RootRedirectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, s.links.PagePath, http.StatusFound)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(healthResponse{Status: "ok", RedeemedStates: s.flows.Redeemed()})
	}
}

// writeOutcome relays backend cookies, updates the state cookie and then
// either redirects or renders the page.
func (s *Server) writeOutcome(w http.ResponseWriter, r *http.Request, session *backend.Session, outcome login.Outcome) {
	relayCookies(w, session)
	if outcome.ClearState {
		s.ClearStateCookie(w, r)
	}
	if outcome.State != "" {
		s.SetStateCookie(w, r, outcome.State)
	}

	if outcome.Kind == login.OutcomeRedirect {
		http.Redirect(w, r, outcome.RedirectURL, http.StatusFound)
		return
	}
	s.renderPage(r.Context(), w, outcome)
}

func (s *Server) renderPage(ctx context.Context, w http.ResponseWriter, outcome login.Outcome) {
	data := PageData{
		AppName:    s.appName,
		Prompt:     outcome.Prompt,
		SignedIn:   outcome.SignedIn,
		LogoutPath: RouteLogout,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusFor(outcome))
	if err := s.page.Execute(w, data); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to render page")
	}
}

func statusFor(outcome login.Outcome) int {
	if outcome.Prompt == nil {
		return http.StatusOK
	}
	switch outcome.Prompt.Kind {
	case login.PromptUnknown:
		return http.StatusServiceUnavailable
	case login.PromptInvalidState:
		return http.StatusBadRequest
	default:
		return http.StatusOK
	}
}
