package server

import (
	"net/http"

	"github.com/jrsteele09/boxer-login/backend"
)

// stateCookieName holds the anti-forgery token between the redirect to a
// provider and its callback.
const stateCookieName = "boxer_oauth_state"

func (s *Server) isSecure(r *http.Request) bool {
	return s.secureCookies || getScheme(r) == "https"
}

func (s *Server) SetStateCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isSecure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.stateTTL.Seconds()),
	})
}

func (s *Server) ClearStateCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isSecure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func browserState(r *http.Request) string {
	c, err := r.Cookie(stateCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// backendSession binds the backend client to the browser's cookies, minus
// the ones this service owns.
func (s *Server) backendSession(r *http.Request) *backend.Session {
	var forwarded []*http.Cookie
	for _, c := range r.Cookies() {
		if c.Name == stateCookieName {
			continue
		}
		forwarded = append(forwarded, c)
	}
	return s.backend.Session(forwarded)
}

// relayCookies copies cookies the backend set onto the browser response. They
// are re-scoped to this host.
func relayCookies(w http.ResponseWriter, session *backend.Session) {
	for _, c := range session.ResponseCookies() {
		relayed := *c
		relayed.Domain = ""
		if relayed.Path == "" {
			relayed.Path = "/"
		}
		http.SetCookie(w, &relayed)
	}
}
