package backendfake

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/jrsteele09/boxer-login/login"
)

// SessionCookieName is the cookie the fake backend issues on a successful
// OAuth completion.
const SessionCookieName = "boxer_session"

// Backend is a scripted stand-in for the Boxer backend API.
type Backend struct {
	*httptest.Server

	mu sync.Mutex

	snapshot          any
	preferencesStatus int
	preferencesRaw    string
	oauthOkay         bool
	inviteOkay        bool
	down              bool

	oauthCalls      []map[string]string
	inviteCalls     int
	logoutCalls     int
	receivedCookies []*http.Cookie
}

// New starts a fake backend serving an empty (unauthenticated) snapshot.
func New() *Backend {
	b := &Backend{
		snapshot:          login.Snapshot{},
		preferencesStatus: http.StatusOK,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/preferences.json", b.preferences)
	mux.HandleFunc("POST /api/oauth.json", b.oauth)
	mux.HandleFunc("GET /api/invite", b.invite)
	mux.HandleFunc("GET /api/preferences", b.logout)
	b.Server = httptest.NewServer(b.guard(mux))
	return b
}

func (b *Backend) SetSnapshot(snapshot any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshot = snapshot
	b.preferencesRaw = ""
	b.preferencesStatus = http.StatusOK
}

// SetPreferencesResponse serves body verbatim with status from the preferences endpoint.
func (b *Backend) SetPreferencesResponse(status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.preferencesStatus = status
	b.preferencesRaw = body
}

func (b *Backend) SetOAuthOkay(okay bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.oauthOkay = okay
}

func (b *Backend) SetInviteOkay(okay bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inviteOkay = okay
}

// SetDown makes every endpoint answer 503.
func (b *Backend) SetDown(down bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.down = down
}

func (b *Backend) OAuthCalls() []map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]string(nil), b.oauthCalls...)
}

func (b *Backend) InviteCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inviteCalls
}

func (b *Backend) LogoutCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.logoutCalls
}

// ReceivedCookie returns the last value seen for the named request cookie.
func (b *Backend) ReceivedCookie(name string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.receivedCookies) - 1; i >= 0; i-- {
		if b.receivedCookies[i].Name == name {
			return b.receivedCookies[i].Value, true
		}
	}
	return "", false
}

func (b *Backend) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.receivedCookies = append(b.receivedCookies, r.Cookies()...)
		down := b.down
		b.mu.Unlock()

		if down {
			http.Error(w, "backend down", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) preferences(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	status, raw, snapshot := b.preferencesStatus, b.preferencesRaw, b.snapshot
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if raw != "" {
		_, _ = w.Write([]byte(raw))
		return
	}
	_ = json.NewEncoder(w).Encode(snapshot)
}

func (b *Backend) oauth(w http.ResponseWriter, r *http.Request) {
	var params map[string]string
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeOkay(w, false)
		return
	}

	b.mu.Lock()
	b.oauthCalls = append(b.oauthCalls, params)
	okay := b.oauthOkay
	b.mu.Unlock()

	if okay {
		http.SetCookie(w, &http.Cookie{Name: SessionCookieName, Value: "session-" + params["code"], Path: "/", HttpOnly: true})
	}
	writeOkay(w, okay)
}

func (b *Backend) invite(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	b.inviteCalls++
	okay := b.inviteOkay
	b.mu.Unlock()
	writeOkay(w, okay)
}

func (b *Backend) logout(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("logout") != "true" {
		http.NotFound(w, r)
		return
	}
	b.mu.Lock()
	b.logoutCalls++
	b.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: SessionCookieName, Value: "", Path: "/", MaxAge: -1})
	writeOkay(w, true)
}

func writeOkay(w http.ResponseWriter, okay bool) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"okay": okay})
}
