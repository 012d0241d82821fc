package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/jrsteele09/boxer-login/backend"
	"github.com/jrsteele09/boxer-login/backend/backendfake"
	"github.com/jrsteele09/boxer-login/internal/config"
	"github.com/jrsteele09/boxer-login/server"
	"github.com/stretchr/testify/require"
)

const (
	testBaseURL     = "https://boxer.example.org"
	stateCookie     = "boxer_oauth_state"
	testReviewURL   = "https://github.com/orgs/apache/invitation"
	completionPath  = "/boxer.html"
	primaryAuthHost = "oauth.example.org"
)

type serverFixture struct {
	fake   *backendfake.Backend
	server *server.Server
}

func setupServer(t *testing.T) *serverFixture {
	t.Helper()

	fake := backendfake.New()
	t.Cleanup(fake.Close)

	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ENV", "TEST")
	t.Setenv("BASE_URL", testBaseURL)
	t.Setenv("PAGE_PATH", "")
	t.Setenv("COMPLETION_PATH", "")
	t.Setenv("BACKEND_URL", fake.URL)
	t.Setenv("OAUTH_ISSUER", "")
	t.Setenv("OAUTH_AUTH_URL", "https://"+primaryAuthHost+"/auth")
	t.Setenv("OAUTH_CLIENT_ID", "boxer")
	t.Setenv("GITHUB_CLIENT_ID", "gh-client")
	t.Setenv("GITHUB_SCOPES", "")
	t.Setenv("STATE_SECRET", "server-test-secret")
	t.Setenv("STATE_TTL", "")
	t.Setenv("SECURE_COOKIES", "")

	cfg, err := config.New()
	require.NoError(t, err)
	require.NoError(t, config.Validate(cfg))

	flows, err := server.InitialiseFlows(cfg, nil)
	require.NoError(t, err)

	srv, err := server.New(cfg, backend.New(cfg.GetBackendURL(), cfg.GetBackendTimeout(), nil), flows)
	require.NoError(t, err)

	return &serverFixture{fake: fake, server: srv}
}

func (f *serverFixture) get(t *testing.T, target string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	return f.do(t, httptest.NewRequest(http.MethodGet, target, nil), cookies...)
}

// post submits a same-origin form post, as the page's buttons do.
func (f *serverFixture) post(t *testing.T, target string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, nil)
	req.Header.Set("Origin", "http://"+req.Host)
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	return f.do(t, req, cookies...)
}

func (f *serverFixture) do(t *testing.T, req *http.Request, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec.Result()
}

func (f *serverFixture) body(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// beginPrimary loads the page unauthenticated and returns the issued state cookie.
func (f *serverFixture) beginPrimary(t *testing.T) *http.Cookie {
	t.Helper()
	resp := f.get(t, "/boxer.html")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	c := findCookie(resp, stateCookie)
	require.NotNil(t, c)
	return c
}

func TestPage_UnauthenticatedRedirects(t *testing.T) {
	f := setupServer(t)

	resp := f.get(t, "/boxer.html")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, primaryAuthHost, loc.Host)

	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	require.Equal(t, testBaseURL+"/boxer.html?action=oauth", loc.Query().Get("redirect_uri"))
	require.Equal(t, "boxer", loc.Query().Get("client_id"))

	c := findCookie(resp, stateCookie)
	require.NotNil(t, c)
	require.Equal(t, state, c.Value)
	require.True(t, c.HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, c.SameSite)
	require.Equal(t, 600, c.MaxAge)
}

func TestPage_FreshStatePerLoad(t *testing.T) {
	f := setupServer(t)

	first := f.beginPrimary(t)
	second := f.beginPrimary(t)
	require.NotEqual(t, first.Value, second.Value)
}

func TestPage_Prompts(t *testing.T) {
	tests := []struct {
		name     string
		snapshot string
		contains []string
	}{
		{
			name:     "unlinked",
			snapshot: `{"credentials":{"uid":"jdoe"},"github":false}`,
			contains: []string{"You have not authenticated with GitHub yet.", `href="/auth/github"`, "Auth with GitHub"},
		},
		{
			name:     "pending invite",
			snapshot: `{"credentials":{"uid":"jdoe","github_login":"octo"}}`,
			contains: []string{"Apache GitHub organization", "<br>", `<form method="post" action="/invite">`, "Invite me to the GitHub organization!"},
		},
		{
			name:     "mismatched",
			snapshot: `{"credentials":{"uid":"jdoe","github_login":"octo","github_org_member":true},"github":{"login":"other"}}`,
			contains: []string{"octo", "other"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupServer(t)
			f.fake.SetPreferencesResponse(http.StatusOK, tt.snapshot)

			resp := f.get(t, "/boxer.html")
			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.Empty(t, resp.Header.Get("Location"))
			require.Nil(t, findCookie(resp, stateCookie))

			body := f.body(t, resp)
			for _, want := range tt.contains {
				require.Contains(t, body, want)
			}
			require.Contains(t, body, `action="/logout"`)
		})
	}
}

func TestPage_FullyAuthorized(t *testing.T) {
	f := setupServer(t)
	f.fake.SetPreferencesResponse(http.StatusOK,
		`{"credentials":{"uid":"jdoe","github_login":"octo","github_org_member":true},"github":{"login":"octo"}}`)

	resp := f.get(t, "/boxer.html")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := f.body(t, resp)
	require.Contains(t, body, `<div id="main">`)
	require.NotContains(t, body, "<span")
	require.Contains(t, body, `action="/logout"`)
}

func TestPage_BackendDown(t *testing.T) {
	f := setupServer(t)
	f.fake.SetDown(true)

	resp := f.get(t, "/boxer.html")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Contains(t, f.body(t, resp), "Try again")
}

func TestPage_MalformedSnapshot(t *testing.T) {
	f := setupServer(t)
	f.fake.SetPreferencesResponse(http.StatusOK, "<html>")

	resp := f.get(t, "/boxer.html")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestPage_CallbackSuccess(t *testing.T) {
	f := setupServer(t)
	f.fake.SetOAuthOkay(true)
	state := f.beginPrimary(t)

	resp := f.get(t, "/boxer.html?action=oauth&state="+state.Value+"&code=abc", state)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, completionPath, resp.Header.Get("Location"))

	session := findCookie(resp, backendfake.SessionCookieName)
	require.NotNil(t, session)
	require.Equal(t, "session-abc", session.Value)

	cleared := findCookie(resp, stateCookie)
	require.NotNil(t, cleared)
	require.Less(t, cleared.MaxAge, 0)

	calls := f.fake.OAuthCalls()
	require.Len(t, calls, 1)
	require.Equal(t, map[string]string{"action": "oauth", "state": state.Value, "code": "abc"}, calls[0])

	_, leaked := f.fake.ReceivedCookie(stateCookie)
	require.False(t, leaked)
}

func TestPage_CallbackReplay(t *testing.T) {
	f := setupServer(t)
	f.fake.SetOAuthOkay(true)
	state := f.beginPrimary(t)
	target := "/boxer.html?action=oauth&state=" + state.Value + "&code=abc"

	require.Equal(t, http.StatusFound, f.get(t, target, state).StatusCode)

	replay := f.get(t, target, state)
	require.Equal(t, http.StatusBadRequest, replay.StatusCode)
	require.Contains(t, f.body(t, replay), "Start over")
	require.Len(t, f.fake.OAuthCalls(), 1)
}

func TestPage_CallbackRejected(t *testing.T) {
	f := setupServer(t)
	state := f.beginPrimary(t)

	resp := f.get(t, "/boxer.html?action=oauth&state="+state.Value+"&code=abc", state)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, resp.Header.Get("Location"))

	body := f.body(t, resp)
	require.Contains(t, body, "Something went wrong... :(")
	require.Contains(t, body, "alert(")
	require.Len(t, f.fake.OAuthCalls(), 1)
}

func TestPage_CallbackUntrustedState(t *testing.T) {
	tests := []struct {
		name    string
		query   func(state string) string
		cookies func(state *http.Cookie) []*http.Cookie
	}{
		{
			name:    "no state cookie",
			query:   func(s string) string { return "action=oauth&code=abc&state=" + s },
			cookies: func(*http.Cookie) []*http.Cookie { return nil },
		},
		{
			name:  "forged state",
			query: func(string) string { return "action=oauth&code=abc&state=forged" },
			cookies: func(*http.Cookie) []*http.Cookie {
				return []*http.Cookie{{Name: stateCookie, Value: "forged"}}
			},
		},
		{
			name:    "missing state",
			query:   func(string) string { return "action=oauth&code=abc" },
			cookies: func(c *http.Cookie) []*http.Cookie { return []*http.Cookie{c} },
		},
		{
			name:    "wrong provider",
			query:   func(s string) string { return "action=oauth&key=github&code=abc&state=" + s },
			cookies: func(c *http.Cookie) []*http.Cookie { return []*http.Cookie{c} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupServer(t)
			f.fake.SetOAuthOkay(true)
			state := f.beginPrimary(t)

			resp := f.get(t, "/boxer.html?"+tt.query(state.Value), tt.cookies(state)...)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			require.Empty(t, f.fake.OAuthCalls())
		})
	}
}

func TestGitHubBegin(t *testing.T) {
	f := setupServer(t)
	f.fake.SetOAuthOkay(true)

	resp := f.get(t, "/auth/github?return_to="+url.QueryEscape("/boxer.html?tab=repos"))
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "github.com", loc.Host)
	require.Equal(t, "/login/oauth/authorize", loc.Path)

	q := loc.Query()
	require.Equal(t, "gh-client", q.Get("client_id"))
	require.Equal(t, "read:org repo user:email", q.Get("scope"))
	require.Equal(t, testBaseURL+"/boxer.html?action=oauth&key=github", q.Get("redirect_uri"))

	state := findCookie(resp, stateCookie)
	require.NotNil(t, state)
	require.Equal(t, q.Get("state"), state.Value)

	callback := f.get(t, "/boxer.html?action=oauth&key=github&state="+state.Value+"&code=gh", state)
	require.Equal(t, http.StatusFound, callback.StatusCode)
	require.Equal(t, "/boxer.html?tab=repos", callback.Header.Get("Location"))
}

func TestInvite(t *testing.T) {
	t.Run("sent", func(t *testing.T) {
		f := setupServer(t)
		f.fake.SetInviteOkay(true)

		resp := f.post(t, "/invite")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := f.body(t, resp)
		require.Contains(t, body, "Review invitation")
		require.Contains(t, body, testReviewURL)
		require.Equal(t, 1, f.fake.InviteCalls())
	})

	t.Run("refused", func(t *testing.T) {
		f := setupServer(t)

		resp := f.post(t, "/invite")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, f.body(t, resp), "you may already have an invitation pending")
	})

	t.Run("backend down", func(t *testing.T) {
		f := setupServer(t)
		f.fake.SetDown(true)

		resp := f.post(t, "/invite")
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestLogout(t *testing.T) {
	f := setupServer(t)

	resp := f.post(t, "/logout", &http.Cookie{Name: backendfake.SessionCookieName, Value: "session-abc"})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))
	require.Equal(t, 1, f.fake.LogoutCalls())

	received, ok := f.fake.ReceivedCookie(backendfake.SessionCookieName)
	require.True(t, ok)
	require.Equal(t, "session-abc", received)

	session := findCookie(resp, backendfake.SessionCookieName)
	require.NotNil(t, session)
	require.Less(t, session.MaxAge, 0)
}

func TestLogout_BackendDown(t *testing.T) {
	f := setupServer(t)
	f.fake.SetDown(true)

	resp := f.post(t, "/logout")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))
}

func TestRootRedirect(t *testing.T) {
	f := setupServer(t)

	resp := f.get(t, "/")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/boxer.html", resp.Header.Get("Location"))

	require.Equal(t, http.StatusNotFound, f.get(t, "/nope").StatusCode)
}

func TestHealth(t *testing.T) {
	f := setupServer(t)

	resp := f.get(t, "/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var body struct {
		Status         string `json:"status"`
		RedeemedStates int    `json:"redeemed_states"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "ok", body.Status)
	require.Zero(t, body.RedeemedStates)
}

func TestHealth_CountsRedeemedStatesOnly(t *testing.T) {
	f := setupServer(t)
	f.fake.SetOAuthOkay(true)

	for i := 0; i < 25; i++ {
		f.beginPrimary(t)
	}
	state := f.beginPrimary(t)
	require.Equal(t, http.StatusFound, f.get(t, "/boxer.html?action=oauth&state="+state.Value+"&code=abc", state).StatusCode)

	var body struct {
		RedeemedStates int `json:"redeemed_states"`
	}
	resp := f.get(t, "/healthz")
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, 1, body.RedeemedStates)
}

func TestActions_RequirePost(t *testing.T) {
	f := setupServer(t)

	for _, path := range []string{"/invite", "/logout"} {
		t.Run(path, func(t *testing.T) {
			resp := f.get(t, path)
			require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		})
	}
	require.Zero(t, f.fake.InviteCalls())
	require.Zero(t, f.fake.LogoutCalls())
}

func TestActions_RejectCrossOrigin(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{name: "foreign origin", headers: map[string]string{"Origin": "https://evil.example"}, want: http.StatusForbidden},
		{name: "cross-site fetch", headers: map[string]string{"Sec-Fetch-Site": "cross-site"}, want: http.StatusForbidden},
		{name: "same-site sibling", headers: map[string]string{"Sec-Fetch-Site": "same-site"}, want: http.StatusForbidden},
		{name: "unparseable origin", headers: map[string]string{"Origin": "://"}, want: http.StatusForbidden},
		{name: "non-browser client", headers: map[string]string{}, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupServer(t)
			f.fake.SetInviteOkay(true)

			req := httptest.NewRequest(http.MethodPost, "/invite", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			resp := f.do(t, req)
			require.Equal(t, tt.want, resp.StatusCode)
			if tt.want == http.StatusForbidden {
				require.Zero(t, f.fake.InviteCalls())
			}
		})
	}
}

func TestRecoverMiddleware(t *testing.T) {
	f := setupServer(t)

	handler := server.ChainMiddleware(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}, f.server.LoggingMiddleware, f.server.RecoverMiddleware)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWWWRedirect(t *testing.T) {
	f := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/boxer.html", nil)
	req.Host = "www.boxer.example.org"
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusMovedPermanently, rec.Code)
	require.Equal(t, "http://boxer.example.org/boxer.html", rec.Header().Get("Location"))
}
