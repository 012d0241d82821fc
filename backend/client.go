package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/boxer-login/internal/errors"
	"github.com/jrsteele09/boxer-login/login"
)

// Backend API paths
const (
	PathPreferences = "/api/preferences.json"
	PathOAuth       = "/api/oauth.json"
	PathInvite      = "/api/invite"
	PathLogout      = "/api/preferences?logout=true"

	userAgent       = "Boxer Login Gateway/1.0"
	maxResponseSize = 1 << 20
)

// Client talks to the Boxer backend API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

func New(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		timeout:    timeout,
	}
}

// Session binds the client to one browser's cookies. Cookies set by the
// backend are kept for later calls in the same session and can be relayed to
// the browser with ResponseCookies.
func (c *Client) Session(cookies []*http.Cookie) *Session {
	s := &Session{client: c, jar: make(map[string]*http.Cookie)}
	for _, cookie := range cookies {
		if _, ok := s.jar[cookie.Name]; !ok {
			s.order = append(s.order, cookie.Name)
		}
		s.jar[cookie.Name] = cookie
	}
	return s
}

type Session struct {
	client *Client

	mu       sync.Mutex
	jar      map[string]*http.Cookie
	order    []string
	received []*http.Cookie
}

var _ login.Backend = (*Session)(nil)

type okayResponse struct {
	Okay    bool   `json:"okay"`
	Message string `json:"message,omitempty"`
}

// Preferences fetches the session snapshot.
func (s *Session) Preferences(ctx context.Context) (*login.Snapshot, error) {
	var snapshot login.Snapshot
	if err := s.do(ctx, http.MethodGet, PathPreferences, nil, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// CompleteOAuth hands the provider's callback parameters to the backend.
func (s *Session) CompleteOAuth(ctx context.Context, params login.CallbackParams) (bool, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return false, fmt.Errorf("failed to encode callback params: %w", err)
	}

	var resp okayResponse
	if err := s.do(ctx, http.MethodPost, PathOAuth, body, &resp); err != nil {
		return false, err
	}
	return resp.Okay, nil
}

// Invite asks the backend to invite the user to the GitHub organization.
func (s *Session) Invite(ctx context.Context) (bool, error) {
	var resp okayResponse
	if err := s.do(ctx, http.MethodGet, PathInvite, nil, &resp); err != nil {
		return false, err
	}
	return resp.Okay, nil
}

// Logout ends the backend session.
func (s *Session) Logout(ctx context.Context) error {
	return s.do(ctx, http.MethodGet, PathLogout, nil, nil)
}

// ResponseCookies returns every cookie the backend set during this session.
func (s *Session) ResponseCookies() []*http.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*http.Cookie(nil), s.received...)
}

func (s *Session) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, s.client.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.client.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Cache-Control", "no-cache")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	s.addCookies(req)

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrBackendUnavailable, "%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	s.keepCookies(resp.Cookies())

	if resp.StatusCode >= http.StatusInternalServerError {
		return apperrors.Wrapf(apperrors.ErrBackendUnavailable, "%s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrBackendUnavailable, "%s %s: reading body: %v", method, path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.Wrapf(apperrors.ErrMalformedResponse, "%s %s (status %d): %v", method, path, resp.StatusCode, err)
	}
	return nil
}

func (s *Session) addCookies(req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range s.order {
		if c, ok := s.jar[name]; ok {
			req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
		}
	}
}

func (s *Session) keepCookies(cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range cookies {
		s.received = append(s.received, c)
		if c.MaxAge < 0 {
			s.forget(c.Name)
			continue
		}
		if _, ok := s.jar[c.Name]; !ok {
			s.order = append(s.order, c.Name)
		}
		s.jar[c.Name] = c
	}
}

func (s *Session) forget(name string) {
	delete(s.jar, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}
