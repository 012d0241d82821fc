package backend_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/boxer-login/backend"
	"github.com/jrsteele09/boxer-login/backend/backendfake"
	apperrors "github.com/jrsteele09/boxer-login/internal/errors"
	"github.com/jrsteele09/boxer-login/internal/utils"
	"github.com/jrsteele09/boxer-login/login"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*backend.Client, *backendfake.Backend) {
	t.Helper()
	fake := backendfake.New()
	t.Cleanup(fake.Close)
	return backend.New(fake.URL, 2*time.Second, nil), fake
}

func TestSession_Preferences(t *testing.T) {
	client, fake := newClient(t)
	fake.SetSnapshot(login.Snapshot{
		Credentials: &login.Credentials{UID: "jdoe", GitHubLogin: "jdoe-gh", GitHubOrgMember: utils.Ptr(true)},
		GitHub:      &login.GitHubIdentity{Login: "jdoe-gh"},
	})

	session := client.Session([]*http.Cookie{{Name: "asfsession", Value: "abc"}})
	snapshot, err := session.Preferences(context.Background())
	require.NoError(t, err)
	require.Equal(t, "jdoe", snapshot.Credentials.UID)
	require.True(t, *snapshot.Credentials.GitHubOrgMember)
	require.Equal(t, "jdoe-gh", snapshot.GitHub.Login)

	value, ok := fake.ReceivedCookie("asfsession")
	require.True(t, ok)
	require.Equal(t, "abc", value)
}

func TestSession_PreferencesFailures(t *testing.T) {
	t.Run("backend down", func(t *testing.T) {
		client, fake := newClient(t)
		fake.SetDown(true)

		_, err := client.Session(nil).Preferences(context.Background())
		require.ErrorIs(t, err, apperrors.ErrBackendUnavailable)
	})

	t.Run("not json", func(t *testing.T) {
		client, fake := newClient(t)
		fake.SetPreferencesResponse(http.StatusOK, "<html>maintenance</html>")

		_, err := client.Session(nil).Preferences(context.Background())
		require.ErrorIs(t, err, apperrors.ErrMalformedResponse)
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := backend.New(url, time.Second, nil).Session(nil).Preferences(context.Background())
		require.ErrorIs(t, err, apperrors.ErrBackendUnavailable)
	})

	t.Run("timeout", func(t *testing.T) {
		slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer slow.Close()

		_, err := backend.New(slow.URL, 50*time.Millisecond, nil).Session(nil).Preferences(context.Background())
		require.ErrorIs(t, err, apperrors.ErrBackendUnavailable)
	})
}

func TestSession_CompleteOAuth(t *testing.T) {
	client, fake := newClient(t)
	fake.SetOAuthOkay(true)

	session := client.Session(nil)
	params := login.CallbackParams{"action": "oauth", "state": "s1", "code": "c1", "key": "github"}
	okay, err := session.CompleteOAuth(context.Background(), params)
	require.NoError(t, err)
	require.True(t, okay)

	calls := fake.OAuthCalls()
	require.Len(t, calls, 1)
	require.Equal(t, map[string]string(params), calls[0])

	t.Run("backend cookie is relayed and reused", func(t *testing.T) {
		cookies := session.ResponseCookies()
		require.Len(t, cookies, 1)
		require.Equal(t, backendfake.SessionCookieName, cookies[0].Name)
		require.Equal(t, "session-c1", cookies[0].Value)

		_, err := session.Preferences(context.Background())
		require.NoError(t, err)
		value, ok := fake.ReceivedCookie(backendfake.SessionCookieName)
		require.True(t, ok)
		require.Equal(t, "session-c1", value)
	})

	t.Run("rejected", func(t *testing.T) {
		fake.SetOAuthOkay(false)
		okay, err := client.Session(nil).CompleteOAuth(context.Background(), params)
		require.NoError(t, err)
		require.False(t, okay)
	})
}

func TestSession_Invite(t *testing.T) {
	client, fake := newClient(t)

	okay, err := client.Session(nil).Invite(context.Background())
	require.NoError(t, err)
	require.False(t, okay)

	fake.SetInviteOkay(true)
	okay, err = client.Session(nil).Invite(context.Background())
	require.NoError(t, err)
	require.True(t, okay)
	require.Equal(t, 2, fake.InviteCalls())
}

func TestSession_Logout(t *testing.T) {
	client, fake := newClient(t)

	session := client.Session([]*http.Cookie{{Name: backendfake.SessionCookieName, Value: "live"}})
	require.NoError(t, session.Logout(context.Background()))
	require.Equal(t, 1, fake.LogoutCalls())

	cookies := session.ResponseCookies()
	require.Len(t, cookies, 1)
	require.Equal(t, -1, cookies[0].MaxAge)
}
