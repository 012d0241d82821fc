package authflowrepo_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/boxer-login/internal/errors"
	"github.com/jrsteele09/boxer-login/oauthflow/authflowrepo"
	"github.com/stretchr/testify/require"
)

func TestCacheRepo_Redeem(t *testing.T) {
	repo := authflowrepo.NewCacheRepo(time.Minute, time.Minute)
	now := time.Now()

	err := repo.Redeem("flow-1", &authflowrepo.AuthFlowState{
		Kind:      "github",
		ReturnURL: "/boxer.html",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Minute),
	})
	require.NoError(t, err)
	require.Equal(t, 1, repo.Count())

	t.Run("second redeem fails", func(t *testing.T) {
		err := repo.Redeem("flow-1", &authflowrepo.AuthFlowState{Kind: "github", ExpiresAt: now.Add(time.Minute)})
		require.ErrorIs(t, err, apperrors.ErrStateRedeemed)
		require.Equal(t, 1, repo.Count())
	})

	t.Run("other ids are independent", func(t *testing.T) {
		require.NoError(t, repo.Redeem("flow-2", &authflowrepo.AuthFlowState{Kind: "primary"}))
		require.Equal(t, 2, repo.Count())
	})
}

func TestCacheRepo_Validation(t *testing.T) {
	repo := authflowrepo.NewCacheRepo(time.Minute, time.Minute)

	require.Error(t, repo.Redeem("", &authflowrepo.AuthFlowState{}))
	require.Error(t, repo.Redeem("id", nil))

	err := repo.Redeem("old", &authflowrepo.AuthFlowState{ExpiresAt: time.Now().Add(-time.Second)})
	require.ErrorIs(t, err, apperrors.ErrStateExpired)
	require.Zero(t, repo.Count())
}

func TestCacheRepo_EntriesExpireWithToken(t *testing.T) {
	repo := authflowrepo.NewCacheRepo(time.Minute, time.Minute)

	err := repo.Redeem("short", &authflowrepo.AuthFlowState{ExpiresAt: time.Now().Add(20 * time.Millisecond)})
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)

	// Once the token has expired its signature check rejects it, so the
	// slot may be reused.
	require.NoError(t, repo.Redeem("short", &authflowrepo.AuthFlowState{ExpiresAt: time.Now().Add(time.Minute)}))
}

func TestCacheRepo_ConcurrentRedeemSucceedsOnce(t *testing.T) {
	repo := authflowrepo.NewCacheRepo(time.Minute, time.Minute)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.Redeem("race", &authflowrepo.AuthFlowState{Kind: "primary"}); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
}
