package oauthflow

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/boxer-login/internal/errors"
	"github.com/jrsteele09/boxer-login/oauthflow/authflowrepo"
)

// Authorization is a started flow: where to send the browser and the token
// the browser must hold until the callback.
type Authorization struct {
	URL       string
	State     string
	ExpiresAt time.Time
}

type Manager struct {
	signer    *Signer
	repo      authflowrepo.Repo
	providers *Providers
	ttl       time.Duration
	now       func() time.Time
}

type Option func(*Manager)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(signer *Signer, repo authflowrepo.Repo, providers *Providers, ttl time.Duration, opts ...Option) *Manager {
	m := &Manager{
		signer:    signer,
		repo:      repo,
		providers: providers,
		ttl:       ttl,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Begin issues a fresh state token for kind and builds the provider's
// authorization URL around it. Nothing is stored until the token is redeemed.
func (m *Manager) Begin(ctx context.Context, kind Kind, returnURL string) (*Authorization, error) {
	cfg, err := m.providers.Config(ctx, kind)
	if err != nil {
		return nil, err
	}

	now := m.now()
	st := State{
		ID:        uuid.NewString(),
		Kind:      kind,
		ReturnURL: returnURL,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}

	token, err := m.signer.Sign(st)
	if err != nil {
		return nil, err
	}

	return &Authorization{
		URL:       cfg.AuthCodeURL(token),
		State:     token,
		ExpiresAt: st.ExpiresAt,
	}, nil
}

// Complete redeems the state echoed back by a provider. The token must equal
// the one held by the browser, carry a valid signature, be unexpired, belong
// to kind and not have been redeemed before.
func (m *Manager) Complete(_ context.Context, kind Kind, state, browserState string) (*State, error) {
	if state == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidState, "callback carried no state")
	}
	if subtle.ConstantTimeCompare([]byte(state), []byte(browserState)) != 1 {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidState, "state does not match the browser")
	}

	st, err := m.signer.Parse(state, m.now())
	if err != nil {
		return nil, err
	}
	if st.Kind != kind {
		return nil, fmt.Errorf("%w: issued for %s, callback for %s", apperrors.ErrStateKindMismatch, st.Kind, kind)
	}

	err = m.repo.Redeem(st.ID, &authflowrepo.AuthFlowState{
		Kind:      string(st.Kind),
		ReturnURL: st.ReturnURL,
		IssuedAt:  st.IssuedAt,
		ExpiresAt: st.ExpiresAt,
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// TTL is how long an issued state stays redeemable.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Redeemed is the number of redeemed states still remembered for replay checks.
func (m *Manager) Redeemed() int {
	return m.repo.Count()
}
