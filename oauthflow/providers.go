package oauthflow

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	apperrors "github.com/jrsteele09/boxer-login/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/sync/singleflight"
)

const discoveryTimeout = 10 * time.Second

// ProviderSettings configures one OAuth provider.
type ProviderSettings struct {
	ClientID string
	Scopes   []string
	// AuthURL is the authorization endpoint. For GitHub it overrides the
	// public endpoint (GitHub Enterprise).
	AuthURL string
	// Issuer, when set, is used to discover endpoints over OIDC and wins
	// over AuthURL.
	Issuer string
}

// Providers builds oauth2 configs for the primary provider and GitHub.
type Providers struct {
	pageURL    string
	primary    ProviderSettings
	github     ProviderSettings
	httpClient *http.Client

	group      singleflight.Group
	mu         sync.RWMutex
	discovered map[string]oauth2.Endpoint
}

// NewProviders creates the provider set. pageURL is the absolute URL of the
// login page that providers redirect back to.
func NewProviders(pageURL string, primary, github ProviderSettings, httpClient *http.Client) *Providers {
	return &Providers{
		pageURL:    pageURL,
		primary:    primary,
		github:     github,
		httpClient: httpClient,
		discovered: make(map[string]oauth2.Endpoint),
	}
}

// CallbackURL is the redirect_uri for a flow kind: the login page flagged as
// an OAuth callback.
func CallbackURL(pageURL string, kind Kind) string {
	q := url.Values{}
	q.Set("action", "oauth")
	if kind == KindGitHub {
		q.Set("key", string(KindGitHub))
	}
	return pageURL + "?" + q.Encode()
}

func (p *Providers) Config(ctx context.Context, kind Kind) (*oauth2.Config, error) {
	switch kind {
	case KindPrimary:
		return p.primaryConfig(ctx)
	case KindGitHub:
		return p.githubConfig()
	default:
		return nil, fmt.Errorf("%w: unknown flow kind %q", apperrors.ErrProviderNotConfigured, kind)
	}
}

func (p *Providers) primaryConfig(ctx context.Context) (*oauth2.Config, error) {
	cfg := &oauth2.Config{
		ClientID:    p.primary.ClientID,
		RedirectURL: CallbackURL(p.pageURL, KindPrimary),
		Scopes:      p.primary.Scopes,
	}

	if p.primary.Issuer != "" {
		endpoint, err := p.discover(ctx, p.primary.Issuer)
		if err != nil {
			return nil, err
		}
		cfg.Endpoint = endpoint
		if len(cfg.Scopes) == 0 {
			cfg.Scopes = []string{oidc.ScopeOpenID}
		}
		return cfg, nil
	}

	if p.primary.AuthURL == "" {
		return nil, fmt.Errorf("%w: primary provider has no authorization endpoint", apperrors.ErrProviderNotConfigured)
	}
	cfg.Endpoint = oauth2.Endpoint{AuthURL: p.primary.AuthURL}
	return cfg, nil
}

func (p *Providers) githubConfig() (*oauth2.Config, error) {
	if p.github.ClientID == "" {
		return nil, fmt.Errorf("%w: GitHub client id is not set", apperrors.ErrProviderNotConfigured)
	}

	endpoint := github.Endpoint
	if p.github.AuthURL != "" {
		endpoint.AuthURL = p.github.AuthURL
	}
	return &oauth2.Config{
		ClientID:    p.github.ClientID,
		Endpoint:    endpoint,
		RedirectURL: CallbackURL(p.pageURL, KindGitHub),
		Scopes:      p.github.Scopes,
	}, nil
}

// discover fetches the issuer's OIDC metadata once; concurrent first callers
// share a single request.
func (p *Providers) discover(ctx context.Context, issuer string) (oauth2.Endpoint, error) {
	if endpoint, ok := p.cached(issuer); ok {
		return endpoint, nil
	}

	v, err, _ := p.group.Do(issuer, func() (interface{}, error) {
		if endpoint, ok := p.cached(issuer); ok {
			return endpoint, nil
		}

		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discoveryTimeout)
		defer cancel()
		if p.httpClient != nil {
			dctx = oidc.ClientContext(dctx, p.httpClient)
		}

		provider, err := oidc.NewProvider(dctx, issuer)
		if err != nil {
			return nil, apperrors.Wrapf(apperrors.ErrProviderDiscovery, "issuer %s: %v", issuer, err)
		}

		endpoint := provider.Endpoint()
		p.mu.Lock()
		p.discovered[issuer] = endpoint
		p.mu.Unlock()

		log.Info().Str("issuer", issuer).Str("auth_url", endpoint.AuthURL).Msg("discovered oauth provider")
		return endpoint, nil
	})
	if err != nil {
		return oauth2.Endpoint{}, err
	}
	return v.(oauth2.Endpoint), nil
}

func (p *Providers) cached(issuer string) (oauth2.Endpoint, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	endpoint, ok := p.discovered[issuer]
	return endpoint, ok
}
