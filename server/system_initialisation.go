package server

import (
	"fmt"
	"net/http"

	"github.com/jrsteele09/boxer-login/internal/config"
	"github.com/jrsteele09/boxer-login/oauthflow"
	"github.com/jrsteele09/boxer-login/oauthflow/authflowrepo"
	"github.com/rs/zerolog/log"
)

// InitialiseFlows builds the OAuth flow manager: the state signer, the store
// of issued states and both providers. httpClient is used for OIDC discovery
// and may be nil.
func InitialiseFlows(cfg config.Config, httpClient *http.Client) (*oauthflow.Manager, error) {
	signer, err := oauthflow.NewSigner(cfg.GetStateSecret())
	if err != nil {
		return nil, fmt.Errorf("[Server InitialiseFlows] failed to create state signer: %w", err)
	}
	if signer.Ephemeral() {
		log.Warn().Msg("STATE_SECRET is not set; using a per-process signing key, callbacks only verify on this instance")
	}

	ttl := cfg.GetStateTTL()
	repo := authflowrepo.NewCacheRepo(ttl, ttl)

	pageURL := cfg.GetBaseURL() + cfg.GetPagePath()
	providers := oauthflow.NewProviders(pageURL,
		oauthflow.ProviderSettings{
			ClientID: cfg.GetOAuthClientID(),
			Scopes:   cfg.GetOAuthScopes(),
			AuthURL:  cfg.GetOAuthAuthURL(),
			Issuer:   cfg.GetOAuthIssuer(),
		},
		oauthflow.ProviderSettings{
			ClientID: cfg.GetGitHubClientID(),
			Scopes:   cfg.GetGitHubScopes(),
		},
		httpClient,
	)
	if cfg.GetGitHubClientID() == "" {
		log.Warn().Msg("GITHUB_CLIENT_ID is not set; the GitHub link flow is disabled")
	}

	return oauthflow.NewManager(signer, repo, providers, ttl), nil
}
