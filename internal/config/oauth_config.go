package config

import "time"

type OAuthConfig interface {
	GetOAuthAuthURL() string
	GetOAuthIssuer() string
	GetOAuthClientID() string
	GetOAuthScopes() []string
	GetGitHubClientID() string
	GetGitHubScopes() []string
	GetInviteReviewURL() string
	GetStateTTL() time.Duration
}

type OAuth struct {
	file *fileConfig
}

var _ OAuthConfig = OAuth{}

func (o OAuth) GetOAuthAuthURL() string {
	return value(oauthAuthURLVar, o.file.OAuth.AuthURL, defaultOAuthAuthURL)
}

// GetOAuthIssuer returns the OIDC issuer of the primary provider. When set,
// endpoints are discovered instead of using GetOAuthAuthURL.
func (o OAuth) GetOAuthIssuer() string {
	return value(oauthIssuerVar, o.file.OAuth.Issuer, "")
}

func (o OAuth) GetOAuthClientID() string {
	return value(oauthClientIDVar, o.file.OAuth.ClientID, "")
}

func (o OAuth) GetOAuthScopes() []string {
	return listValue(oauthScopesVar, o.file.OAuth.Scopes, "")
}

func (o OAuth) GetGitHubClientID() string {
	return value(githubClientIDVar, o.file.GitHub.ClientID, "")
}

func (o OAuth) GetGitHubScopes() []string {
	return listValue(githubScopesVar, o.file.GitHub.Scopes, defaultGitHubScopes)
}

func (o OAuth) GetInviteReviewURL() string {
	return value(inviteReviewURLVar, o.file.GitHub.InviteReviewURL, defaultInviteReview)
}

func (o OAuth) GetStateTTL() time.Duration {
	return durationValue(stateTTLVar, o.file.State.TTL, 10*time.Minute)
}
