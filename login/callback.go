package login

import (
	"net/url"
	"strings"
)

const (
	// ActionOAuth marks a page load as an OAuth provider callback.
	ActionOAuth = "oauth"

	ParamAction = "action"
	ParamState  = "state"
	ParamKey    = "key"
	ParamError  = "error"
)

// CallbackParams are the query parameters of the page load. They are forwarded
// verbatim to the backend when completing an OAuth callback.
type CallbackParams map[string]string

// ParseCallbackParams reads name=value pairs from a raw query string. Pairs
// with an empty name or value are skipped, values are percent-decoded (a '+'
// stays a '+') and a repeated name keeps its last value.
func ParseCallbackParams(rawQuery string) CallbackParams {
	params := CallbackParams{}
	for _, pair := range strings.Split(strings.TrimPrefix(rawQuery, "?"), "&") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" || value == "" {
			continue
		}
		if decoded, err := url.PathUnescape(value); err == nil {
			value = decoded
		}
		params[name] = value
	}
	return params
}

func (p CallbackParams) IsOAuthCallback() bool {
	return p[ParamAction] == ActionOAuth
}

func (p CallbackParams) State() string {
	return p[ParamState]
}

// Key names the provider a callback came from; empty for the primary provider.
func (p CallbackParams) Key() string {
	return p[ParamKey]
}

// ProviderError is the error code the provider returned instead of a code, if any.
func (p CallbackParams) ProviderError() string {
	return p[ParamError]
}
