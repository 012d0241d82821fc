package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/boxer-login/internal/utils"
)

const (
	configFileEnvVar = "CONFIG_FILE"

	portEnvVar            = "PORT"
	appNameVar            = "APP_NAME"
	envVar                = "ENV"
	logLevelVar           = "LOG_LEVEL"
	baseURLVar            = "BASE_URL"
	pagePathVar           = "PAGE_PATH"
	completionPathVar     = "COMPLETION_PATH"
	backendURLVar         = "BACKEND_URL"
	backendTimeoutVar     = "BACKEND_TIMEOUT"
	oauthAuthURLVar       = "OAUTH_AUTH_URL"
	oauthIssuerVar        = "OAUTH_ISSUER"
	oauthClientIDVar      = "OAUTH_CLIENT_ID"
	oauthScopesVar        = "OAUTH_SCOPES"
	githubClientIDVar     = "GITHUB_CLIENT_ID"
	githubScopesVar       = "GITHUB_SCOPES"
	inviteReviewURLVar    = "GITHUB_INVITE_REVIEW_URL"
	stateSecretVar        = "STATE_SECRET"
	stateTTLVar           = "STATE_TTL"
	secureCookiesVar      = "SECURE_COOKIES"
	defaultPagePath       = "/boxer.html"
	defaultBaseURL        = "http://localhost:8080"
	defaultBackendURL     = "http://localhost:8081"
	defaultOAuthAuthURL   = "https://oauth.apache.org/auth"
	defaultInviteReview   = "https://github.com/orgs/apache/invitation"
	defaultGitHubScopes   = "read:org,repo,user:email"
	defaultBackendTimeout = 10 * time.Second
)

type EnvVars struct {
	file *fileConfig
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := value(portEnvVar, e.file.Port, "8080")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return value(appNameVar, e.file.AppName, "Boxer Login")
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(value(envVar, e.file.Env, "DEV"))
}

func (e EnvVars) GetLogLevel() string {
	def := "info"
	if e.GetEnv() == "DEV" {
		def = "debug"
	}
	return strings.ToLower(value(logLevelVar, e.file.LogLevel, def))
}

// GetBaseURL returns the public URL this service is reachable on (e.g. "https://boxer.apache.org").
// OAuth redirect URIs are built from it.
func (e EnvVars) GetBaseURL() string {
	return strings.TrimSuffix(value(baseURLVar, e.file.BaseURL, defaultBaseURL), "/")
}

// GetPagePath is the path of the login page; OAuth callbacks return here.
func (e EnvVars) GetPagePath() string {
	return value(pagePathVar, e.file.PagePath, defaultPagePath)
}

// GetCompletionPath is where the browser lands after a successful callback.
func (e EnvVars) GetCompletionPath() string {
	return value(completionPathVar, e.file.CompletionPath, defaultPagePath)
}

type Backend struct {
	file *fileConfig
}

var _ BackendConfig = Backend{}

func (b Backend) GetBackendURL() string {
	return strings.TrimSuffix(value(backendURLVar, b.file.Backend.URL, defaultBackendURL), "/")
}

func (b Backend) GetBackendTimeout() time.Duration {
	return durationValue(backendTimeoutVar, b.file.Backend.Timeout, defaultBackendTimeout)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// value resolves a setting: environment first, then the config file, then the default.
func value(envVar, fileValue, defaultValue string) string {
	if fileValue != "" {
		defaultValue = fileValue
	}
	return GetEnv(envVar, defaultValue)
}

func durationValue(envVar, fileValue string, defaultValue time.Duration) time.Duration {
	raw := value(envVar, fileValue, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func boolValue(envVar string, fileValue *bool, defaultValue bool) bool {
	defaultValue = utils.ValueOr(fileValue, defaultValue)
	raw := os.Getenv(envVar)
	if raw == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue
	}
	return b
}

// listValue splits a comma separated env var; the file value is already a list.
func listValue(envVar string, fileValue []string, defaultValue string) []string {
	raw := os.Getenv(envVar)
	if raw == "" && len(fileValue) > 0 {
		return fileValue
	}
	if raw == "" {
		raw = defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
