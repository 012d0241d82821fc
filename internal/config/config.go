package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/boxer-login/internal/errors"
)

type Config interface {
	EnvConfig
	BackendConfig
	OAuthConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetBaseURL() string
	GetPagePath() string
	GetCompletionPath() string
}

type BackendConfig interface {
	GetBackendURL() string
	GetBackendTimeout() time.Duration
}

type mainConfig struct {
	EnvVars
	Backend
	OAuth
	Security
}

// New builds the configuration from the environment, layered over the YAML
// file named by CONFIG_FILE when it is set.
func New() (Config, error) {
	file := &fileConfig{}
	if path := GetEnv(configFileEnvVar, ""); path != "" {
		loaded, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		file = loaded
	}
	return fromFile(file), nil
}

func fromFile(file *fileConfig) Config {
	return mainConfig{
		EnvVars:  EnvVars{file: file},
		Backend:  Backend{file: file},
		OAuth:    OAuth{file: file},
		Security: Security{file: file},
	}
}

// Validate reports every invalid setting in c.
func Validate(c Config) error {
	var errs []error

	for name, raw := range map[string]string{
		"BASE_URL":    c.GetBaseURL(),
		"BACKEND_URL": c.GetBackendURL(),
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%w: %s must be an absolute URL, got %q", apperrors.ErrInvalidConfig, name, raw))
		}
	}

	for name, path := range map[string]string{
		"PAGE_PATH":       c.GetPagePath(),
		"COMPLETION_PATH": c.GetCompletionPath(),
	} {
		if !strings.HasPrefix(path, "/") {
			errs = append(errs, fmt.Errorf("%w: %s must start with '/', got %q", apperrors.ErrInvalidConfig, name, path))
		}
	}

	if c.GetOAuthIssuer() == "" && c.GetOAuthAuthURL() == "" {
		errs = append(errs, fmt.Errorf("%w: one of OAUTH_ISSUER or OAUTH_AUTH_URL is required", apperrors.ErrInvalidConfig))
	}

	return apperrors.Join(errs...)
}
