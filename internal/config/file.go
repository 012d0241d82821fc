package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	Port           string `yaml:"port"`
	AppName        string `yaml:"app_name"`
	Env            string `yaml:"env"`
	LogLevel       string `yaml:"log_level"`
	BaseURL        string `yaml:"base_url"`
	PagePath       string `yaml:"page_path"`
	CompletionPath string `yaml:"completion_path"`

	Backend struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"backend"`

	OAuth struct {
		AuthURL  string   `yaml:"auth_url"`
		Issuer   string   `yaml:"issuer"`
		ClientID string   `yaml:"client_id"`
		Scopes   []string `yaml:"scopes"`
	} `yaml:"oauth"`

	GitHub struct {
		ClientID        string   `yaml:"client_id"`
		Scopes          []string `yaml:"scopes"`
		InviteReviewURL string   `yaml:"invite_review_url"`
	} `yaml:"github"`

	State struct {
		Secret string `yaml:"secret"`
		TTL    string `yaml:"ttl"`
	} `yaml:"state"`

	SecureCookies *bool `yaml:"secure_cookies"`
}

// loadFile reads a YAML config file. Environment variables still take
// precedence over anything it sets.
func loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &fc, nil
}
