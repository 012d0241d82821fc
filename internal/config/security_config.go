package config

type SecurityConfig interface {
	GetStateSecret() string
	GetSecureCookies() bool
}

type Security struct {
	file *fileConfig
}

var _ SecurityConfig = Security{}

// GetStateSecret is the master secret state tokens are signed with. Empty
// means a random per-process key.
func (s Security) GetStateSecret() string {
	return value(stateSecretVar, s.file.State.Secret, "")
}

func (s Security) GetSecureCookies() bool {
	return boolValue(secureCookiesVar, s.file.SecureCookies, false)
}
