package login

import (
	"bytes"
	"encoding/json"

	"github.com/jrsteele09/boxer-login/internal/utils"
)

// Credentials is the local-account half of a session snapshot.
type Credentials struct {
	UID             string `json:"uid,omitempty"`
	GitHubLogin     string `json:"github_login,omitempty"`
	GitHubOrgMember *bool  `json:"github_org_member,omitempty"`
}

// GitHubIdentity is the identity reported by the linked GitHub account.
type GitHubIdentity struct {
	Login string `json:"login"`
}

// Snapshot is the backend's view of the current browser session, as served by
// the preferences endpoint. It is fetched once per page load and never mutated.
type Snapshot struct {
	Credentials *Credentials    `json:"credentials,omitempty"`
	GitHub      *GitHubIdentity `json:"github,omitempty"`
}

// UnmarshalJSON accepts a github value of null, false or "" as "no linked identity".
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw struct {
		Credentials *Credentials    `json:"credentials"`
		GitHub      json.RawMessage `json:"github"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.Credentials = raw.Credentials
	s.GitHub = nil

	gh := bytes.TrimSpace(raw.GitHub)
	if len(gh) == 0 || gh[0] != '{' {
		return nil
	}
	var identity GitHubIdentity
	if err := json.Unmarshal(gh, &identity); err != nil {
		return err
	}
	s.GitHub = &identity
	return nil
}

func (s *Snapshot) uid() string {
	if s == nil || s.Credentials == nil {
		return ""
	}
	return s.Credentials.UID
}

func (s *Snapshot) credentialLogin() string {
	if s == nil || s.Credentials == nil {
		return ""
	}
	return s.Credentials.GitHubLogin
}

func (s *Snapshot) linkedLogin() string {
	if s == nil || s.GitHub == nil {
		return ""
	}
	return s.GitHub.Login
}

func (s *Snapshot) orgMember() bool {
	if s == nil || s.Credentials == nil {
		return false
	}
	return utils.Value(s.Credentials.GitHubOrgMember)
}
