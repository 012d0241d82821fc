package login

// Variant is the authorization state a session snapshot is in.
type Variant int

const (
	Unauthenticated Variant = iota
	AuthenticatedUnlinked
	AuthenticatedPendingInvite
	AuthenticatedMismatched
	FullyAuthorized
)

func (v Variant) String() string {
	switch v {
	case Unauthenticated:
		return "unauthenticated"
	case AuthenticatedUnlinked:
		return "authenticated_unlinked"
	case AuthenticatedPendingInvite:
		return "authenticated_pending_invite"
	case AuthenticatedMismatched:
		return "authenticated_mismatched"
	case FullyAuthorized:
		return "fully_authorized"
	default:
		return "unknown"
	}
}

// Classify maps a snapshot onto exactly one Variant. Checks run in a fixed
// order and the first match wins.
func Classify(s *Snapshot) Variant {
	if s.uid() == "" {
		return Unauthenticated
	}
	if s.GitHub == nil && s.credentialLogin() == "" {
		return AuthenticatedUnlinked
	}
	if !s.orgMember() {
		return AuthenticatedPendingInvite
	}
	if s.GitHub == nil || s.credentialLogin() != s.linkedLogin() {
		return AuthenticatedMismatched
	}
	return FullyAuthorized
}
