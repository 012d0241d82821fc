package authflowrepo

import "time"

// AuthFlowState is what the server remembers about a state token once a
// provider has called back with it.
type AuthFlowState struct {
	Kind       string
	ReturnURL  string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	RedeemedAt time.Time
}

// Repo records redeemed state tokens until they expire. Issued tokens are
// never stored: they are signed and bound to the browser by cookie, so only
// a replay needs server-side memory.
type Repo interface {
	// Redeem records id as used. A second Redeem of the same id fails with
	// ErrStateRedeemed.
	Redeem(id string, authState *AuthFlowState) error
	Count() int
}
