package oauthflow

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/boxer-login/internal/errors"
	"golang.org/x/crypto/hkdf"
)

const (
	stateIssuer  = "boxer-login"
	stateKeyInfo = "boxer-login oauth state v1"
)

// Kind identifies which provider a flow was started against.
type Kind string

const (
	KindPrimary Kind = "primary"
	KindGitHub  Kind = "github"
)

// KindFromKey maps the callback's key parameter to a flow kind.
func KindFromKey(key string) Kind {
	if key == string(KindGitHub) {
		return KindGitHub
	}
	return KindPrimary
}

// State is the content of an anti-forgery token.
type State struct {
	ID        string
	Kind      Kind
	ReturnURL string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type stateClaims struct {
	Kind      Kind   `json:"knd"`
	ReturnURL string `json:"ret,omitempty"`
	jwt.RegisteredClaims
}

// Signer turns flow states into HS256 tokens and back.
type Signer struct {
	key       []byte
	ephemeral bool
}

// NewSigner derives the signing key from secret. An empty secret yields a
// random key, so tokens only verify within this process.
func NewSigner(secret string) (*Signer, error) {
	key := make([]byte, 32)
	if secret == "" {
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate state key: %w", err)
		}
		return &Signer{key: key, ephemeral: true}, nil
	}

	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(stateKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive state key: %w", err)
	}
	return &Signer{key: key}, nil
}

// Ephemeral reports whether the key was generated rather than derived.
func (s *Signer) Ephemeral() bool {
	return s.ephemeral
}

func (s *Signer) Sign(st State) (string, error) {
	claims := stateClaims{
		Kind:      st.Kind,
		ReturnURL: st.ReturnURL,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        st.ID,
			Issuer:    stateIssuer,
			IssuedAt:  jwt.NewNumericDate(st.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(st.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}
	return token, nil
}

// Parse verifies the token's signature and expiry as of now.
func (s *Signer) Parse(token string, now time.Time) (*State, error) {
	claims := &stateClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return s.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, apperrors.ErrStateExpired
	}
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidState, "%v", err)
	}
	if claims.ID == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidState, "missing token id")
	}

	st := &State{
		ID:        claims.ID,
		Kind:      claims.Kind,
		ReturnURL: claims.ReturnURL,
	}
	if claims.IssuedAt != nil {
		st.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		st.ExpiresAt = claims.ExpiresAt.Time
	}
	return st, nil
}
