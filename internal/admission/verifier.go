package admission

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the verified identity extracted from a bearer token. A Claims
// value exists only if the token's signature, structure and expiry all
// passed verification.
type Claims struct {
	UserID   int64
	Email    string
	Nickname string
	// TokenID is the revocation key: the token's jti claim, or the
	// subject claim when no jti is present.
	TokenID string
}

type tokenClaims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"userId"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

// Verifier validates bearer tokens against the process-wide shared secret.
// It performs no I/O and is safe for concurrent use.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify validates the raw token (without the "Bearer " prefix) and extracts
// its claims. Invalid input is an expected outcome, reported as an error
// value; Verify never panics.
func (v *Verifier) Verify(raw string) (*Claims, error) {
	var tc tokenClaims
	token, err := jwt.ParseWithClaims(raw, &tc, func(_ *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}

	tokenID := tc.ID
	if tokenID == "" {
		tokenID = tc.Subject
	}

	return &Claims{
		UserID:   tc.UserID,
		Email:    tc.Email,
		Nickname: tc.Nickname,
		TokenID:  tokenID,
	}, nil
}
