// Package identity adapts the external identity provider: it turns a bearer
// token presented at handshake into a verified user id, or rejects the
// connection outright.
package identity

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"dmrelay/internal/domain"
)

var ErrHandshakeRejected = errors.New("handshake rejected: missing or invalid identity")

type Verifier interface {
	Verify(token string) (domain.UserID, error)
}

// JWTVerifier accepts HS256 tokens whose subject claim is the user id.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(token string) (domain.UserID, error) {
	if token == "" {
		return "", ErrHandshakeRejected
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: %v", ErrHandshakeRejected, err)
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrHandshakeRejected
	}
	uid := domain.UserID(sub)
	if err := domain.ValidateUserID(uid); err != nil {
		return "", fmt.Errorf("%w: %v", ErrHandshakeRejected, err)
	}
	return uid, nil
}

// Sign mints a token for uid. Used by tests and the dev tooling only; in
// production the identity provider issues tokens.
func (v *JWTVerifier) Sign(uid domain.UserID) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: string(uid)})
	return t.SignedString(v.secret)
}

// StaticVerifier treats the token itself as the user id. Dev mode only.
type StaticVerifier struct{}

func (StaticVerifier) Verify(token string) (domain.UserID, error) {
	uid := domain.UserID(token)
	if err := domain.ValidateUserID(uid); err != nil {
		return "", fmt.Errorf("%w: %v", ErrHandshakeRejected, err)
	}
	return uid, nil
}
