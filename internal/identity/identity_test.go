package identity

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"dmrelay/internal/domain"
)

func TestJWTVerifier_RoundTrip(t *testing.T) {
	req := require.New(t)
	v := NewJWTVerifier("test-secret")

	token, err := v.Sign("alice")
	req.NoError(err)

	uid, err := v.Verify(token)
	req.NoError(err)
	req.Equal(domain.UserID("alice"), uid)
}

func TestJWTVerifier_EmptyToken(t *testing.T) {
	req := require.New(t)
	v := NewJWTVerifier("test-secret")

	_, err := v.Verify("")
	req.ErrorIs(err, ErrHandshakeRejected)
}

func TestJWTVerifier_WrongSecret(t *testing.T) {
	req := require.New(t)

	token, err := NewJWTVerifier("other-secret").Sign("alice")
	req.NoError(err)

	_, err = NewJWTVerifier("test-secret").Verify(token)
	req.ErrorIs(err, ErrHandshakeRejected)
}

func TestJWTVerifier_MissingSubject(t *testing.T) {
	req := require.New(t)
	secret := "test-secret"

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{}).SignedString([]byte(secret))
	req.NoError(err)

	_, err = NewJWTVerifier(secret).Verify(token)
	req.ErrorIs(err, ErrHandshakeRejected)
}

func TestJWTVerifier_RejectsUnsignedToken(t *testing.T) {
	req := require.New(t)

	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "alice"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	req.NoError(err)

	_, err = NewJWTVerifier("test-secret").Verify(token)
	req.ErrorIs(err, ErrHandshakeRejected)
}

func TestStaticVerifier(t *testing.T) {
	req := require.New(t)
	v := StaticVerifier{}

	uid, err := v.Verify("alice")
	req.NoError(err)
	req.Equal(domain.UserID("alice"), uid)

	_, err = v.Verify("")
	req.ErrorIs(err, ErrHandshakeRejected)
}
