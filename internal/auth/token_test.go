package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner_RoundTrip(t *testing.T) {
	s := Signer{Secret: "test_secret", Issuer: "repairshop", TTL: time.Hour}
	now := time.Unix(1700000000, 0)

	tok, exp, err := s.Issue("staff-1", "ana@leselec.com", "encargado", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), exp)

	claims, err := s.Verify(tok, now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "staff-1", claims.Subject)
	assert.Equal(t, "ana@leselec.com", claims.Email)
	assert.Equal(t, "encargado", claims.Role)
}

func TestSigner_Rejects(t *testing.T) {
	s := Signer{Secret: "test_secret", Issuer: "repairshop", TTL: time.Hour}
	now := time.Unix(1700000000, 0)
	tok, _, err := s.Issue("staff-1", "", "", now)
	require.NoError(t, err)

	_, err = s.Verify(tok, now.Add(2*time.Hour))
	assert.Error(t, err, "expired")

	_, err = Signer{Secret: "other", Issuer: "repairshop"}.Verify(tok, now)
	assert.Error(t, err, "wrong secret")

	_, err = Signer{Secret: "test_secret", Issuer: "someone-else"}.Verify(tok, now)
	assert.Error(t, err, "wrong issuer")

	_, err = s.Verify("", now)
	assert.Error(t, err)

	_, _, err = Signer{}.Issue("staff-1", "", "", now)
	assert.Error(t, err)
}

func TestSigner_RejectsOtherAlgorithmsAndMissingSubject(t *testing.T) {
	s := Signer{Secret: "test_secret"}
	now := time.Unix(1700000000, 0)

	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "staff-1",
		ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
	}}
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test_secret"))
	require.NoError(t, err)
	_, err = s.Verify(hs512, now)
	assert.Error(t, err)

	claims.Subject = ""
	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test_secret"))
	require.NoError(t, err)
	_, err = s.Verify(noSub, now)
	assert.Error(t, err)

	claims.Subject = "staff-1"
	claims.ExpiresAt = nil
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test_secret"))
	require.NoError(t, err)
	_, err = s.Verify(noExp, now)
	assert.Error(t, err)
}
