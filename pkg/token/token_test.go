package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	tok, exp, err := iss.Issue("user-1", "a@example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	sub, err := iss.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	tok, _, err := NewIssuer("secret", time.Hour).Issue("user-1", "")
	require.NoError(t, err)
	_, err = NewIssuer("other", time.Hour).Parse(tok)
	assert.Error(t, err)
}

func TestParseRejectsExpired(t *testing.T) {
	iss := NewIssuer("secret", time.Minute)
	iss.now = func() time.Time { return time.Now().Add(-time.Hour) }
	tok, _, err := iss.Issue("user-1", "")
	require.NoError(t, err)

	_, err = NewIssuer("secret", time.Minute).Parse(tok)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseRequiresSubject(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"email": "x"}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = NewIssuer("secret", time.Hour).Parse(tok)
	assert.ErrorContains(t, err, "sub")
}

func TestParseRejectsNoneAlg(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = NewIssuer("secret", time.Hour).Parse(tok)
	assert.Error(t, err)
}
