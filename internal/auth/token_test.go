package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate/internal/auth"
)

func newTokens(t *testing.T) *auth.Tokens {
	t.Helper()
	tokens, err := auth.NewTokens(auth.TokenConfig{
		SessionSecret: []byte("session-secret"),
		ResetSecret:   []byte("reset-secret"),
	})
	require.NoError(t, err)
	return tokens
}

func TestTokens_RoundTrip(t *testing.T) {
	tokens := newTokens(t)

	session, err := tokens.IssueSession("acc-1")
	require.NoError(t, err)
	claims, err := tokens.Verify(session, auth.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.AccountID)
	assert.NotEmpty(t, claims.ID)

	reset, err := tokens.IssueReset("acc-1")
	require.NoError(t, err)
	claims, err = tokens.Verify(reset, auth.ResetToken)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.AccountID)
}

func TestTokens_Lifetimes(t *testing.T) {
	tokens := newTokens(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tokens.SetClock(func() time.Time { return now })

	session, err := tokens.IssueSession("acc-1")
	require.NoError(t, err)
	claims, err := tokens.Verify(session, auth.SessionToken)
	require.NoError(t, err)
	assert.True(t, now.Add(3600*time.Second).Equal(claims.ExpiresAt.Time))

	reset, err := tokens.IssueReset("acc-1")
	require.NoError(t, err)
	claims, err = tokens.Verify(reset, auth.ResetToken)
	require.NoError(t, err)
	assert.True(t, now.Add(600*time.Second).Equal(claims.ExpiresAt.Time))
}

func TestTokens_ClassesAreNotInterchangeable(t *testing.T) {
	tokens := newTokens(t)

	reset, err := tokens.IssueReset("acc-1")
	require.NoError(t, err)
	_, err = tokens.Verify(reset, auth.SessionToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	session, err := tokens.IssueSession("acc-1")
	require.NoError(t, err)
	_, err = tokens.Verify(session, auth.ResetToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokens_Expired(t *testing.T) {
	tokens := newTokens(t)
	issued := time.Now()
	tokens.SetClock(func() time.Time { return issued })

	reset, err := tokens.IssueReset("acc-1")
	require.NoError(t, err)

	tokens.SetClock(func() time.Time { return issued.Add(601 * time.Second) })
	_, err = tokens.Verify(reset, auth.ResetToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	tokens.SetClock(func() time.Time { return issued.Add(599 * time.Second) })
	_, err = tokens.Verify(reset, auth.ResetToken)
	assert.NoError(t, err)
}

func TestTokens_RejectsForeignAndMalformed(t *testing.T) {
	tokens := newTokens(t)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		AccountID: "acc-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := foreign.SignedString([]byte("someone-else"))
	require.NoError(t, err)

	noExpiry := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{AccountID: "acc-1"})
	noExpirySigned, err := noExpiry.SignedString([]byte("session-secret"))
	require.NoError(t, err)

	noID := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	noIDSigned, err := noID.SignedString([]byte("session-secret"))
	require.NoError(t, err)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, auth.Claims{
		AccountID: "acc-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	unsignedString, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"foreign secret": signed,
		"no expiry":      noExpirySigned,
		"no account id":  noIDSigned,
		"alg none":       unsignedString,
		"malformed":      "not.a.jwt",
		"empty":          "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tokens.Verify(tok, auth.SessionToken)
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}
}

func TestNewTokens_Validation(t *testing.T) {
	_, err := auth.NewTokens(auth.TokenConfig{SessionSecret: []byte("a")})
	assert.Error(t, err)

	_, err = auth.NewTokens(auth.TokenConfig{SessionSecret: []byte("same"), ResetSecret: []byte("same")})
	assert.Error(t, err)

	_, err = auth.NewTokens(auth.TokenConfig{
		SessionSecret: []byte("a"),
		ResetSecret:   []byte("b"),
		SessionTTL:    -time.Second,
	})
	assert.Error(t, err)
}
