package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret-key", time.Hour)

	token, jti, err := svc.Issue("usr_1", "johndoe", "user")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, jti)

	subject, err := svc.ParseSubject(token)
	require.NoError(t, err)
	assert.Equal(t, "usr_1", subject)

	claims, err := svc.ParseClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "johndoe", claims.Username)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, jti, claims.ID)
}

func TestJWTTamperedTokenFailsClosed(t *testing.T) {
	svc := NewJWTService("test-secret-key", time.Hour)

	token, _, err := svc.Issue("usr_1", "johndoe", "user")
	require.NoError(t, err)

	// Flip one byte in the payload segment.
	tampered := []byte(token)
	idx := len(tampered) / 2
	if tampered[idx] == 'a' {
		tampered[idx] = 'b'
	} else {
		tampered[idx] = 'a'
	}

	_, err = svc.ParseSubject(string(tampered))
	assert.Error(t, err)
	assert.False(t, svc.IsValid(string(tampered), "usr_1"))
}

func TestJWTWrongKeyRejected(t *testing.T) {
	issuer := NewJWTService("secret-one", time.Hour)
	verifier := NewJWTService("secret-two", time.Hour)

	token, _, err := issuer.Issue("usr_1", "johndoe", "user")
	require.NoError(t, err)

	_, err = verifier.ParseSubject(token)
	assert.Error(t, err)
}

func TestJWTExpiredTokenInvalid(t *testing.T) {
	svc := NewJWTService("test-secret-key", -time.Second)

	token, _, err := svc.Issue("usr_1", "johndoe", "user")
	require.NoError(t, err)

	_, err = svc.ParseSubject(token)
	assert.Error(t, err)
	assert.False(t, svc.IsValid(token, "usr_1"))
}

func TestJWTSubjectMismatchInvalid(t *testing.T) {
	svc := NewJWTService("test-secret-key", time.Hour)

	token, _, err := svc.Issue("usr_1", "johndoe", "user")
	require.NoError(t, err)

	assert.True(t, svc.IsValid(token, "usr_1"))
	assert.False(t, svc.IsValid(token, "usr_2"))
}

func TestExtractTokenFromHeader(t *testing.T) {
	svc := NewJWTService("test-secret-key", time.Hour)

	token, err := svc.ExtractTokenFromHeader("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	_, err = svc.ExtractTokenFromHeader("")
	assert.Error(t, err)

	_, err = svc.ExtractTokenFromHeader("Basic abc")
	assert.Error(t, err)

	_, err = svc.ExtractTokenFromHeader("Bearer")
	assert.Error(t, err)
}
