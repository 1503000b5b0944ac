package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticTokenSet(t *testing.T) {
	set := NewStaticTokenSet(map[string]string{"doctor1": "secret-token-123", "nurse": "other-token"})
	ctx := context.Background()

	p, ok := set.Verify(ctx, "secret-token-123")
	require.True(t, ok)
	assert.Equal(t, "doctor1", p.Subject)
	assert.Equal(t, "api_key", p.Method)

	for _, token := range []string{"", "secret-token-12", "secret-token-1234", "SECRET-TOKEN-123"} {
		_, ok := set.Verify(ctx, token)
		assert.False(t, ok, token)
	}

	_, ok = NewStaticTokenSet(nil).Verify(ctx, "anything")
	assert.False(t, ok)
}

func TestJWTVerifier(t *testing.T) {
	v := NewJWTVerifier("s3cret", "health-records")
	token, err := v.Issue("dr-who", time.Hour)
	require.NoError(t, err)

	p, ok := v.Verify(context.Background(), token)
	require.True(t, ok)
	assert.Equal(t, "dr-who", p.Subject)
	assert.Equal(t, "jwt", p.Method)

	_, ok = NewJWTVerifier("different", "health-records").Verify(context.Background(), token)
	assert.False(t, ok)

	_, ok = NewJWTVerifier("s3cret", "someone-else").Verify(context.Background(), token)
	assert.False(t, ok)
}

func TestJWTVerifierRejectsExpiredAndUnsigned(t *testing.T) {
	v := NewJWTVerifier("s3cret", "")
	expired, err := v.Issue("dr-who", -time.Minute)
	require.NoError(t, err)
	_, ok := v.Verify(context.Background(), expired)
	assert.False(t, ok)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "dr-who",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, ok = v.Verify(context.Background(), unsigned)
	assert.False(t, ok)

	_, ok = NewJWTVerifier("", "").Verify(context.Background(), expired)
	assert.False(t, ok)
}

func TestChainFirstAcceptWins(t *testing.T) {
	jwtVerifier := NewJWTVerifier("s3cret", "")
	token, err := jwtVerifier.Issue("dr-who", time.Hour)
	require.NoError(t, err)

	chain := Chain{NewStaticTokenSet(map[string]string{"doctor1": "secret-token-123"}), nil, jwtVerifier}

	p, ok := chain.Verify(context.Background(), "secret-token-123")
	require.True(t, ok)
	assert.Equal(t, "doctor1", p.Subject)

	p, ok = chain.Verify(context.Background(), token)
	require.True(t, ok)
	assert.Equal(t, "dr-who", p.Subject)

	_, ok = chain.Verify(context.Background(), "nope")
	assert.False(t, ok)
}
