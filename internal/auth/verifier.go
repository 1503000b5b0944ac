// Package auth decides whether a bearer token grants access to the API.
package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sort"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Principal identifies the holder of an accepted token.
type Principal struct {
	Subject string
	// Method names the verifier that accepted the token.
	Method string
}

// Verifier checks a bearer token. ok is false for any token that does not
// grant access; the reason is not exposed.
type Verifier interface {
	Verify(ctx context.Context, token string) (Principal, bool)
}

// StaticTokenSet accepts a fixed set of issued API keys.
type StaticTokenSet struct {
	owners []string
	tokens [][]byte
}

// NewStaticTokenSet builds a verifier from owner to token pairs.
func NewStaticTokenSet(keys map[string]string) *StaticTokenSet {
	owners := make([]string, 0, len(keys))
	for owner := range keys {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	tokens := make([][]byte, len(owners))
	for i, owner := range owners {
		tokens[i] = []byte(keys[owner])
	}
	return &StaticTokenSet{owners: owners, tokens: tokens}
}

// Verify compares token against every issued key in constant time.
func (s *StaticTokenSet) Verify(_ context.Context, token string) (Principal, bool) {
	if token == "" {
		return Principal{}, false
	}
	candidate := []byte(token)
	match := -1
	for i, issued := range s.tokens {
		if subtle.ConstantTimeCompare(candidate, issued) == 1 && match < 0 {
			match = i
		}
	}
	if match < 0 {
		return Principal{}, false
	}
	return Principal{Subject: s.owners[match], Method: "api_key"}, true
}

// JWTVerifier accepts HS256 tokens signed with a shared secret. The token
// subject becomes the principal.
type JWTVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTVerifier constructs a verifier. An empty issuer skips the issuer check.
func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Verify parses and validates token.
func (v *JWTVerifier) Verify(_ context.Context, token string) (Principal, bool) {
	if len(v.secret) == 0 || token == "" {
		return Principal{}, false
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return Principal{}, false
	}
	return Principal{Subject: claims.Subject, Method: "jwt"}, true
}

// Issue signs a token for subject valid for ttl. It exists for operators
// and tests; the service itself never hands out tokens.
func (v *JWTVerifier) Issue(subject string, ttl time.Duration) (string, error) {
	issuedAt := v.now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    v.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		NotBefore: jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Chain tries each verifier in order; the first to accept wins.
type Chain []Verifier

// Verify implements Verifier.
func (c Chain) Verify(ctx context.Context, token string) (Principal, bool) {
	for _, v := range c {
		if v == nil {
			continue
		}
		if p, ok := v.Verify(ctx, token); ok {
			return p, true
		}
	}
	return Principal{}, false
}
