// ABOUTME: HS256 access tokens for the mock backend
// ABOUTME: Issues and parses JWTs and supports revoking every token of a user

package mockapi

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/markalston/equiplend/internal/cache"
	"github.com/markalston/equiplend/internal/models"
)

const issuer = "equiplend-mock"

// ErrRevoked is returned for tokens revoked before they expired
var ErrRevoked = errors.New("token revoked")

// Claims are the access token claims
type Claims struct {
	UserID string      `json:"user_id"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies access tokens
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration

	mu     sync.Mutex
	issued map[string][]issuedToken // by user ID
	// revoked holds revoked token IDs until they would have expired anyway
	revoked *cache.Cache[string]
}

type issuedToken struct {
	id        string
	expiresAt time.Time
}

// NewTokenIssuer creates an issuer. Close releases its revocation cache.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:  []byte(secret),
		ttl:     ttl,
		issued:  make(map[string][]issuedToken),
		revoked: cache.New[string](ttl, time.Minute),
	}
}

// Issue signs a token for user
func (ti *TokenIssuer) Issue(user models.User) (string, error) {
	now := time.Now().UTC()
	id := uuid.NewString()
	claims := Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   user.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", err
	}

	ti.mu.Lock()
	live := ti.issued[user.ID][:0]
	for _, t := range ti.issued[user.ID] {
		if t.expiresAt.After(now) {
			live = append(live, t)
		}
	}
	ti.issued[user.ID] = append(live, issuedToken{id: id, expiresAt: now.Add(ti.ttl)})
	ti.mu.Unlock()

	return signed, nil
}

// Parse verifies signature, expiry, issuer and revocation
func (ti *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return ti.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	if _, revoked := ti.revoked.Get(claims.ID); revoked {
		return nil, ErrRevoked
	}
	return claims, nil
}

// Revoke invalidates every token issued to userID so far and returns how
// many were still live
func (ti *TokenIssuer) Revoke(userID string) int {
	ti.mu.Lock()
	tokens := ti.issued[userID]
	delete(ti.issued, userID)
	ti.mu.Unlock()

	now := time.Now()
	n := 0
	for _, t := range tokens {
		if left := t.expiresAt.Sub(now); left > 0 {
			ti.revoked.SetWithTTL(t.id, userID, left)
			n++
		}
	}
	return n
}

// Close stops background cleanup
func (ti *TokenIssuer) Close() {
	ti.revoked.Close()
}
