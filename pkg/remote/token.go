package remote

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrShortSecret   = errors.New("secret must be at least 32 characters")
	ErrEmptyUserID   = errors.New("userID cannot be empty")
	ErrEmptyUsername = errors.New("username cannot be empty")
)

// RoleEditor is the role granted to export tokens; it allows node and edge writes.
const RoleEditor = "editor"

// refreshSkew renews a cached token this long before it expires
const refreshSkew = 30 * time.Second

// TokenSource mints HS256 bearer tokens from a secret shared with the
// server, reusing a token until shortly before it expires.
type TokenSource struct {
	secretKey []byte
	userID    string
	username  string
	ttl       time.Duration
	now       func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewTokenSource creates a token source.
// Returns an error if the secret is shorter than 32 characters.
func NewTokenSource(secret, userID, username string, ttl time.Duration) (*TokenSource, error) {
	if len(secret) < 32 {
		return nil, ErrShortSecret
	}
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if username == "" {
		return nil, ErrEmptyUsername
	}
	if ttl <= refreshSkew {
		ttl = 15 * time.Minute
	}
	return &TokenSource{
		secretKey: []byte(secret),
		userID:    userID,
		username:  username,
		ttl:       ttl,
		now:       time.Now,
	}, nil
}

// Token returns a valid signed token
func (s *TokenSource) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Add(refreshSkew).Before(s.expires) {
		return s.token, nil
	}

	expiresAt := now.Add(s.ttl)
	claims := jwt.MapClaims{
		"user_id":    s.userID,
		"username":   s.username,
		"role":       RoleEditor,
		"expires_at": expiresAt.Unix(),
		"issued_at":  now.Unix(),
		"exp":        expiresAt.Unix(), // Standard JWT expiration claim
		"iat":        now.Unix(),       // Standard JWT issued at claim
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	s.token = signed
	s.expires = expiresAt
	return signed, nil
}
