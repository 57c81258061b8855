package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agroworld/storefront/pkg/config"
	redisclient "github.com/agroworld/storefront/pkg/redis"
)

const sessionIDBytes = 32

// ErrSessionNotFound is returned when a session id has no live record.
var ErrSessionNotFound = errors.New("session not found")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	SessionKey(sessionID string) string
}

// Record is what the storefront keeps server-side for a signed-in browser.
// The backend bearer token never leaves this record.
type Record struct {
	UserID       string    `json:"user_id"`
	BackendToken string    `json:"backend_token"`
	CreatedAt    time.Time `json:"created_at"`
}

// Manager handles session creation, lookup and revocation.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
	now   func() time.Time
}

// Lookup exposes the read-only surface needed by middleware.
type Lookup interface {
	Lookup(ctx context.Context, sessionID string) (*Record, error)
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.SessionTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if ttl < accessTTL {
		return nil, fmt.Errorf("session ttl (%s) must not be shorter than access token ttl (%s)", ttl, accessTTL)
	}

	return &Manager{
		store: client,
		keyer: client,
		ttl:   ttl,
		now:   time.Now,
	}, nil
}

// Create stores a new session and returns its id.
func (m *Manager) Create(ctx context.Context, userID, backendToken string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(backendToken) == "" {
		return "", fmt.Errorf("backend token is required")
	}
	sessionID, err := NewSessionID()
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(Record{
		UserID:       userID,
		BackendToken: backendToken,
		CreatedAt:    m.now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("encoding session: %w", err)
	}
	if err := m.store.Set(ctx, m.keyer.SessionKey(sessionID), string(raw), m.ttl); err != nil {
		return "", err
	}
	return sessionID, nil
}

// Lookup returns the live record for a session.
func (m *Manager) Lookup(ctx context.Context, sessionID string) (*Record, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrSessionNotFound
	}
	raw, err := m.store.Get(ctx, m.keyer.SessionKey(sessionID))
	if err != nil {
		if redisclient.IsNil(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.BackendToken == "" {
		return nil, ErrSessionNotFound
	}
	return &rec, nil
}

// HasSession reports whether the session is still live.
func (m *Manager) HasSession(ctx context.Context, sessionID string) (bool, error) {
	if _, err := m.Lookup(ctx, sessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Revoke deletes the session record.
func (m *Manager) Revoke(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	return m.store.Del(ctx, m.keyer.SessionKey(sessionID))
}

// NewSessionID produces an unguessable identifier used as the JWT jti and redis key.
func NewSessionID() (string, error) {
	bytes := make([]byte, sessionIDBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
