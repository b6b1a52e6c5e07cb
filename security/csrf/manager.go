// Package csrf implements double-submit CSRF token management.
//
// Tokens are issued per session identifier, expire after a fixed TTL and
// are validated with a constant-time comparison. State lives behind the
// Store port: the memory adapter gives single-instance semantics, the
// Redis adapter shares tokens across instances.
package csrf

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/stayflow/gatekeeper/ports"
)

const (
	// DefaultTokenTTL is how long an issued token stays valid.
	DefaultTokenTTL = time.Hour

	// DefaultSweepInterval is how often expired records are swept.
	// Lazy expiry at validation time is the real guarantee; the sweep
	// only bounds memory growth.
	DefaultSweepInterval = 30 * time.Minute

	// tokenBytes gives 256 bits of entropy per token.
	tokenBytes = 32

	keyPrefix = "csrf:"
)

// record is the stored form of a token: "<hex token>|<unix expiry>".
// The expiry rides along so validation can distinguish expired from
// absent even on stores that only expire keys approximately.
func encodeRecord(token string, expiresAt time.Time) string {
	return fmt.Sprintf("%s|%d", token, expiresAt.Unix())
}

func decodeRecord(raw string) (token string, expiresAt time.Time, ok bool) {
	i := strings.LastIndexByte(raw, '|')
	if i < 0 {
		return "", time.Time{}, false
	}
	unix, err := strconv.ParseInt(raw[i+1:], 10, 64)
	if err != nil {
		return "", time.Time{}, false
	}
	return raw[:i], time.Unix(unix, 0), true
}

// Sweeper is implemented by stores that support bulk removal of expired
// records. Stores with native TTL (Redis) do not need it.
type Sweeper interface {
	Sweep() int
}

// Manager issues and validates CSRF tokens. Construct one per process
// and share it; it is safe for concurrent use. Two concurrent
// generations for the same session race and the last write wins, which
// is acceptable: protection only needs a valid current token, not a
// specific one.
type Manager struct {
	store         ports.Store
	tokenTTL      time.Duration
	sweepInterval time.Duration
	log           *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithTokenTTL overrides the token lifetime.
func WithTokenTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.tokenTTL = ttl
		}
	}
}

// WithSweepInterval overrides the cleanup interval.
func WithSweepInterval(interval time.Duration) Option {
	return func(m *Manager) {
		if interval > 0 {
			m.sweepInterval = interval
		}
	}
}

// NewManager creates a CSRF token manager over the given store.
func NewManager(store ports.Store, log *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:         store,
		tokenTTL:      DefaultTokenTTL,
		sweepInterval: DefaultSweepInterval,
		log:           log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GenerateToken creates a new token for a session identifier,
// overwriting any prior token for that session.
func (m *Manager) GenerateToken(ctx context.Context, sessionID string) (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate csrf token: %w", err)
	}
	token := hex.EncodeToString(buf)

	expiresAt := time.Now().Add(m.tokenTTL)
	if err := m.store.Set(ctx, keyPrefix+sessionID, encodeRecord(token, expiresAt), m.tokenTTL); err != nil {
		return "", fmt.Errorf("failed to store csrf token: %w", err)
	}

	return token, nil
}

// ValidateToken checks a supplied token against the stored one for the
// session. Absent records fail; expired records fail and are deleted.
// The comparison is constant-time.
func (m *Manager) ValidateToken(ctx context.Context, sessionID, token string) bool {
	if sessionID == "" || token == "" {
		return false
	}

	raw, found, err := m.store.Get(ctx, keyPrefix+sessionID)
	if err != nil {
		m.log.WarnContext(ctx, "csrf store lookup failed", slog.Any("error", err))
		return false
	}
	if !found {
		return false
	}

	stored, expiresAt, ok := decodeRecord(raw)
	if !ok {
		return false
	}

	if time.Now().After(expiresAt) {
		if err := m.store.Del(ctx, keyPrefix+sessionID); err != nil {
			m.log.WarnContext(ctx, "failed to delete expired csrf token", slog.Any("error", err))
		}
		return false
	}

	return subtle.ConstantTimeCompare([]byte(stored), []byte(token)) == 1
}

// Run sweeps expired records on a fixed interval until ctx is cancelled.
// Best-effort housekeeping only; it never blocks request handling.
func (m *Manager) Run(ctx context.Context) error {
	sweeper, ok := m.store.(Sweeper)
	if !ok {
		// The store expires keys itself; nothing to do.
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if removed := sweeper.Sweep(); removed > 0 {
				m.log.DebugContext(ctx, "swept expired csrf tokens", slog.Int("removed", removed))
			}
		}
	}
}
