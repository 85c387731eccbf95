// Package gate guards the settings surface behind a shared password.
package gate

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// DefaultMaxAttempts is the number of consecutive failures before the gate
// locks.
const DefaultMaxAttempts = 5

// DefaultLockout is how long the gate stays locked.
const DefaultLockout = time.Minute

var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrLocked          = errors.New("too many failed attempts, try again later")
	ErrEmptyPassword   = errors.New("password must not be empty")
)

// Gate checks attempts against a bcrypt hash of the configured password.
type Gate struct {
	hash        []byte
	maxAttempts int
	lockout     time.Duration
	now         func() time.Time

	mu          sync.Mutex
	failures    int
	lockedUntil time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithMaxAttempts sets how many failures lock the gate. Zero disables locking.
func WithMaxAttempts(n int) Option {
	return func(g *Gate) {
		g.maxAttempts = n
	}
}

// WithLockout sets the lockout duration.
func WithLockout(d time.Duration) Option {
	return func(g *Gate) {
		g.lockout = d
	}
}

// WithClock sets the clock (for testing).
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

// New hashes password and returns a gate for it.
func New(password string, opts ...Option) (*Gate, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	g := &Gate{
		hash:        hash,
		maxAttempts: DefaultMaxAttempts,
		lockout:     DefaultLockout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Unlock checks attempt. A success resets the failure count.
func (g *Gate) Unlock(attempt string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if now.Before(g.lockedUntil) {
		return ErrLocked
	}

	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(attempt)); err != nil {
		g.failures++
		if g.maxAttempts > 0 && g.failures >= g.maxAttempts {
			g.failures = 0
			g.lockedUntil = now.Add(g.lockout)
		}
		return ErrInvalidPassword
	}

	g.failures = 0
	return nil
}
