package wallet

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const noncePrefix = "Nonce: "

var (
	ErrNonceMissing = errors.New("message carries no nonce")
	ErrNonceUnknown = errors.New("nonce was not issued or already used")
	ErrNonceExpired = errors.New("nonce expired")
)

// Challenge is the message the wallet is asked to sign.
type Challenge struct {
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Challenges issues single-use nonces. A signed handshake is only accepted
// when its message carries a nonce issued by this process that has neither
// expired nor been redeemed, so a captured signature cannot be replayed.
type Challenges struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	ttl    time.Duration
	limit  int
	issued map[string]time.Time
}

func NewChallenges(clock clockwork.Clock, ttl time.Duration, limit int) *Challenges {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if limit <= 0 {
		limit = 1024
	}
	return &Challenges{clock: clock, ttl: ttl, limit: limit, issued: make(map[string]time.Time)}
}

// Issue creates a new nonce and the message embedding it.
func (c *Challenges) Issue() Challenge {
	now := c.clock.Now()
	nonce := uuid.NewString()
	exp := now.Add(c.ttl)

	c.mu.Lock()
	c.expireLocked(now)
	if len(c.issued) >= c.limit {
		c.evictOldestLocked()
	}
	c.issued[nonce] = exp
	c.mu.Unlock()

	return Challenge{
		Nonce: nonce,
		Message: fmt.Sprintf("Sign in to PumpDump\n\n%s%s\nIssued At: %s",
			noncePrefix, nonce, now.UTC().Format(time.RFC3339)),
		ExpiresAt: exp.UTC(),
	}
}

// Redeem consumes the nonce found in message.
func (c *Challenges) Redeem(message string) error {
	nonce, ok := nonceFrom(message)
	if !ok {
		return ErrNonceMissing
	}
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	exp, ok := c.issued[nonce]
	if !ok {
		return ErrNonceUnknown
	}
	delete(c.issued, nonce)
	if !now.Before(exp) {
		return ErrNonceExpired
	}
	return nil
}

func (c *Challenges) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.issued)
}

func (c *Challenges) expireLocked(now time.Time) {
	for n, exp := range c.issued {
		if !now.Before(exp) {
			delete(c.issued, n)
		}
	}
}

func (c *Challenges) evictOldestLocked() {
	var (
		oldest string
		at     time.Time
	)
	for n, exp := range c.issued {
		if oldest == "" || exp.Before(at) {
			oldest, at = n, exp
		}
	}
	delete(c.issued, oldest)
}

func nonceFrom(message string) (string, bool) {
	for _, line := range strings.Split(message, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, noncePrefix) {
			n := strings.TrimSpace(strings.TrimPrefix(line, noncePrefix))
			return n, n != ""
		}
	}
	return "", false
}
