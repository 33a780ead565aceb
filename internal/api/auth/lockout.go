package auth

import (
	"strings"
	"sync"
	"time"

	"github.com/good-yellow-bee/secdash/internal/metrics"
)

// pruneAt is the number of tracked usernames above which stale entries
// are dropped on the next failure.
const pruneAt = 1024

type strikes struct {
	count int
	until time.Time // zero until the username is locked
}

// Lockout counts failed logins per username and refuses a username for a
// fixed period once it reaches the threshold. State lives in memory and
// is lost on restart.
type Lockout struct {
	mu        sync.Mutex
	threshold int
	period    time.Duration
	now       func() time.Time
	entries   map[string]*strikes
}

// NewLockout returns a Lockout. A threshold below one never locks.
func NewLockout(threshold int, period time.Duration) *Lockout {
	return &Lockout{
		threshold: threshold,
		period:    period,
		now:       time.Now,
		entries:   make(map[string]*strikes),
	}
}

func lockoutKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Blocked reports whether username is locked and for how much longer.
func (l *Lockout) Blocked(username string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[lockoutKey(username)]
	if !ok || e.until.IsZero() {
		return 0, false
	}
	remaining := e.until.Sub(l.now())
	if remaining <= 0 {
		return 0, false
	}
	return remaining, true
}

// Fail records a failed login and reports whether it locked username.
func (l *Lockout) Fail(username string) bool {
	if l.threshold < 1 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.entries) >= pruneAt {
		l.prune(now)
	}

	key := lockoutKey(username)
	e, ok := l.entries[key]
	if !ok {
		e = &strikes{}
		l.entries[key] = e
	}
	if !e.until.IsZero() {
		if now.Before(e.until) {
			return true
		}
		*e = strikes{}
	}

	e.count++
	if e.count < l.threshold {
		return false
	}
	e.until = now.Add(l.period)
	metrics.AuthLockoutsTotal.Inc()
	return true
}

// Succeed forgets earlier failures for username.
func (l *Lockout) Succeed(username string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, lockoutKey(username))
}

// prune drops expired locks and counters that never reached a lock.
// Callers hold mu.
func (l *Lockout) prune(now time.Time) {
	for key, e := range l.entries {
		if e.until.IsZero() || now.After(e.until) {
			delete(l.entries, key)
		}
	}
}

func (l *Lockout) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
