package auth

import (
	"fmt"
	"testing"
	"time"
)

// fakeClock is a settable time source.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLockout(threshold int) (*Lockout, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)}
	l := NewLockout(threshold, 30*time.Minute)
	l.now = clock.now
	return l, clock
}

func TestLockout_LocksAtThreshold(t *testing.T) {
	l, clock := newTestLockout(3)

	for i := 1; i <= 2; i++ {
		if l.Fail("analyst") {
			t.Fatalf("failure %d should not lock", i)
		}
	}
	if _, locked := l.Blocked("analyst"); locked {
		t.Fatal("locked before threshold")
	}
	if !l.Fail("analyst") {
		t.Fatal("third failure should lock")
	}

	remaining, locked := l.Blocked("analyst")
	if !locked || remaining != 30*time.Minute {
		t.Errorf("Blocked = %v, %v; want 30m, true", remaining, locked)
	}

	// Usernames are matched case-insensitively.
	if _, locked := l.Blocked("  Analyst "); !locked {
		t.Error("lock should apply regardless of case")
	}
	// Other users are unaffected.
	if _, locked := l.Blocked("viewer"); locked {
		t.Error("unrelated user locked")
	}

	clock.advance(10 * time.Minute)
	if remaining, _ := l.Blocked("analyst"); remaining != 20*time.Minute {
		t.Errorf("remaining = %v, want 20m", remaining)
	}
}

func TestLockout_ExpiryResetsCount(t *testing.T) {
	l, clock := newTestLockout(2)
	l.Fail("analyst")
	l.Fail("analyst")

	clock.advance(31 * time.Minute)
	if _, locked := l.Blocked("analyst"); locked {
		t.Fatal("lock should have expired")
	}
	// The count starts over after expiry.
	if l.Fail("analyst") {
		t.Error("first failure after expiry should not lock")
	}
	if !l.Fail("analyst") {
		t.Error("second failure after expiry should lock")
	}
}

func TestLockout_SucceedClears(t *testing.T) {
	l, _ := newTestLockout(3)
	l.Fail("analyst")
	l.Fail("analyst")
	l.Succeed("ANALYST")
	if l.Fail("analyst") {
		t.Error("count should restart after success")
	}
}

func TestLockout_Disabled(t *testing.T) {
	l, _ := newTestLockout(0)
	for i := 0; i < 10; i++ {
		if l.Fail("analyst") {
			t.Fatal("threshold 0 should never lock")
		}
	}
	if n := l.tracked(); n != 0 {
		t.Errorf("tracked = %d, want 0", n)
	}
}

func TestLockout_Prune(t *testing.T) {
	l, clock := newTestLockout(1)
	for i := 0; i < pruneAt; i++ {
		l.Fail(fmt.Sprintf("user%d", i))
	}
	clock.advance(time.Hour)
	l.Fail("late")
	if n := l.tracked(); n != 1 {
		t.Errorf("tracked after prune = %d, want 1", n)
	}
}
