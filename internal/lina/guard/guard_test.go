package guard_test

import (
	"testing"
	"time"

	"github.com/mkarren/lina/internal/lina/guard"
)

func TestCooldown_AdmitRejectAdmit(t *testing.T) {
	c := guard.NewCooldown(6 * time.Second)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if !c.Admit("@anna:example.org", base) {
		t.Fatal("first message should be admitted")
	}
	if c.Admit("@anna:example.org", base.Add(2*time.Second)) {
		t.Fatal("message 2s after admission should be dropped")
	}
	if !c.Admit("@anna:example.org", base.Add(7*time.Second)) {
		t.Fatal("message 7s after admission should be admitted")
	}
}

func TestCooldown_RejectionDoesNotResetTimer(t *testing.T) {
	c := guard.NewCooldown(6 * time.Second)
	base := time.Now()

	c.Admit("@anna:example.org", base)
	c.Admit("@anna:example.org", base.Add(5*time.Second)) // dropped

	// 6s after the *admitted* message, not the dropped one.
	if !c.Admit("@anna:example.org", base.Add(6*time.Second)) {
		t.Fatal("dropped message must not extend the cooldown")
	}
}

func TestCooldown_UsersAreIndependent(t *testing.T) {
	c := guard.NewCooldown(6 * time.Second)
	base := time.Now()

	if !c.Admit("@anna:example.org", base) {
		t.Fatal("anna should be admitted")
	}
	if !c.Admit("@ben:example.org", base.Add(time.Second)) {
		t.Fatal("ben's cooldown is not affected by anna's")
	}
}

func TestCooldown_DefaultGap(t *testing.T) {
	c := guard.NewCooldown(0)
	base := time.Now()

	c.Admit("@anna:example.org", base)
	if c.Admit("@anna:example.org", base.Add(guard.DefaultCooldown-time.Millisecond)) {
		t.Fatal("expected default cooldown to apply")
	}
	if !c.Admit("@anna:example.org", base.Add(guard.DefaultCooldown)) {
		t.Fatal("expected admission once the default cooldown elapsed")
	}
}

func TestBudget_LimitWithinWindow(t *testing.T) {
	b := guard.NewBudget(3, time.Minute)
	base := time.Now()

	for i := 0; i < 3; i++ {
		if !b.Allow(base.Add(time.Duration(i) * time.Second)) {
			t.Fatalf("call %d should be allowed", i+1)
		}
	}
	if b.Allow(base.Add(5 * time.Second)) {
		t.Fatal("call over the limit should be rejected")
	}
}

func TestBudget_WindowSlides(t *testing.T) {
	b := guard.NewBudget(2, time.Minute)
	base := time.Now()

	b.Allow(base)
	b.Allow(base.Add(10 * time.Second))
	if b.Allow(base.Add(30 * time.Second)) {
		t.Fatal("budget exhausted, call should be rejected")
	}

	// The first call falls out of the window after a minute.
	if !b.Allow(base.Add(61 * time.Second)) {
		t.Fatal("expected a slot once the oldest call expired")
	}
}

func TestBudget_RejectionIsNotRecorded(t *testing.T) {
	b := guard.NewBudget(1, time.Minute)
	base := time.Now()

	b.Allow(base)
	for i := 0; i < 5; i++ {
		b.Allow(base.Add(time.Duration(i) * time.Second)) // all rejected
	}
	if !b.Allow(base.Add(61 * time.Second)) {
		t.Fatal("rejected calls must not consume budget")
	}
}
