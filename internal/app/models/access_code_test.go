package models

import (
	"testing"
	"time"
)

func TestWindowContainsBoundariesInclusive(t *testing.T) {
	from := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	until := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	code := &AccessCode{ValidFrom: from, ValidUntil: until}

	cases := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"before window", from.Add(-time.Second), false},
		{"exactly valid_from", from, true},
		{"inside window", from.Add(time.Hour), true},
		{"exactly valid_until", until, true},
		{"after window", until.Add(time.Second), false},
	}
	for _, tc := range cases {
		if got := code.WindowContains(tc.t); got != tc.want {
			t.Errorf("%s: WindowContains(%v) = %v, want %v", tc.name, tc.t, got, tc.want)
		}
	}
}

func TestIsCapped(t *testing.T) {
	limit := 3
	if (&AccessCode{MaxUses: &limit}).IsCapped() != true {
		t.Error("multi-use code with max_uses should be capped")
	}
	if (&AccessCode{}).IsCapped() {
		t.Error("unlimited code should not be capped")
	}
	// One-time codes consume used_at, not max_uses.
	if (&AccessCode{IsOneTime: true, MaxUses: &limit}).IsCapped() {
		t.Error("one-time code should not count as capped")
	}
}

func TestRemainingUses(t *testing.T) {
	limit := 3
	code := &AccessCode{MaxUses: &limit, UsageCount: 1}
	if got := code.RemainingUses(); got != 2 {
		t.Errorf("RemainingUses() = %d, want 2", got)
	}
	code.UsageCount = 5
	if got := code.RemainingUses(); got != 0 {
		t.Errorf("over-consumed code RemainingUses() = %d, want 0", got)
	}
}
