package backoff

import (
	"testing"
	"time"
)

func TestDefaultDelays(t *testing.T) {
	p := Default()
	want := []time.Duration{
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
	}
	for i, w := range want {
		n := i + 1
		if got := p.Delay(n); got != w {
			t.Errorf("Delay(%d) = %v, want %v", n, got, w)
		}
	}
}

func TestDelayMonotonicAndCapped(t *testing.T) {
	p := Policy{BaseDelay: 500 * time.Millisecond, MaxDelay: 10 * time.Second, MaxAttempts: 12}
	prev := time.Duration(0)
	for n := 1; n <= 12; n++ {
		d := p.Delay(n)
		if d < prev {
			t.Errorf("Delay(%d) = %v, smaller than Delay(%d) = %v", n, d, n-1, prev)
		}
		if d > p.MaxDelay {
			t.Errorf("Delay(%d) = %v exceeds cap %v", n, d, p.MaxDelay)
		}
		prev = d
	}
	if got := p.Delay(12); got != p.MaxDelay {
		t.Errorf("Delay(12) = %v, want cap %v", got, p.MaxDelay)
	}
}

func TestDelayClampsLowAttempt(t *testing.T) {
	p := Default()
	if got := p.Delay(0); got != DefaultBaseDelay {
		t.Errorf("Delay(0) = %v, want %v", got, DefaultBaseDelay)
	}
	if got := p.Delay(-3); got != DefaultBaseDelay {
		t.Errorf("Delay(-3) = %v, want %v", got, DefaultBaseDelay)
	}
}

func TestShouldRetry(t *testing.T) {
	p := Default()
	tests := []struct {
		failed int
		want   bool
	}{
		{1, true},
		{4, true},
		{5, false},
		{6, false},
	}
	for _, tt := range tests {
		if got := p.ShouldRetry(tt.failed); got != tt.want {
			t.Errorf("ShouldRetry(%d) = %v, want %v", tt.failed, got, tt.want)
		}
	}
}

func TestWithDefaults(t *testing.T) {
	p := Policy{MaxAttempts: 3}.WithDefaults()
	if p.BaseDelay != DefaultBaseDelay || p.MaxDelay != DefaultMaxDelay || p.MaxAttempts != 3 {
		t.Errorf("WithDefaults() = %+v", p)
	}
}

func TestSchedule(t *testing.T) {
	got := Policy{BaseDelay: time.Second, MaxDelay: 5 * time.Second, MaxAttempts: 4}.Schedule()
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second}
	if len(got) != len(want) {
		t.Fatalf("Schedule() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Schedule()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
