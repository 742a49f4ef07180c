package backoff

import (
	"testing"
	"time"
)

func TestNext_Formula(t *testing.T) {
	p := Default()

	for r := 0; r <= 20; r++ {
		got, ok := p.Next(r)
		if !ok {
			t.Fatalf("Next(%d) reported terminal failure, want delay", r)
		}

		want := time.Duration(r) * 50 * time.Millisecond
		if want > time.Second {
			want = time.Second
		}
		if got != want {
			t.Errorf("Next(%d) = %v, want %v", r, got, want)
		}
	}
}

func TestNext_Terminal(t *testing.T) {
	p := Default()

	for _, r := range []int{21, 22, 100} {
		if _, ok := p.Next(r); ok {
			t.Errorf("Next(%d) returned a delay, want terminal failure", r)
		}
	}
}

func TestNext_KnownPoints(t *testing.T) {
	p := Default()

	tests := []struct {
		retries int
		want    time.Duration
	}{
		{0, 0},
		{1, 50 * time.Millisecond},
		{5, 250 * time.Millisecond},
		{19, 950 * time.Millisecond},
		{20, time.Second}, // capped
	}

	for _, tt := range tests {
		got, ok := p.Next(tt.retries)
		if !ok {
			t.Fatalf("Next(%d) reported terminal failure", tt.retries)
		}
		if got != tt.want {
			t.Errorf("Next(%d) = %v, want %v", tt.retries, got, tt.want)
		}
	}
}

func TestNext_CustomPolicy(t *testing.T) {
	p := Policy{Step: 10 * time.Millisecond, Cap: 25 * time.Millisecond, MaxRetries: 3}

	tests := []struct {
		retries int
		want    time.Duration
		ok      bool
	}{
		{0, 0, true},
		{1, 10 * time.Millisecond, true},
		{2, 20 * time.Millisecond, true},
		{3, 25 * time.Millisecond, true}, // capped
		{4, 0, false},
	}

	for _, tt := range tests {
		got, ok := p.Next(tt.retries)
		if ok != tt.ok {
			t.Errorf("Next(%d) ok = %v, want %v", tt.retries, ok, tt.ok)
			continue
		}
		if got != tt.want {
			t.Errorf("Next(%d) = %v, want %v", tt.retries, got, tt.want)
		}
	}
}

func TestDefault(t *testing.T) {
	p := Default()

	if p.Step != 50*time.Millisecond {
		t.Errorf("Step = %v, want 50ms", p.Step)
	}
	if p.Cap != time.Second {
		t.Errorf("Cap = %v, want 1s", p.Cap)
	}
	if p.MaxRetries != 20 {
		t.Errorf("MaxRetries = %d, want 20", p.MaxRetries)
	}
}
