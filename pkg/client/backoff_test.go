package client

import (
	"testing"
	"time"
)

func TestPollBackoffFirstAttemptIsFloor(t *testing.T) {
	b := &PollBackoff{Floor: 50 * time.Millisecond, Ceiling: 800 * time.Millisecond}

	for _, attempt := range []int{-1, 0} {
		if got := b.Delay(attempt); got != 50*time.Millisecond {
			t.Errorf("Delay(%d) = %v, want exactly %v", attempt, got, 50*time.Millisecond)
		}
	}
}

func TestPollBackoffBounds(t *testing.T) {
	b := &PollBackoff{Floor: 50 * time.Millisecond, Ceiling: 800 * time.Millisecond}

	tests := []struct {
		attempt int
		max     time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond}, // doubling reaches the ceiling
		{9, 800 * time.Millisecond}, // stays clamped
	}
	for _, tt := range tests {
		for i := 0; i < 50; i++ {
			got := b.Delay(tt.attempt)
			if got < b.Floor || got > tt.max {
				t.Fatalf("Delay(%d) = %v, want within [%v, %v]", tt.attempt, got, b.Floor, tt.max)
			}
		}
	}
}

func TestPollBackoffLargeAttemptStaysClamped(t *testing.T) {
	b := &PollBackoff{Floor: 50 * time.Millisecond, Ceiling: 800 * time.Millisecond}

	for _, attempt := range []int{62, 63, 500} {
		got := b.Delay(attempt)
		if got < b.Floor || got > b.Ceiling {
			t.Errorf("Delay(%d) = %v, want within [%v, %v]", attempt, got, b.Floor, b.Ceiling)
		}
	}
}

func TestDefaultBackoffWithinPollInterval(t *testing.T) {
	b := DefaultBackoff()

	// Retries must never outwait the dashboard's 2s poll tick.
	for attempt := 0; attempt < 20; attempt++ {
		if got := b.Delay(attempt); got > 2*time.Second {
			t.Fatalf("Delay(%d) = %v exceeds the poll interval", attempt, got)
		}
	}
}
