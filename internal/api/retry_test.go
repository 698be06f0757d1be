package api

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryConfig_ShouldRetry(t *testing.T) {
	cfg := DefaultRetryConfig()

	tests := []struct {
		name       string
		attempt    int
		statusCode int
		want       bool
	}{
		{"first attempt 503", 0, 503, true},
		{"last allowed attempt", 2, 503, true},
		{"max attempts reached", 3, 503, false},
		{"bad request", 0, 400, false},
		{"unauthorized", 0, 401, false},
		{"rate limited", 0, 429, true},
		{"request timeout", 0, 408, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.ShouldRetry(tt.attempt, tt.statusCode); got != tt.want {
				t.Errorf("ShouldRetry(%d, %d) = %v, want %v", tt.attempt, tt.statusCode, got, tt.want)
			}
		})
	}
}

func TestRetryConfig_Delay(t *testing.T) {
	cfg := &RetryConfig{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   time.Second,
		Multiplier: 2.0,
	}

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second,
	}
	for attempt, w := range want {
		if got := cfg.Delay(attempt); got != w {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, w)
		}
	}

	cfg.Jitter = 0.5
	for i := 0; i < 50; i++ {
		if d := cfg.Delay(0); d < 50*time.Millisecond || d > 150*time.Millisecond {
			t.Fatalf("Delay(0) with jitter = %v, outside [50ms, 150ms]", d)
		}
	}
}

func TestRetryConfig_Wait_Cancelled(t *testing.T) {
	cfg := &RetryConfig{BaseDelay: 10 * time.Second, MaxDelay: time.Minute, Multiplier: 2}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := cfg.Wait(ctx, 0); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestIsIdempotent(t *testing.T) {
	tests := []struct {
		method string
		want   bool
	}{
		{"sflvault.service_get", true},
		{"sflvault.service_get_tree", true},
		{"sflvault.group_list", true},
		{"sflvault.search", true},
		{"customer_get", true},
		{"sflvault.login", false},
		{"sflvault.authenticate", false},
		{"sflvault.service_add", false},
		{"sflvault.group_add_user", false},
		{"sflvault.service_passwd", false},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			if got := IsIdempotent(tt.method); got != tt.want {
				t.Errorf("IsIdempotent(%q) = %v, want %v", tt.method, got, tt.want)
			}
		})
	}
}
