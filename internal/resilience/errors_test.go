package resilience

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient_wrapper", NewTransientError(errors.New("503"), 503), true},
		{"wrapped_transient", fmt.Errorf("call failed: %w", NewTransientError(errors.New("429"), 429)), true},
		{"auth", NewAuthError(errors.New("401"), 401), false},
		{"conn_reset", syscall.ECONNRESET, true},
		{"conn_refused", syscall.ECONNREFUSED, true},
		{"string_broken_pipe", errors.New("write tcp: broken pipe"), true},
		{"string_no_such_host", errors.New("dial tcp: lookup api.perplexity.ai: no such host"), true},
		{"plain", errors.New("invalid request"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsAuth(t *testing.T) {
	if !IsAuth(NewAuthError(errors.New("forbidden"), 403)) {
		t.Error("expected auth error to be detected")
	}
	if !IsAuth(fmt.Errorf("chat: %w", NewAuthError(errors.New("unauthorized"), 401))) {
		t.Error("expected wrapped auth error to be detected")
	}
	if IsAuth(NewTransientError(errors.New("503"), 503)) {
		t.Error("transient error misclassified as auth")
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		if !IsTransientHTTPStatus(code) {
			t.Errorf("expected %d to be transient", code)
		}
	}
	for _, code := range []int{200, 400, 401, 403, 404, 422} {
		if IsTransientHTTPStatus(code) {
			t.Errorf("expected %d to not be transient", code)
		}
	}
}

func TestIsAuthHTTPStatus(t *testing.T) {
	if !IsAuthHTTPStatus(401) || !IsAuthHTTPStatus(403) {
		t.Error("expected 401 and 403 to be auth statuses")
	}
	if IsAuthHTTPStatus(429) || IsAuthHTTPStatus(500) {
		t.Error("transient statuses misclassified as auth")
	}
}
