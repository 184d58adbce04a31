package tts

import (
	"testing"
	"time"
)

func TestParseWaitSeconds(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    time.Duration
		wantErr bool
	}{
		{
			name:    "endpoint hint",
			message: "Rate limit exceeded. Retrying in 3 seconds.",
			want:    3 * time.Second,
		},
		{
			name:    "singular second",
			message: "retry in 1 second",
			want:    time.Second,
		},
		{
			name:    "case insensitive",
			message: "RATE LIMITED, TRY AGAIN IN 10 SECONDS",
			want:    10 * time.Second,
		},
		{
			name:    "large wait",
			message: "Please retry in 120 seconds to continue.",
			want:    120 * time.Second,
		},
		{
			name:    "no hint",
			message: "too many requests, slow down",
			wantErr: true,
		},
		{
			name:    "spelled-out number",
			message: "retry in five seconds",
			wantErr: true,
		},
		{
			name:    "minutes are not guessed",
			message: "retry in 2 minutes",
			wantErr: true,
		},
		{
			name:    "milliseconds are not guessed",
			message: "retry in 500 milliseconds",
			wantErr: true,
		},
		{
			name:    "empty message",
			message: "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWaitSeconds(tt.message)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseWaitSeconds(%q) = %v, want error", tt.message, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseWaitSeconds(%q) failed: %v", tt.message, err)
			}
			if got != tt.want {
				t.Errorf("ParseWaitSeconds(%q) = %v, want %v", tt.message, got, tt.want)
			}
		})
	}
}
