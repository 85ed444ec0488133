package main

import (
	"testing"
	"time"
)

func TestParseSince(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-03-01", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"2026-03-01 08:30:00", time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)},
		{"2026-03-01T08:30:00Z", time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseSince(tt.in, now)
		if err != nil {
			t.Fatalf("parseSince(%q) failed: %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseSince(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseSinceNaturalLanguage(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	got, err := parseSince("yesterday", now)
	if err != nil {
		t.Fatalf("parseSince failed: %v", err)
	}
	if !got.Before(now) || now.Sub(got) > 48*time.Hour {
		t.Errorf("yesterday parsed to %s", got)
	}
}

func TestParseSinceRejectsGarbage(t *testing.T) {
	if _, err := parseSince("blorp", time.Now()); err == nil {
		t.Fatal("expected error")
	}
}
