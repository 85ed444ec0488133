package ui

import (
	"strings"
	"testing"
)

func TestRenderPlainWhenColorDisabled(t *testing.T) {
	DisableColor()

	for _, fn := range []func(string) string{RenderPass, RenderWarn, RenderFail, RenderAccent, RenderMuted} {
		if got := fn("✓"); got != "✓" {
			t.Errorf("render without color = %q, want %q", got, "✓")
		}
	}
}

func TestRenderStateLabel(t *testing.T) {
	DisableColor()

	tests := []struct {
		label string
		want  string
	}{
		{"", ""},
		{"SYNC:OK", " [SYNC:OK] "},
		{"SYNC:OFFLINE", " [SYNC:OFFLINE] "},
		{"SYNC:NO-BACKUP", " [SYNC:NO-BACKUP] "},
	}
	for _, tt := range tests {
		if got := RenderStateLabel(tt.label); got != tt.want {
			t.Errorf("RenderStateLabel(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestRenderDiffLineKeepsText(t *testing.T) {
	DisableColor()

	for _, line := range []string{"--- local", "+++ remote", "@@", "+    \"a\": 1", "-    \"a\": 2", "     \"b\": 3"} {
		if got := RenderDiffLine(line); got != line {
			t.Errorf("RenderDiffLine(%q) = %q", line, got)
		}
	}
}

func TestKeyValueAligned(t *testing.T) {
	DisableColor()

	out := KeyValue([][2]string{{"Remote", "git@x:y.git"}, {"Last sync", "never"}})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %q", len(lines), out)
	}
	if strings.Index(lines[0], "git@x") != strings.Index(lines[1], "never") {
		t.Errorf("values not aligned:\n%s", out)
	}
}
