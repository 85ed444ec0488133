// Package ui renders terminal output for the sync commands.
package ui

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Palette
var (
	passColor   = lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#86C166"}
	warnColor   = lipgloss.AdaptiveColor{Light: "#B26A00", Dark: "#E5C07B"}
	failColor   = lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#E06C75"}
	accentColor = lipgloss.AdaptiveColor{Light: "#1565C0", Dark: "#61AFEF"}
	mutedColor  = lipgloss.AdaptiveColor{Light: "#757575", Dark: "#7F848E"}
)

var (
	passStyle   = lipgloss.NewStyle().Foreground(passColor)
	warnStyle   = lipgloss.NewStyle().Foreground(warnColor)
	failStyle   = lipgloss.NewStyle().Foreground(failColor).Bold(true)
	accentStyle = lipgloss.NewStyle().Foreground(accentColor)
	mutedStyle  = lipgloss.NewStyle().Foreground(mutedColor)
	labelStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
)

// Init picks the color profile for w. NO_COLOR, dumb terminals and
// non-terminal writers get plain text.
func Init(w io.Writer) {
	f, ok := w.(*os.File)
	if !ok || !isTerminal(f) {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	out := termenv.NewOutput(f)
	lipgloss.SetColorProfile(out.EnvColorProfile())
	lipgloss.SetHasDarkBackground(out.HasDarkBackground())
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// DisableColor forces plain output. Tests call it for stable assertions.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func RenderPass(s string) string   { return passStyle.Render(s) }
func RenderWarn(s string) string   { return warnStyle.Render(s) }
func RenderFail(s string) string   { return failStyle.Render(s) }
func RenderAccent(s string) string { return accentStyle.Render(s) }
func RenderMuted(s string) string  { return mutedStyle.Render(s) }

// RenderStateLabel renders a sync state label such as "SYNC:OK" in the color
// of its severity. An empty label renders as "".
func RenderStateLabel(label string) string {
	if label == "" {
		return ""
	}
	style := labelStyle
	switch {
	case strings.HasSuffix(label, ":OK"):
		style = style.Foreground(passColor)
	case strings.HasSuffix(label, ":OFFLINE"):
		style = style.Foreground(warnColor)
	default:
		style = style.Foreground(failColor)
	}
	return style.Render("[" + label + "]")
}

// RenderDiffLine colors one line of a unified diff.
func RenderDiffLine(line string) string {
	switch {
	case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		return lipgloss.NewStyle().Bold(true).Render(line)
	case strings.HasPrefix(line, "@@"):
		return RenderAccent(line)
	case strings.HasPrefix(line, "+"):
		return RenderPass(line)
	case strings.HasPrefix(line, "-"):
		return RenderFail(line)
	default:
		return line
	}
}

// KeyValue renders an aligned "key: value" block, as used by status output.
func KeyValue(pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		if len(p[0]) > width {
			width = len(p[0])
		}
	}
	key := lipgloss.NewStyle().Width(width + 2).Foreground(mutedColor)

	var b strings.Builder
	for _, p := range pairs {
		b.WriteString("   ")
		b.WriteString(key.Render(p[0] + ":"))
		b.WriteString(p[1])
		b.WriteString("\n")
	}
	return b.String()
}
