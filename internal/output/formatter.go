package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/gxpmd/gxptrace/internal/config"
	"github.com/muesli/termenv"
)

// Formatter defines console output formatting interface
type Formatter interface {
	Format(r *Report, w io.Writer) error
}

// VerbosityLevel determines output detail
type VerbosityLevel int

const (
	VerbosityQuiet    VerbosityLevel = iota // One-line summary
	VerbosityStandard                       // Banner + errors
	VerbosityJSON                           // Machine-readable document
)

// NewFormatter creates appropriate formatter based on level
func NewFormatter(level VerbosityLevel, renderer *lipgloss.Renderer) Formatter {
	switch level {
	case VerbosityQuiet:
		return &QuietFormatter{}
	case VerbosityJSON:
		return &JSONFormatter{}
	default:
		return &StandardFormatter{Renderer: renderer}
	}
}

// NewRenderer returns a renderer for w. The colour profile is detected from
// the terminal and NO_COLOR; modes other than interactive always print plain.
func NewRenderer(w io.Writer, mode config.RunMode) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w)
	if !mode.AllowsColor() {
		r.SetColorProfile(termenv.Ascii)
	}
	return r
}
