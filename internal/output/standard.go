package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gxpmd/gxptrace/internal/models"
	"github.com/muesli/termenv"
)

// StandardFormatter prints the sweep banner and lists every error (default)
type StandardFormatter struct {
	Renderer *lipgloss.Renderer
}

type standardStyles struct {
	title   lipgloss.Style
	err     lipgloss.Style
	warn    lipgloss.Style
	success lipgloss.Style
}

func (f *StandardFormatter) styles() standardStyles {
	r := f.Renderer
	if r == nil {
		r = lipgloss.NewRenderer(io.Discard)
		r.SetColorProfile(termenv.Ascii)
	}
	return standardStyles{
		title:   r.NewStyle().Bold(true),
		err:     r.NewStyle().Foreground(lipgloss.Color("1")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("3")),
		success: r.NewStyle().Foreground(lipgloss.Color("2")),
	}
}

func (f *StandardFormatter) Format(r *Report, w io.Writer) error {
	s := r.Summary()
	st := f.styles()
	rule := strings.Repeat("=", 60)

	chains := st.warn
	if s.TotalRequirements > 0 && s.CompleteChains == s.TotalRequirements {
		chains = st.success
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", rule)
	fmt.Fprintf(&b, "%s\n", st.title.Render("GxP.MD COMPLIANCE SWEEP COMPLETE"))
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "  Requirements:     %d\n", s.TotalRequirements)
	fmt.Fprintf(&b, "  Complete chains:  %s\n", chains.Render(fmt.Sprintf("%d/%d", s.CompleteChains, s.TotalRequirements)))
	fmt.Fprintf(&b, "  Errors:           %s\n", count(st.err, s.Errors))
	fmt.Fprintf(&b, "  Warnings:         %s\n", count(st.warn, s.Warnings))
	fmt.Fprintf(&b, "  Annotated files:  %d\n", s.AnnotatedFiles)
	fmt.Fprintf(&b, "%s\n", rule)

	if errs := models.FilterSeverity(r.AllIssues(), models.SeverityError); len(errs) > 0 {
		fmt.Fprintf(&b, "\n%s\n", st.err.Render("ERRORS:"))
		for _, issue := range errs {
			fmt.Fprintf(&b, "  [%s] %s\n", issue.Location, issue.Message)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// count leaves zero unstyled so a clean run reads plain
func count(style lipgloss.Style, n int) string {
	if n == 0 {
		return "0"
	}
	return style.Render(fmt.Sprintf("%d", n))
}
