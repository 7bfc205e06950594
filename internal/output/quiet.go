package output

import (
	"fmt"
	"io"
)

// QuietFormatter outputs one-line summary (for pre-commit hooks)
type QuietFormatter struct{}

func (f *QuietFormatter) Format(r *Report, w io.Writer) error {
	s := r.Summary()
	if s.Errors == 0 {
		_, err := fmt.Fprintf(w, "PASS %d/%d chains complete, %d warnings\n",
			s.CompleteChains, s.TotalRequirements, s.Warnings)
		return err
	}
	_, err := fmt.Fprintf(w, "FAIL %d errors, %d warnings\nRun 'gxp-harden sweep' for details\n",
		s.Errors, s.Warnings)
	return err
}
