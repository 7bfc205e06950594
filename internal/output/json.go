package output

import (
	"encoding/json"
	"io"
)

// JSONFormatter writes the matrix, gap analysis and summary as one document
type JSONFormatter struct{}

type jsonDocument struct {
	TraceabilityMatrix *Matrix      `json:"traceability_matrix"`
	GapAnalysis        *GapAnalysis `json:"gap_analysis"`
	Summary            Summary      `json:"summary"`
}

func (f *JSONFormatter) Format(r *Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonDocument{
		TraceabilityMatrix: BuildMatrix(r),
		GapAnalysis:        BuildGapAnalysis(r),
		Summary:            r.Summary(),
	})
}
