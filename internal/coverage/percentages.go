package coverage

import (
	"encoding/json"
	"os"

	gxperrors "github.com/gxpmd/gxptrace/internal/errors"
)

// Percentages maps a file path to its externally reported coverage percentage
type Percentages map[string]float64

// Lookup finds a file's percentage by exact, "./"-prefixed or "/"-prefixed key
func (p Percentages) Lookup(path string) (float64, bool) {
	for _, key := range []string{path, "./" + path, "/" + path} {
		if pct, ok := p[key]; ok {
			return pct, true
		}
	}
	return 0, false
}

type summaryMetric struct {
	Pct *float64 `json:"pct"`
}

type summaryEntry struct {
	Statements *summaryMetric `json:"statements"`
	Lines      *summaryMetric `json:"lines"`
}

// ParseSummary decodes an Istanbul/nyc coverage-summary.json document.
// statements.pct is preferred, lines.pct is the fallback; entries with
// neither (including the "total" roll-up when malformed) are skipped.
func ParseSummary(data []byte) (Percentages, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	out := make(Percentages, len(raw))
	for path, msg := range raw {
		var entry summaryEntry
		if err := json.Unmarshal(msg, &entry); err != nil {
			continue
		}
		switch {
		case entry.Statements != nil && entry.Statements.Pct != nil:
			out[path] = *entry.Statements.Pct
		case entry.Lines != nil && entry.Lines.Pct != nil:
			out[path] = *entry.Lines.Pct
		}
	}
	return out, nil
}

// LoadSummary reads and parses a coverage-summary.json file
func LoadSummary(path string) (Percentages, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, gxperrors.FileSystemErrorf(err, "read coverage summary %s", path)
	}
	pct, err := ParseSummary(data)
	if err != nil {
		return nil, gxperrors.InputErrorf(err, "parse coverage summary %s", path)
	}
	return pct, nil
}
