package output

import (
	"fmt"
	"strings"

	"github.com/gxpmd/gxptrace/internal/coverage"
	"github.com/gxpmd/gxptrace/internal/models"
)

var statusLabel = map[coverage.ChainStatus]string{
	coverage.StatusComplete: "PASS",
	coverage.StatusPartial:  "PARTIAL",
	coverage.StatusMissing:  "FAIL",
}

// ComplianceStatus renders compliance-status.md
func ComplianceStatus(r *Report) string {
	s := r.Summary()
	all := r.AllIssues()

	var b strings.Builder
	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line("# Compliance Status Report")
	line("")
	line("Generated: %s", r.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	line("GxP.MD Version: %s", FormatVersion)
	if r.RunID != "" {
		line("Run: %s", r.RunID)
	}
	line("")
	line("---")
	line("")

	line("## Summary")
	line("")
	line("| Metric | Value |")
	line("|--------|-------|")
	line("| Total requirements | %d |", s.TotalRequirements)
	line("| Complete chains | %d/%d |", s.CompleteChains, s.TotalRequirements)
	line("| Partial chains | %d/%d |", s.PartialChains, s.TotalRequirements)
	line("| Missing chains | %d/%d |", s.MissingChains, s.TotalRequirements)
	line("| Annotated source files | %d |", r.AnnotatedSource)
	line("| Annotated test files | %d |", r.AnnotatedTest)
	line("| Errors | %d |", s.Errors)
	line("| Warnings | %d |", s.Warnings)
	line("")

	line("## Risk Distribution")
	line("")
	line("| Risk Level | Requirements | Complete |")
	line("|------------|-------------|----------|")
	for _, level := range models.RiskLevels {
		total, complete := 0, 0
		for _, chain := range r.Chains {
			if chain.Risk != level {
				continue
			}
			total++
			if chain.Status == coverage.StatusComplete {
				complete++
			}
		}
		line("| %s | %d | %d/%d |", level, total, complete, total)
	}
	line("")

	writeIssues(&b, "Errors", models.FilterSeverity(all, models.SeverityError))
	writeIssues(&b, "Warnings", models.FilterSeverity(all, models.SeverityWarning))

	line("## Traceability Chains")
	line("")
	for _, chain := range r.Chains.Sorted() {
		line("### %s [%s]", chain.Requirement, statusLabel[chain.Status])
		line("")
		if chain.Title != "" {
			line("- **Title**: %s", chain.Title)
		}
		line("- **Risk**: %s", chain.Risk)
		line("- **Specs**: %s", orNone(chain.Specifications))
		line("- **User Stories**: %s", orNone(chain.UserStories))
		line("- **Source Files**: %s", orNone(chain.SourceFiles))
		line("- **Test Files**: %s", orNone(chain.Tests))
		line("- **Tiers**: %s", orNone(tierStrings(chain.Tiers)))
		line("")
	}

	line("---")
	line("")
	line("## Sign-off")
	line("")
	line("| Role | Name | Date | Signature |")
	line("|------|------|------|-----------|")
	line("| QA Lead | _____ | _____ | _____ |")
	line("| Project Owner | _____ | _____ | _____ |")
	line("")
	line("*Sign-off is completed by humans, not agents.*")

	return b.String()
}

func writeIssues(b *strings.Builder, heading string, issues []models.Issue) {
	if len(issues) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", heading)
	for _, issue := range issues {
		fmt.Fprintf(b, "- **%s**: %s\n", issue.Location, issue.Message)
	}
	b.WriteByte('\n')
}

func orNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func tierStrings(tiers []models.Tier) []string {
	out := make([]string, len(tiers))
	for i, t := range tiers {
		out[i] = string(t)
	}
	return out
}
