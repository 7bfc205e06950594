package validation

import (
	"fmt"
	"strings"

	"github.com/gxpmd/gxptrace/internal/annotation"
	"github.com/gxpmd/gxptrace/internal/models"
)

// fileRole selects which rules apply to a record
type fileRole int

const (
	roleSource fileRole = iota
	roleTest
)

// rule is one row of the completeness table. check returns a message when
// the rule is violated and an empty string otherwise.
type rule struct {
	role     fileRole
	severity models.Severity
	check    func(rec *annotation.Record) string
}

var rules = []rule{
	{roleTest, models.SeverityError, func(rec *annotation.Record) string {
		if len(rec.Targets(annotation.RelVerifies)) == 0 && len(rec.Specifications) == 0 && len(rec.Traces) == 0 {
			return "Test file missing verification target (@gxp-verifies, or legacy @gxp-spec / @trace)"
		}
		return ""
	}},
	{roleTest, models.SeverityError, func(rec *annotation.Record) string {
		if len(rec.Tiers) == 0 {
			return "Test file missing @test-type annotation"
		}
		return ""
	}},
	{roleTest, models.SeverityError, func(rec *annotation.Record) string {
		if len(rec.RiskLevels) == 0 {
			return "Test file missing @gxp-risk annotation"
		}
		return ""
	}},
	{roleTest, models.SeverityWarning, func(rec *annotation.Record) string {
		if !tracesStory(rec) {
			return "Test file does not trace a user story (@trace or @gxp-verifies US-...)"
		}
		return ""
	}},
	{roleSource, models.SeverityError, func(rec *annotation.Record) string {
		if len(rec.RiskLevels) == 0 {
			return "Source file missing @gxp-risk annotation"
		}
		return ""
	}},
	{roleSource, models.SeverityError, func(rec *annotation.Record) string {
		// LOW-risk files may omit relation tags entirely
		if hasOutgoingRelation(rec) || rec.Risk() == models.RiskLow {
			return ""
		}
		return "Source file missing relation tag (@gxp-satisfies / @gxp-implements, or legacy @gxp-req / @gxp-spec)"
	}},
}

// Validate applies the per-file completeness rules to every record.
// Issues are returned in record order; nothing aborts the pass.
func Validate(records []*annotation.Record) []models.Issue {
	var issues []models.Issue
	for _, rec := range records {
		if rec == nil {
			continue
		}
		issues = append(issues, ValidateRecord(rec)...)
	}
	return issues
}

// ValidateRecord applies the rule table plus the role-independent checks to one record
func ValidateRecord(rec *annotation.Record) []models.Issue {
	role := roleSource
	if rec.IsTest {
		role = roleTest
	}

	var issues []models.Issue
	add := func(severity models.Severity, msg string) {
		issues = append(issues, models.Issue{
			Location: rec.File,
			Kind:     models.KindValidation,
			Severity: severity,
			Message:  msg,
		})
	}

	for _, r := range rules {
		if r.role != role {
			continue
		}
		if msg := r.check(rec); msg != "" {
			add(r.severity, msg)
		}
	}

	for _, rel := range []annotation.Relation{annotation.RelSatisfies, annotation.RelImplements} {
		for _, id := range rec.Targets(rel) {
			if !annotation.AllowsTarget(rel, id) {
				add(models.SeverityWarning, fmt.Sprintf("@gxp-%s %s ignored: %s must name %s", rel, id, rel, relationTargets[rel]))
			}
		}
	}

	if mixed := distinctRisks(rec.RiskLevels); len(mixed) > 1 {
		add(models.SeverityWarning, fmt.Sprintf("File has mixed risk levels: %s", strings.Join(mixed, ", ")))
	}

	if rec.HasLegacyRelations() && !rec.HasCurrentRelations() {
		add(models.SeverityWarning, "File uses only legacy tags (@gxp-req / @gxp-spec / @trace); migrate to @gxp-satisfies / @gxp-implements / @gxp-verifies")
	}

	return issues
}

func tracesStory(rec *annotation.Record) bool {
	if len(rec.Traces) > 0 {
		return true
	}
	for _, id := range rec.Targets(annotation.RelVerifies) {
		if annotation.Prefix(id) == annotation.PrefixUserStory {
			return true
		}
	}
	return false
}

var relationTargets = map[annotation.Relation]string{
	annotation.RelSatisfies:  "a requirement (REQ-)",
	annotation.RelImplements: "a user story or specification (US- / SPEC-)",
}

func hasOutgoingRelation(rec *annotation.Record) bool {
	if len(rec.Requirements) > 0 || len(rec.Specifications) > 0 {
		return true
	}
	for _, rel := range []annotation.Relation{annotation.RelSatisfies, annotation.RelImplements} {
		for _, id := range rec.Targets(rel) {
			if annotation.AllowsTarget(rel, id) {
				return true
			}
		}
	}
	return false
}

// distinctRisks returns the distinct levels in declaration order
func distinctRisks(levels []models.RiskLevel) []string {
	seen := make(map[models.RiskLevel]bool)
	var out []string
	for _, l := range levels {
		if !seen[l] {
			seen[l] = true
			out = append(out, string(l))
		}
	}
	return out
}
