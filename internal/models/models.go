package models

import (
	"sort"
	"strings"
)

// RiskLevel represents the risk severity declared with @gxp-risk
type RiskLevel string

const (
	RiskHigh    RiskLevel = "HIGH"
	RiskMedium  RiskLevel = "MEDIUM"
	RiskLow     RiskLevel = "LOW"
	RiskUnknown RiskLevel = "UNKNOWN"
)

// String returns the string representation of RiskLevel
func (r RiskLevel) String() string {
	return string(r)
}

// rank orders risk levels by severity; unrecognized values rank as UNKNOWN
func (r RiskLevel) rank() int {
	switch r {
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	default:
		return 0
	}
}

// Max returns the more severe of two risk levels
func (r RiskLevel) Max(other RiskLevel) RiskLevel {
	if other.rank() > r.rank() {
		return other
	}
	if r == "" {
		return RiskUnknown
	}
	return r
}

// ParseRiskLevel normalizes a risk string; anything unrecognized becomes UNKNOWN
func ParseRiskLevel(s string) RiskLevel {
	switch RiskLevel(strings.ToUpper(strings.TrimSpace(s))) {
	case RiskHigh:
		return RiskHigh
	case RiskMedium:
		return RiskMedium
	case RiskLow:
		return RiskLow
	default:
		return RiskUnknown
	}
}

// ResolveRisk returns the highest level in levels, or UNKNOWN when empty
func ResolveRisk(levels []RiskLevel) RiskLevel {
	resolved := RiskUnknown
	for _, l := range levels {
		resolved = resolved.Max(l)
	}
	return resolved
}

// RiskLevels lists the assignable levels from most to least severe
var RiskLevels = []RiskLevel{RiskHigh, RiskMedium, RiskLow}

// Tier is a qualification test category
type Tier string

const (
	TierIQ Tier = "IQ" // installation qualification
	TierOQ Tier = "OQ" // operational qualification
	TierPQ Tier = "PQ" // performance qualification
)

// TierSet is an unordered set of tiers
type TierSet map[Tier]struct{}

// NewTierSet builds a set from the given tiers
func NewTierSet(tiers ...Tier) TierSet {
	s := make(TierSet, len(tiers))
	s.Add(tiers...)
	return s
}

// Add inserts tiers into the set
func (s TierSet) Add(tiers ...Tier) {
	for _, t := range tiers {
		s[t] = struct{}{}
	}
}

// Has reports whether t is in the set
func (s TierSet) Has(t Tier) bool {
	_, ok := s[t]
	return ok
}

// Missing returns the members of required not present in s, sorted
func (s TierSet) Missing(required []Tier) []Tier {
	var missing []Tier
	for _, t := range required {
		if !s.Has(t) {
			missing = append(missing, t)
		}
	}
	SortTiers(missing)
	return missing
}

// Sorted returns the set members in IQ, OQ, PQ order
func (s TierSet) Sorted() []Tier {
	out := make([]Tier, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	SortTiers(out)
	return out
}

// SortTiers sorts tiers lexically, which is also qualification order
func SortTiers(tiers []Tier) {
	sort.Slice(tiers, func(i, j int) bool { return tiers[i] < tiers[j] })
}

// JoinTiers renders tiers as a comma-separated list
func JoinTiers(tiers []Tier) string {
	parts := make([]string, len(tiers))
	for i, t := range tiers {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

// Severity of a reported issue
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// IssueKind identifies which stage produced an issue
type IssueKind string

const (
	KindValidation IssueKind = "validation"
	KindOrphan     IssueKind = "orphan"
	KindCoverage   IssueKind = "coverage"
)

// Issue is a structured finding. Location is a file path for validation
// issues, a node id for orphan issues and a requirement id for coverage issues.
type Issue struct {
	Location string    `json:"location" db:"location"`
	Kind     IssueKind `json:"kind" db:"kind"`
	Severity Severity  `json:"severity" db:"severity"`
	Message  string    `json:"message" db:"message"`
}

// CountSeverity returns the number of issues with the given severity
func CountSeverity(issues []Issue, severity Severity) int {
	n := 0
	for _, issue := range issues {
		if issue.Severity == severity {
			n++
		}
	}
	return n
}

// FilterSeverity returns the issues with the given severity, order preserved
func FilterSeverity(issues []Issue, severity Severity) []Issue {
	var out []Issue
	for _, issue := range issues {
		if issue.Severity == severity {
			out = append(out, issue)
		}
	}
	return out
}
