package annotation

import "github.com/gxpmd/gxptrace/internal/models"

// Relation is an explicit edge tag in the current grammar
type Relation string

const (
	RelSatisfies   Relation = "satisfies"
	RelImplements  Relation = "implements"
	RelVerifies    Relation = "verifies"
	RelDerivesFrom Relation = "derives_from"
)

// Relations lists the explicit edge tags in declaration-processing order.
// derives_from comes last because it refers back to the file's other targets.
var Relations = []Relation{RelSatisfies, RelImplements, RelVerifies, RelDerivesFrom}

// Declared is an id named by a legacy tag, with its optional quoted title
type Declared struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// Record holds every tag found in one annotated file
type Record struct {
	File   string `json:"file"`
	IsTest bool   `json:"is_test"`

	// Legacy grammar
	Requirements   []Declared `json:"requirements,omitempty"`
	Specifications []Declared `json:"specifications,omitempty"`
	Traces         []string   `json:"traces,omitempty"`

	// Current grammar: relation -> target ids in declaration order
	Edges map[Relation][]string `json:"edges,omitempty"`

	// Common tags
	RiskLevels   []models.RiskLevel `json:"risk_levels,omitempty"`
	RiskConcerns []string           `json:"risk_concerns,omitempty"`
	Tiers        []models.Tier      `json:"tiers,omitempty"`
}

// Risk resolves the file's declared risk levels to the most severe one
func (r *Record) Risk() models.RiskLevel {
	return models.ResolveRisk(r.RiskLevels)
}

// HasLegacyRelations reports whether any legacy req/spec/trace tag was found
func (r *Record) HasLegacyRelations() bool {
	return len(r.Requirements) > 0 || len(r.Specifications) > 0 || len(r.Traces) > 0
}

// HasCurrentRelations reports whether any current-grammar edge tag was found
func (r *Record) HasCurrentRelations() bool {
	for _, ids := range r.Edges {
		if len(ids) > 0 {
			return true
		}
	}
	return false
}

// Targets returns the ids declared for rel
func (r *Record) Targets(rel Relation) []string {
	if r.Edges == nil {
		return nil
	}
	return r.Edges[rel]
}

// AllowsTarget reports whether rel may name id. satisfies names requirements
// and implements names stories or specifications; verifies and derives_from
// accept any artifact.
func AllowsTarget(rel Relation, id string) bool {
	switch rel {
	case RelSatisfies:
		return Prefix(id) == PrefixRequirement
	case RelImplements:
		p := Prefix(id)
		return p == PrefixUserStory || p == PrefixSpecification
	default:
		return true
	}
}

// DeclaredTargets returns every artifact the file relates itself to in either
// grammar: accepted satisfies, implements and verifies targets, then legacy
// req, spec and trace ids. Duplicates are removed; derives_from targets are
// not included.
func (r *Record) DeclaredTargets() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(id string) {
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	for _, rel := range []Relation{RelSatisfies, RelImplements, RelVerifies} {
		for _, id := range r.Targets(rel) {
			if AllowsTarget(rel, id) {
				add(id)
			}
		}
	}
	for _, req := range r.Requirements {
		add(req.ID)
	}
	for _, spec := range r.Specifications {
		add(spec.ID)
	}
	for _, us := range r.Traces {
		add(us)
	}
	return out
}

func (r *Record) empty() bool {
	return !r.HasLegacyRelations() && !r.HasCurrentRelations() &&
		len(r.RiskLevels) == 0 && len(r.RiskConcerns) == 0 && len(r.Tiers) == 0
}
