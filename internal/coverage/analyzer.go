package coverage

import (
	"fmt"
	"sort"

	"github.com/gxpmd/gxptrace/internal/config"
	"github.com/gxpmd/gxptrace/internal/graph"
	"github.com/gxpmd/gxptrace/internal/models"
)

// ChainStatus summarizes how much of a requirement's trace chain exists
type ChainStatus string

const (
	StatusComplete ChainStatus = "COMPLETE" // specifications, source and tests all reached
	StatusPartial  ChainStatus = "PARTIAL"
	StatusMissing  ChainStatus = "MISSING"
)

// Record is the verification state of one requirement
type Record struct {
	Requirement    string           `json:"requirement"`
	Title          string           `json:"title,omitempty"`
	Risk           models.RiskLevel `json:"risk_level"`
	Covered        bool             `json:"covered"`
	Tests          []string         `json:"test_files"`
	Reachable      int              `json:"reachable_nodes"`
	UserStories    []string         `json:"user_stories"`
	Specifications []string         `json:"specifications"`
	SourceFiles    []string         `json:"source_files"`
	Tiers          []models.Tier    `json:"tiers_present"`
	Status         ChainStatus      `json:"status"`
}

// Map holds one Record per requirement id
type Map map[string]*Record

// IDs returns requirement ids, sorted
func (m Map) IDs() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Sorted returns records ordered by requirement id
func (m Map) Sorted() []*Record {
	out := make([]*Record, 0, len(m))
	for _, id := range m.IDs() {
		out = append(out, m[id])
	}
	return out
}

// CountStatus returns the number of records with the given status
func (m Map) CountStatus(status ChainStatus) int {
	n := 0
	for _, rec := range m {
		if rec.Status == status {
			n++
		}
	}
	return n
}

// Option configures an analysis
type Option func(*analyzer)

// WithTestClassifier treats code-phase file nodes matching isTest as tests
func WithTestClassifier(isTest func(path string) bool) Option {
	return func(a *analyzer) {
		a.isTest = isTest
	}
}

type analyzer struct {
	g      *graph.Graph
	matrix config.RiskMatrix
	pct    Percentages
	isTest func(path string) bool
	adj    map[string][]string
}

// Analyze scores every requirement node of g against matrix. pct may be nil,
// in which case the coverage threshold check is skipped.
func Analyze(g *graph.Graph, matrix config.RiskMatrix, pct Percentages, opts ...Option) (Map, []models.Issue) {
	a := &analyzer{
		g:      g,
		matrix: matrix,
		pct:    pct,
		isTest: func(string) bool { return false },
		adj:    g.Undirected(),
	}
	for _, opt := range opts {
		opt(a)
	}

	records := make(Map)
	var issues []models.Issue
	for _, req := range g.NodesByPhase(graph.PhaseRequirement) {
		rec := a.trace(req)
		records[req.ID] = rec
		issues = append(issues, a.check(rec)...)
	}
	return records, issues
}

// reach runs a breadth-first search from start over the undirected view and
// returns every visited id except start, sorted
func (a *analyzer) reach(start string) []string {
	visited := map[string]struct{}{start: {}}
	queue := []string{start}
	var out []string
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range a.adj[id] {
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			out = append(out, next)
			queue = append(queue, next)
		}
	}
	sort.Strings(out)
	return out
}

func (a *analyzer) isTestNode(n *graph.Node) bool {
	if n.Phase == graph.PhaseTest {
		return true
	}
	return n.Phase == graph.PhaseCode && a.isTest(n.ID)
}

func (a *analyzer) trace(req *graph.Node) *Record {
	rec := &Record{
		Requirement:    req.ID,
		Title:          req.Title,
		Risk:           req.Risk,
		Tests:          []string{},
		UserStories:    []string{},
		Specifications: []string{},
		SourceFiles:    []string{},
	}

	tiers := models.NewTierSet()
	visited := a.reach(req.ID)
	rec.Reachable = len(visited)

	for _, id := range visited {
		n, ok := a.g.Node(id)
		if !ok {
			continue
		}
		switch {
		case a.isTestNode(n):
			rec.Tests = append(rec.Tests, id)
			tiers.Add(n.Tiers.Sorted()...)
		case n.Phase == graph.PhaseCode:
			rec.SourceFiles = append(rec.SourceFiles, id)
		case n.Phase == graph.PhaseUserStory:
			rec.UserStories = append(rec.UserStories, id)
		case n.Phase == graph.PhaseSpecification:
			rec.Specifications = append(rec.Specifications, id)
		}
	}

	rec.Covered = len(rec.Tests) > 0
	rec.Tiers = tiers.Sorted()
	rec.Status = chainStatus(len(rec.SourceFiles) > 0, rec.Covered, len(rec.Specifications) > 0)
	return rec
}

func chainStatus(hasSource, hasTests, hasSpecs bool) ChainStatus {
	switch {
	case hasSource && hasTests && hasSpecs:
		return StatusComplete
	case hasSource || hasTests || hasSpecs:
		return StatusPartial
	default:
		return StatusMissing
	}
}

// check applies the risk policy to one record
func (a *analyzer) check(rec *Record) []models.Issue {
	var issues []models.Issue
	add := func(severity models.Severity, msg string) {
		issues = append(issues, models.Issue{
			Location: rec.Requirement,
			Kind:     models.KindCoverage,
			Severity: severity,
			Message:  msg,
		})
	}

	policy, ok := a.matrix.Policy(rec.Risk)
	if !ok {
		add(models.SeverityWarning, "No risk level assigned")
		return issues
	}

	if missing := models.NewTierSet(rec.Tiers...).Missing(policy.RequiredTiers); len(missing) > 0 {
		add(models.SeverityError, fmt.Sprintf("%s risk requires tiers [%s] but only [%s] present. Missing: [%s]",
			rec.Risk,
			models.JoinTiers(policy.RequiredTiers),
			models.JoinTiers(rec.Tiers),
			models.JoinTiers(missing)))
	}

	if !rec.Covered {
		add(models.SeverityError, "No tests found for this requirement chain")
	}

	if a.pct != nil {
		for _, file := range rec.SourceFiles {
			actual, ok := a.pct.Lookup(file)
			if !ok || actual >= policy.CoverageThreshold {
				continue
			}
			add(models.SeverityError, fmt.Sprintf("%s: coverage %.1f%% < %g%% threshold for %s risk",
				file, actual, policy.CoverageThreshold, rec.Risk))
		}
	}

	return issues
}
