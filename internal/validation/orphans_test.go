package validation

import (
	"testing"

	"github.com/gxpmd/gxptrace/internal/annotation"
	"github.com/gxpmd/gxptrace/internal/graph"
	"github.com/gxpmd/gxptrace/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(id string, phase graph.Phase, risk models.RiskLevel) *graph.Node {
	return &graph.Node{
		ID:    id,
		Phase: phase,
		Risk:  risk,
		Files: map[string]struct{}{},
		Tiers: models.NewTierSet(),
	}
}

func TestFindOrphansDisconnectedSeverity(t *testing.T) {
	g := &graph.Graph{Nodes: map[string]*graph.Node{
		"REQ-001":  node("REQ-001", graph.PhaseRequirement, models.RiskHigh),
		"REQ-002":  node("REQ-002", graph.PhaseRequirement, models.RiskMedium),
		"SPEC-003": node("SPEC-003", graph.PhaseSpecification, models.RiskUnknown),
	}}

	issues := FindOrphans(g)
	require.Len(t, issues, 3)

	assert.Equal(t, "REQ-001", issues[0].Location)
	assert.Equal(t, models.SeverityError, issues[0].Severity)
	assert.Equal(t, models.KindOrphan, issues[0].Kind)
	assert.Equal(t, "REQ-002", issues[1].Location)
	assert.Equal(t, models.SeverityWarning, issues[1].Severity)
	assert.Equal(t, models.SeverityWarning, issues[2].Severity)
}

func TestFindOrphansZeroInDegree(t *testing.T) {
	g := &graph.Graph{
		Nodes: map[string]*graph.Node{
			"REQ-001":  node("REQ-001", graph.PhaseRequirement, models.RiskLow),
			"SPEC-001": node("SPEC-001", graph.PhaseSpecification, models.RiskLow),
			"SPEC-002": node("SPEC-002", graph.PhaseSpecification, models.RiskLow),
		},
		Edges: []graph.Edge{
			{From: "REQ-001", To: "SPEC-002", Type: graph.EdgeDerivesFrom, Source: "a.go"},
			{From: "SPEC-001", To: "SPEC-002", Type: graph.EdgeDerivesFrom, Source: "a.go"},
		},
	}

	issues := FindOrphans(g)
	require.Len(t, issues, 2)
	assert.Equal(t, models.Issue{Location: "REQ-001", Kind: models.KindOrphan, Severity: models.SeverityWarning, Message: "Nothing satisfies this requirement"}, issues[0])
	assert.Equal(t, models.Issue{Location: "SPEC-001", Kind: models.KindOrphan, Severity: models.SeverityWarning, Message: "Nothing verifies this specification"}, issues[1])
}

func TestFindOrphansConnectedChainIsClean(t *testing.T) {
	g := graph.Build([]*annotation.Record{
		annotation.Extract("src/a.go", "@gxp-implements SPEC-001 @gxp-risk MEDIUM", false),
		annotation.Extract("a.test", "@gxp-verifies SPEC-001 @test-type OQ @gxp-risk MEDIUM", true),
	})
	assert.Empty(t, FindOrphans(g))
}

func TestFindOrphansInferredRequirement(t *testing.T) {
	g := graph.Build([]*annotation.Record{
		annotation.Extract("src/a.go", "@gxp-spec SPEC-002-001 @gxp-risk LOW", false),
	})

	issues := FindOrphans(g)
	require.Len(t, issues, 2)
	assert.Equal(t, "REQ-002", issues[0].Location)
	assert.Equal(t, "REQ-002 is implied by US-002-001 but never declared", issues[0].Message)
	assert.Equal(t, "US-002-001", issues[1].Location)
	assert.Equal(t, "US-002-001 is implied by SPEC-002-001 but never declared", issues[1].Message)
}

func TestFindOrphansIgnoresFileNodes(t *testing.T) {
	g := &graph.Graph{Nodes: map[string]*graph.Node{
		"src/a.go": node("src/a.go", graph.PhaseCode, models.RiskHigh),
	}}
	assert.Empty(t, FindOrphans(g))
}

func TestFindOrphansTracedStoryWithoutSpecification(t *testing.T) {
	g := graph.Build([]*annotation.Record{
		annotation.Extract("src/a.ts", "@gxp-req REQ-004\n@gxp-risk MEDIUM", false),
		annotation.Extract("tests/a.test.ts", "@trace US-004-001\n@gxp-req REQ-004\n@test-type OQ\n@gxp-risk MEDIUM", true),
	})

	issues := FindOrphans(g)
	require.Len(t, issues, 1)
	assert.Equal(t, "US-004-001", issues[0].Location)
	assert.Equal(t, models.SeverityWarning, issues[0].Severity)
	assert.Equal(t, "@trace US-004-001 has no corresponding SPEC-004-001 annotation", issues[0].Message)
}

func TestFindOrphansTracedStoryWithSpecificationIsClean(t *testing.T) {
	g := graph.Build([]*annotation.Record{
		annotation.Extract("src/a.ts", "@gxp-spec SPEC-004-001\n@gxp-risk MEDIUM", false),
		annotation.Extract("tests/a.test.ts", "@trace US-004-001\n@gxp-spec SPEC-004-001\n@test-type OQ\n@gxp-risk MEDIUM", true),
	})

	for _, issue := range FindOrphans(g) {
		assert.NotContains(t, issue.Message, "@trace")
	}
}

func TestFindOrphansIgnoresStoriesNamedByCurrentTags(t *testing.T) {
	g := graph.Build([]*annotation.Record{
		annotation.Extract("src/a.ts", "@gxp-implements US-004-001\n@gxp-risk LOW", false),
	})

	for _, issue := range FindOrphans(g) {
		assert.NotContains(t, issue.Message, "@trace")
	}
}
