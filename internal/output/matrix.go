package output

import (
	"time"

	"github.com/gxpmd/gxptrace/internal/coverage"
	"github.com/gxpmd/gxptrace/internal/graph"
)

// Matrix is the traceability-matrix.json document
type Matrix struct {
	GeneratedAt string             `json:"generated_at"`
	Version     string             `json:"gxpmd_version"`
	RunID       string             `json:"run_id"`
	ProjectRoot string             `json:"project_root"`
	Chains      []*coverage.Record `json:"chains"`
	Summary     MatrixSummary      `json:"summary"`
	Graph       GraphDocument      `json:"graph"`
}

// MatrixSummary counts chains by status
type MatrixSummary struct {
	TotalRequirements int `json:"total_requirements"`
	CompleteChains    int `json:"complete_chains"`
	PartialChains     int `json:"partial_chains"`
	MissingChains     int `json:"missing_chains"`
}

// GraphDocument is the full node and edge set, sorted
type GraphDocument struct {
	Nodes []*graph.Node `json:"nodes"`
	Edges []graph.Edge  `json:"edges"`
}

// BuildMatrix assembles the traceability matrix document
func BuildMatrix(r *Report) *Matrix {
	s := r.Summary()
	m := &Matrix{
		GeneratedAt: r.GeneratedAt.UTC().Format(time.RFC3339),
		Version:     FormatVersion,
		RunID:       r.RunID,
		ProjectRoot: r.Root,
		Chains:      r.Chains.Sorted(),
		Summary: MatrixSummary{
			TotalRequirements: s.TotalRequirements,
			CompleteChains:    s.CompleteChains,
			PartialChains:     s.PartialChains,
			MissingChains:     s.MissingChains,
		},
		Graph: GraphDocument{Nodes: []*graph.Node{}, Edges: []graph.Edge{}},
	}

	if r.Graph != nil {
		for _, id := range r.Graph.NodeIDs() {
			m.Graph.Nodes = append(m.Graph.Nodes, r.Graph.Nodes[id])
		}
		m.Graph.Edges = append(m.Graph.Edges, r.Graph.Edges...)
	}
	return m
}
