package graph

import (
	"encoding/json"
	"sort"

	"github.com/gxpmd/gxptrace/internal/annotation"
	"github.com/gxpmd/gxptrace/internal/models"
)

// Phase is the lifecycle stage a node represents
type Phase string

const (
	PhaseRequirement   Phase = "requirement"
	PhaseUserStory     Phase = "user_story"
	PhaseSpecification Phase = "specification"
	PhaseCode          Phase = "code"
	PhaseTest          Phase = "test"
)

// PhaseForID infers an artifact phase from its id prefix
func PhaseForID(id string) (Phase, bool) {
	switch annotation.Prefix(id) {
	case annotation.PrefixRequirement:
		return PhaseRequirement, true
	case annotation.PrefixUserStory:
		return PhaseUserStory, true
	case annotation.PrefixSpecification:
		return PhaseSpecification, true
	default:
		return "", false
	}
}

// FilePhase returns the phase of a synthetic file node
func FilePhase(isTest bool) Phase {
	if isTest {
		return PhaseTest
	}
	return PhaseCode
}

// EdgeType is the closed set of relation kinds
type EdgeType string

const (
	EdgeSatisfies   EdgeType = "satisfies"
	EdgeImplements  EdgeType = "implements"
	EdgeVerifies    EdgeType = "verifies"
	EdgeDerivesFrom EdgeType = "derives_from"
)

// Node is a requirement, user story, specification or synthetic file node
type Node struct {
	ID    string
	Phase Phase
	Risk  models.RiskLevel
	Title string
	Files map[string]struct{}
	Tiers models.TierSet

	// Inferred stays true while the node is known only through hierarchy inference
	Inferred bool

	// Traced is set once a legacy @trace tag names the node
	Traced bool
}

// IsFile reports whether n represents a source or test file
func (n *Node) IsFile() bool {
	return n.Phase == PhaseCode || n.Phase == PhaseTest
}

// FileList returns contributing file paths, sorted
func (n *Node) FileList() []string {
	files := make([]string, 0, len(n.Files))
	for f := range n.Files {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// MarshalJSON renders sets as sorted lists so output is stable across runs
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID       string           `json:"id"`
		Phase    Phase            `json:"phase"`
		Risk     models.RiskLevel `json:"risk_level"`
		Title    string           `json:"title,omitempty"`
		Files    []string         `json:"files"`
		Tiers    []models.Tier    `json:"tiers"`
		Inferred bool             `json:"inferred,omitempty"`
		Traced   bool             `json:"traced,omitempty"`
	}{n.ID, n.Phase, n.Risk, n.Title, n.FileList(), n.Tiers.Sorted(), n.Inferred, n.Traced})
}

// Edge is a directed, typed relation declared by Source
type Edge struct {
	From   string   `json:"from"`
	To     string   `json:"to"`
	Type   EdgeType `json:"type"`
	Source string   `json:"source_file"`
}

// BuildStats tracks graph construction statistics
type BuildStats struct {
	Records            int
	Nodes              int
	Edges              int
	DuplicateEdges     int
	InferredNodes      int
	DroppedDerivations int
	RejectedEdges      int
}

// Graph is the traceability graph for one sweep. It is read-only once Build returns.
type Graph struct {
	Nodes map[string]*Node
	Edges []Edge
	Stats BuildStats

	edgeSet map[Edge]struct{}
}

func newGraph() *Graph {
	return &Graph{
		Nodes:   make(map[string]*Node),
		edgeSet: make(map[Edge]struct{}),
	}
}

// Node looks up a node by id
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.Nodes[id]
	return n, ok
}

// NodeIDs returns all node ids, sorted
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NodesByPhase returns nodes of the given phase sorted by id
func (g *Graph) NodesByPhase(phase Phase) []*Node {
	var out []*Node
	for _, id := range g.NodeIDs() {
		if n := g.Nodes[id]; n.Phase == phase {
			out = append(out, n)
		}
	}
	return out
}

// Degrees counts incoming and outgoing edges per node id
func (g *Graph) Degrees() (in, out map[string]int) {
	in = make(map[string]int, len(g.Nodes))
	out = make(map[string]int, len(g.Nodes))
	for _, e := range g.Edges {
		out[e.From]++
		in[e.To]++
	}
	return in, out
}

// Undirected returns a sorted, de-duplicated adjacency list ignoring edge direction
func (g *Graph) Undirected() map[string][]string {
	seen := make(map[string]map[string]struct{}, len(g.Nodes))
	link := func(a, b string) {
		if seen[a] == nil {
			seen[a] = make(map[string]struct{})
		}
		seen[a][b] = struct{}{}
	}
	for _, e := range g.Edges {
		link(e.From, e.To)
		link(e.To, e.From)
	}

	adj := make(map[string][]string, len(seen))
	for id, neighbours := range seen {
		list := make([]string, 0, len(neighbours))
		for n := range neighbours {
			list = append(list, n)
		}
		sort.Strings(list)
		adj[id] = list
	}
	return adj
}
