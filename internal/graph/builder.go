package graph

import (
	"github.com/gxpmd/gxptrace/internal/annotation"
	"github.com/gxpmd/gxptrace/internal/models"
	"github.com/sirupsen/logrus"
)

// Builder assembles the traceability graph from annotation records
type Builder struct {
	adapters []Adapter
	logger   *logrus.Logger
}

// BuildOption configures a Builder
type BuildOption func(*Builder)

// WithLogger sets the logger used for build diagnostics
func WithLogger(logger *logrus.Logger) BuildOption {
	return func(b *Builder) { b.logger = logger }
}

// WithAdapters replaces the default legacy + explicit adapters
func WithAdapters(adapters ...Adapter) BuildOption {
	return func(b *Builder) { b.adapters = adapters }
}

// NewBuilder creates a graph builder with both tag generations enabled
func NewBuilder(opts ...BuildOption) *Builder {
	b := &Builder{
		adapters: []Adapter{LegacyAdapter{}, ExplicitAdapter{}},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = logrus.New()
		b.logger.SetLevel(logrus.WarnLevel)
	}
	return b
}

// Build is shorthand for NewBuilder(opts...).Build(records)
func Build(records []*annotation.Record, opts ...BuildOption) *Graph {
	return NewBuilder(opts...).Build(records)
}

// Build constructs a fresh graph. Records should be sorted by file path;
// the result does not depend on order except for which title is seen first.
// Build is not safe for concurrent use on the same Builder.
func (b *Builder) Build(records []*annotation.Record) *Graph {
	g := newGraph()

	for _, rec := range records {
		if rec == nil {
			continue
		}
		g.Stats.Records++

		for _, adapter := range b.adapters {
			emit := &Emitter{}
			adapter.Translate(rec, emit)

			for _, d := range emit.decls {
				g.apply(d)
			}
			for _, reason := range emit.rejected {
				g.Stats.RejectedEdges++
				b.logger.WithFields(logrus.Fields{
					"adapter": adapter.Name(),
					"file":    rec.File,
				}).Debug(reason)
			}
			for _, reason := range emit.dropped {
				g.Stats.DroppedDerivations++
				b.logger.WithFields(logrus.Fields{
					"adapter": adapter.Name(),
					"file":    rec.File,
				}).Debug(reason)
			}
		}
	}

	g.Stats.Nodes = len(g.Nodes)
	g.Stats.Edges = len(g.Edges)
	for _, n := range g.Nodes {
		if n.Inferred {
			g.Stats.InferredNodes++
		}
	}

	b.logger.WithFields(logrus.Fields{
		"records":   g.Stats.Records,
		"nodes":     g.Stats.Nodes,
		"edges":     g.Stats.Edges,
		"inferred":  g.Stats.InferredNodes,
		"dropped":   g.Stats.DroppedDerivations,
		"rejected":  g.Stats.RejectedEdges,
		"duplicate": g.Stats.DuplicateEdges,
	}).Debug("Traceability graph built")

	return g
}

// apply merges both endpoints, then appends the edge unless it already exists
func (g *Graph) apply(d Declaration) {
	from := g.merge(d.From, d)
	to := g.merge(d.To, d)

	e := Edge{From: from.ID, To: to.ID, Type: d.Type, Source: d.Source}
	if _, dup := g.edgeSet[e]; dup {
		g.Stats.DuplicateEdges++
		return
	}
	g.edgeSet[e] = struct{}{}
	g.Edges = append(g.Edges, e)
}

// merge creates or updates a node: max risk, first title, growing file and tier sets
func (g *Graph) merge(ref NodeRef, d Declaration) *Node {
	n, ok := g.Nodes[ref.ID]
	if !ok {
		n = &Node{
			ID:       ref.ID,
			Phase:    ref.Phase,
			Risk:     models.RiskUnknown,
			Files:    make(map[string]struct{}),
			Tiers:    models.NewTierSet(),
			Inferred: ref.Inferred,
		}
		g.Nodes[ref.ID] = n
	} else if !ref.Inferred {
		n.Inferred = false
	}
	if ref.Traced {
		n.Traced = true
	}

	n.Risk = n.Risk.Max(d.Risk)
	if n.Title == "" && ref.Title != "" {
		n.Title = ref.Title
	}
	if d.Source != "" {
		n.Files[d.Source] = struct{}{}
	}
	n.Tiers.Add(d.Tiers...)
	return n
}
