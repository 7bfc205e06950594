package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gxpmd/gxptrace/internal/annotation"
	"github.com/gxpmd/gxptrace/internal/graph"
	"github.com/gxpmd/gxptrace/internal/models"
)

// FindOrphans reports artifact nodes whose chains are broken. File nodes are
// exempt: they always carry at least one edge by construction.
func FindOrphans(g *graph.Graph) []models.Issue {
	in, out := g.Degrees()
	implied := impliedBy(g)

	var issues []models.Issue
	add := func(id string, severity models.Severity, msg string) {
		issues = append(issues, models.Issue{
			Location: id,
			Kind:     models.KindOrphan,
			Severity: severity,
			Message:  msg,
		})
	}

	for _, id := range g.NodeIDs() {
		n := g.Nodes[id]
		if n.IsFile() {
			continue
		}

		if in[id] == 0 && out[id] == 0 {
			severity := models.SeverityWarning
			if n.Risk == models.RiskHigh {
				severity = models.SeverityError
			}
			add(id, severity, fmt.Sprintf("%s %s is disconnected: no incoming or outgoing edges", n.Risk, n.Phase))
			continue
		}

		if in[id] == 0 {
			switch n.Phase {
			case graph.PhaseRequirement:
				add(id, models.SeverityWarning, "Nothing satisfies this requirement")
			case graph.PhaseSpecification:
				add(id, models.SeverityWarning, "Nothing verifies this specification")
			}
		}

		if n.Inferred {
			add(id, models.SeverityWarning, fmt.Sprintf("%s is implied by %s but never declared", id, strings.Join(implied[id], ", ")))
		}

		if n.Phase == graph.PhaseUserStory && n.Traced {
			spec := annotation.PrefixSpecification + strings.TrimPrefix(id, annotation.PrefixUserStory)
			if _, ok := g.Node(spec); !ok {
				add(id, models.SeverityWarning, fmt.Sprintf("@trace %s has no corresponding %s annotation", id, spec))
			}
		}
	}

	return issues
}

// impliedBy lists, for each inferred node, the artifacts whose edges created it
func impliedBy(g *graph.Graph) map[string][]string {
	sources := make(map[string]map[string]struct{})
	for _, e := range g.Edges {
		to, ok := g.Node(e.To)
		if !ok || !to.Inferred {
			continue
		}
		if from, ok := g.Node(e.From); ok && from.IsFile() {
			continue
		}
		if sources[e.To] == nil {
			sources[e.To] = make(map[string]struct{})
		}
		sources[e.To][e.From] = struct{}{}
	}

	out := make(map[string][]string, len(sources))
	for id, set := range sources {
		for from := range set {
			out[id] = append(out[id], from)
		}
		sort.Strings(out[id])
	}
	return out
}
