package graph

import (
	"strings"

	"github.com/gxpmd/gxptrace/internal/annotation"
	"github.com/gxpmd/gxptrace/internal/models"
)

// NodeRef names an edge endpoint and the attributes the declaring file adds to it
type NodeRef struct {
	ID       string
	Phase    Phase
	Title    string
	Inferred bool
	Traced   bool // named by a legacy @trace tag
}

// Declaration is one edge an adapter derived from a record, with the
// attributes its source file contributes to both endpoints
type Declaration struct {
	From   NodeRef
	To     NodeRef
	Type   EdgeType
	Source string
	Risk   models.RiskLevel
	Tiers  []models.Tier
}

// Emitter collects the output of an adapter for one record
type Emitter struct {
	decls    []Declaration
	dropped  []string
	rejected []string
}

// Edge queues a declaration for assembly
func (e *Emitter) Edge(d Declaration) {
	e.decls = append(e.decls, d)
}

// Drop records a tag that could not be turned into an edge
func (e *Emitter) Drop(reason string) {
	e.dropped = append(e.dropped, reason)
}

// Reject records a tag whose relation cannot point at its target
func (e *Emitter) Reject(reason string) {
	e.rejected = append(e.rejected, reason)
}

// Adapter translates one annotation record into edge declarations.
// Adapters never see the graph; assembly is shared.
type Adapter interface {
	Name() string
	Translate(rec *annotation.Record, emit *Emitter)
}

func fileRef(rec *annotation.Record) NodeRef {
	return NodeRef{ID: rec.File, Phase: FilePhase(rec.IsTest)}
}

func artifactRef(id, title string, inferred bool) (NodeRef, bool) {
	phase, ok := PhaseForID(id)
	if !ok {
		return NodeRef{}, false
	}
	return NodeRef{ID: id, Phase: phase, Title: title, Inferred: inferred}, true
}

// ExplicitAdapter handles the current @gxp-satisfies/implements/verifies/derives-from
// tags. Ids are opaque: no hierarchy is inferred from them.
type ExplicitAdapter struct{}

// Name implements Adapter
func (ExplicitAdapter) Name() string { return "explicit" }

// Translate implements Adapter
func (ExplicitAdapter) Translate(rec *annotation.Record, emit *Emitter) {
	file := fileRef(rec)
	risk := rec.Risk()

	for _, rel := range []annotation.Relation{annotation.RelSatisfies, annotation.RelImplements, annotation.RelVerifies} {
		for _, id := range rec.Targets(rel) {
			to, ok := artifactRef(id, "", false)
			if !ok {
				continue
			}
			if !annotation.AllowsTarget(rel, id) {
				emit.Reject(rec.File + ": @gxp-" + string(rel) + " cannot target " + string(to.Phase) + " " + id)
				continue
			}
			d := Declaration{From: file, To: to, Type: EdgeType(rel), Source: rec.File, Risk: risk}
			if rel == annotation.RelVerifies {
				d.Tiers = rec.Tiers
			}
			emit.Edge(d)
		}
	}

	// derived artifacts are every id the file declared, legacy tags included
	var declared []NodeRef
	for _, id := range rec.DeclaredTargets() {
		if ref, ok := artifactRef(id, "", false); ok {
			declared = append(declared, ref)
		}
	}

	for _, id := range rec.Targets(annotation.RelDerivesFrom) {
		to, ok := artifactRef(id, "", false)
		if !ok {
			continue
		}
		if len(declared) == 0 {
			emit.Drop(rec.File + ": @gxp-derives-from " + id + " has no declared artifact to attach to")
			continue
		}
		for _, from := range declared {
			emit.Edge(Declaration{From: from, To: to, Type: EdgeDerivesFrom, Source: rec.File, Risk: risk})
		}
	}
}

// LegacyAdapter handles @gxp-req, @gxp-spec and @trace. Their ids encode the
// hierarchy (SPEC-NNN-MMM belongs to US-NNN-MMM, which belongs to REQ-NNN),
// so the adapter also back-fills the story and requirement links.
type LegacyAdapter struct{}

// Name implements Adapter
func (LegacyAdapter) Name() string { return "legacy" }

// Translate implements Adapter
func (LegacyAdapter) Translate(rec *annotation.Record, emit *Emitter) {
	file := fileRef(rec)
	risk := rec.Risk()

	// A test file verifies whatever it names; a source file satisfies
	// requirements and implements stories and specifications.
	direct := func(to NodeRef, sourceType EdgeType) {
		d := Declaration{From: file, To: to, Type: sourceType, Source: rec.File, Risk: risk}
		if rec.IsTest {
			d.Type = EdgeVerifies
			d.Tiers = rec.Tiers
		}
		emit.Edge(d)
	}
	infer := func(from NodeRef, toID string, t EdgeType) (NodeRef, bool) {
		to, ok := artifactRef(toID, "", true)
		if !ok {
			return NodeRef{}, false
		}
		emit.Edge(Declaration{From: from, To: to, Type: t, Source: rec.File, Risk: risk})
		return to, true
	}

	for _, req := range rec.Requirements {
		if to, ok := artifactRef(req.ID, req.Title, false); ok {
			direct(to, EdgeSatisfies)
		}
	}

	for _, spec := range rec.Specifications {
		to, ok := artifactRef(spec.ID, spec.Title, false)
		if !ok {
			continue
		}
		direct(to, EdgeImplements)
		if story, ok := infer(to, specToStory(spec.ID), EdgeImplements); ok {
			infer(story, storyToRequirement(story.ID), EdgeSatisfies)
		}
	}

	for _, us := range rec.Traces {
		to, ok := artifactRef(us, "", false)
		if !ok {
			continue
		}
		to.Traced = true
		direct(to, EdgeImplements)
		infer(to, storyToRequirement(us), EdgeSatisfies)
	}
}

// specToStory maps SPEC-001-002 to US-001-002
func specToStory(specID string) string {
	return annotation.PrefixUserStory + strings.TrimPrefix(specID, annotation.PrefixSpecification)
}

// storyToRequirement maps US-001-002 to REQ-001
func storyToRequirement(usID string) string {
	rest := strings.TrimPrefix(usID, annotation.PrefixUserStory+"-")
	group, _, _ := strings.Cut(rest, "-")
	return annotation.PrefixRequirement + "-" + group
}
