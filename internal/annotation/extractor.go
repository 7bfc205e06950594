package annotation

import (
	"regexp"
	"strings"

	"github.com/gxpmd/gxptrace/internal/models"
)

// idToken matches anything shaped like an id so that malformed ids are
// consumed whole and then rejected, instead of matching a valid-looking prefix.
const idToken = `[A-Z]+-\d+(?:-\d+)*`

var (
	reLegacyReq  = regexp.MustCompile(`@gxp-req[ \t]+(` + idToken + `)(?:[ \t]+"([^"\n]*)")?`)
	reLegacySpec = regexp.MustCompile(`@gxp-spec[ \t]+(` + idToken + `)(?:[ \t]+"([^"\n]*)")?`)
	reTrace      = regexp.MustCompile(`@trace[ \t]+(` + idToken + `)`)

	reEdgeTag = regexp.MustCompile(`@gxp-(satisfies|implements|verifies|derives-from)[ \t]+(` +
		idToken + `(?:[ \t]*,[ \t]*` + idToken + `)*)`)

	reRisk        = regexp.MustCompile(`@gxp-risk[ \t]+(HIGH|MEDIUM|LOW)\b`)
	reRiskConcern = regexp.MustCompile(`@gxp-risk-concern[ \t]+"([^"\n]*)"`)
	reTestType    = regexp.MustCompile(`@test-type[ \t]+((?:IQ|OQ|PQ)(?:[ \t]*,[ \t]*(?:IQ|OQ|PQ))*)\b`)
)

var edgeTagRelations = map[string]Relation{
	"satisfies":    RelSatisfies,
	"implements":   RelImplements,
	"verifies":     RelVerifies,
	"derives-from": RelDerivesFrom,
}

// Extract scans one file's text for GxP tags. It returns nil when the text
// contains no recognized tag. Both tag generations are kept side by side;
// hierarchy inference is left to the graph builder.
func Extract(path, text string, isTest bool) *Record {
	rec := &Record{File: path, IsTest: isTest}

	for _, m := range reLegacyReq.FindAllStringSubmatch(text, -1) {
		if validLegacyReq(m[1]) {
			rec.Requirements = appendDeclared(rec.Requirements, m[1], m[2])
		}
	}
	for _, m := range reLegacySpec.FindAllStringSubmatch(text, -1) {
		if validLegacyTwoGroup(m[1], PrefixSpecification) {
			rec.Specifications = appendDeclared(rec.Specifications, m[1], m[2])
		}
	}
	for _, m := range reTrace.FindAllStringSubmatch(text, -1) {
		if validLegacyTwoGroup(m[1], PrefixUserStory) {
			rec.Traces = appendUnique(rec.Traces, m[1])
		}
	}

	for _, m := range reEdgeTag.FindAllStringSubmatch(text, -1) {
		rel := edgeTagRelations[m[1]]
		for _, id := range strings.Split(m[2], ",") {
			id = strings.TrimSpace(id)
			if !ValidID(id) {
				continue
			}
			if rec.Edges == nil {
				rec.Edges = make(map[Relation][]string)
			}
			rec.Edges[rel] = appendUnique(rec.Edges[rel], id)
		}
	}

	for _, m := range reRisk.FindAllStringSubmatch(text, -1) {
		rec.RiskLevels = append(rec.RiskLevels, models.RiskLevel(m[1]))
	}
	for _, m := range reRiskConcern.FindAllStringSubmatch(text, -1) {
		if note := strings.TrimSpace(m[1]); note != "" {
			rec.RiskConcerns = append(rec.RiskConcerns, note)
		}
	}
	for _, m := range reTestType.FindAllStringSubmatch(text, -1) {
		for _, tier := range strings.Split(m[1], ",") {
			rec.Tiers = appendTier(rec.Tiers, models.Tier(strings.TrimSpace(tier)))
		}
	}

	if rec.empty() {
		return nil
	}
	return rec
}

// appendDeclared adds id once; a later occurrence may supply a missing title
func appendDeclared(list []Declared, id, title string) []Declared {
	title = strings.TrimSpace(title)
	for i := range list {
		if list[i].ID == id {
			if list[i].Title == "" {
				list[i].Title = title
			}
			return list
		}
	}
	return append(list, Declared{ID: id, Title: title})
}

func appendUnique(list []string, id string) []string {
	for _, existing := range list {
		if existing == id {
			return list
		}
	}
	return append(list, id)
}

func appendTier(list []models.Tier, tier models.Tier) []models.Tier {
	for _, existing := range list {
		if existing == tier {
			return list
		}
	}
	return append(list, tier)
}
