package annotation

import (
	"regexp"
	"strings"
)

// Id prefixes recognized by both grammars
const (
	PrefixRequirement   = "REQ"
	PrefixUserStory     = "US"
	PrefixSpecification = "SPEC"
)

var (
	currentIDPattern = regexp.MustCompile(`^(REQ|US|SPEC)-\d{3}(?:-\d{3})?$`)
	legacyReqPattern = regexp.MustCompile(`^REQ-\d{3}$`)
	legacyTwoGroup   = regexp.MustCompile(`^(SPEC|US)-\d{3}-\d{3}$`)
)

// Prefix returns the part of id before the first dash
func Prefix(id string) string {
	prefix, _, _ := strings.Cut(id, "-")
	return prefix
}

// ValidID reports whether id is acceptable in a current-grammar edge tag
func ValidID(id string) bool {
	return currentIDPattern.MatchString(id)
}

func validLegacyReq(id string) bool {
	return legacyReqPattern.MatchString(id)
}

func validLegacyTwoGroup(id, prefix string) bool {
	return legacyTwoGroup.MatchString(id) && Prefix(id) == prefix
}
