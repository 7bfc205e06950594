package ingestion

import (
	"path"
	"strings"
)

// testDirSegments mark every file below them as a test
var testDirSegments = []string{"tests", "test", "__tests__", "spec", "iq", "oq", "pq"}

// testStemSuffixes mark a file as a test by name, e.g. login.test.ts or store_test.go
var testStemSuffixes = []string{".test", ".spec", "_test", "_spec"}

// IsTestFile reports whether a slash-separated path relative to the project
// root follows test-file conventions
func IsTestFile(rel string) bool {
	p := "/" + strings.ToLower(strings.ReplaceAll(rel, "\\", "/"))

	dir := path.Dir(p)
	for _, seg := range testDirSegments {
		if strings.Contains(dir+"/", "/"+seg+"/") {
			return true
		}
	}

	base := path.Base(p)
	stem := strings.TrimSuffix(base, path.Ext(base))
	for _, suffix := range testStemSuffixes {
		if strings.HasSuffix(stem, suffix) {
			return true
		}
	}
	return false
}
