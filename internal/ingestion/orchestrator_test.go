package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/gxpmd/gxptrace/internal/annotation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	mu      sync.Mutex
	entries map[string]*annotation.Record
	stored  int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]*annotation.Record)}
}

func (c *memCache) Lookup(key string) (*annotation.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.entries[key]
	return rec, ok
}

func (c *memCache) Store(key string, rec *annotation.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = rec
	c.stored++
	return nil
}

func TestExtractSortsRecordsAndSkipsUntagged(t *testing.T) {
	files := map[string]string{
		"src/untagged.go": "package src\n",
		"tests/a_test.go": "// @gxp-verifies SPEC-001\n// @test-type OQ\n// @gxp-risk LOW\n",
	}
	var paths []string
	for i := 0; i < 40; i++ {
		rel := fmt.Sprintf("src/f%02d.go", i)
		files[rel] = "// @gxp-satisfies REQ-001\n// @gxp-risk LOW\n"
		paths = append(paths, rel)
	}
	paths = append(paths, "tests/a_test.go", "src/untagged.go")
	root := writeTree(t, files)

	o := NewOrchestrator(root, quietLogger(), WithWorkers(4))
	result, err := o.Extract(context.Background(), paths)
	require.NoError(t, err)

	assert.Equal(t, 42, result.Scanned)
	assert.Equal(t, 41, result.Annotated)
	require.Len(t, result.Records, 41)
	for i := 1; i < len(result.Records); i++ {
		assert.Less(t, result.Records[i-1].File, result.Records[i].File)
	}

	last := result.Records[len(result.Records)-1]
	assert.Equal(t, "tests/a_test.go", last.File)
	assert.True(t, last.IsTest)
	assert.False(t, result.Records[0].IsTest)
}

func TestExtractSkipsUnreadableFiles(t *testing.T) {
	root := writeTree(t, map[string]string{"src/a.go": "@gxp-satisfies REQ-001 @gxp-risk LOW"})

	o := NewOrchestrator(root, quietLogger())
	result, err := o.Extract(context.Background(), []string{"src/a.go", "src/missing.go"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Unreadable)
	assert.Len(t, result.Records, 1)
}

func TestExtractReplacesInvalidUTF8(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	content := append([]byte("\xff\xfe // @gxp-satisfies REQ-001\n"), []byte("// @gxp-risk HIGH\n")...)
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "a.go"), content, 0o644))

	result, err := NewOrchestrator(root, quietLogger()).Extract(context.Background(), []string{"src/a.go"})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, []string{"REQ-001"}, result.Records[0].Targets(annotation.RelSatisfies))
}

func TestExtractUsesCache(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/a.go": "@gxp-satisfies REQ-001 @gxp-risk LOW",
		"src/b.go": "package b",
	})
	cache := newMemCache()
	o := NewOrchestrator(root, quietLogger(), WithCache(cache))

	first, err := o.Extract(context.Background(), []string{"src/a.go", "src/b.go"})
	require.NoError(t, err)
	assert.Equal(t, 0, first.CacheHits)
	assert.Equal(t, 2, cache.stored)

	second, err := o.Extract(context.Background(), []string{"src/a.go", "src/b.go"})
	require.NoError(t, err)
	assert.Equal(t, 2, second.CacheHits)
	assert.Equal(t, first.Records, second.Records)
}

func TestExtractClassifierOverride(t *testing.T) {
	root := writeTree(t, map[string]string{"qa/check.go": "@gxp-verifies SPEC-001 @test-type OQ @gxp-risk LOW"})

	o := NewOrchestrator(root, quietLogger(), WithClassifier(func(rel string) bool { return true }))
	result, err := o.Extract(context.Background(), []string{"qa/check.go"})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.True(t, result.Records[0].IsTest)
}

func TestCacheKeyDependsOnPathRoleAndContent(t *testing.T) {
	base := CacheKey("src/a.go", false, []byte("x"))
	assert.Equal(t, base, CacheKey("src/a.go", false, []byte("x")))
	assert.NotEqual(t, base, CacheKey("src/b.go", false, []byte("x")))
	assert.NotEqual(t, base, CacheKey("src/a.go", true, []byte("x")))
	assert.NotEqual(t, base, CacheKey("src/a.go", false, []byte("y")))
}

func TestNewOrchestratorDefaults(t *testing.T) {
	o := NewOrchestrator(t.TempDir(), quietLogger(), WithWorkers(0))
	assert.Equal(t, runtime.NumCPU(), o.workers)
}
