package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/gxpmd/gxptrace/internal/annotation"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// extractorVersion is mixed into cache keys; bump it when tag parsing changes
const extractorVersion = "2"

// RecordCache stores extraction results keyed by content. A cached nil record
// means the file carried no tags.
type RecordCache interface {
	Lookup(key string) (*annotation.Record, bool)
	Store(key string, rec *annotation.Record) error
}

// Orchestrator coordinates parallel annotation extraction
type Orchestrator struct {
	root    string
	workers int
	cache   RecordCache
	isTest  func(rel string) bool
	logger  *logrus.Logger
}

// OrchestratorOption configures an Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithWorkers bounds the number of files read concurrently
func WithWorkers(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithCache enables the extraction cache
func WithCache(c RecordCache) OrchestratorOption {
	return func(o *Orchestrator) {
		o.cache = c
	}
}

// WithClassifier replaces IsTestFile
func WithClassifier(isTest func(rel string) bool) OrchestratorOption {
	return func(o *Orchestrator) {
		o.isTest = isTest
	}
}

// NewOrchestrator creates an extraction orchestrator for files under root
func NewOrchestrator(root string, logger *logrus.Logger, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		root:    root,
		workers: runtime.NumCPU(),
		isTest:  IsTestFile,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ExtractionResult contains the results of an extraction pass
type ExtractionResult struct {
	Records    []*annotation.Record // sorted by file path
	Scanned    int
	Annotated  int
	Unreadable int
	CacheHits  int
	Duration   time.Duration
}

// Extract reads and parses every file in paths (relative, slash-separated).
// Files that cannot be read are skipped. Records are sorted by path so graph
// construction sees the same order regardless of scheduling.
func (o *Orchestrator) Extract(ctx context.Context, paths []string) (*ExtractionResult, error) {
	start := time.Now()
	records := make([]*annotation.Record, len(paths))
	var unreadable, hits atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for i, rel := range paths {
		i, rel := i, rel
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, hit, ok := o.extractFile(rel)
			if !ok {
				unreadable.Add(1)
				return nil
			}
			if hit {
				hits.Add(1)
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &ExtractionResult{
		Scanned:    len(paths),
		Unreadable: int(unreadable.Load()),
		CacheHits:  int(hits.Load()),
	}
	for _, rec := range records {
		if rec != nil {
			result.Records = append(result.Records, rec)
		}
	}
	sort.Slice(result.Records, func(i, j int) bool {
		return result.Records[i].File < result.Records[j].File
	})
	result.Annotated = len(result.Records)
	result.Duration = time.Since(start)

	o.logger.WithFields(logrus.Fields{
		"scanned":    result.Scanned,
		"annotated":  result.Annotated,
		"unreadable": result.Unreadable,
		"cache_hits": result.CacheHits,
		"workers":    o.workers,
		"duration":   result.Duration.String(),
	}).Debug("Annotation extraction completed")

	return result, nil
}

// extractFile returns the file's record (nil when untagged), whether it came
// from the cache, and ok=false when the file could not be read
func (o *Orchestrator) extractFile(rel string) (*annotation.Record, bool, bool) {
	content, err := os.ReadFile(filepath.Join(o.root, filepath.FromSlash(rel)))
	if err != nil {
		o.logger.WithError(err).WithField("file", rel).Debug("Skipping unreadable file")
		return nil, false, false
	}

	isTest := o.isTest(rel)
	key := CacheKey(rel, isTest, content)
	if o.cache != nil {
		if rec, found := o.cache.Lookup(key); found {
			return rec, true, true
		}
	}

	text := string(content)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	rec := annotation.Extract(rel, text, isTest)

	if o.cache != nil {
		if err := o.cache.Store(key, rec); err != nil {
			o.logger.WithError(err).WithField("file", rel).Debug("Failed to cache extraction")
		}
	}
	return rec, false, true
}

// CacheKey identifies one extraction input: path, role and content
func CacheKey(rel string, isTest bool, content []byte) string {
	h := sha256.New()
	h.Write([]byte(extractorVersion))
	h.Write([]byte{0})
	h.Write([]byte(rel))
	if isTest {
		h.Write([]byte{0, 1})
	} else {
		h.Write([]byte{0, 0})
	}
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}
