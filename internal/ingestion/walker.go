package ingestion

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gxpmd/gxptrace/internal/config"
	ignore "github.com/sabhiram/go-gitignore"
	"github.com/sirupsen/logrus"
)

// Walker discovers annotatable files under a project root
type Walker struct {
	root       string
	extensions map[string]bool
	excludes   map[string]bool
	globs      []string
	gitignore  *ignore.GitIgnore
	logger     *logrus.Logger
}

// WalkStats holds statistics about discovered files
type WalkStats struct {
	Files          int
	SkippedDirs    int
	SkippedIgnored int
	SkippedGlob    int
}

// NewWalker builds a walker for root. Invalid exclude globs are reported here
// rather than silently never matching.
func NewWalker(root string, scan config.ScanConfig, logger *logrus.Logger) (*Walker, error) {
	w := &Walker{
		root:       root,
		extensions: make(map[string]bool),
		excludes:   make(map[string]bool),
		logger:     logger,
	}

	extensions := scan.Extensions
	if len(extensions) == 0 {
		extensions = config.DefaultSourceExtensions
	}
	for _, ext := range extensions {
		w.extensions[strings.ToLower(ext)] = true
	}

	excludes := scan.ExcludeDirs
	if len(excludes) == 0 {
		excludes = config.DefaultExcludeDirs
	}
	for _, dir := range excludes {
		w.excludes[dir] = true
	}

	for _, pattern := range scan.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, &fs.PathError{Op: "exclude", Path: pattern, Err: doublestar.ErrBadPattern}
		}
		w.globs = append(w.globs, pattern)
	}

	if scan.RespectGitignore {
		gitignorePath := filepath.Join(root, ".gitignore")
		if _, err := os.Stat(gitignorePath); err == nil {
			gi, err := ignore.CompileIgnoreFile(gitignorePath)
			if err != nil {
				logger.WithError(err).WithField("path", gitignorePath).Warn("Failed to parse .gitignore, ignoring it")
			} else {
				w.gitignore = gi
			}
		}
	}

	return w, nil
}

// Root returns the project root the walker scans
func (w *Walker) Root() string {
	return w.root
}

// SkipDir reports whether a directory (by base name or relative path) is never scanned
func (w *Walker) SkipDir(rel string) bool {
	if w.excludes[filepath.Base(rel)] {
		return true
	}
	rel = filepath.ToSlash(rel)
	return w.ignored(rel+"/") || w.globbed(rel)
}

// Match reports whether a file, given relative to root, should be scanned
func (w *Walker) Match(rel string) bool {
	rel = filepath.ToSlash(rel)
	if !w.extensions[strings.ToLower(filepath.Ext(rel))] {
		return false
	}
	for _, seg := range strings.Split(rel, "/")[:strings.Count(rel, "/")] {
		if w.excludes[seg] {
			return false
		}
	}
	return !w.ignored(rel) && !w.globbed(rel)
}

func (w *Walker) ignored(rel string) bool {
	return w.gitignore != nil && w.gitignore.MatchesPath(rel)
}

func (w *Walker) globbed(rel string) bool {
	for _, pattern := range w.globs {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// Walk returns the slash-separated relative paths of every file to scan,
// sorted. Unreadable directories are skipped, not fatal.
func (w *Walker) Walk(ctx context.Context) ([]string, *WalkStats, error) {
	stats := &WalkStats{}
	var files []string

	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			w.logger.WithError(err).WithField("path", path).Debug("Skipping unreadable path")
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil || rel == "." {
			return nil
		}

		if d.IsDir() {
			if w.SkipDir(rel) {
				stats.SkippedDirs++
				return filepath.SkipDir
			}
			return nil
		}

		if !w.extensions[strings.ToLower(filepath.Ext(rel))] {
			return nil
		}
		slashed := filepath.ToSlash(rel)
		switch {
		case w.ignored(slashed):
			stats.SkippedIgnored++
		case w.globbed(slashed):
			stats.SkippedGlob++
		default:
			files = append(files, slashed)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	sort.Strings(files)
	stats.Files = len(files)

	w.logger.WithFields(logrus.Fields{
		"root":            w.root,
		"files":           stats.Files,
		"skipped_dirs":    stats.SkippedDirs,
		"skipped_ignored": stats.SkippedIgnored,
		"skipped_glob":    stats.SkippedGlob,
	}).Debug("File discovery completed")

	return files, stats, nil
}
