package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gxperrors "github.com/gxpmd/gxptrace/internal/errors"
	"github.com/gxpmd/gxptrace/internal/models"
	"github.com/spf13/viper"
)

// DocumentName is the policy document expected at the project root
const DocumentName = "GxP.MD"

// Config holds all configuration settings
type Config struct {
	// Risk-based verification policy
	RiskMatrix RiskMatrix `mapstructure:"risk_matrix" yaml:"risk_matrix"`

	// Where reports are written
	Artifacts ArtifactsConfig `mapstructure:"artifacts" yaml:"artifacts"`

	// File discovery
	Scan ScanConfig `mapstructure:"scan" yaml:"scan"`

	// Extraction cache (disabled when Path is empty)
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`

	// Sweep history database (disabled when Path is empty)
	History HistoryConfig `mapstructure:"history" yaml:"history"`
}

type ArtifactsConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory" validate:"required"`
}

type ScanConfig struct {
	Extensions       []string `mapstructure:"extensions" yaml:"extensions" validate:"min=1,dive,startswith=."`
	ExcludeDirs      []string `mapstructure:"exclude_dirs" yaml:"exclude_dirs"`
	Exclude          []string `mapstructure:"exclude" yaml:"exclude"` // doublestar globs, relative to root
	RespectGitignore bool     `mapstructure:"respect_gitignore" yaml:"respect_gitignore"`
	Workers          int      `mapstructure:"workers" yaml:"workers" validate:"gte=0,lte=256"`
}

type CacheConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type HistoryConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// DefaultSourceExtensions are the file types scanned for annotations
var DefaultSourceExtensions = []string{
	".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs",
	".py", ".pyw",
	".java", ".kt", ".kts",
	".cs",
	".go",
	".rs",
	".rb",
	".swift",
	".c", ".cpp", ".h", ".hpp",
}

// DefaultExcludeDirs are directory names never descended into
var DefaultExcludeDirs = []string{
	"node_modules", "dist", "build", ".git", ".gxp",
	"__pycache__", ".venv", "venv", ".tox", "target",
	"vendor", "coverage", ".next", ".nuxt",
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		RiskMatrix: DefaultRiskMatrix(),
		Artifacts: ArtifactsConfig{
			Directory: ".gxp",
		},
		Scan: ScanConfig{
			Extensions:       append([]string(nil), DefaultSourceExtensions...),
			ExcludeDirs:      append([]string(nil), DefaultExcludeDirs...),
			RespectGitignore: true,
		},
	}
}

// Load reads <root>/GxP.MD. A missing document is a fatal ConfigError.
// Unusable frontmatter is not fatal: Load then returns the defaults together
// with a non-fatal ConfigError the caller should log.
func Load(root string) (*Config, error) {
	docPath := filepath.Join(root, DocumentName)
	text, err := os.ReadFile(docPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, gxperrors.ConfigErrorf("No %s file found at %s", DocumentName, docPath)
		}
		return nil, gxperrors.Wrap(err, gxperrors.ErrorTypeConfig, gxperrors.SeverityCritical, "read "+docPath)
	}

	loadEnvFiles(root)

	settings, err := parseFrontmatter(string(text))
	if err != nil {
		return Default(), degraded(err, fmt.Sprintf("invalid frontmatter in %s, using defaults", docPath))
	}

	cfg, err := decode(settings)
	if err != nil {
		return Default(), degraded(err, fmt.Sprintf("cannot decode %s frontmatter, using defaults", docPath))
	}

	if result := cfg.Validate(); result.HasErrors() {
		return Default(), gxperrors.New(gxperrors.ErrorTypeConfig, gxperrors.SeverityDegraded, result.Error())
	}

	return cfg, nil
}

func degraded(err error, msg string) error {
	return gxperrors.Wrap(err, gxperrors.ErrorTypeConfig, gxperrors.SeverityDegraded, msg)
}

// decode layers defaults, frontmatter settings and GXP_* environment variables
func decode(settings map[string]interface{}) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	if len(settings) > 0 {
		if err := v.MergeConfigMap(settings); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix("GXP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	cfg.RiskMatrix = cfg.RiskMatrix.normalized()
	return cfg, nil
}

// setDefaults registers every leaf key so AutomaticEnv can override it
func setDefaults(v *viper.Viper, cfg *Config) {
	for _, level := range models.RiskLevels {
		policy, _ := cfg.RiskMatrix.Policy(level)
		key := "risk_matrix." + strings.ToLower(string(level))
		v.SetDefault(key+".coverage_threshold", policy.CoverageThreshold)
		v.SetDefault(key+".required_tiers", tierStrings(policy.RequiredTiers))
	}
	v.SetDefault("artifacts.directory", cfg.Artifacts.Directory)
	v.SetDefault("scan.extensions", cfg.Scan.Extensions)
	v.SetDefault("scan.exclude_dirs", cfg.Scan.ExcludeDirs)
	v.SetDefault("scan.exclude", cfg.Scan.Exclude)
	v.SetDefault("scan.respect_gitignore", cfg.Scan.RespectGitignore)
	v.SetDefault("scan.workers", cfg.Scan.Workers)
	v.SetDefault("cache.path", cfg.Cache.Path)
	v.SetDefault("history.path", cfg.History.Path)
}

// ArtifactsPath resolves the artifacts directory against root
func (c *Config) ArtifactsPath(root string) string {
	return resolve(root, c.Artifacts.Directory)
}

// CachePath resolves the cache path against root; empty when disabled
func (c *Config) CachePath(root string) string {
	if c.Cache.Path == "" {
		return ""
	}
	return resolve(root, c.Cache.Path)
}

// HistoryPath resolves the history database path against root; empty when disabled
func (c *Config) HistoryPath(root string) string {
	if c.History.Path == "" {
		return ""
	}
	return resolve(root, c.History.Path)
}

func resolve(root, path string) string {
	path = expandPath(path)
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, path[1:])
}
