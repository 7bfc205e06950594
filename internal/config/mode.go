package config

import (
	"os"
	"strings"
)

// RunMode represents the context a sweep runs in
type RunMode string

const (
	// ModeInteractive is a developer terminal: colored console, progress on stderr
	ModeInteractive RunMode = "interactive"

	// ModeCI is a pipeline: plain output, no prompts, JSON logs
	ModeCI RunMode = "ci"
)

// DetectMode determines the run context from the environment
func DetectMode() RunMode {
	// Explicit override (highest priority)
	if mode := os.Getenv("GXP_MODE"); mode != "" {
		switch strings.ToLower(mode) {
		case "ci", "cicd":
			return ModeCI
		case "interactive", "dev", "local":
			return ModeInteractive
		}
	}

	if isCI() {
		return ModeCI
	}
	return ModeInteractive
}

// isCI detects if running in a CI/CD environment
func isCI() bool {
	ciEnvVars := []string{
		"CI",
		"CONTINUOUS_INTEGRATION",
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"CIRCLECI",
		"JENKINS_URL",
		"BUILDKITE",
		"TF_BUILD", // Azure Pipelines
	}

	for _, envVar := range ciEnvVars {
		if os.Getenv(envVar) != "" {
			return true
		}
	}
	return false
}

// String returns the string representation of the mode
func (m RunMode) String() string {
	return string(m)
}

// AllowsColor reports whether console output may use ANSI colors
func (m RunMode) AllowsColor() bool {
	return m == ModeInteractive
}

// PrefersJSONLogs reports whether log lines should be machine-readable
func (m RunMode) PrefersJSONLogs() bool {
	return m == ModeCI
}
