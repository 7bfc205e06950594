package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gxpmd/gxptrace/internal/models"
)

var validate = validator.New()

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err))
	}

	if len(vr.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  - %s\n", warn))
		}
	}

	return sb.String()
}

// Validate checks struct constraints and cross-field policy sanity
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{Valid: true}

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				result.AddError("%s: failed %q constraint (value %v)", fieldPath(fe.Namespace()), fe.Tag(), fe.Value())
			}
		} else {
			result.AddError("%v", err)
		}
	}

	c.validateRiskMatrix(result)
	return result
}

// validateRiskMatrix warns when a lower risk level demands more than a higher one
func (c *Config) validateRiskMatrix(result *ValidationResult) {
	levels := models.RiskLevels
	for i := 0; i+1 < len(levels); i++ {
		upper, _ := c.RiskMatrix.Policy(levels[i])
		lower, _ := c.RiskMatrix.Policy(levels[i+1])
		if lower.CoverageThreshold > upper.CoverageThreshold {
			result.AddWarning("%s coverage threshold %g%% exceeds %s threshold %g%%",
				levels[i+1], lower.CoverageThreshold, levels[i], upper.CoverageThreshold)
		}
	}

	if len(c.RiskMatrix.High.RequiredTiers) == 0 {
		result.AddWarning("HIGH risk requires no qualification tiers")
	}
}

// fieldPath drops the root struct name from a validator namespace
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
