package config

import (
	"github.com/gxpmd/gxptrace/internal/models"
)

// RiskPolicy is the verification depth demanded of one risk level
type RiskPolicy struct {
	CoverageThreshold float64       `mapstructure:"coverage_threshold" yaml:"coverage_threshold" json:"coverage_threshold" validate:"gte=0,lte=100"`
	RequiredTiers     []models.Tier `mapstructure:"required_tiers" yaml:"required_tiers" json:"required_tiers" validate:"dive,oneof=IQ OQ PQ"`
}

// RiskMatrix maps each assignable risk level to its policy. It is a plain
// value: callers get copies and can run sweeps with different matrices side
// by side.
type RiskMatrix struct {
	High   RiskPolicy `mapstructure:"high" yaml:"HIGH" json:"HIGH"`
	Medium RiskPolicy `mapstructure:"medium" yaml:"MEDIUM" json:"MEDIUM"`
	Low    RiskPolicy `mapstructure:"low" yaml:"LOW" json:"LOW"`
}

// DefaultRiskMatrix returns the built-in policy table
func DefaultRiskMatrix() RiskMatrix {
	return RiskMatrix{
		High:   RiskPolicy{CoverageThreshold: 95, RequiredTiers: []models.Tier{models.TierIQ, models.TierOQ, models.TierPQ}},
		Medium: RiskPolicy{CoverageThreshold: 80, RequiredTiers: []models.Tier{models.TierOQ, models.TierPQ}},
		Low:    RiskPolicy{CoverageThreshold: 60, RequiredTiers: []models.Tier{models.TierOQ}},
	}
}

// Policy returns a copy of the policy for level; UNKNOWN has none
func (m RiskMatrix) Policy(level models.RiskLevel) (RiskPolicy, bool) {
	var p RiskPolicy
	switch level {
	case models.RiskHigh:
		p = m.High
	case models.RiskMedium:
		p = m.Medium
	case models.RiskLow:
		p = m.Low
	default:
		return RiskPolicy{}, false
	}
	p.RequiredTiers = append([]models.Tier(nil), p.RequiredTiers...)
	return p, true
}

// normalized dedupes and orders every required tier list
func (m RiskMatrix) normalized() RiskMatrix {
	norm := func(p RiskPolicy) RiskPolicy {
		p.RequiredTiers = models.NewTierSet(p.RequiredTiers...).Sorted()
		return p
	}
	return RiskMatrix{High: norm(m.High), Medium: norm(m.Medium), Low: norm(m.Low)}
}

func tierStrings(tiers []models.Tier) []string {
	out := make([]string, len(tiers))
	for i, t := range tiers {
		out[i] = string(t)
	}
	return out
}
