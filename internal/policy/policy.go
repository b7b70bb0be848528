// Package policy resolves effective generation parameters for a request from
// tenant policy, user-supplied overrides, and hard bounds, and normalizes
// free-text prompts. Everything in this package is pure: out-of-range input
// degrades to the tenant default with the rejected value recorded, never an
// error.
package policy

import "github.com/aibalabs/aiba-backend/internal/domain"

// Absolute bounds for user-supplied parameters. Values outside these ranges
// fall back to the tenant default regardless of override permission.
const (
	MinSteps = 1
	MaxSteps = 150

	MinCfgScale = 1.0
	MaxCfgScale = 30.0

	MinDenoisingStrength = 0.0
	MaxDenoisingStrength = 1.0
)

// Resolution carries the effective parameters for one request along with the
// rejected originals, when any. An Original* field is non-nil if and only if
// the caller supplied a value that was not honored.
type Resolution struct {
	Steps            int
	CfgScale         float64
	OriginalSteps    *int
	OriginalCfgScale *float64
}

// Resolve computes effective steps and CFG scale for a request against the
// guild's policy.
//
// For each parameter: if the guild forbids overrides, or the caller supplied
// no value, or the supplied value lies outside the absolute bounds, the guild
// default is used. Whenever the caller had supplied a value that was not
// honored, it is recorded as the rejected original so the caller can explain
// "default used instead".
func Resolve(g *domain.Guild, steps *int, cfg *float64) Resolution {
	res := Resolution{Steps: g.Steps, CfgScale: g.CfgScale}

	if steps != nil {
		if g.StepsOverride && *steps >= MinSteps && *steps <= MaxSteps {
			res.Steps = *steps
		} else {
			res.OriginalSteps = steps
		}
	}
	if cfg != nil {
		if g.CfgOverride && *cfg >= MinCfgScale && *cfg <= MaxCfgScale {
			res.CfgScale = *cfg
		} else {
			res.OriginalCfgScale = cfg
		}
	}
	return res
}

// ResolveDenoising computes the effective denoising strength for an img2img
// request. There is no per-guild override flag for this parameter; supplied
// values are honored when inside [0,1] and otherwise degrade to the guild
// default with the original recorded.
func ResolveDenoising(g *domain.Guild, strength *float64) (effective float64, original *float64) {
	if strength != nil && *strength >= MinDenoisingStrength && *strength <= MaxDenoisingStrength {
		return *strength, nil
	}
	return g.DenoisingStrength, strength
}
