package policy

import (
	"regexp"
	"strconv"
	"strings"
)

// Weighted-tag weights are clamped into this range. The generation backend
// treats weights above ~1.75 as prompt-breaking and non-positive weights as
// malformed.
const (
	minTagWeight = 0.5
	maxTagWeight = 1.75
)

// weightedTagRE matches weighted-tag syntax of the shape "(tag: number)".
var weightedTagRE = regexp.MustCompile(`\(([a-zA-Z0-9 ]+):\s*(\d+(?:\.\d+)?)\)`)

// SanitizePrompt cleans a raw prompt and appends the guild's quality tags.
//
// Every "(tag: number)" occurrence has its weight clamped into [0.5, 1.75]:
// weights at or below zero become 0.5, weights above 1.75 become 1.75, and
// in-range weights are left untouched. The guild's quality tag string is then
// appended comma-separated. The transformation is pure and deterministic.
func SanitizePrompt(raw string, qualityTags string) string {
	cleaned := CleanWeightedTags(raw)
	tags := strings.TrimSpace(qualityTags)
	if tags == "" {
		return cleaned
	}
	if strings.TrimSpace(cleaned) == "" {
		return tags
	}
	return cleaned + ", " + tags
}

// CleanWeightedTags rewrites out-of-range tag weights in place and returns
// the prompt otherwise unchanged.
func CleanWeightedTags(prompt string) string {
	return weightedTagRE.ReplaceAllStringFunc(prompt, func(tag string) string {
		m := weightedTagRE.FindStringSubmatch(tag)
		weight, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return tag
		}
		clamped := clampWeight(weight)
		if clamped == weight {
			return tag
		}
		return "(" + m[1] + ": " + formatWeight(clamped) + ")"
	})
}

func clampWeight(w float64) float64 {
	if w <= 0 {
		return minTagWeight
	}
	if w > maxTagWeight {
		return maxTagWeight
	}
	return w
}

// formatWeight renders a weight without trailing zeros ("0.5", "1.75").
func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}
