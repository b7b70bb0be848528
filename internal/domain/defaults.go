package domain

import "strings"

// Default tag lists applied to a guild created on first reference.
// Kept as plain strings so the schema stays driver-agnostic; services join
// and split on commas.
var (
	// DefaultNegativePromptTags are appended as the negative prompt of every
	// generation unless an admin replaces them.
	DefaultNegativePromptTags = []string{
		"(blurry:1.5)",
		"lowres",
		"bad anatomy",
		"bad hands",
		"(text:1.5)",
		"error",
		"missing fingers",
		"extra digit",
		"fewer digits",
		"cropped",
		"worst quality",
		"low quality",
		"normal quality",
		"jpeg artifacts",
		"signature",
		"watermark",
		"username",
		"artist name",
		"bad eyes",
	}

	// DefaultQualityTags are appended to every sanitized prompt.
	DefaultQualityTags = []string{"(masterpiece: 1.5)", "(best quality: 1.5)"}
)

// NewGuild returns a Guild populated with hardcoded policy defaults.
func NewGuild(id, name string) *Guild {
	return &Guild{
		ID:                id,
		Name:              name,
		NegativePrompt:    strings.Join(DefaultNegativePromptTags, ", "),
		QualityTags:       strings.Join(DefaultQualityTags, ", "),
		Steps:             20,
		CfgScale:          7,
		DenoisingStrength: 0.75,
		Sampler:           "Euler",
		Width:             512,
		Height:            512,
		StepsOverride:     true,
		CfgOverride:       true,
		VisiblePrompts:    true,
		DeletePrompts:     true,
	}
}
