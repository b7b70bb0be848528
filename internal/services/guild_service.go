// Package services – GuildService
//
// This file implements the GuildService, which reads and mutates per-tenant
// generation policy. Settings are addressed by field name so chat-side admin
// commands map one-to-one onto policy columns; every write is validated
// against the same bounds the resolver enforces at submission time.
package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/aibalabs/aiba-backend/internal/domain"
	"github.com/aibalabs/aiba-backend/internal/policy"
	"github.com/aibalabs/aiba-backend/internal/repo"
)

// Resolution bounds for the square output size. The backend degrades badly
// outside this window and requires multiples of 64.
const (
	minResolution = 64
	maxResolution = 1024
)

// GuildService provides tenant policy operations.
type GuildService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewGuildService constructs a GuildService.
func NewGuildService(db *gorm.DB) *GuildService {
	return &GuildService{DB: db}
}

// Get returns the guild's policy row, creating it with defaults on first
// reference.
func (s *GuildService) Get(ctx context.Context, guildID, name string) (*domain.Guild, error) {
	return repo.FindOrCreateGuild(ctx, s.DB, guildID, name)
}

// UpdateSetting validates and persists a single policy field addressed by
// name, returning the updated policy. Unknown fields yield ErrUnknownSetting
// and out-of-bounds values ErrInvalidSetting.
//
// Recognized fields: steps, cfg_scale, denoising_strength, sampler,
// resolution (square, multiple of 64), steps_override, cfg_override,
// visible_prompts, delete_prompts, quality_tags.
func (s *GuildService) UpdateSetting(ctx context.Context, guildID, field, value string) (*domain.Guild, error) {
	if _, err := repo.GetGuild(ctx, s.DB, guildID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrGuildNotFound
		}
		return nil, err
	}

	fields := map[string]any{}
	value = strings.TrimSpace(value)

	switch field {
	case "steps":
		n, err := strconv.Atoi(value)
		if err != nil || n < policy.MinSteps || n > policy.MaxSteps {
			return nil, ErrInvalidSetting
		}
		fields["steps"] = n

	case "cfg_scale":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < policy.MinCfgScale || f > policy.MaxCfgScale {
			return nil, ErrInvalidSetting
		}
		fields["cfg_scale"] = f

	case "denoising_strength":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < policy.MinDenoisingStrength || f > policy.MaxDenoisingStrength {
			return nil, ErrInvalidSetting
		}
		fields["denoising_strength"] = f

	case "sampler":
		if value == "" {
			return nil, ErrInvalidSetting
		}
		fields["sampler"] = value

	case "resolution":
		n, err := strconv.Atoi(value)
		if err != nil || n < minResolution || n > maxResolution || n%64 != 0 {
			return nil, ErrInvalidSetting
		}
		// Output is always square.
		fields["width"] = n
		fields["height"] = n

	case "steps_override", "cfg_override", "visible_prompts", "delete_prompts":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, ErrInvalidSetting
		}
		fields[field] = b

	case "quality_tags":
		fields["quality_tags"] = value

	default:
		return nil, ErrUnknownSetting
	}

	if err := repo.UpdateGuildFields(ctx, s.DB, guildID, fields); err != nil {
		return nil, err
	}
	return repo.GetGuild(ctx, s.DB, guildID)
}

// SetNegativePrompt replaces or extends the guild's negative prompt tag list.
// With appendMode, the new tags are added after the existing list; otherwise
// the list is overwritten.
func (s *GuildService) SetNegativePrompt(ctx context.Context, guildID, tags string, appendMode bool) (*domain.Guild, error) {
	g, err := repo.GetGuild(ctx, s.DB, guildID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrGuildNotFound
		}
		return nil, err
	}

	tags = strings.TrimSpace(tags)
	if tags == "" {
		return nil, ErrInvalidSetting
	}

	next := tags
	if appendMode && strings.TrimSpace(g.NegativePrompt) != "" {
		next = g.NegativePrompt + ", " + tags
	}
	if err := repo.UpdateGuildFields(ctx, s.DB, guildID, map[string]any{"negative_prompt": next}); err != nil {
		return nil, err
	}
	return repo.GetGuild(ctx, s.DB, guildID)
}
