// Package domain defines the persistence models for generation requests,
// votes, and guild (tenant) policy. These types are mapped with GORM and
// form the core data layer of the application.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// RequestKind discriminates the three supported generation request variants.
type RequestKind string

const (
	// KindTxt2Img is a plain text-to-image request.
	KindTxt2Img RequestKind = "txt2img"
	// KindArtify is a text-to-image request whose prompt was lifted from an
	// existing chat message authored by someone else.
	KindArtify RequestKind = "artify"
	// KindImg2Img is an image-to-image request. It is created in two phases:
	// first with a source image, later completed with a prompt and parameters.
	KindImg2Img RequestKind = "img2img"
)

// RequestStatus is the lifecycle state of a Request.
//
// Transitions move strictly forward:
//
//	building → awaiting_prompt (img2img only) → queued → in_progress → finished | error
//
// The only backward step is an explicit requeue of a dequeued-but-undispatched
// entry, which returns the record to the head of the queue without leaving
// the queued state.
type RequestStatus string

const (
	StatusBuilding       RequestStatus = "building"
	StatusAwaitingPrompt RequestStatus = "awaiting_prompt"
	StatusQueued         RequestStatus = "queued"
	StatusInProgress     RequestStatus = "in_progress"
	StatusFinished       RequestStatus = "finished"
	StatusError          RequestStatus = "error"
)

// Terminal reports whether the status admits no further transitions.
func (s RequestStatus) Terminal() bool {
	return s == StatusFinished || s == StatusError
}

// Request represents one unit of generation work submitted by a user.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - RequestorID: chat identity of the submitter; indexed for history lookups.
//   - GuildID / ChannelID: originating tenant and channel.
//   - ReplyTo: message handle the result is delivered in reply to.
//   - Kind: txt2img, artify, or img2img.
//   - Prompt: the normalized prompt sent to the backend (cleaned weights plus
//     tenant quality tags).
//   - OriginalPrompt: the cleaned user prompt without quality tags; shown back
//     to the user in place of the internal one.
//   - Steps / CfgScale: effective generation parameters after policy resolution.
//   - OriginalSteps / OriginalCfgScale: populated only when the user-supplied
//     value was rejected (override forbidden or out of bounds) so the UI can
//     explain that the default was used instead.
//   - DenoisingStrength / OriginalDenoisingStrength: img2img only, same
//     original-value convention.
//   - SourceImageURL: img2img source image reference.
//   - OriginalAuthorID: artify only, author of the remixed message.
//   - Status: lifecycle state, see RequestStatus.
//   - Runtime: wall-clock seconds of the backend call, set on completion.
//   - OutputFile: artifact reference of the generated image.
//   - Likes / Dislikes: denormalized vote counters; always derivable by
//     replaying the Vote rows for this request.
type Request struct {
	ID          string      `json:"id"           gorm:"type:char(36);primaryKey"`
	RequestorID string      `json:"requestor_id" gorm:"type:varchar(64);not null;index:idx_requestor"`
	GuildID     string      `json:"guild_id"     gorm:"type:varchar(64);not null;index:idx_guild_requests"`
	ChannelID   string      `json:"channel_id"   gorm:"type:varchar(64);not null"`
	ReplyTo     string      `json:"reply_to,omitempty" gorm:"type:varchar(64)"`
	Kind        RequestKind `json:"kind"         gorm:"type:varchar(16);not null;check:kind IN ('txt2img','artify','img2img')"`

	Prompt         string `json:"prompt"          gorm:"type:text;not null"`
	OriginalPrompt string `json:"original_prompt" gorm:"type:text;not null"`

	Steps            int      `json:"steps"               gorm:"not null"`
	CfgScale         float64  `json:"cfg_scale"           gorm:"not null"`
	OriginalSteps    *int     `json:"original_steps,omitempty"`
	OriginalCfgScale *float64 `json:"original_cfg_scale,omitempty"`

	DenoisingStrength         *float64 `json:"denoising_strength,omitempty"`
	OriginalDenoisingStrength *float64 `json:"original_denoising_strength,omitempty"`
	SourceImageURL            string   `json:"source_image_url,omitempty"   gorm:"type:text"`
	OriginalAuthorID          string   `json:"original_author_id,omitempty" gorm:"type:varchar(64)"`

	Status     RequestStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	Runtime    *float64      `json:"runtime,omitempty"`
	OutputFile string        `json:"output_file,omitempty" gorm:"type:text"`

	Likes    int `json:"likes"    gorm:"not null;default:0"`
	Dislikes int `json:"dislikes" gorm:"not null;default:0"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for Request.
func (Request) TableName() string { return "requests" }

// Score is the net rating of the request. It is computed, never stored.
func (r *Request) Score() int { return r.Likes - r.Dislikes }

// StepsOverridden reports whether a user-supplied step count was rejected.
func (r *Request) StepsOverridden() bool { return r.OriginalSteps != nil }

// CfgOverridden reports whether a user-supplied CFG scale was rejected.
func (r *Request) CfgOverridden() bool { return r.OriginalCfgScale != nil }

// Vote records a single user's current rating of a request. A voter holds at
// most one row per request (enforced by unique index); re-voting overwrites
// the value rather than inserting a second row, so the request's like/dislike
// counters can always be rebuilt from these rows.
//
// Value is +1 (like) or -1 (dislike).
type Vote struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	RequestID string         `json:"request_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_vote_request_voter"`
	VoterID   string         `json:"voter_id"   gorm:"type:varchar(64);not null;index;uniqueIndex:ux_vote_request_voter"`
	Value     int            `json:"value"      gorm:"not null;check:value IN (-1,1)"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Request is the rated generation. Votes are cascade-deleted if the
	// underlying request is removed.
	Request Request `json:"-" gorm:"foreignKey:RequestID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Vote.
func (Vote) TableName() string { return "votes" }

// Guild holds one tenant's generation policy. A row is created lazily with
// defaults on first reference to the tenant and mutated only by explicit
// admin configuration calls.
//
// Invariants (enforced by the guild service, not the schema):
//   - Width/Height are positive multiples of 64.
//   - Steps in [1,150], CfgScale in [1,30], DenoisingStrength in [0,1].
type Guild struct {
	ID   string `json:"id"   gorm:"type:varchar(64);primaryKey"`
	Name string `json:"name" gorm:"type:varchar(255)"`

	// NegativePrompt and QualityTags are comma-separated tag lists.
	// QualityTags is appended to every sanitized prompt.
	NegativePrompt string `json:"negative_prompt" gorm:"type:text;not null"`
	QualityTags    string `json:"quality_tags"    gorm:"type:text;not null"`

	Steps             int     `json:"steps"              gorm:"not null;default:20"`
	CfgScale          float64 `json:"cfg_scale"          gorm:"not null;default:7"`
	DenoisingStrength float64 `json:"denoising_strength" gorm:"not null;default:0.75"`
	Sampler           string  `json:"sampler"            gorm:"type:varchar(32);not null;default:'Euler'"`
	Width             int     `json:"width"              gorm:"not null;default:512"`
	Height            int     `json:"height"             gorm:"not null;default:512"`

	// StepsOverride / CfgOverride permit users to supply their own values.
	StepsOverride bool `json:"steps_override" gorm:"not null;default:true"`
	CfgOverride   bool `json:"cfg_override"   gorm:"not null;default:true"`

	// VisiblePrompts controls whether submission acknowledgements are public;
	// DeletePrompts asks the chat surface to remove the prompt message once
	// the result is delivered.
	VisiblePrompts bool `json:"visible_prompts" gorm:"not null;default:true"`
	DeletePrompts  bool `json:"delete_prompts"  gorm:"not null;default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Guild.
func (Guild) TableName() string { return "guilds" }

// GuildUserStat counts how many requests a user has submitted in a guild.
// Backs the leaderboard and usage endpoints.
type GuildUserStat struct {
	ID       string `json:"id"       gorm:"type:char(36);primaryKey"`
	GuildID  string `json:"guild_id" gorm:"type:varchar(64);not null;uniqueIndex:ux_stat_guild_user"`
	UserID   string `json:"user_id"  gorm:"type:varchar(64);not null;uniqueIndex:ux_stat_guild_user"`
	Username string `json:"username" gorm:"type:varchar(255)"`
	Requests int    `json:"requests" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for GuildUserStat.
func (GuildUserStat) TableName() string { return "guild_user_stats" }
