// Package notify delivers generation outcomes back to the surface that
// submitted the request. The dispatcher only knows the Notifier interface;
// concrete implementations post to a webhook or just log.
package notify

import (
	"context"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Result describes a finished generation handed to a Notifier.
type Result struct {
	RequestID        string  `json:"request_id"`
	RequestorID      string  `json:"requestor_id"`
	GuildID          string  `json:"guild_id"`
	ChannelID        string  `json:"channel_id"`
	ReplyTo          string  `json:"reply_to,omitempty"`
	OriginalAuthorID string  `json:"original_author_id,omitempty"`
	Title            string  `json:"title"`
	OutputFile       string  `json:"output_file"`
	Runtime          float64 `json:"runtime_seconds"`
	Likes            int     `json:"likes"`
	Dislikes         int     `json:"dislikes"`
	VisiblePrompt    bool    `json:"visible_prompt"`
}

// Failure describes a generation that ended in error.
type Failure struct {
	RequestID   string `json:"request_id"`
	RequestorID string `json:"requestor_id"`
	GuildID     string `json:"guild_id"`
	ChannelID   string `json:"channel_id"`
	ReplyTo     string `json:"reply_to,omitempty"`
	Reason      string `json:"reason"`
}

// Notifier receives terminal outcomes. Implementations must be safe for
// concurrent use; delivery errors are logged by callers, never retried into
// the request lifecycle.
type Notifier interface {
	NotifyResult(ctx context.Context, r Result) error
	NotifyFailure(ctx context.Context, f Failure) error
}

var promptTitler = cases.Title(language.English)

// Title renders a prompt as a display title, matching how results are
// captioned for users.
func Title(prompt string) string {
	return promptTitler.String(prompt)
}
