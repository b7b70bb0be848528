package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier records outcomes in the application log. It is the default
// when no webhook endpoint is configured.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier returns a notifier writing through the given logger.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifyResult(ctx context.Context, r Result) error {
	n.log.Info().
		Str("request_id", r.RequestID).
		Str("requestor_id", r.RequestorID).
		Str("guild_id", r.GuildID).
		Str("output_file", r.OutputFile).
		Float64("runtime_seconds", r.Runtime).
		Msg("generation finished")
	return nil
}

func (n *LogNotifier) NotifyFailure(ctx context.Context, f Failure) error {
	n.log.Warn().
		Str("request_id", f.RequestID).
		Str("requestor_id", f.RequestorID).
		Str("guild_id", f.GuildID).
		Str("reason", f.Reason).
		Msg("generation failed")
	return nil
}
