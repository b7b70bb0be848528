// Package dispatch drains the request queue against the generation backend.
//
// The dispatcher runs one cycle per tick. A cycle takes at most one entry off
// the queue, marks it in progress, performs the backend call under a timeout,
// and finalizes the record as finished or error before delivering the
// outcome. A mutex held for the whole cycle guarantees at most one generation
// is ever in flight, regardless of tick frequency.
package dispatch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/aibalabs/aiba-backend/internal/artifact"
	"github.com/aibalabs/aiba-backend/internal/domain"
	"github.com/aibalabs/aiba-backend/internal/notify"
	"github.com/aibalabs/aiba-backend/internal/queue"
	"github.com/aibalabs/aiba-backend/internal/repo"
	"github.com/aibalabs/aiba-backend/internal/sd"
)

// ImageFetcher retrieves img2img source images by URL.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPImageFetcher fetches source images over plain HTTP.
type HTTPImageFetcher struct {
	Client *http.Client
}

// Fetch downloads the image bytes, refusing anything but a 200.
func (f *HTTPImageFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dispatch: build image request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dispatch: fetch source image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dispatch: fetch source image: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 20<<20))
}

// Dispatcher owns the queue-draining loop.
type Dispatcher struct {
	// DB is the GORM handle used for request finalization.
	DB *gorm.DB
	// Queue is the source of pending entries.
	Queue *queue.Queue
	// Generator performs the backend call.
	Generator sd.Generator
	// Artifacts stores generated images.
	Artifacts artifact.Store
	// Notifier delivers terminal outcomes.
	Notifier notify.Notifier
	// Fetcher downloads img2img source images. Defaults to HTTP.
	Fetcher ImageFetcher

	// Interval is the tick period of Run.
	Interval time.Duration
	// GenTimeout bounds a single backend call.
	GenTimeout time.Duration

	Log zerolog.Logger

	paused atomic.Bool
	busy   sync.Mutex
}

// SetPaused flips the pause flag. While paused the dispatcher keeps ticking
// but dispatches nothing; an entry dequeued in the window before the flag is
// observed goes back to the head of the queue.
func (d *Dispatcher) SetPaused(v bool) { d.paused.Store(v) }

// Paused reports the current pause flag.
func (d *Dispatcher) Paused() bool { return d.paused.Load() }

// Run ticks Cycle every Interval until ctx is canceled.
func (d *Dispatcher) Run(ctx context.Context) {
	interval := d.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	d.Log.Info().Dur("interval", interval).Msg("dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.Log.Info().Msg("dispatcher stopped")
			return
		case <-t.C:
			d.Cycle(ctx)
		}
	}
}

// Cycle performs one dispatch attempt. It returns immediately when a previous
// cycle is still generating, when paused, or when the queue is empty.
func (d *Dispatcher) Cycle(ctx context.Context) {
	if !d.busy.TryLock() {
		// A generation is still in flight from an earlier tick.
		return
	}
	defer d.busy.Unlock()

	queueDepth.Set(float64(d.Queue.Len()))

	if d.paused.Load() {
		return
	}

	entry, ok := d.Queue.Dequeue()
	if !ok {
		return
	}

	// The flag may have flipped between the check above and the dequeue.
	if d.paused.Load() {
		d.Queue.Requeue(entry)
		return
	}

	d.dispatch(ctx, entry)
	queueDepth.Set(float64(d.Queue.Len()))
}

func (d *Dispatcher) dispatch(ctx context.Context, entry queue.Entry) {
	log := d.Log.With().Str("request_id", entry.RequestID).Logger()

	r, err := repo.GetRequest(ctx, d.DB, entry.RequestID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			log.Warn().Msg("queued request vanished, skipping")
			return
		}
		log.Error().Err(err).Msg("load request failed, requeueing")
		d.Queue.Requeue(entry)
		return
	}

	g, err := repo.FindOrCreateGuild(ctx, d.DB, r.GuildID, "")
	if err != nil {
		log.Error().Err(err).Msg("load guild failed, requeueing")
		d.Queue.Requeue(entry)
		return
	}

	if err := repo.UpdateRequestStatus(ctx, d.DB, r.ID, domain.StatusInProgress); err != nil {
		log.Error().Err(err).Msg("mark in_progress failed, requeueing")
		d.Queue.Requeue(entry)
		return
	}

	payload, err := d.buildPayload(ctx, r, g)
	if err != nil {
		log.Error().Err(err).Msg("payload build failed")
		d.finalizeError(ctx, r, entry, err)
		return
	}

	callCtx := ctx
	if d.GenTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.GenTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := d.Generator.Generate(callCtx, payload)
	runtime := time.Since(start).Seconds()
	if err != nil {
		log.Error().Err(err).Float64("runtime_seconds", runtime).Msg("generation failed")
		d.finalizeError(ctx, r, entry, err)
		return
	}
	genDuration.Observe(runtime)

	name, err := d.Artifacts.Save(r.OriginalPrompt, r.RequestorID, result.Image)
	if err != nil {
		log.Error().Err(err).Msg("artifact save failed")
		d.finalizeError(ctx, r, entry, err)
		return
	}

	if err := repo.MarkFinished(ctx, d.DB, r.ID, runtime, name); err != nil {
		log.Error().Err(err).Msg("mark finished failed")
		d.finalizeError(ctx, r, entry, err)
		return
	}
	genTotal.WithLabelValues(string(r.Kind), string(domain.StatusFinished)).Inc()
	log.Info().Float64("runtime_seconds", runtime).Str("output_file", name).Msg("generation finished")

	res := notify.Result{
		RequestID:        r.ID,
		RequestorID:      r.RequestorID,
		GuildID:          r.GuildID,
		ChannelID:        entry.ChannelID,
		ReplyTo:          entry.ReplyTo,
		OriginalAuthorID: entry.OriginalAuthorID,
		Title:            notify.Title(r.OriginalPrompt),
		OutputFile:       name,
		Runtime:          runtime,
		Likes:            r.Likes,
		Dislikes:         r.Dislikes,
		VisiblePrompt:    g.VisiblePrompts,
	}
	if err := d.Notifier.NotifyResult(ctx, res); err != nil {
		log.Warn().Err(err).Msg("result delivery failed")
	}
}

// buildPayload assembles the backend request body from the record and the
// guild's policy. img2img requests additionally carry the base64 source image
// and the resolved denoising strength.
func (d *Dispatcher) buildPayload(ctx context.Context, r *domain.Request, g *domain.Guild) (*sd.Payload, error) {
	p := &sd.Payload{
		Prompt:         r.Prompt,
		NegativePrompt: g.NegativePrompt,
		Steps:          r.Steps,
		CfgScale:       r.CfgScale,
		SamplerIndex:   g.Sampler,
		Width:          g.Width,
		Height:         g.Height,
		BatchSize:      1,
	}

	if r.Kind == domain.KindImg2Img {
		fetcher := d.Fetcher
		if fetcher == nil {
			fetcher = &HTTPImageFetcher{}
		}
		img, err := fetcher.Fetch(ctx, r.SourceImageURL)
		if err != nil {
			return nil, err
		}
		p.InitImages = []string{base64.StdEncoding.EncodeToString(img)}
		p.DenoisingStrength = r.DenoisingStrength
		if p.DenoisingStrength == nil {
			strength := g.DenoisingStrength
			p.DenoisingStrength = &strength
		}
	}
	return p, nil
}

func (d *Dispatcher) finalizeError(ctx context.Context, r *domain.Request, entry queue.Entry, cause error) {
	if err := repo.MarkError(ctx, d.DB, r.ID); err != nil {
		d.Log.Error().Err(err).Str("request_id", r.ID).Msg("mark error failed")
	}
	genTotal.WithLabelValues(string(r.Kind), string(domain.StatusError)).Inc()

	f := notify.Failure{
		RequestID:   r.ID,
		RequestorID: r.RequestorID,
		GuildID:     r.GuildID,
		ChannelID:   entry.ChannelID,
		ReplyTo:     entry.ReplyTo,
		Reason:      cause.Error(),
	}
	if err := d.Notifier.NotifyFailure(ctx, f); err != nil {
		d.Log.Warn().Err(err).Str("request_id", r.ID).Msg("failure delivery failed")
	}
}
