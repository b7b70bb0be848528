// Package queue implements the ordered collection of pending generation
// requests. Enqueue order equals dispatch order; the only reordering allowed
// is an explicit requeue to the head, used to undo a dequeue that could not
// be dispatched.
//
// The queue owns its internal state exclusively. Callers interact through
// Add/Dequeue/Requeue/Position/Len and never reach into the backing slices.
// All methods are safe for concurrent use.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aibalabs/aiba-backend/internal/domain"
)

// NotFound is returned by Position when the request is not queued.
const NotFound = -1

// Entry associates a queued request with the contextual handles needed to
// deliver the eventual result. Entries are owned by the queue while pending
// and handed to the dispatcher on dequeue; they are never persisted
// independently of the request they wrap.
type Entry struct {
	RequestID   string
	GuildID     string
	RequestorID string
	ChannelID   string

	// ReplyTo is where the result (or failure notice) is delivered.
	ReplyTo string
	// OriginalAuthorID is set for remix requests only.
	OriginalAuthorID string

	EnqueuedAt time.Time
}

// StatusStore persists request status changes on behalf of the queue.
// Add refuses to enqueue when the status flip to queued cannot be made
// durable, so the store and the queue never disagree about what is pending.
type StatusStore interface {
	UpdateRequestStatus(ctx context.Context, id string, status domain.RequestStatus) error
}

// Queue is a FIFO of pending request entries.
type Queue struct {
	store StatusStore

	mu      sync.Mutex
	order   []string
	entries map[string]Entry
}

// New returns an empty queue that persists status flips through store.
func New(store StatusStore) *Queue {
	return &Queue{
		store:   store,
		entries: make(map[string]Entry),
	}
}

// Add marks the request queued, persists that change, and appends the entry
// to the tail. If persistence fails the entry is not enqueued and the error
// is propagated; a swallowed failure here would desynchronize the queue from
// the record's durable state.
func (q *Queue) Add(ctx context.Context, e Entry) error {
	if err := q.store.UpdateRequestStatus(ctx, e.RequestID, domain.StatusQueued); err != nil {
		return fmt.Errorf("queue add %s: %w", e.RequestID, err)
	}
	if e.EnqueuedAt.IsZero() {
		e.EnqueuedAt = time.Now().UTC()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.order = append(q.order, e.RequestID)
	q.entries[e.RequestID] = e
	return nil
}

// Dequeue removes and returns the head entry. The second return value is
// false when the queue is empty, which is a normal condition. Dequeue
// does not change the request's status; that is the dispatcher's job once it
// has committed to executing the entry.
func (q *Queue) Dequeue() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.order) == 0 {
		return Entry{}, false
	}
	id := q.order[0]
	q.order = q.order[1:]
	e := q.entries[id]
	delete(q.entries, id)
	return e, true
}

// Requeue reinserts a previously dequeued entry at the head, preserving its
// original position relative to everything still queued. Used when dispatch
// is aborted before the external call is made.
func (q *Queue) Requeue(e Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.order = append([]string{e.RequestID}, q.order...)
	q.entries[e.RequestID] = e
}

// Position returns the 1-based rank of the request, or NotFound.
func (q *Queue) Position(requestID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, id := range q.order {
		if id == requestID {
			return i + 1
		}
	}
	return NotFound
}

// Len returns the number of pending entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}

// FormatPosition renders a queue rank for display: positions 1, 2, and 3
// get "st"/"nd"/"rd", every other position gets "th" (11th, but also 21th),
// and NotFound renders "Queue Error". The flat "th" beyond position 3 is the
// form the chat surface has always shown; keep it.
func FormatPosition(pos int) string {
	switch pos {
	case NotFound:
		return "Queue Error"
	case 1:
		return "1st"
	case 2:
		return "2nd"
	case 3:
		return "3rd"
	default:
		return fmt.Sprintf("%dth", pos)
	}
}
