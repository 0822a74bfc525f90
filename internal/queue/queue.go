// Package queue holds the durable FIFO of not-yet-committed reservation
// drafts and the validation gate in front of it. Exactly one consumer
// (the saver) is assumed to drain a queue; see PopOldest.
package queue

import (
	"context"

	"callbook/internal/models"
)

// Queue is the backend-agnostic pending-reservation store.
//
// PopOldest on the sqlite backend is fetch-then-delete: two concurrent
// consumers could both fetch the same record before either deletes it.
// The design assumes a single saver process per queue.
type Queue interface {
	// Enqueue stores a draft with a server-assigned creation timestamp.
	// Returns false (and no error) when the draft is missing required
	// fields; the caller decides whether to surface that.
	Enqueue(ctx context.Context, fields map[string]any) (bool, error)

	// ListAll returns every queued draft, oldest first.
	ListAll(ctx context.Context) ([]models.Record, error)

	// PeekOldest returns the oldest draft without removing it,
	// or nil when the queue is empty.
	PeekOldest(ctx context.Context) (*models.Record, error)

	// PopOldest removes and returns the oldest draft,
	// or nil when the queue is empty.
	PopOldest(ctx context.Context) (*models.Record, error)

	// Delete removes a specific draft by its store-assigned ID.
	Delete(ctx context.Context, id string) error

	// Clear empties the queue.
	Clear(ctx context.Context) error
}
