// Package sessions implements the append-only, bounded-retention message
// log each chat session keeps, plus idle-timeout background eviction.
package sessions

import (
	"context"
	"time"

	"github.com/mcphost/host/pkg/models"
)

// Store is the interface the workflow engine uses to read and append to
// a session's message log.
type Store interface {
	// GetOrCreate returns the session for id, creating an empty one if it
	// does not yet exist.
	GetOrCreate(ctx context.Context, id string) (*models.Session, error)

	// Get returns the session for id, or an error if it does not exist.
	Get(ctx context.Context, id string) (*models.Session, error)

	// AppendMessage adds msg to the session's log, applying the bounded
	// retention rewrite once the log exceeds MaxMessages.
	AppendMessage(ctx context.Context, id string, msg *models.Message) error

	// UpdateContext merges patch into the session's Context map, creating
	// it if necessary. A nil value for a key deletes that key.
	UpdateContext(ctx context.Context, id string, patch map[string]any) error

	// Touch refreshes a session's LastAccess timestamp without appending
	// a message.
	Touch(ctx context.Context, id string) error

	// Delete removes a session immediately. The idle sweep removes
	// sessions directly and does not call Delete.
	Delete(ctx context.Context, id string) error

	// Close stops the background eviction loop.
	Close() error

	// ActiveCount reports the number of sessions currently held, for the
	// Host Metrics Snapshot's sessions_active gauge.
	ActiveCount() int
}

// Config controls retention and eviction behavior.
type Config struct {
	// MaxMessages is the cap on messages retained per session. When
	// exceeded, the log is rewritten to [first_user_message] followed by
	// the most recent KeepTail messages.
	MaxMessages int

	// IdleTimeout is how long a session may go without access before the
	// background sweep evicts it.
	IdleTimeout time.Duration

	// CleanupInterval is how often the eviction sweep runs.
	CleanupInterval time.Duration
}

// KeepTail returns the number of trailing messages kept on overflow:
// min(10, MaxMessages/2).
func (c Config) KeepTail() int {
	k := c.MaxMessages / 2
	if k > 10 {
		k = 10
	}
	if k < 1 {
		k = 1
	}
	return k
}
