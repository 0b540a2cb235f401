// Package artifact retains deployed code archives so a run's exact
// bytes can be fetched later (audit, manual rollback via the console).
// Archives are scoped by run ID and identified by key, conventionally
// "<unit>.zip".
package artifact

import (
	"context"
	"io"
	"time"
)

// Store is an archive retention backend.
type Store interface {
	// Put stores an archive under the given run. The reader is
	// consumed; a SHA256 checksum is computed during storage.
	Put(ctx context.Context, runID, key string, r io.Reader) error

	// List returns metadata for all archives retained under a run.
	List(ctx context.Context, runID string) ([]Archive, error)
}

// Archive is metadata about one retained archive.
type Archive struct {
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	Checksum  string    `json:"checksum"` // SHA256 hex digest
}
