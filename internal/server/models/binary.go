package models

import (
	"time"

	shared "github.com/dmitrijs2005/binsync/internal/models"
)

// Binary is the canonical per-record row. Record is what clients see; the
// remaining fields stay on the server.
type Binary struct {
	Record shared.BinaryRecord
	// StorageKey locates the current blob in the blob store.
	StorageKey string
	// ArchivePath is the path-pattern copy written by the last attempt,
	// relative to the storage root.
	ArchivePath string
	UpdatedAt   time.Time
}
