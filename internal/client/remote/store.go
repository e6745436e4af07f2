// Package remote talks to the file store that holds chest ciphertexts.
//
// Three Store implementations share one contract: DriveStore speaks a
// Drive-style HTTP API with multipart uploads and OAuth bearer tokens,
// S3Store keeps chests as objects in an S3-compatible bucket, and
// MemoryStore keeps them in process. Every failure is an *Error.
//
// Writes are plain overwrites. There is no version or ETag check, so two
// clients updating the same file concurrently lose one of the writes.
package remote

import (
	"context"

	"github.com/dmitrijs2005/gophchest/internal/client/models"
)

// Store is the remote object storage used by the sync service.
type Store interface {
	// Create uploads a new file and returns its metadata with the assigned id.
	Create(ctx context.Context, meta models.Metadata, content string) (*models.Metadata, error)

	// GetMetadata returns the metadata of an existing file.
	GetMetadata(ctx context.Context, id string) (*models.Metadata, error)

	// Download returns the content of the file described by meta.
	Download(ctx context.Context, meta *models.Metadata) (string, error)

	// Update replaces the content and metadata of an existing file.
	Update(ctx context.Context, id string, meta models.Metadata, content string) (*models.Metadata, error)
}
