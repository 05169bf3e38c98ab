package storage

import (
	"context"
	"errors"

	"github.com/estatetools/opsdash/internal/models"
)

// ErrNotFound is returned by Load when no document has been persisted yet.
var ErrNotFound = errors.New("document not found")

// Store persists the task document. Saves are all-or-nothing per call; a
// failed save leaves the previously persisted document untouched.
type Store interface {
	Load(ctx context.Context) (*models.Document, error)
	Save(ctx context.Context, doc *models.Document) error
}
