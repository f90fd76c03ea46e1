// Package store persists documents with optimistic concurrency: every
// update names the version it was computed from and fails when another
// writer got there first.
package store

import (
	"context"
	"errors"

	"github.com/georgepadayatti/esign/document"
)

// Common errors
var (
	ErrNotFound        = errors.New("document not found")
	ErrAlreadyExists   = errors.New("document already exists")
	ErrVersionConflict = errors.New("document version conflict")
	// ErrImmutableHash is returned when an update would change a content
	// hash that is already set.
	ErrImmutableHash = errors.New("content hash is immutable once set")
)

// Update replaces a stored document if it is still at ExpectedVersion.
// On success the stored version becomes ExpectedVersion+1.
type Update struct {
	ExpectedVersion int64
	Document        *document.Document
}

// DocumentStore reads and writes documents.
type DocumentStore interface {
	Get(ctx context.Context, id string) (*document.Document, error)
	Update(ctx context.Context, id string, u Update) error
	Create(ctx context.Context, doc *document.Document) error
}

// checkUpdate applies the rules shared by all stores.
func checkUpdate(current *document.Document, u Update) error {
	if u.Document == nil {
		return errors.New("update without document")
	}
	if current.Version != u.ExpectedVersion {
		return ErrVersionConflict
	}
	if current.ContentHash != "" && u.Document.ContentHash != current.ContentHash {
		return ErrImmutableHash
	}
	return nil
}
