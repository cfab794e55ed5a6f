// Package mediastore defines the contract for deleting hosted media objects.
//
// Story media lives in an external object store. The reaper only ever
// deletes objects, addressed by the external ID saved on the story and the
// media kind (image or video), which selects the storage namespace.
//
//	err := store.DeleteObject(ctx, story.MediaExternalID, story.MediaKind)
//	if err != nil {
//	    // the story record is kept so the next tick can retry
//	}
//
// Deleting an object that does not exist succeeds.
package mediastore

import (
	"context"
	"errors"
	"fmt"

	"github.com/makwanagautam41/SnapLink-sub001/internal/model"
)

// Common errors returned by Store implementations.
var (
	// ErrNotFound is returned when the store answers "not found" without
	// saying whether the object or the bucket is missing. DeleteObject
	// returns nil for a confirmed missing object, never ErrNotFound.
	ErrNotFound = errors.New("media object not found")

	// ErrAccessDenied is returned when the credentials lack delete permission.
	ErrAccessDenied = errors.New("access denied")

	// ErrBucketNotFound is returned when the configured bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrInvalidID is returned for an empty external ID.
	ErrInvalidID = errors.New("invalid media id")

	// ErrStoreClosed is returned after Close.
	ErrStoreClosed = errors.New("media store closed")
)

// ObjectError wraps an error with the object key for context.
type ObjectError struct {
	Op  string // Operation that failed, e.g. "Delete"
	Key string // Resolved object key
	Err error
}

func (e *ObjectError) Error() string {
	return fmt.Sprintf("mediastore: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *ObjectError) Unwrap() error {
	return e.Err
}

// Store deletes media objects.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// DeleteObject removes the object identified by externalID in the
	// namespace for kind. A missing object is not an error.
	DeleteObject(ctx context.Context, externalID string, kind model.MediaKind) error

	// Close releases resources held by the store.
	Close() error
}

// ReadinessChecker is implemented by stores that can verify connectivity.
type ReadinessChecker interface {
	CheckReady(ctx context.Context) error
}
