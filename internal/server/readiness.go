package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/makwanagautam41/SnapLink-sub001/internal/mediastore"
)

// Pinger is anything that can confirm a connection is usable.
// postgres.DB satisfies it.
type Pinger interface {
	CheckReady(ctx context.Context) error
}

// DatabaseChecker reports the record store database as ready when a ping
// succeeds.
type DatabaseChecker struct {
	db Pinger
}

// NewDatabaseChecker creates a DatabaseChecker.
func NewDatabaseChecker(db Pinger) *DatabaseChecker {
	return &DatabaseChecker{db: db}
}

// Name returns "database".
func (c *DatabaseChecker) Name() string {
	return "database"
}

// CheckReady pings the database.
func (c *DatabaseChecker) CheckReady(ctx context.Context) error {
	if c.db == nil {
		return errors.New("database not configured")
	}
	if err := c.db.CheckReady(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

// MediaStoreChecker reports the media bucket as ready. Stores that cannot
// probe themselves (the in-memory store) are always ready.
type MediaStoreChecker struct {
	store mediastore.Store
}

// NewMediaStoreChecker creates a MediaStoreChecker.
func NewMediaStoreChecker(store mediastore.Store) *MediaStoreChecker {
	return &MediaStoreChecker{store: store}
}

// Name returns "media_store".
func (c *MediaStoreChecker) Name() string {
	return "media_store"
}

// CheckReady probes the bucket. A missing bucket or denied access both
// mean deletions would fail, so both are reported.
func (c *MediaStoreChecker) CheckReady(ctx context.Context) error {
	if c.store == nil {
		return errors.New("media store not configured")
	}
	rc, ok := c.store.(mediastore.ReadinessChecker)
	if !ok {
		return nil
	}
	err := rc.CheckReady(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mediastore.ErrBucketNotFound):
		return fmt.Errorf("media bucket missing: %w", err)
	case errors.Is(err, mediastore.ErrAccessDenied):
		return fmt.Errorf("media bucket access denied: %w", err)
	default:
		return fmt.Errorf("media store unreachable: %w", err)
	}
}

// FuncChecker wraps a function as a ReadinessChecker.
type FuncChecker struct {
	name  string
	check func(context.Context) error
}

// NewFuncChecker creates a FuncChecker.
func NewFuncChecker(name string, check func(context.Context) error) *FuncChecker {
	return &FuncChecker{name: name, check: check}
}

// Name returns the checker's name.
func (c *FuncChecker) Name() string {
	return c.name
}

// CheckReady calls the wrapped function. A nil function is always ready.
func (c *FuncChecker) CheckReady(ctx context.Context) error {
	if c.check == nil {
		return nil
	}
	return c.check(ctx)
}
