// Package versioned defines the optimistic-concurrency contract shared by every mutable entity.
//
// Each entity carries a version starting at 1. Update only applies when the caller's expected
// version still matches the stored one; the write and the version bump happen as a single
// conditional write in the backend, so among concurrent updates with the same expected
// version exactly one succeeds. The store never retries or merges on the caller's behalf.
package versioned

import "context"

// Store is implemented per entity kind E, patched with P.
type Store[E any, P any] interface {
	// Create assigns the id, version 1 and timestamps, and returns the stored entity.
	Create(ctx context.Context, e E) (E, error)
	// Read returns ErrNotFound when id does not exist.
	Read(ctx context.Context, id string) (E, error)
	// Update applies patch if the stored version equals expectedVersion, then bumps the version.
	// Fails with ErrNotFound or a *ConflictError carrying the current version.
	Update(ctx context.Context, id string, expectedVersion int, patch P) (E, error)
	// Delete is an unconditional hard delete of this entity only.
	Delete(ctx context.Context, id string) error
}

// Ref identifies an entity at a given version.
type Ref struct {
	ID      string `json:"id" validate:"required"`
	Version int    `json:"version" validate:"required,min=1"`
}
