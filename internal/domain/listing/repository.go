package listing

import (
	"context"

	"github.com/google/uuid"
)

// Filter narrows listing lookups. Empty fields match everything.
type Filter struct {
	OwnerID  *uuid.UUID
	Brand    string
	City     string
	Category string
	Status   Status
}

// Repository is the read contract for the listing directory.
type Repository interface {
	// FindByID returns a NotFound error when the listing does not exist.
	FindByID(ctx context.Context, id uuid.UUID) (*Listing, error)

	// FindByIDs returns the listings that exist among ids, keyed by ID.
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Listing, error)

	// Find returns listings matching the filter.
	Find(ctx context.Context, filter Filter) ([]*Listing, error)
}
