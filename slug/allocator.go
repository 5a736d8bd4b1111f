package slug

import (
	"context"
	"errors"
	"fmt"
)

// maxProbes bounds the collision-probing loop. Practical collision chains are
// short; hitting the bound means something is wrong upstream and we fail
// loudly instead of looping.
const maxProbes = 1000

// ErrExhausted is returned when no free slug candidate was found within the
// probe bound.
var ErrExhausted = errors.New("slug: candidate probing exhausted")

// Scope identifies the uniqueness boundary for a slug: the entity type,
// plus the parent collection for items. The tenant boundary is implicit in
// the Store (tenant-schema-bound DB session).
type Scope struct {
	EntityType string
	ParentID   string
}

// Store probes slug existence within a scope. Implementations must exclude
// the record identified by excludeID so no-op updates keep their slug.
type Store interface {
	SlugExists(ctx context.Context, scope Scope, slug string, excludeID string) (bool, error)
}

// Allocator produces collision-free slugs by probing existence and appending
// a numeric suffix. The probe loop only minimizes failed commits; the
// database unique index remains the true arbiter under concurrent writers,
// so callers should retry on a commit-time duplicate (see IsDuplicate).
type Allocator struct {
	store Store
}

func NewAllocator(store Store) *Allocator {
	return &Allocator{store: store}
}

// Allocate returns the first free candidate: desired, desired-1, desired-2, …
// desired is slugified first, so callers may pass raw titles.
func (a *Allocator) Allocate(ctx context.Context, scope Scope, desired string, excludeID string) (string, error) {
	base := Slugify(desired)
	if base == "" {
		return "", errors.New("slug: empty slug after normalization")
	}

	candidate := base
	for i := 0; i <= maxProbes; i++ {
		if i > 0 {
			candidate = fmt.Sprintf("%s-%d", base, i)
		}
		taken, err := a.store.SlugExists(ctx, scope, candidate, excludeID)
		if err != nil {
			return "", fmt.Errorf("slug: existence probe failed: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}

	return "", ErrExhausted
}
