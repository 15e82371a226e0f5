/*
store.go - Persistence interfaces the pricing engine consumes

PURPOSE:
  Defines the boundary between the resolution engine and storage. The
  engine never touches SQL; it reads profiles, item adjustments and
  product base prices through these interfaces and performs a single
  conditional write on publish.

KEY INTERFACES:
  ProfileStore:  Profile reads, item adjustment subsets, the conditional
                 status write, and atomic draft creation
  ProductReader: The slice of the catalog the engine needs (base prices
                 and titles)
  Store:         Convenience union implemented by real backends

SCOPING:
  Every read is scoped to a user. A profile that exists under a different
  user is indistinguishable from one that doesn't exist.

CONDITIONAL WRITE:
  SetProfileStatus only succeeds if the stored status still equals
  'expected' at write time (compare-and-swap). This is the engine's only
  mutation besides draft creation; no distributed lock is needed.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - pricing/store/memory.go: In-memory for testing

SEE ALSO:
  - chain.go: Uses ProfileStore to walk the based-on chain
  - engine.go: Uses the full Store
*/
package pricing

import "context"

// =============================================================================
// PROFILE STORE
// =============================================================================

// ProfileStore handles persistence of profiles and their selections.
type ProfileStore interface {
	// GetProfile returns the profile scoped to the user, or (nil, nil)
	// when no such profile exists for that user.
	GetProfile(ctx context.Context, userID UserID, profileID ProfileID) (*Profile, error)

	// GetItemAdjustments returns the stored adjustment strings for the
	// subset of productIDs selected in the profile. Products not selected
	// are simply absent from the map. Implementations must fetch only the
	// requested subset, never the full selection table.
	GetItemAdjustments(ctx context.Context, profileID ProfileID, productIDs []ProductID) (map[ProductID]string, error)

	// ListItems returns every selection in the profile.
	ListItems(ctx context.Context, profileID ProfileID) ([]ProfileItem, error)

	// CreateProfile persists a profile and its initial selections
	// atomically. Either everything is written or nothing is.
	CreateProfile(ctx context.Context, profile Profile, items []ProfileItem) error

	// SetProfileStatus updates the status only if the stored status still
	// equals expected. Returns false (and no error) when the conditional
	// write did not apply.
	SetProfileStatus(ctx context.Context, userID UserID, profileID ProfileID, expected, next ProfileStatus) (bool, error)
}

// =============================================================================
// PRODUCT READER
// =============================================================================

// ProductReader exposes the catalog fields resolution needs.
type ProductReader interface {
	// GetProductRefs returns base prices and titles for the requested
	// products, scoped to the user. Unknown ids are absent from the map.
	GetProductRefs(ctx context.Context, userID UserID, productIDs []ProductID) (map[ProductID]ProductRef, error)
}

// Store is the full storage surface the engine needs.
type Store interface {
	ProfileStore
	ProductReader
}
