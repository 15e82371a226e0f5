/*
chain.go - Based-on chain loader

PURPOSE:
  Walks the ancestor chain of pricing profiles from a starting reference
  back toward the root marker, loading each profile's based-on pointer,
  modes, and the subset of its stored adjustments relevant to the
  requested products. Produces the lookup table the resolver computes
  against.

SAFETY NET:
  The walk stops early (without error) when:
  - the reference is the root marker (normal termination)
  - the profile doesn't exist for this user (deleted or cross-user)
  - the reference was already visited in this walk (cycle)
  - MaxChainDepth levels have been loaded

  Levels left unresolved simply fall back to the raw base price at
  resolution time. Malformed or adversarial chains degrade, they never
  loop or fail the request.

SEE ALSO:
  - resolve.go: Consumes the Chain produced here
  - store.go: ProfileStore interface
*/
package pricing

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CHAIN - Lookup table keyed by profile id
// =============================================================================

// ChainNode is one loaded ancestor profile: its own based-on pointer, its
// modes, and its adjustments for the products being resolved.
type ChainNode struct {
	BasedOn         string
	PriceAdjustMode PriceAdjustMode
	IncrementMode   IncrementMode

	// Adjustments holds parsed magnitudes for the requested products only.
	// A product absent here was not selected in this profile.
	Adjustments map[ProductID]decimal.Decimal
}

// Chain maps profile ids to their loaded nodes.
type Chain map[ProfileID]ChainNode

// =============================================================================
// LOADER
// =============================================================================

// LoadChain walks the based-on chain starting at rootRef and returns the
// lookup table for the requested products. Storage failures propagate;
// broken, cyclic or over-deep chains do not (see the file header).
func LoadChain(ctx context.Context, store ProfileStore, userID UserID, rootRef string, productIDs []ProductID) (Chain, error) {
	chain := make(Chain)
	visited := make(map[string]bool)

	current := rootRef
	for depth := 0; depth < MaxChainDepth; depth++ {
		if current == BasedOnGlobalWholesalePrice || visited[current] {
			break
		}
		visited[current] = true

		profile, err := store.GetProfile(ctx, userID, ProfileID(current))
		if err != nil {
			return nil, err
		}
		if profile == nil {
			// Chain ends here; unresolved ancestors fall back to raw base.
			break
		}

		stored, err := store.GetItemAdjustments(ctx, profile.ID, productIDs)
		if err != nil {
			return nil, err
		}

		adjustments := make(map[ProductID]decimal.Decimal, len(stored))
		for productID, raw := range stored {
			adjustments[productID] = CoerceMoney(raw)
		}

		chain[profile.ID] = ChainNode{
			BasedOn:         profile.BasedOn,
			PriceAdjustMode: profile.PriceAdjustMode,
			IncrementMode:   profile.IncrementMode,
			Adjustments:     adjustments,
		}

		current = profile.BasedOn
	}

	return chain, nil
}
