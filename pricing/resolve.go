/*
resolve.go - Recursive price resolution and the adjustment formula

PURPOSE:
  Computes a product's effective based-on price by recursing through the
  loaded chain, then applies a profile's own adjustment to produce the
  base/delta/newPrice triple.

FALLBACK POLICY (must be preserved exactly):
  - basedOn == root marker          -> raw base price
  - depth exceeded or cycle         -> raw base price
  - ancestor missing from the chain -> raw base price
  - product not selected in an ancestor -> that ancestor's own based-on
    price passes through unchanged (no adjustment applied)

  None of these are errors. Resolution never throws and never loops.

VISITED SET:
  The visited set is copied on every descent so sibling branches never
  inherit ancestor visitation state from each other.

SEE ALSO:
  - chain.go: Builds the Chain this file computes against
  - validate.go: Runs resolution across a whole profile
*/
package pricing

import "github.com/shopspring/decimal"

var oneHundred = decimal.NewFromInt(100)

// =============================================================================
// ADJUSTMENT FORMULA
// =============================================================================

// ApplyAdjustment applies a single adjustment to a base price.
// DYNAMIC treats the adjustment as a percentage of the base; FIXED as a
// currency amount. DECREASE subtracts the delta, INCREASE adds it.
func ApplyAdjustment(base, adjustment decimal.Decimal, mode PriceAdjustMode, increment IncrementMode) (delta, newPrice decimal.Decimal) {
	if mode == AdjustDynamic {
		delta = base.Mul(adjustment).Div(oneHundred)
	} else {
		delta = adjustment
	}
	if increment == IncrementDecrease {
		return delta, base.Sub(delta)
	}
	return delta, base.Add(delta)
}

// =============================================================================
// RECURSIVE RESOLUTION
// =============================================================================

// ResolveBasedOnPrice computes the effective price of productID at the
// chain position referenced by basedOn. rawBase is the product's global
// wholesale price, the value every fallback path returns.
//
// Callers start with depth 0 and a nil or empty visited set.
func ResolveBasedOnPrice(basedOn string, productID ProductID, rawBase decimal.Decimal, chain Chain, depth int, visited map[ProfileID]bool) decimal.Decimal {
	if basedOn == BasedOnGlobalWholesalePrice {
		return rawBase
	}
	if depth > MaxChainDepth || visited[ProfileID(basedOn)] {
		return rawBase
	}

	node, ok := chain[ProfileID(basedOn)]
	if !ok {
		// Loader could not reach this ancestor.
		return rawBase
	}

	// Copy the visited set so sibling branches stay independent.
	next := make(map[ProfileID]bool, len(visited)+1)
	for id := range visited {
		next[id] = true
	}
	next[ProfileID(basedOn)] = true

	parent := ResolveBasedOnPrice(node.BasedOn, productID, rawBase, chain, depth+1, next)

	adjustment, selected := node.Adjustments[productID]
	if !selected {
		// Unselected falls back to the parent price unchanged.
		return parent
	}

	_, newPrice := ApplyAdjustment(parent, adjustment, node.PriceAdjustMode, node.IncrementMode)
	return newPrice
}
