/*
validate.go - Negative-price validation

PURPOSE:
  Resolves every product in a profile (or a would-be profile) and rejects
  the set if any resolved price is negative. This check runs at two
  independent lifecycle points: draft creation (before any row persists)
  and publish (immediately before the status flip). Base prices and
  ancestor profiles may change between those moments, so the publish-time
  re-validation is a consistency guarantee, not redundancy.

SEE ALSO:
  - engine.go: Invokes validation at both lifecycle points
  - resolve.go: The per-product resolution being validated
*/
package pricing

import (
	"context"
	"sort"
)

// ValidationResult reports the outcome of a negative-price check.
// Offending is empty when Valid is true, and sorted by product title for
// stable output otherwise.
type ValidationResult struct {
	Valid     bool
	Offending []OffendingProduct
}

// ValidateNoNegatives resolves every product in the input and collects
// those whose final price is negative.
func (e *Engine) ValidateNoNegatives(ctx context.Context, userID UserID, in PreviewInput) (ValidationResult, error) {
	quotes, refs, err := e.preview(ctx, userID, in)
	if err != nil {
		return ValidationResult{}, err
	}

	var offending []OffendingProduct
	for productID, quote := range quotes {
		if quote.NewPrice.IsNegative() {
			offending = append(offending, OffendingProduct{
				ProductID: productID,
				Title:     refs[productID].Title,
				NewPrice:  quote.NewPrice.String(),
			})
		}
	}

	if len(offending) == 0 {
		return ValidationResult{Valid: true}, nil
	}

	sort.Slice(offending, func(i, j int) bool {
		if offending[i].Title != offending[j].Title {
			return offending[i].Title < offending[j].Title
		}
		return offending[i].ProductID < offending[j].ProductID
	})
	return ValidationResult{Valid: false, Offending: offending}, nil
}
