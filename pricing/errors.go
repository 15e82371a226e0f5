/*
errors.go - Centralized error types for the pricing engine

PURPOSE:
  All engine error types in one place for consistency and discoverability.
  Callers branch with errors.Is/errors.As; the API layer maps these to
  HTTP statuses.

ERROR CATEGORIES:
  1. Not-found errors   - Missing or cross-user profiles/products
  2. Validation errors  - Business rule violations (negative prices)
  3. Lifecycle errors   - Publish attempted from the wrong state
  4. Boundary errors    - Malformed wire-format values

NOTE:
  Unresolvable ancestors, cycles and depth overflow in the based-on chain
  are deliberately NOT errors. The resolver falls back to the raw base
  price; see resolve.go.

SEE ALSO:
  - engine.go: Produces lifecycle and validation errors
  - validate.go: Produces NegativePriceError
*/
package pricing

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrProfileNotFound is returned when a profile doesn't exist for the
	// requesting user. Cross-user profiles surface identically; existence
	// never leaks across users.
	ErrProfileNotFound = errors.New("pricing profile not found")

	// ErrProductNotFound is returned when a referenced product doesn't
	// exist for the requesting user.
	ErrProductNotFound = errors.New("product not found")

	// ErrNegativePrice is returned when resolution produces a negative
	// price for at least one product. Blocks draft creation and publish.
	ErrNegativePrice = errors.New("resolved price is negative")

	// ErrNotDraft is returned when publish is requested for a profile that
	// is not in DRAFT status. Publishing twice is a safe no-op failure.
	ErrNotDraft = errors.New("profile is not in draft status")

	// ErrStatusConflict is returned when the conditional status write
	// fails because the profile's status changed between check and write.
	// Callers should re-fetch and retry.
	ErrStatusConflict = errors.New("profile status changed concurrently")

	// ErrInvalidMoneyString is returned by strict parsing of wire-format
	// numeric strings.
	ErrInvalidMoneyString = errors.New("invalid numeric string")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// OffendingProduct identifies a product whose resolved price went negative.
type OffendingProduct struct {
	ProductID ProductID
	Title     string
	NewPrice  string
}

// NegativePriceError lists every product that resolved to a negative
// price. Always locally recoverable: the user edits adjustments and
// retries.
type NegativePriceError struct {
	Offending []OffendingProduct
}

func (e *NegativePriceError) Error() string {
	titles := make([]string, len(e.Offending))
	for i, p := range e.Offending {
		titles[i] = p.Title
	}
	return fmt.Sprintf("%d product(s) would have a negative price: %s",
		len(e.Offending), strings.Join(titles, ", "))
}

func (e *NegativePriceError) Unwrap() error {
	return ErrNegativePrice
}

// NotDraftError reports the actual status that blocked a publish.
type NotDraftError struct {
	ProfileID ProfileID
	Status    ProfileStatus
}

func (e *NotDraftError) Error() string {
	return fmt.Sprintf("profile %s cannot be published from status %s", e.ProfileID, e.Status)
}

func (e *NotDraftError) Unwrap() error {
	return ErrNotDraft
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProfileNotFound) ||
		errors.Is(err, ErrProductNotFound)
}

// IsClientError returns true if the error is a per-request condition the
// caller can fix and retry.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNegativePrice) ||
		errors.Is(err, ErrNotDraft) ||
		errors.Is(err, ErrStatusConflict) ||
		errors.Is(err, ErrInvalidMoneyString)
}
