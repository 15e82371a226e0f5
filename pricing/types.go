/*
Package pricing provides the core pricing-profile resolution engine.

PURPOSE:
  This package contains the domain types and algorithms for resolving a
  product's effective price through a chain of pricing profiles. A profile
  adjusts the price it is based on (either the global wholesale price or
  another profile) by a fixed amount or a percentage, up or down.

KEY CONCEPTS IN THIS FILE (types.go):
  - Profile: A named set of per-product price adjustments with a based-on
    pointer forming the resolution chain
  - ProfileItem: A product explicitly selected in a profile, carrying its
    stored adjustment value (numeric string on the wire)
  - Quote: The base/delta/newPrice triple produced by resolution
  - ProfileID/ProductID/UserID: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for all price arithmetic - money is
     never computed with raw floats
  2. Purity: Resolution is a pure function of current stored state; no
     resolver state survives between calls
  3. Safety: Malformed stored values coerce to zero rather than poisoning
     stored or displayed prices

SEE ALSO:
  - chain.go: Loading the based-on chain from storage
  - resolve.go: Recursive price resolution and the adjustment formula
  - validate.go: Negative-price validation
  - engine.go: Draft creation and the publish lifecycle
*/
package pricing

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type ProductID string
type ProfileID string
type ItemID string

// =============================================================================
// CHAIN CONSTANTS
// =============================================================================

// BasedOnGlobalWholesalePrice is the root marker: a profile based on it
// resolves directly against the product's raw wholesale price, terminating
// the chain.
const BasedOnGlobalWholesalePrice = "globalWholesalePrice"

// MaxChainDepth bounds the based-on walk. Chains deeper than this (or
// cyclic chains) fall back to the raw base price instead of erroring.
const MaxChainDepth = 10

// =============================================================================
// ENUMS
// =============================================================================

// PriceAdjustMode selects how a stored adjustment value is interpreted.
type PriceAdjustMode string

const (
	AdjustFixed   PriceAdjustMode = "FIXED"   // adjustment is a currency amount
	AdjustDynamic PriceAdjustMode = "DYNAMIC" // adjustment is a percentage of the base
)

// IncrementMode selects the direction an adjustment moves the price.
// Stored adjustment magnitudes are always non-negative; direction comes
// solely from this mode.
type IncrementMode string

const (
	IncrementIncrease IncrementMode = "INCREASE"
	IncrementDecrease IncrementMode = "DECREASE"
)

// ProfileStatus is the lifecycle state of a profile.
// DRAFT -> COMPLETED is the one-way publish transition; ARCHIVED is
// reachable from either via plain CRUD.
type ProfileStatus string

const (
	StatusDraft     ProfileStatus = "DRAFT"
	StatusCompleted ProfileStatus = "COMPLETED"
	StatusArchived  ProfileStatus = "ARCHIVED"
)

// ValidPriceAdjustMode reports whether s is a known adjust mode.
func ValidPriceAdjustMode(s string) bool {
	return s == string(AdjustFixed) || s == string(AdjustDynamic)
}

// ValidIncrementMode reports whether s is a known increment mode.
func ValidIncrementMode(s string) bool {
	return s == string(IncrementIncrease) || s == string(IncrementDecrease)
}

// ValidProfileStatus reports whether s is a known status.
func ValidProfileStatus(s string) bool {
	return s == string(StatusDraft) || s == string(StatusCompleted) || s == string(StatusArchived)
}

// =============================================================================
// MONEY STRINGS
// =============================================================================

// moneyPattern is the wire-format contract for base prices and adjustments:
// non-negative, up to 4 decimal places. A leading '-' is rejected at the
// boundary; direction is encoded by IncrementMode.
var moneyPattern = regexp.MustCompile(`^\d+(\.\d{1,4})?$`)

// ValidMoneyString reports whether s matches the wire format.
func ValidMoneyString(s string) bool {
	return moneyPattern.MatchString(s)
}

// ParseMoney strictly parses a wire-format numeric string. Used at the
// boundary where malformed input must be rejected.
func ParseMoney(s string) (decimal.Decimal, error) {
	if !ValidMoneyString(s) {
		return decimal.Zero, ErrInvalidMoneyString
	}
	return decimal.NewFromString(s)
}

// CoerceMoney leniently parses a stored numeric string. Anything that does
// not parse coerces to zero; the resolver must never propagate a parse
// failure into stored or displayed prices.
func CoerceMoney(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// =============================================================================
// PROFILE - Stored pricing profile
// =============================================================================

type Profile struct {
	ID          ProfileID
	UserID      UserID
	Name        string
	Description string

	// BasedOn is either BasedOnGlobalWholesalePrice or another profile's ID.
	BasedOn string

	PriceAdjustMode PriceAdjustMode
	IncrementMode   IncrementMode
	Status          ProfileStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProfileItem is a product explicitly selected in a profile, with its
// stored adjustment magnitude as a numeric string.
type ProfileItem struct {
	ID         ItemID
	ProfileID  ProfileID
	ProductID  ProductID
	Adjustment string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// QUOTE - Resolution output per product
// =============================================================================

// Quote is the result of resolving one product through a profile:
// the based-on price, the applied delta and the final price.
type Quote struct {
	Base     decimal.Decimal
	Delta    decimal.Decimal
	NewPrice decimal.Decimal
}

// =============================================================================
// PRODUCT REFERENCE - The slice of the catalog the engine needs
// =============================================================================

// ProductRef carries the only product fields resolution and validation
// need: the raw wholesale price (as stored, numeric string) and the title
// for reporting offending products.
type ProductRef struct {
	ID        ProductID
	Title     string
	BasePrice string
}
