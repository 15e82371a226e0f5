/*
Package catalog holds the product and taxonomy domain.

PURPOSE:
  Defines the entities the pricing engine prices: products with a global
  wholesale price, organized into a category -> subcategory -> segment
  taxonomy, all scoped to an owning user. CRUD rules live with the types;
  persistence lives in store/sqlite.

OWNERSHIP:
  Every entity belongs to a user. Reads never cross user boundaries; a
  product owned by another user is simply not found.

SEE ALSO:
  - taxonomy.go: Assembling the taxonomy tree
  - store/sqlite/sqlite.go: Persistence
*/
package catalog

import (
	"time"

	"github.com/foboh/pricing-engine/pricing"
)

// =============================================================================
// USER - Authentication stub
// =============================================================================

// User is the owning account. There is no real auth layer; API callers
// identify themselves by email and the server upserts the matching user.
type User struct {
	ID        pricing.UserID
	Email     string
	Name      string
	CreatedAt time.Time
}

// DemoEmail is the user assumed when a caller sends no identity.
const DemoEmail = "demo@foboh.local"

// =============================================================================
// PRODUCT
// =============================================================================

// Product is a catalog entry. GlobalWholesalePrice is stored as a
// numeric string (wire format) and parsed to decimal at resolution time.
type Product struct {
	ID                   pricing.ProductID
	UserID               pricing.UserID
	Title                string
	SKU                  string
	Brand                string
	CategoryID           string
	SubcategoryID        string
	SegmentID            string
	GlobalWholesalePrice string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Ref converts a product to the slice the pricing engine reads.
func (p Product) Ref() pricing.ProductRef {
	return pricing.ProductRef{
		ID:        p.ID,
		Title:     p.Title,
		BasePrice: p.GlobalWholesalePrice,
	}
}

// =============================================================================
// TAXONOMY
// =============================================================================

type Category struct {
	ID        string
	UserID    pricing.UserID
	Name      string
	CreatedAt time.Time
}

type Subcategory struct {
	ID         string
	UserID     pricing.UserID
	CategoryID string
	Name       string
	CreatedAt  time.Time
}

type Segment struct {
	ID            string
	UserID        pricing.UserID
	SubcategoryID string
	Name          string
	CreatedAt     time.Time
}
