// errors.go - Catalog error types.
//
// Same layout as the pricing package: sentinel errors for errors.Is, with
// the API layer mapping them to HTTP statuses.
package catalog

import "errors"

var (
	// ErrDuplicateSKU is returned when creating or updating a product
	// with a SKU another of the user's products already uses.
	ErrDuplicateSKU = errors.New("sku already exists")

	// ErrTaxonomyInUse is returned when deleting a category, subcategory
	// or segment that products (or child taxonomy nodes) still reference.
	ErrTaxonomyInUse = errors.New("taxonomy node is referenced by existing records")

	// ErrTaxonomyNotFound is returned when a referenced taxonomy node
	// doesn't exist for the user.
	ErrTaxonomyNotFound = errors.New("taxonomy node not found")
)
