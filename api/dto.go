/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON shapes exchanged with the admin UI. Responses carry a
  tagged result envelope: every body has "ok", failures add "message" and
  (for validation failures) "fieldErrors" so the UI can highlight inputs.

CONVENTIONS:
  - Money travels as numeric strings ("12.50"), never floats.
  - Timestamps are RFC3339 strings.
  - camelCase field names throughout.

SEE ALSO:
  - handlers.go: Producers of these shapes
  - factory/profile.go: Request payload validation
*/
package api

import (
	"time"

	"github.com/foboh/pricing-engine/catalog"
	"github.com/foboh/pricing-engine/factory"
	"github.com/foboh/pricing-engine/pricing"
)

// =============================================================================
// ENVELOPE
// =============================================================================

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	OK          bool                `json:"ok"`
	Message     string              `json:"message"`
	FieldErrors factory.FieldErrors `json:"fieldErrors,omitempty"`
	Offending   []OffendingDTO      `json:"offendingProducts,omitempty"`
}

// OffendingDTO identifies a product whose resolved price went negative.
type OffendingDTO struct {
	ProductID string `json:"productId"`
	Title     string `json:"title"`
	NewPrice  string `json:"newPrice"`
}

func toOffendingDTOs(offending []pricing.OffendingProduct) []OffendingDTO {
	dtos := make([]OffendingDTO, 0, len(offending))
	for _, o := range offending {
		dtos = append(dtos, OffendingDTO{
			ProductID: string(o.ProductID),
			Title:     o.Title,
			NewPrice:  o.NewPrice,
		})
	}
	return dtos
}

// =============================================================================
// CATALOG
// =============================================================================

// ProductDTO represents a product in API responses.
type ProductDTO struct {
	ID                   string `json:"id"`
	Title                string `json:"title"`
	SKU                  string `json:"sku"`
	Brand                string `json:"brand"`
	CategoryID           string `json:"categoryId"`
	SubcategoryID        string `json:"subcategoryId"`
	SegmentID            string `json:"segmentId"`
	GlobalWholesalePrice string `json:"globalWholesalePrice"`
	CreatedAt            string `json:"createdAt,omitempty"`
	UpdatedAt            string `json:"updatedAt,omitempty"`
}

func toProductDTO(p catalog.Product) ProductDTO {
	return ProductDTO{
		ID:                   string(p.ID),
		Title:                p.Title,
		SKU:                  p.SKU,
		Brand:                p.Brand,
		CategoryID:           p.CategoryID,
		SubcategoryID:        p.SubcategoryID,
		SegmentID:            p.SegmentID,
		GlobalWholesalePrice: p.GlobalWholesalePrice,
		CreatedAt:            formatTime(p.CreatedAt),
		UpdatedAt:            formatTime(p.UpdatedAt),
	}
}

// SegmentDTO is a leaf taxonomy node.
type SegmentDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SubcategoryDTO is a mid-level taxonomy node with its segments.
type SubcategoryDTO struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Segments []SegmentDTO `json:"segments"`
}

// CategoryDTO is a top-level taxonomy node with its subcategories.
type CategoryDTO struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Subcategories []SubcategoryDTO `json:"subcategories"`
}

func toCategoryDTOs(nodes []catalog.TaxonomyNode) []CategoryDTO {
	dtos := make([]CategoryDTO, 0, len(nodes))
	for _, node := range nodes {
		subs := make([]SubcategoryDTO, 0, len(node.Subcategories))
		for _, sub := range node.Subcategories {
			segs := make([]SegmentDTO, 0, len(sub.Segments))
			for _, seg := range sub.Segments {
				segs = append(segs, SegmentDTO{ID: seg.ID, Name: seg.Name})
			}
			subs = append(subs, SubcategoryDTO{
				ID:       sub.Subcategory.ID,
				Name:     sub.Subcategory.Name,
				Segments: segs,
			})
		}
		dtos = append(dtos, CategoryDTO{
			ID:            node.Category.ID,
			Name:          node.Category.Name,
			Subcategories: subs,
		})
	}
	return dtos
}

// CreateTaxonomyNodeRequest creates a category, subcategory or segment.
// ParentID is ignored for categories, required for the other two levels.
type CreateTaxonomyNodeRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"`
}

// RenameTaxonomyNodeRequest renames an existing node.
type RenameTaxonomyNodeRequest struct {
	Name string `json:"name"`
}

// =============================================================================
// PRICING PROFILES
// =============================================================================

// ProfileItemDTO is one selected product inside a profile.
type ProfileItemDTO struct {
	ID               string      `json:"id"`
	PricingProfileID string      `json:"pricingProfileId"`
	ProductID        string      `json:"productId"`
	Adjustment       string      `json:"adjustment"`
	CreatedAt        string      `json:"createdAt,omitempty"`
	UpdatedAt        string      `json:"updatedAt,omitempty"`
	Product          *ProductDTO `json:"product,omitempty"`
}

func toProfileItemDTO(item pricing.ProfileItem, product *catalog.Product) ProfileItemDTO {
	dto := ProfileItemDTO{
		ID:               string(item.ID),
		PricingProfileID: string(item.ProfileID),
		ProductID:        string(item.ProductID),
		Adjustment:       item.Adjustment,
		CreatedAt:        formatTime(item.CreatedAt),
		UpdatedAt:        formatTime(item.UpdatedAt),
	}
	if product != nil {
		p := toProductDTO(*product)
		dto.Product = &p
	}
	return dto
}

// ProfileDTO represents a pricing profile in API responses.
type ProfileDTO struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	BasedOn         string           `json:"basedOn"`
	PriceAdjustMode string           `json:"priceAdjustMode"`
	IncrementMode   string           `json:"incrementMode"`
	Status          string           `json:"status"`
	CreatedAt       string           `json:"createdAt,omitempty"`
	UpdatedAt       string           `json:"updatedAt,omitempty"`
	Items           []ProfileItemDTO `json:"productPricingProfiles,omitempty"`
}

func toProfileDTO(p pricing.Profile) ProfileDTO {
	return ProfileDTO{
		ID:              string(p.ID),
		Name:            p.Name,
		Description:     p.Description,
		BasedOn:         p.BasedOn,
		PriceAdjustMode: string(p.PriceAdjustMode),
		IncrementMode:   string(p.IncrementMode),
		Status:          string(p.Status),
		CreatedAt:       formatTime(p.CreatedAt),
		UpdatedAt:       formatTime(p.UpdatedAt),
	}
}

// UpdateProfileRequest is the PATCH body for a profile. Nil fields are
// left unchanged. Field edits require DRAFT status; the only status
// reachable here is ARCHIVED (COMPLETED goes through publish).
type UpdateProfileRequest struct {
	Name            *string `json:"name,omitempty"`
	Description     *string `json:"description,omitempty"`
	BasedOn         *string `json:"basedOn,omitempty"`
	PriceAdjustMode *string `json:"priceAdjustMode,omitempty"`
	IncrementMode   *string `json:"incrementMode,omitempty"`
	Status          *string `json:"status,omitempty"`
}

// UpsertItemRequest adds a product to a profile or changes its adjustment.
type UpsertItemRequest struct {
	ProductID  string `json:"productId"`
	Adjustment string `json:"adjustment"`
}

// =============================================================================
// PREVIEW
// =============================================================================

// PreviewRowDTO is one product's computed price in a preview.
type PreviewRowDTO struct {
	ProductID  string `json:"productId"`
	Title      string `json:"title"`
	BasePrice  string `json:"basePrice"`
	Adjustment string `json:"adjustment"`
	Delta      string `json:"delta"`
	NewPrice   string `json:"newPrice"`
	Negative   bool   `json:"negative"`
}

// PreviewResponse is the body for both ad-hoc and stored previews.
type PreviewResponse struct {
	OK          bool            `json:"ok"`
	Rows        []PreviewRowDTO `json:"rows"`
	HasNegative bool            `json:"hasNegative"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
