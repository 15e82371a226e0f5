/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Seeds the database with recognizable demo data so the admin UI has
  something to show. Each scenario wipes the database first, so these
  are for development and demo environments only.

SCENARIOS:
  starter-catalog   Taxonomy and products, no profiles yet
  chained-profiles  A published base profile plus a draft that chains
                    off it, demonstrating recursive resolution
  negative-draft    A draft whose discount exceeds a product's price,
                    demonstrating the publish-time rejection

ADDING A SCENARIO:
  1. Add a ScenarioDTO to the scenarios list
  2. Create loader function: loadXxxScenario(ctx, userID)
  3. Add case to LoadScenario handler

SEE ALSO:
  - handlers.go: writeJSON/writeError helpers
  - store/sqlite/sqlite.go: Reset and seeding primitives
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/foboh/pricing-engine/catalog"
	"github.com/foboh/pricing-engine/pricing"
)

var scenarios = []ScenarioDTO{
	{
		ID:          "starter-catalog",
		Name:        "Starter Catalog",
		Description: "A beverage taxonomy and a handful of products, ready for profile building.",
	},
	{
		ID:          "chained-profiles",
		Name:        "Chained Profiles",
		Description: "A published flat uplift plus a draft percentage discount based on it.",
	},
	{
		ID:          "negative-draft",
		Name:        "Negative Price Draft",
		Description: "A draft whose discount exceeds a product's price; publishing it fails.",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "scenarios": scenarios})
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "scenario": nil})
		return
	}
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "scenario": s})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "scenario": ScenarioDTO{ID: h.currentScenario, Name: h.currentScenario}})
}

// LoadScenario wipes the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenarioId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		h.internalError(w, r, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	user, err := h.Store.UpsertUser(ctx, uuid.NewString(), catalog.DemoEmail, "Demo")
	if err != nil {
		h.internalError(w, r, "Failed to create demo user", err)
		return
	}

	switch req.ScenarioID {
	case "starter-catalog":
		_, err = h.loadStarterCatalog(ctx, user.ID)
	case "chained-profiles":
		err = h.loadChainedProfiles(ctx, user.ID)
	case "negative-draft":
		err = h.loadNegativeDraft(ctx, user.ID)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID))
		return
	}
	if err != nil {
		h.internalError(w, r, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "scenario": req.ScenarioID})
}

// ResetDatabase wipes all data without loading a scenario.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		h.internalError(w, r, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// starterProducts holds the IDs the profile scenarios build on.
type starterProducts struct {
	ale    pricing.ProductID // 50.00
	lager  pricing.ProductID // 38.50
	cider  pricing.ProductID // 4.2500
	shiraz pricing.ProductID // 120.00
}

// loadStarterCatalog seeds the taxonomy and products every scenario
// shares. Prices exercise the wire format: whole, two and four decimals.
func (h *Handler) loadStarterCatalog(ctx context.Context, userID pricing.UserID) (starterProducts, error) {
	var out starterProducts

	beverages := uuid.NewString()
	if err := h.Store.CreateCategory(ctx, catalog.Category{
		ID: beverages, UserID: userID, Name: "Alcoholic Beverages", CreatedAt: nowUTC(),
	}); err != nil {
		return out, err
	}

	beer := uuid.NewString()
	wine := uuid.NewString()
	for _, sub := range []catalog.Subcategory{
		{ID: beer, UserID: userID, CategoryID: beverages, Name: "Beer", CreatedAt: nowUTC()},
		{ID: wine, UserID: userID, CategoryID: beverages, Name: "Wine", CreatedAt: nowUTC()},
	} {
		if err := h.Store.CreateSubcategory(ctx, sub); err != nil {
			return out, err
		}
	}

	craft := uuid.NewString()
	macro := uuid.NewString()
	red := uuid.NewString()
	for _, seg := range []catalog.Segment{
		{ID: craft, UserID: userID, SubcategoryID: beer, Name: "Craft", CreatedAt: nowUTC()},
		{ID: macro, UserID: userID, SubcategoryID: beer, Name: "Macro", CreatedAt: nowUTC()},
		{ID: red, UserID: userID, SubcategoryID: wine, Name: "Red", CreatedAt: nowUTC()},
	} {
		if err := h.Store.CreateSegment(ctx, seg); err != nil {
			return out, err
		}
	}

	out.ale = pricing.ProductID(uuid.NewString())
	out.lager = pricing.ProductID(uuid.NewString())
	out.cider = pricing.ProductID(uuid.NewString())
	out.shiraz = pricing.ProductID(uuid.NewString())

	now := nowUTC()
	products := []catalog.Product{
		{
			ID: out.ale, UserID: userID, Title: "High Tide Pale Ale 24pk", SKU: "HT-PALE-24",
			Brand: "High Tide", CategoryID: beverages, SubcategoryID: beer, SegmentID: craft,
			GlobalWholesalePrice: "50.00", CreatedAt: now, UpdatedAt: now,
		},
		{
			ID: out.lager, UserID: userID, Title: "Coastline Lager 24pk", SKU: "CL-LAGER-24",
			Brand: "Coastline", CategoryID: beverages, SubcategoryID: beer, SegmentID: macro,
			GlobalWholesalePrice: "38.50", CreatedAt: now, UpdatedAt: now,
		},
		{
			ID: out.cider, UserID: userID, Title: "Orchard Cider Single", SKU: "OC-CIDER-1",
			Brand: "Orchard", CategoryID: beverages, SubcategoryID: beer, SegmentID: craft,
			GlobalWholesalePrice: "4.2500", CreatedAt: now, UpdatedAt: now,
		},
		{
			ID: out.shiraz, UserID: userID, Title: "Valley Shiraz Case", SKU: "VS-SHIRAZ-6",
			Brand: "Valley Estate", CategoryID: beverages, SubcategoryID: wine, SegmentID: red,
			GlobalWholesalePrice: "120.00", CreatedAt: now, UpdatedAt: now,
		},
	}
	for _, p := range products {
		if err := h.Store.CreateProduct(ctx, p); err != nil {
			return out, err
		}
	}
	return out, nil
}

// loadChainedProfiles seeds a published flat uplift and a draft
// percentage discount chained off it. Previewing the draft shows the
// ale at 50.00 -> 55.00 -> 49.50.
func (h *Handler) loadChainedProfiles(ctx context.Context, userID pricing.UserID) error {
	prods, err := h.loadStarterCatalog(ctx, userID)
	if err != nil {
		return err
	}

	now := nowUTC()
	baseID := pricing.ProfileID(uuid.NewString())
	base := pricing.Profile{
		ID:              baseID,
		UserID:          userID,
		Name:            "Summer Uplift",
		Description:     "Flat $5 increase on core beer lines for the summer season.",
		BasedOn:         pricing.BasedOnGlobalWholesalePrice,
		PriceAdjustMode: pricing.AdjustFixed,
		IncrementMode:   pricing.IncrementIncrease,
		Status:          pricing.StatusCompleted,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	baseItems := []pricing.ProfileItem{
		{ID: pricing.ItemID(uuid.NewString()), ProfileID: baseID, ProductID: prods.ale, Adjustment: "5.00", CreatedAt: now, UpdatedAt: now},
		{ID: pricing.ItemID(uuid.NewString()), ProfileID: baseID, ProductID: prods.lager, Adjustment: "5.00", CreatedAt: now, UpdatedAt: now},
	}
	if err := h.Store.CreateProfile(ctx, base, baseItems); err != nil {
		return err
	}

	loyaltyID := pricing.ProfileID(uuid.NewString())
	loyalty := pricing.Profile{
		ID:              loyaltyID,
		UserID:          userID,
		Name:            "Loyalty Discount",
		Description:     "10% off the summer price for loyalty customers.",
		BasedOn:         string(baseID),
		PriceAdjustMode: pricing.AdjustDynamic,
		IncrementMode:   pricing.IncrementDecrease,
		Status:          pricing.StatusDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	loyaltyItems := []pricing.ProfileItem{
		{ID: pricing.ItemID(uuid.NewString()), ProfileID: loyaltyID, ProductID: prods.ale, Adjustment: "10", CreatedAt: now, UpdatedAt: now},
		{ID: pricing.ItemID(uuid.NewString()), ProfileID: loyaltyID, ProductID: prods.shiraz, Adjustment: "10", CreatedAt: now, UpdatedAt: now},
	}
	return h.Store.CreateProfile(ctx, loyalty, loyaltyItems)
}

// loadNegativeDraft seeds a draft taking $10 off the cider, which only
// costs 4.25. Publishing the draft returns a 422 naming the cider.
func (h *Handler) loadNegativeDraft(ctx context.Context, userID pricing.UserID) error {
	prods, err := h.loadStarterCatalog(ctx, userID)
	if err != nil {
		return err
	}

	now := nowUTC()
	profileID := pricing.ProfileID(uuid.NewString())
	profile := pricing.Profile{
		ID:              profileID,
		UserID:          userID,
		Name:            "Clearance Blowout",
		Description:     "Aggressive flat discount; too aggressive for the cider.",
		BasedOn:         pricing.BasedOnGlobalWholesalePrice,
		PriceAdjustMode: pricing.AdjustFixed,
		IncrementMode:   pricing.IncrementDecrease,
		Status:          pricing.StatusDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	items := []pricing.ProfileItem{
		{ID: pricing.ItemID(uuid.NewString()), ProfileID: profileID, ProductID: prods.lager, Adjustment: "10.00", CreatedAt: now, UpdatedAt: now},
		{ID: pricing.ItemID(uuid.NewString()), ProfileID: profileID, ProductID: prods.cider, Adjustment: "10.00", CreatedAt: now, UpdatedAt: now},
	}
	return h.Store.CreateProfile(ctx, profile, items)
}
