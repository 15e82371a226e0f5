/*
handlers.go - HTTP API handlers for the pricing engine

PURPOSE:
  Exposes the catalog and pricing profile engine via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to domain
  logic in pricing/, catalog/ and factory/.

ENDPOINTS:
  Products:
    GET    /api/products               List the user's products
    POST   /api/products               Create product
    GET    /api/products/{id}          Get product
    PATCH  /api/products/{id}          Update product
    DELETE /api/products/{id}          Delete product

  Catalog taxonomy:
    GET    /api/catalog                Nested category tree
    POST   /api/catalog/{level}        Create node (categories|subcategories|segments)
    PUT    /api/catalog/{level}/{id}   Rename node
    DELETE /api/catalog/{level}/{id}   Delete node

  Pricing profiles:
    GET    /api/pricing-profiles                 List profiles with items
    POST   /api/pricing-profiles                 Create draft (validated)
    POST   /api/pricing-profiles/preview         Ad-hoc preview
    GET    /api/pricing-profiles/{id}            Get profile with items
    PATCH  /api/pricing-profiles/{id}            Edit draft fields
    DELETE /api/pricing-profiles/{id}            Delete profile and items
    POST   /api/pricing-profiles/{id}/items      Upsert product selection
    DELETE /api/pricing-profiles/{id}/items/{itemId} Remove selection
    GET    /api/pricing-profiles/{id}/preview    Preview stored profile
    POST   /api/pricing-profiles/{id}/publish    Publish draft

  Scenarios:
    GET    /api/scenarios              List demo scenarios
    GET    /api/scenarios/current      Currently loaded scenario
    POST   /api/scenarios/load         Load a demo scenario
    POST   /api/scenarios/reset        Wipe the database

IDENTITY:
  There is no real auth. Callers send X-User-Email; the server upserts
  the matching user and scopes every query to it. Missing header falls
  back to the demo account.

ERROR HANDLING:
  Failures use the {ok:false, message, fieldErrors?} envelope:
  - 400: Malformed body, bad references
  - 404: Resource not found for this user
  - 409: Conflict (duplicate SKU, non-draft edit, concurrent publish)
  - 422: Field validation or negative-price rejection
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/foboh/pricing-engine/catalog"
	"github.com/foboh/pricing-engine/factory"
	"github.com/foboh/pricing-engine/pricing"
	"github.com/foboh/pricing-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Engine  *pricing.Engine
	Factory *factory.ProfileFactory
	Logger  zerolog.Logger

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store, logger zerolog.Logger) *Handler {
	return &Handler{
		Store:   store,
		Engine:  pricing.NewEngine(store),
		Factory: factory.NewProfileFactory(),
		Logger:  logger,
	}
}

// currentUser resolves the calling user from the X-User-Email header,
// creating the account on first sight. No header means the demo account.
func (h *Handler) currentUser(r *http.Request) (catalog.User, error) {
	email := strings.TrimSpace(r.Header.Get("X-User-Email"))
	if email == "" {
		email = catalog.DemoEmail
	}
	name := email
	if i := strings.Index(email, "@"); i > 0 {
		name = email[:i]
	}
	return h.Store.UpsertUser(r.Context(), uuid.NewString(), email, name)
}

// =============================================================================
// PRODUCT ENDPOINTS
// =============================================================================

// ListProducts returns all of the user's products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.internalError(w, r, "Failed to resolve user", err)
		return
	}

	products, err := h.Store.ListProducts(r.Context(), user.ID)
	if err != nil {
		h.internalError(w, r, "Failed to list products", err)
		return
	}

	dtos := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		dtos = append(dtos, toProductDTO(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "products": dtos})
}

// GetProduct returns a single product.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.internalError(w, r, "Failed to resolve user", err)
		return
	}

	id := pricing.ProductID(chi.URLParam(r, "id"))
	product, err := h.Store.GetProduct(r.Context(), user.ID, id)
	if err != nil {
		h.internalError(w, r, "Failed to get product", err)
		return
	}
	if product == nil {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "product": toProductDTO(*product)})
}

// CreateProduct creates a product after validating the payload.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.internalError(w, r, "Failed to resolve user", err)
		return
	}

	var payload factory.ProductPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := h.Factory.CheckProduct(payload); errs != nil {
		writeFieldErrors(w, errs)
		return
	}

	now := nowUTC()
	product := catalog.Product{
		ID:                   pricing.ProductID(uuid.NewString()),
		UserID:               user.ID,
		Title:                payload.Title,
		SKU:                  payload.SKU,
		Brand:                payload.Brand,
		CategoryID:           payload.CategoryID,
		SubcategoryID:        payload.SubcategoryID,
		SegmentID:            payload.SegmentID,
		GlobalWholesalePrice: payload.GlobalWholesalePrice,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := h.Store.CreateProduct(r.Context(), product); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "product": toProductDTO(product)})
}

// UpdateProduct replaces a product's editable fields.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.internalError(w, r, "Failed to resolve user", err)
		return
	}

	id := pricing.ProductID(chi.URLParam(r, "id"))
	existing, err := h.Store.GetProduct(r.Context(), user.ID, id)
	if err != nil {
		h.internalError(w, r, "Failed to get product", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}

	var payload factory.ProductPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := h.Factory.CheckProduct(payload); errs != nil {
		writeFieldErrors(w, errs)
		return
	}

	updated := *existing
	updated.Title = payload.Title
	updated.SKU = payload.SKU
	updated.Brand = payload.Brand
	updated.CategoryID = payload.CategoryID
	updated.SubcategoryID = payload.SubcategoryID
	updated.SegmentID = payload.SegmentID
	updated.GlobalWholesalePrice = payload.GlobalWholesalePrice
	updated.UpdatedAt = nowUTC()

	applied, err := h.Store.UpdateProduct(r.Context(), updated)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if !applied {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "product": toProductDTO(updated)})
}

// DeleteProduct removes a product. Profile items referencing it cascade.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.internalError(w, r, "Failed to resolve user", err)
		return
	}

	id := pricing.ProductID(chi.URLParam(r, "id"))
	deleted, err := h.Store.DeleteProduct(r.Context(), user.ID, id)
	if err != nil {
		h.internalError(w, r, "Failed to delete product", err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// =============================================================================
// TAXONOMY ENDPOINTS
// =============================================================================

// taxonomyTable maps the URL level to its table. Unknown levels get "".
func taxonomyTable(level string) string {
	switch level {
	case "categories", "subcategories", "segments":
		return level
	}
	return ""
}

// GetTaxonomy returns the nested category -> subcategory -> segment tree.
func (h *Handler) GetTaxonomy(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.internalError(w, r, "Failed to resolve user", err)
		return
	}

	cats, subs, segs, err := h.Store.ListTaxonomy(r.Context(), user.ID)
	if err != nil {
		h.internalError(w, r, "Failed to load taxonomy", err)
		return
	}
	tree := catalog.BuildTaxonomy(cats, subs, segs)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "categories": toCategoryDTOs(tree)})
}

// CreateTaxonomyNode creates a node at the level named in the URL.
func (h *Handler) CreateTaxonomyNode(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.internalError(w, r, "Failed to resolve user", err)
		return
	}

	table := taxonomyTable(chi.URLParam(r, "level"))
	if table == "" {
		writeError(w, http.StatusNotFound, "Unknown taxonomy level")
		return
	}

	var req CreateTaxonomyNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeFieldErrors(w, factory.FieldErrors{"name": {"This field is required"}})
		return
	}
	if table != "categories" && req.ParentID == "" {
		writeFieldErrors(w, factory.FieldErrors{"parentId": {"This field is required"}})
		return
	}

	id := uuid.NewString()
	now := nowUTC()
	switch table {
	case "categories":
		err = h.Store.CreateCategory(r.Context(), catalog.Category{
			ID: id, UserID: user.ID, Name: req.Name, CreatedAt: now,
		})
	case "subcategories":
		err = h.Store.CreateSubcategory(r.Context(), catalog.Subcategory{
			ID: id, UserID: user.ID, CategoryID: req.ParentID, Name: req.Name, CreatedAt: now,
		})
	case "segments":
		err = h.Store.CreateSegment(r.Context(), catalog.Segment{
			ID: id, UserID: user.ID, SubcategoryID: req.ParentID, Name: req.Name, CreatedAt: now,
		})
	}
	if err != nil {
		if errors.Is(err, catalog.ErrTaxonomyNotFound) {
			writeError(w, http.StatusBadRequest, "Parent node not found")
			return
		}
		h.internalError(w, r, "Failed to create taxonomy node", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "id": id, "name": req.Name})
}

// RenameTaxonomyNode renames a node at any level.
func (h *Handler) RenameTaxonomyNode(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.internalError(w, r, "Failed to resolve user", err)
		return
	}

	table := taxonomyTable(chi.URLParam(r, "level"))
	if table == "" {
		writeError(w, http.StatusNotFound, "Unknown taxonomy level")
		return
	}

	var req RenameTaxonomyNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeFieldErrors(w, factory.FieldErrors{"name": {"This field is required"}})
		return
	}

	renamed, err := h.Store.RenameTaxonomyNode(r.Context(), table, user.ID, chi.URLParam(r, "id"), req.Name)
	if err != nil {
		h.internalError(w, r, "Failed to rename taxonomy node", err)
		return
	}
	if !renamed {
		writeError(w, http.StatusNotFound, "Taxonomy node not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// DeleteTaxonomyNode removes a node. Nodes still referenced by products
// or child nodes are refused.
func (h *Handler) DeleteTaxonomyNode(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.internalError(w, r, "Failed to resolve user", err)
		return
	}

	table := taxonomyTable(chi.URLParam(r, "level"))
	if table == "" {
		writeError(w, http.StatusNotFound, "Unknown taxonomy level")
		return
	}

	deleted, err := h.Store.DeleteTaxonomyNode(r.Context(), table, user.ID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, catalog.ErrTaxonomyInUse) {
			writeError(w, http.StatusConflict, "Node is still in use")
			return
		}
		h.internalError(w, r, "Failed to delete taxonomy node", err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Taxonomy node not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// =============================================================================
// PROFILE ENDPOINTS
// =============================================================================

// ListProfiles returns the user's pricing profiles with their items,
// newest first.
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.internalError(w, r, "Failed to resolve user", err)
		return
	}

	profiles, err := h.Store.ListProfiles(r.Context(), user.ID)
	if err != nil {
		h.internalError(w, r, "Failed to list profiles", err)
		return
	}

	dtos := make([]ProfileDTO, 0, len(profiles))
	for _, p := range profiles {
		dto := toProfileDTO(p)
		items, err := h.Store.ListItems(r.Context(), p.ID)
		if err != nil {
			h.internalError(w, r, "Failed to list profile items", err)
			return
		}
		dto.Items = make([]ProfileItemDTO, 0, len(items))
		for _, item := range items {
			dto.Items = append(dto.Items, toProfileItemDTO(item, nil))
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "pricingProfiles": dtos})
}

// CreateProfile creates a draft profile. The payload is field-validated,
// then the engine rejects any selection that would resolve to a negative
// price before anything is persisted.
func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.internalError(w, r, "Failed to resolve user", err)
		return
	}

	var payload factory.ProfilePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	spec, errs := h.Factory.ParseProfile(payload)
	if errs != nil {
		writeFieldErrors(w, errs)
		return
	}

	profile, err := h.Engine.CreateDraft(r.Context(), user.ID, spec)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "pricingProfile": toProfileDTO(*profile)})
}

// GetProfile returns a profile with its items and their products.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.internalError(w, r, "Failed to resolve user", err)
		return
	}

	profileID := pricing.ProfileID(chi.URLParam(r, "id"))
	profile, err := h.Store.GetProfile(r.Context(), user.ID, profileID)
	if err != nil {
		h.internalError(w, r, "Failed to get profile", err)
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "Pricing profile not found")
		return
	}

	items, err := h.Store.ListItems(r.Context(), profileID)
	if err != nil {
		h.internalError(w, r, "Failed to list profile items", err)
		return
	}

	dto := toProfileDTO(*profile)
	dto.Items = make([]ProfileItemDTO, 0, len(items))
	for _, item := range items {
		product, err := h.Store.GetProduct(r.Context(), user.ID, item.ProductID)
		if err != nil {
			h.internalError(w, r, "Failed to load item product", err)
			return
		}
		dto.Items = append(dto.Items, toProfileItemDTO(item, product))
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "pricingProfile": dto})
}

// UpdateProfile edits a draft's fields. Published profiles are immutable.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.internalError(w, r, "Failed to resolve user", err)
		return
	}

	profileID := pricing.ProfileID(chi.URLParam(r, "id"))
	profile, err := h.Store.GetProfile(r.Context(), user.ID, profileID)
	if err != nil {
		h.internalError(w, r, "Failed to get profile", err)
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "Pricing profile not found")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	fieldEdit := req.Name != nil || req.Description != nil || req.BasedOn != nil ||
		req.PriceAdjustMode != nil || req.IncrementMode != nil
	if fieldEdit && profile.Status != pricing.StatusDraft {
		writeError(w, http.StatusConflict, "Only draft profiles can be edited")
		return
	}

	fieldErrs := factory.FieldErrors{}
	if req.Status != nil {
		// Archiving is the only status change on this endpoint;
		// DRAFT -> COMPLETED goes through publish.
		if pricing.ProfileStatus(*req.Status) != pricing.StatusArchived {
			fieldErrs["status"] = append(fieldErrs["status"], "Unknown value")
		} else {
			profile.Status = pricing.StatusArchived
		}
	}
	if req.Name != nil {
		if len(strings.TrimSpace(*req.Name)) < 2 {
			fieldErrs["name"] = append(fieldErrs["name"], "Too short")
		} else {
			profile.Name = *req.Name
		}
	}
	if req.Description != nil {
		profile.Description = *req.Description
	}
	if req.BasedOn != nil {
		if *req.BasedOn == "" {
			fieldErrs["basedOn"] = append(fieldErrs["basedOn"], "This field is required")
		} else {
			profile.BasedOn = *req.BasedOn
		}
	}
	if req.PriceAdjustMode != nil {
		if !pricing.ValidPriceAdjustMode(*req.PriceAdjustMode) {
			fieldErrs["priceAdjustMode"] = append(fieldErrs["priceAdjustMode"], "Unknown value")
		} else {
			profile.PriceAdjustMode = pricing.PriceAdjustMode(*req.PriceAdjustMode)
		}
	}
	if req.IncrementMode != nil {
		if !pricing.ValidIncrementMode(*req.IncrementMode) {
			fieldErrs["incrementMode"] = append(fieldErrs["incrementMode"], "Unknown value")
		} else {
			profile.IncrementMode = pricing.IncrementMode(*req.IncrementMode)
		}
	}
	if len(fieldErrs) > 0 {
		writeFieldErrors(w, fieldErrs)
		return
	}

	profile.UpdatedAt = nowUTC()
	applied, err := h.Store.UpdateProfile(r.Context(), *profile)
	if err != nil {
		h.internalError(w, r, "Failed to update profile", err)
		return
	}
	if !applied {
		writeError(w, http.StatusNotFound, "Pricing profile not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "pricingProfile": toProfileDTO(*profile)})
}

// DeleteProfile removes a profile and its items.
func (h *Handler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.internalError(w, r, "Failed to resolve user", err)
		return
	}

	profileID := pricing.ProfileID(chi.URLParam(r, "id"))
	deleted, err := h.Store.DeleteProfile(r.Context(), user.ID, profileID)
	if err != nil {
		h.internalError(w, r, "Failed to delete profile", err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Pricing profile not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// UpsertItem adds a product selection to a draft or updates the
// adjustment of an existing selection.
func (h *Handler) UpsertItem(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.internalError(w, r, "Failed to resolve user", err)
		return
	}

	profileID := pricing.ProfileID(chi.URLParam(r, "id"))
	profile, err := h.Store.GetProfile(r.Context(), user.ID, profileID)
	if err != nil {
		h.internalError(w, r, "Failed to get profile", err)
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "Pricing profile not found")
		return
	}
	if profile.Status != pricing.StatusDraft {
		writeError(w, http.StatusConflict, "Only draft profiles can be edited")
		return
	}

	var req UpsertItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := h.Factory.CheckAdjustment(req.Adjustment); errs != nil {
		writeFieldErrors(w, errs)
		return
	}

	product, err := h.Store.GetProduct(r.Context(), user.ID, pricing.ProductID(req.ProductID))
	if err != nil {
		h.internalError(w, r, "Failed to get product", err)
		return
	}
	if product == nil {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}

	now := nowUTC()
	stored, created, err := h.Store.UpsertItem(r.Context(), pricing.ProfileItem{
		ID:         pricing.ItemID(uuid.NewString()),
		ProfileID:  profileID,
		ProductID:  product.ID,
		Adjustment: req.Adjustment,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		h.internalError(w, r, "Failed to save profile item", err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{"ok": true, "item": toProfileItemDTO(stored, product)})
}

// DeleteItem removes a product selection from a draft.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.internalError(w, r, "Failed to resolve user", err)
		return
	}

	profileID := pricing.ProfileID(chi.URLParam(r, "id"))
	profile, err := h.Store.GetProfile(r.Context(), user.ID, profileID)
	if err != nil {
		h.internalError(w, r, "Failed to get profile", err)
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "Pricing profile not found")
		return
	}
	if profile.Status != pricing.StatusDraft {
		writeError(w, http.StatusConflict, "Only draft profiles can be edited")
		return
	}

	deleted, err := h.Store.DeleteItem(r.Context(), profileID, pricing.ItemID(chi.URLParam(r, "itemId")))
	if err != nil {
		h.internalError(w, r, "Failed to delete profile item", err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Profile item not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// =============================================================================
// PREVIEW AND PUBLISH
// =============================================================================

// Preview computes prices for an ad-hoc selection without persisting
// anything. The UI calls this on every adjustment keystroke.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.internalError(w, r, "Failed to resolve user", err)
		return
	}

	var payload factory.PreviewPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	in, errs := h.Factory.ParsePreview(payload)
	if errs != nil {
		writeFieldErrors(w, errs)
		return
	}

	quotes, err := h.Engine.Preview(r.Context(), user.ID, in)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	refs, err := h.Store.GetProductRefs(r.Context(), user.ID, in.ProductIDs)
	if err != nil {
		h.internalError(w, r, "Failed to load products", err)
		return
	}
	writeJSON(w, http.StatusOK, buildPreviewResponse(quotes, refs, in.Adjustments))
}

// PreviewProfile computes prices for a stored profile's selections.
func (h *Handler) PreviewProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.internalError(w, r, "Failed to resolve user", err)
		return
	}

	profileID := pricing.ProfileID(chi.URLParam(r, "id"))
	quotes, err := h.Engine.PreviewProfile(r.Context(), user.ID, profileID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	items, err := h.Store.ListItems(r.Context(), profileID)
	if err != nil {
		h.internalError(w, r, "Failed to list profile items", err)
		return
	}
	productIDs := make([]pricing.ProductID, 0, len(items))
	adjustments := make(map[pricing.ProductID]string, len(items))
	for _, item := range items {
		productIDs = append(productIDs, item.ProductID)
		adjustments[item.ProductID] = item.Adjustment
	}
	refs, err := h.Store.GetProductRefs(r.Context(), user.ID, productIDs)
	if err != nil {
		h.internalError(w, r, "Failed to load products", err)
		return
	}
	writeJSON(w, http.StatusOK, buildPreviewResponse(quotes, refs, adjustments))
}

// PublishProfile transitions a draft to COMPLETED after re-validating
// that no selection resolves to a negative price.
func (h *Handler) PublishProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.internalError(w, r, "Failed to resolve user", err)
		return
	}

	profileID := pricing.ProfileID(chi.URLParam(r, "id"))
	profile, err := h.Engine.Publish(r.Context(), user.ID, profileID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "pricingProfile": toProfileDTO(*profile)})
}

// buildPreviewResponse joins quotes with product details, sorted by
// title for stable rendering.
func buildPreviewResponse(quotes map[pricing.ProductID]pricing.Quote, refs map[pricing.ProductID]pricing.ProductRef, adjustments map[pricing.ProductID]string) PreviewResponse {
	resp := PreviewResponse{OK: true, Rows: make([]PreviewRowDTO, 0, len(quotes))}
	for id, quote := range quotes {
		ref := refs[id]
		adjustment, ok := adjustments[id]
		if !ok {
			adjustment = "0"
		}
		negative := quote.NewPrice.IsNegative()
		if negative {
			resp.HasNegative = true
		}
		resp.Rows = append(resp.Rows, PreviewRowDTO{
			ProductID:  string(id),
			Title:      ref.Title,
			BasePrice:  ref.BasePrice,
			Adjustment: adjustment,
			Delta:      quote.Delta.String(),
			NewPrice:   quote.NewPrice.String(),
			Negative:   negative,
		})
	}
	sort.Slice(resp.Rows, func(i, j int) bool {
		if resp.Rows[i].Title != resp.Rows[j].Title {
			return resp.Rows[i].Title < resp.Rows[j].Title
		}
		return resp.Rows[i].ProductID < resp.Rows[j].ProductID
	})
	return resp
}

// =============================================================================
// ERROR MAPPING AND JSON HELPERS
// =============================================================================

// writeDomainError maps domain errors to HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var negErr *pricing.NegativePriceError
	if errors.As(err, &negErr) {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Message:   "Some products would have negative prices",
			Offending: toOffendingDTOs(negErr.Offending),
		})
		return
	}

	var draftErr *pricing.NotDraftError
	if errors.As(err, &draftErr) {
		writeError(w, http.StatusConflict, "Only draft profiles can be published")
		return
	}

	switch {
	case errors.Is(err, pricing.ErrProfileNotFound):
		writeError(w, http.StatusNotFound, "Pricing profile not found")
	case errors.Is(err, pricing.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "One or more products not found")
	case errors.Is(err, pricing.ErrStatusConflict):
		writeError(w, http.StatusConflict, "Profile was modified concurrently, try again")
	case errors.Is(err, catalog.ErrDuplicateSKU):
		writeError(w, http.StatusConflict, "A product with this SKU already exists")
	case errors.Is(err, catalog.ErrTaxonomyNotFound):
		writeError(w, http.StatusBadRequest, "Referenced taxonomy node not found")
	case errors.Is(err, catalog.ErrTaxonomyInUse):
		writeError(w, http.StatusConflict, "Node is still in use")
	default:
		h.internalError(w, r, "Internal error", err)
	}
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	h.Logger.Error().Err(err).Str("path", r.URL.Path).Msg(message)
	writeError(w, http.StatusInternalServerError, message)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Message: message})
}

func writeFieldErrors(w http.ResponseWriter, errs factory.FieldErrors) {
	writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
		Message:     "Validation failed",
		FieldErrors: errs,
	})
}
