/*
engine.go - Draft creation, preview and the publish lifecycle

PURPOSE:
  The Engine is the entry point the application layer calls. It wires the
  chain loader and resolver to storage and enforces the profile lifecycle:

    CreateDraft:  validate (field-level is the caller's job, negative
                  prices ours) then persist profile + selections atomically
    Preview:      per-product {base, delta, newPrice} for a stored or
                  ad-hoc profile definition
    Publish:      re-resolve, re-validate, then flip DRAFT -> COMPLETED
                  with a conditional write

STATELESSNESS:
  Every call independently walks the chain from a fresh read. The Engine
  holds no caches; results are always derived from current stored state.

SEE ALSO:
  - chain.go, resolve.go, validate.go: The computation being orchestrated
  - store.go: The storage surface consumed here
*/
package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Engine resolves prices and drives the profile lifecycle.
type Engine struct {
	store Store
	newID func() string
	now   func() time.Time
}

// NewEngine creates an engine over the given store.
func NewEngine(store Store) *Engine {
	return &Engine{
		store: store,
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// =============================================================================
// PREVIEW
// =============================================================================

// PreviewInput describes a profile to resolve: either a stored profile's
// fields + selections, or an ad-hoc definition that was never persisted.
type PreviewInput struct {
	BasedOn         string
	PriceAdjustMode PriceAdjustMode
	IncrementMode   IncrementMode
	ProductIDs      []ProductID

	// Adjustments holds the profile's own adjustment per product. Products
	// listed in ProductIDs but absent here default to "0": a preview always
	// shows a number, unlike ancestor fallback which skips adjustment
	// entirely for unselected products.
	Adjustments map[ProductID]string
}

// Preview resolves every requested product and returns its quote.
// Products unknown to the catalog (for this user) are absent from the
// result.
func (e *Engine) Preview(ctx context.Context, userID UserID, in PreviewInput) (map[ProductID]Quote, error) {
	quotes, _, err := e.preview(ctx, userID, in)
	return quotes, err
}

func (e *Engine) preview(ctx context.Context, userID UserID, in PreviewInput) (map[ProductID]Quote, map[ProductID]ProductRef, error) {
	refs, err := e.store.GetProductRefs(ctx, userID, in.ProductIDs)
	if err != nil {
		return nil, nil, err
	}

	chain, err := LoadChain(ctx, e.store, userID, in.BasedOn, in.ProductIDs)
	if err != nil {
		return nil, nil, err
	}

	quotes := make(map[ProductID]Quote, len(refs))
	for _, productID := range in.ProductIDs {
		ref, ok := refs[productID]
		if !ok {
			continue
		}

		rawBase := CoerceMoney(ref.BasePrice)
		base := ResolveBasedOnPrice(in.BasedOn, productID, rawBase, chain, 0, nil)

		adjustment := decimal.Zero
		if raw, ok := in.Adjustments[productID]; ok {
			adjustment = CoerceMoney(raw)
		}

		delta, newPrice := ApplyAdjustment(base, adjustment, in.PriceAdjustMode, in.IncrementMode)
		quotes[productID] = Quote{Base: base, Delta: delta, NewPrice: newPrice}
	}

	return quotes, refs, nil
}

// PreviewProfile resolves a stored profile's current selections.
func (e *Engine) PreviewProfile(ctx context.Context, userID UserID, profileID ProfileID) (map[ProductID]Quote, error) {
	in, _, err := e.storedInput(ctx, userID, profileID)
	if err != nil {
		return nil, err
	}
	return e.Preview(ctx, userID, in)
}

// storedInput builds a PreviewInput from a stored profile and its items.
func (e *Engine) storedInput(ctx context.Context, userID UserID, profileID ProfileID) (PreviewInput, *Profile, error) {
	profile, err := e.store.GetProfile(ctx, userID, profileID)
	if err != nil {
		return PreviewInput{}, nil, err
	}
	if profile == nil {
		return PreviewInput{}, nil, ErrProfileNotFound
	}

	items, err := e.store.ListItems(ctx, profileID)
	if err != nil {
		return PreviewInput{}, nil, err
	}

	in := PreviewInput{
		BasedOn:         profile.BasedOn,
		PriceAdjustMode: profile.PriceAdjustMode,
		IncrementMode:   profile.IncrementMode,
		ProductIDs:      make([]ProductID, 0, len(items)),
		Adjustments:     make(map[ProductID]string, len(items)),
	}
	for _, item := range items {
		in.ProductIDs = append(in.ProductIDs, item.ProductID)
		in.Adjustments[item.ProductID] = item.Adjustment
	}
	return in, profile, nil
}

// =============================================================================
// DRAFT CREATION
// =============================================================================

// DraftSpec is a validated request to create a draft profile. Field-level
// validation (names, enum values, money-string format) happens before this
// point; the engine enforces referential and business rules.
type DraftSpec struct {
	Name            string
	Description     string
	BasedOn         string
	PriceAdjustMode PriceAdjustMode
	IncrementMode   IncrementMode

	// Adjustments maps each initially selected product to its adjustment
	// magnitude (numeric string).
	Adjustments map[ProductID]string
}

// CreateDraft validates the would-be profile and persists it atomically.
// Returns ErrProductNotFound if any selected product doesn't exist for
// this user, or a NegativePriceError if any resolved price is negative.
// Nothing is persisted on failure.
func (e *Engine) CreateDraft(ctx context.Context, userID UserID, spec DraftSpec) (*Profile, error) {
	productIDs := make([]ProductID, 0, len(spec.Adjustments))
	for productID := range spec.Adjustments {
		productIDs = append(productIDs, productID)
	}

	refs, err := e.store.GetProductRefs(ctx, userID, productIDs)
	if err != nil {
		return nil, err
	}
	for _, productID := range productIDs {
		if _, ok := refs[productID]; !ok {
			return nil, ErrProductNotFound
		}
	}

	in := PreviewInput{
		BasedOn:         spec.BasedOn,
		PriceAdjustMode: spec.PriceAdjustMode,
		IncrementMode:   spec.IncrementMode,
		ProductIDs:      productIDs,
		Adjustments:     spec.Adjustments,
	}
	result, err := e.ValidateNoNegatives(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, &NegativePriceError{Offending: result.Offending}
	}

	now := e.now()
	profile := Profile{
		ID:              ProfileID(e.newID()),
		UserID:          userID,
		Name:            spec.Name,
		Description:     spec.Description,
		BasedOn:         spec.BasedOn,
		PriceAdjustMode: spec.PriceAdjustMode,
		IncrementMode:   spec.IncrementMode,
		Status:          StatusDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	items := make([]ProfileItem, 0, len(spec.Adjustments))
	for _, productID := range productIDs {
		items = append(items, ProfileItem{
			ID:         ItemID(e.newID()),
			ProfileID:  profile.ID,
			ProductID:  productID,
			Adjustment: spec.Adjustments[productID],
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	if err := e.store.CreateProfile(ctx, profile, items); err != nil {
		return nil, err
	}
	return &profile, nil
}

// =============================================================================
// PUBLISH
// =============================================================================

// Publish re-validates a draft profile against current stored state and
// flips DRAFT -> COMPLETED with a conditional write. The returned profile
// reflects the new status.
//
// Failure modes, all per-request and recoverable:
//   - ErrProfileNotFound: no such profile for this user
//   - NotDraftError:      status is not DRAFT (publishing twice lands here)
//   - NegativePriceError: stored state now resolves to a negative price
//   - ErrStatusConflict:  status changed between check and write
func (e *Engine) Publish(ctx context.Context, userID UserID, profileID ProfileID) (*Profile, error) {
	in, profile, err := e.storedInput(ctx, userID, profileID)
	if err != nil {
		return nil, err
	}
	if profile.Status != StatusDraft {
		return nil, &NotDraftError{ProfileID: profileID, Status: profile.Status}
	}

	result, err := e.ValidateNoNegatives(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, &NegativePriceError{Offending: result.Offending}
	}

	applied, err := e.store.SetProfileStatus(ctx, userID, profileID, StatusDraft, StatusCompleted)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrStatusConflict
	}

	profile.Status = StatusCompleted
	return profile, nil
}
