package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foboh/pricing-engine/catalog"
	"github.com/foboh/pricing-engine/pricing"
	"github.com/foboh/pricing-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) (*sqlite.Store, pricing.UserID) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	user, err := store.UpsertUser(context.Background(), uuid.NewString(), "test@foboh.local", "Test")
	require.NoError(t, err)
	return store, user.ID
}

// seedTaxonomy creates one category/subcategory/segment path and
// returns their ids.
func seedTaxonomy(t *testing.T, store *sqlite.Store, userID pricing.UserID) (string, string, string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	catID, subID, segID := uuid.NewString(), uuid.NewString(), uuid.NewString()
	require.NoError(t, store.CreateCategory(ctx, catalog.Category{
		ID: catID, UserID: userID, Name: "Beer", CreatedAt: now,
	}))
	require.NoError(t, store.CreateSubcategory(ctx, catalog.Subcategory{
		ID: subID, UserID: userID, CategoryID: catID, Name: "Ale", CreatedAt: now,
	}))
	require.NoError(t, store.CreateSegment(ctx, catalog.Segment{
		ID: segID, UserID: userID, SubcategoryID: subID, Name: "Pale", CreatedAt: now,
	}))
	return catID, subID, segID
}

func seedProduct(t *testing.T, store *sqlite.Store, userID pricing.UserID, sku, price string) catalog.Product {
	t.Helper()
	catID, subID, segID := seedTaxonomy(t, store, userID)
	now := time.Now().UTC()

	p := catalog.Product{
		ID:                   pricing.ProductID(uuid.NewString()),
		UserID:               userID,
		Title:                "Product " + sku,
		SKU:                  sku,
		Brand:                "Brand",
		CategoryID:           catID,
		SubcategoryID:        subID,
		SegmentID:            segID,
		GlobalWholesalePrice: price,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	require.NoError(t, store.CreateProduct(context.Background(), p))
	return p
}

func draftProfile(userID pricing.UserID) pricing.Profile {
	now := time.Now().UTC()
	return pricing.Profile{
		ID:              pricing.ProfileID(uuid.NewString()),
		UserID:          userID,
		Name:            "Test Profile",
		Description:     "desc",
		BasedOn:         pricing.BasedOnGlobalWholesalePrice,
		PriceAdjustMode: pricing.AdjustFixed,
		IncrementMode:   pricing.IncrementIncrease,
		Status:          pricing.StatusDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func item(profileID pricing.ProfileID, productID pricing.ProductID, adjustment string) pricing.ProfileItem {
	now := time.Now().UTC()
	return pricing.ProfileItem{
		ID:         pricing.ItemID(uuid.NewString()),
		ProfileID:  profileID,
		ProductID:  productID,
		Adjustment: adjustment,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// =============================================================================
// USERS
// =============================================================================

func TestUpsertUser_SameEmailSameAccount(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first, err := store.UpsertUser(ctx, uuid.NewString(), "demo@foboh.local", "Demo")
	require.NoError(t, err)
	second, err := store.UpsertUser(ctx, uuid.NewString(), "demo@foboh.local", "Demo Again")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "same email must resolve to the same account")
}

// =============================================================================
// TAXONOMY
// =============================================================================

func TestTaxonomy_CreateListRenameDelete(t *testing.T) {
	store, userID := newTestStore(t)
	ctx := context.Background()
	catID, subID, segID := seedTaxonomy(t, store, userID)

	cats, subs, segs, err := store.ListTaxonomy(ctx, userID)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	require.Len(t, subs, 1)
	require.Len(t, segs, 1)

	renamed, err := store.RenameTaxonomyNode(ctx, "categories", userID, catID, "Craft Beer")
	require.NoError(t, err)
	assert.True(t, renamed)

	// Delete bottom-up: segment, subcategory, category
	for _, step := range []struct{ table, id string }{
		{"segments", segID},
		{"subcategories", subID},
		{"categories", catID},
	} {
		deleted, err := store.DeleteTaxonomyNode(ctx, step.table, userID, step.id)
		require.NoError(t, err)
		assert.True(t, deleted, "delete %s", step.table)
	}
}

func TestTaxonomy_DeleteCategoryWithChildrenBlocked(t *testing.T) {
	store, userID := newTestStore(t)
	catID, _, _ := seedTaxonomy(t, store, userID)

	_, err := store.DeleteTaxonomyNode(context.Background(), "categories", userID, catID)
	assert.ErrorIs(t, err, catalog.ErrTaxonomyInUse)
}

func TestTaxonomy_DeleteSegmentUsedByProductBlocked(t *testing.T) {
	store, userID := newTestStore(t)
	p := seedProduct(t, store, userID, "SKU-1", "10.00")

	_, err := store.DeleteTaxonomyNode(context.Background(), "segments", userID, p.SegmentID)
	assert.ErrorIs(t, err, catalog.ErrTaxonomyInUse)
}

func TestTaxonomy_CreateWithMissingParent(t *testing.T) {
	store, userID := newTestStore(t)

	err := store.CreateSubcategory(context.Background(), catalog.Subcategory{
		ID: uuid.NewString(), UserID: userID, CategoryID: "ghost", Name: "Orphan", CreatedAt: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, catalog.ErrTaxonomyNotFound)
}

// =============================================================================
// PRODUCTS
// =============================================================================

func TestProduct_CRUD(t *testing.T) {
	store, userID := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, store, userID, "SKU-1", "50.00")

	got, err := store.GetProduct(ctx, userID, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "50.00", got.GlobalWholesalePrice)

	got.Title = "Renamed"
	got.GlobalWholesalePrice = "55.00"
	updated, err := store.UpdateProduct(ctx, *got)
	require.NoError(t, err)
	assert.True(t, updated)

	list, err := store.ListProducts(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Renamed", list[0].Title)

	deleted, err := store.DeleteProduct(ctx, userID, p.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	gone, err := store.GetProduct(ctx, userID, p.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestProduct_DuplicateSKURejected(t *testing.T) {
	store, userID := newTestStore(t)
	p := seedProduct(t, store, userID, "SKU-1", "50.00")

	dup := p
	dup.ID = pricing.ProductID(uuid.NewString())
	err := store.CreateProduct(context.Background(), dup)
	assert.ErrorIs(t, err, catalog.ErrDuplicateSKU)
}

func TestProduct_GetRefsSubset(t *testing.T) {
	store, userID := newTestStore(t)
	p1 := seedProduct(t, store, userID, "SKU-1", "50.00")
	p2 := seedProduct(t, store, userID, "SKU-2", "38.50")

	refs, err := store.GetProductRefs(context.Background(), userID, []pricing.ProductID{p1.ID, p2.ID, "ghost"})
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "50.00", refs[p1.ID].BasePrice)
	assert.Equal(t, "38.50", refs[p2.ID].BasePrice)
}

func TestProduct_CrossUserInvisible(t *testing.T) {
	store, userID := newTestStore(t)
	p := seedProduct(t, store, userID, "SKU-1", "50.00")

	other, err := store.UpsertUser(context.Background(), uuid.NewString(), "other@foboh.local", "Other")
	require.NoError(t, err)

	got, err := store.GetProduct(context.Background(), other.ID, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

// =============================================================================
// PROFILES
// =============================================================================

func TestProfile_CreateWithItems(t *testing.T) {
	store, userID := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, store, userID, "SKU-1", "50.00")

	profile := draftProfile(userID)
	require.NoError(t, store.CreateProfile(ctx, profile, []pricing.ProfileItem{
		item(profile.ID, p.ID, "5.00"),
	}))

	got, err := store.GetProfile(ctx, userID, profile.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, pricing.StatusDraft, got.Status)

	items, err := store.ListItems(ctx, profile.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "5.00", items[0].Adjustment)
}

func TestProfile_SetStatusConditional(t *testing.T) {
	store, userID := newTestStore(t)
	ctx := context.Background()
	profile := draftProfile(userID)
	require.NoError(t, store.CreateProfile(ctx, profile, nil))

	applied, err := store.SetProfileStatus(ctx, userID, profile.ID, pricing.StatusDraft, pricing.StatusCompleted)
	require.NoError(t, err)
	assert.True(t, applied)

	// Second flip from DRAFT fails: status is COMPLETED now.
	applied, err = store.SetProfileStatus(ctx, userID, profile.ID, pricing.StatusDraft, pricing.StatusCompleted)
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestProfile_DeleteCascadesItems(t *testing.T) {
	store, userID := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, store, userID, "SKU-1", "50.00")

	profile := draftProfile(userID)
	require.NoError(t, store.CreateProfile(ctx, profile, []pricing.ProfileItem{
		item(profile.ID, p.ID, "5.00"),
	}))

	deleted, err := store.DeleteProfile(ctx, userID, profile.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	items, err := store.ListItems(ctx, profile.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestProfile_DeletingProductRemovesItems(t *testing.T) {
	store, userID := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, store, userID, "SKU-1", "50.00")

	profile := draftProfile(userID)
	require.NoError(t, store.CreateProfile(ctx, profile, []pricing.ProfileItem{
		item(profile.ID, p.ID, "5.00"),
	}))

	_, err := store.DeleteProduct(ctx, userID, p.ID)
	require.NoError(t, err)

	items, err := store.ListItems(ctx, profile.ID)
	require.NoError(t, err)
	assert.Empty(t, items, "items should cascade with the product")
}

// =============================================================================
// PROFILE ITEMS
// =============================================================================

func TestUpsertItem_CreateThenUpdate(t *testing.T) {
	store, userID := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, store, userID, "SKU-1", "50.00")

	profile := draftProfile(userID)
	require.NoError(t, store.CreateProfile(ctx, profile, nil))

	first, created, err := store.UpsertItem(ctx, item(profile.ID, p.ID, "5.00"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "5.00", first.Adjustment)

	second, created, err := store.UpsertItem(ctx, item(profile.ID, p.ID, "7.50"))
	require.NoError(t, err)
	assert.False(t, created, "same product should update in place")
	assert.Equal(t, "7.50", second.Adjustment)
	assert.Equal(t, first.ID, second.ID, "the row identity must survive the update")

	items, err := store.ListItems(ctx, profile.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestGetItemAdjustments_Subset(t *testing.T) {
	store, userID := newTestStore(t)
	ctx := context.Background()
	p1 := seedProduct(t, store, userID, "SKU-1", "50.00")
	p2 := seedProduct(t, store, userID, "SKU-2", "38.50")

	profile := draftProfile(userID)
	require.NoError(t, store.CreateProfile(ctx, profile, []pricing.ProfileItem{
		item(profile.ID, p1.ID, "5.00"),
		item(profile.ID, p2.ID, "3.00"),
	}))

	adjustments, err := store.GetItemAdjustments(ctx, profile.ID, []pricing.ProductID{p1.ID})
	require.NoError(t, err)
	require.Len(t, adjustments, 1)
	assert.Equal(t, "5.00", adjustments[p1.ID])
}

func TestDeleteItem(t *testing.T) {
	store, userID := newTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, store, userID, "SKU-1", "50.00")

	profile := draftProfile(userID)
	it := item(profile.ID, p.ID, "5.00")
	require.NoError(t, store.CreateProfile(ctx, profile, []pricing.ProfileItem{it}))

	deleted, err := store.DeleteItem(ctx, profile.ID, it.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.DeleteItem(ctx, profile.ID, it.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

// =============================================================================
// RESET
// =============================================================================

func TestReset_WipesEverything(t *testing.T) {
	store, userID := newTestStore(t)
	ctx := context.Background()
	seedProduct(t, store, userID, "SKU-1", "50.00")

	require.NoError(t, store.Reset(ctx))

	products, err := store.ListProducts(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, products)
}
