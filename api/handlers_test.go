package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foboh/pricing-engine/api"
	"github.com/foboh/pricing-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	handler := api.NewHandler(store, zerolog.Nop())
	return api.NewRouter(handler)
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
}

// seedTaxonomyPath creates category/subcategory/segment over the API
// and returns their ids.
func seedTaxonomyPath(t *testing.T, router http.Handler) (string, string, string) {
	t.Helper()

	var cat, sub, seg struct {
		ID string `json:"id"`
	}

	rec := doRequest(t, router, http.MethodPost, "/api/catalog/categories", map[string]string{"name": "Beer"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decode(t, rec, &cat)

	rec = doRequest(t, router, http.MethodPost, "/api/catalog/subcategories", map[string]string{"name": "Ale", "parentId": cat.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decode(t, rec, &sub)

	rec = doRequest(t, router, http.MethodPost, "/api/catalog/segments", map[string]string{"name": "Pale", "parentId": sub.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decode(t, rec, &seg)

	return cat.ID, sub.ID, seg.ID
}

func seedProductAPI(t *testing.T, router http.Handler, sku, price string) string {
	t.Helper()
	catID, subID, segID := seedTaxonomyPath(t, router)

	rec := doRequest(t, router, http.MethodPost, "/api/products", map[string]string{
		"title":                "Product " + sku,
		"sku":                  sku,
		"brand":                "Brand",
		"categoryId":           catID,
		"subcategoryId":        subID,
		"segmentId":            segID,
		"globalWholesalePrice": price,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Product struct {
			ID string `json:"id"`
		} `json:"product"`
	}
	decode(t, rec, &resp)
	return resp.Product.ID
}

// =============================================================================
// PRODUCTS
// =============================================================================

func TestAPI_ProductLifecycle(t *testing.T) {
	router := newTestRouter(t)
	id := seedProductAPI(t, router, "SKU-1", "50.00")

	rec := doRequest(t, router, http.MethodGet, "/api/products/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/products", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodDelete, "/api/products/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/products/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_ProductValidation(t *testing.T) {
	router := newTestRouter(t)
	catID, subID, segID := seedTaxonomyPath(t, router)

	rec := doRequest(t, router, http.MethodPost, "/api/products", map[string]string{
		"title":                "Bad Price",
		"sku":                  "SKU-X",
		"brand":                "Brand",
		"categoryId":           catID,
		"subcategoryId":        subID,
		"segmentId":            segID,
		"globalWholesalePrice": "-5",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		OK          bool                `json:"ok"`
		FieldErrors map[string][]string `json:"fieldErrors"`
	}
	decode(t, rec, &resp)
	assert.False(t, resp.OK)
	assert.Contains(t, resp.FieldErrors, "globalWholesalePrice")
}

func TestAPI_DuplicateSKUConflict(t *testing.T) {
	router := newTestRouter(t)
	seedProductAPI(t, router, "SKU-1", "50.00")

	catID, subID, segID := seedTaxonomyPath(t, router)
	rec := doRequest(t, router, http.MethodPost, "/api/products", map[string]string{
		"title":                "Duplicate",
		"sku":                  "SKU-1",
		"brand":                "Brand",
		"categoryId":           catID,
		"subcategoryId":        subID,
		"segmentId":            segID,
		"globalWholesalePrice": "10.00",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// =============================================================================
// TAXONOMY
// =============================================================================

func TestAPI_TaxonomyTree(t *testing.T) {
	router := newTestRouter(t)
	seedTaxonomyPath(t, router)

	rec := doRequest(t, router, http.MethodGet, "/api/catalog", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		OK         bool `json:"ok"`
		Categories []struct {
			Name          string `json:"name"`
			Subcategories []struct {
				Name     string `json:"name"`
				Segments []struct {
					Name string `json:"name"`
				} `json:"segments"`
			} `json:"subcategories"`
		} `json:"categories"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Categories, 1)
	require.Len(t, resp.Categories[0].Subcategories, 1)
	require.Len(t, resp.Categories[0].Subcategories[0].Segments, 1)
	assert.Equal(t, "Pale", resp.Categories[0].Subcategories[0].Segments[0].Name)
}

func TestAPI_TaxonomyDeleteInUse(t *testing.T) {
	router := newTestRouter(t)
	catID, _, _ := seedTaxonomyPath(t, router)

	rec := doRequest(t, router, http.MethodDelete, "/api/catalog/categories/"+catID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// =============================================================================
// PROFILES
// =============================================================================

func profileBody(name, basedOn, mode, inc string, items []map[string]string) map[string]any {
	return map[string]any{
		"name":            name,
		"description":     "test profile",
		"basedOn":         basedOn,
		"priceAdjustMode": mode,
		"incrementMode":   inc,
		"items":           items,
	}
}

func TestAPI_ProfileCreatePreviewPublish(t *testing.T) {
	router := newTestRouter(t)
	productID := seedProductAPI(t, router, "SKU-1", "50.00")

	// Create draft: fixed +5.00
	rec := doRequest(t, router, http.MethodPost, "/api/pricing-profiles",
		profileBody("Summer Uplift", "globalWholesalePrice", "FIXED", "INCREASE",
			[]map[string]string{{"productId": productID, "adjustment": "5.00"}}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		PricingProfile struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"pricingProfile"`
	}
	decode(t, rec, &created)
	assert.Equal(t, "DRAFT", created.PricingProfile.Status)
	profileID := created.PricingProfile.ID

	// Preview the stored draft
	rec = doRequest(t, router, http.MethodGet, fmt.Sprintf("/api/pricing-profiles/%s/preview", profileID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var preview struct {
		OK          bool `json:"ok"`
		HasNegative bool `json:"hasNegative"`
		Rows        []struct {
			NewPrice string `json:"newPrice"`
		} `json:"rows"`
	}
	decode(t, rec, &preview)
	require.Len(t, preview.Rows, 1)
	assert.Equal(t, "55", preview.Rows[0].NewPrice)
	assert.False(t, preview.HasNegative)

	// Publish
	rec = doRequest(t, router, http.MethodPost, fmt.Sprintf("/api/pricing-profiles/%s/publish", profileID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var published struct {
		PricingProfile struct {
			Status string `json:"status"`
		} `json:"pricingProfile"`
	}
	decode(t, rec, &published)
	assert.Equal(t, "COMPLETED", published.PricingProfile.Status)

	// Publishing twice conflicts
	rec = doRequest(t, router, http.MethodPost, fmt.Sprintf("/api/pricing-profiles/%s/publish", profileID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Editing after publish conflicts
	rec = doRequest(t, router, http.MethodPatch, "/api/pricing-profiles/"+profileID,
		map[string]string{"name": "Renamed"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_ProfileNegativePriceRejected(t *testing.T) {
	router := newTestRouter(t)
	productID := seedProductAPI(t, router, "SKU-1", "4.25")

	rec := doRequest(t, router, http.MethodPost, "/api/pricing-profiles",
		profileBody("Blowout", "globalWholesalePrice", "FIXED", "DECREASE",
			[]map[string]string{{"productId": productID, "adjustment": "10.00"}}))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		OK        bool `json:"ok"`
		Offending []struct {
			ProductID string `json:"productId"`
			NewPrice  string `json:"newPrice"`
		} `json:"offendingProducts"`
	}
	decode(t, rec, &resp)
	assert.False(t, resp.OK)
	require.Len(t, resp.Offending, 1)
	assert.Equal(t, productID, resp.Offending[0].ProductID)

	// Nothing was persisted
	rec = doRequest(t, router, http.MethodGet, "/api/pricing-profiles", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		PricingProfiles []any `json:"pricingProfiles"`
	}
	decode(t, rec, &list)
	assert.Empty(t, list.PricingProfiles)
}

func TestAPI_ItemUpsertAndDelete(t *testing.T) {
	router := newTestRouter(t)
	productID := seedProductAPI(t, router, "SKU-1", "50.00")

	rec := doRequest(t, router, http.MethodPost, "/api/pricing-profiles",
		profileBody("Draft", "globalWholesalePrice", "FIXED", "INCREASE", nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		PricingProfile struct {
			ID string `json:"id"`
		} `json:"pricingProfile"`
	}
	decode(t, rec, &created)
	profileID := created.PricingProfile.ID

	// First upsert creates
	rec = doRequest(t, router, http.MethodPost, fmt.Sprintf("/api/pricing-profiles/%s/items", profileID),
		map[string]string{"productId": productID, "adjustment": "5.00"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var item struct {
		Item struct {
			ID         string `json:"id"`
			Adjustment string `json:"adjustment"`
		} `json:"item"`
	}
	decode(t, rec, &item)
	assert.Equal(t, "5.00", item.Item.Adjustment)

	// Second upsert for the same product updates
	rec = doRequest(t, router, http.MethodPost, fmt.Sprintf("/api/pricing-profiles/%s/items", profileID),
		map[string]string{"productId": productID, "adjustment": "7.50"})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated struct {
		Item struct {
			ID         string `json:"id"`
			Adjustment string `json:"adjustment"`
		} `json:"item"`
	}
	decode(t, rec, &updated)
	assert.Equal(t, "7.50", updated.Item.Adjustment)
	assert.Equal(t, item.Item.ID, updated.Item.ID)

	// Bad adjustment rejected
	rec = doRequest(t, router, http.MethodPost, fmt.Sprintf("/api/pricing-profiles/%s/items", profileID),
		map[string]string{"productId": productID, "adjustment": "-1"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Delete the item
	rec = doRequest(t, router, http.MethodDelete,
		fmt.Sprintf("/api/pricing-profiles/%s/items/%s", profileID, item.Item.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// =============================================================================
// AD-HOC PREVIEW
// =============================================================================

func TestAPI_AdHocPreview(t *testing.T) {
	router := newTestRouter(t)
	productID := seedProductAPI(t, router, "SKU-1", "100.00")

	rec := doRequest(t, router, http.MethodPost, "/api/pricing-profiles/preview", map[string]any{
		"basedOn":         "globalWholesalePrice",
		"priceAdjustMode": "DYNAMIC",
		"incrementMode":   "DECREASE",
		"productIds":      []string{productID},
		"adjustments":     map[string]string{productID: "10"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var preview struct {
		Rows []struct {
			BasePrice string `json:"basePrice"`
			NewPrice  string `json:"newPrice"`
			Negative  bool   `json:"negative"`
		} `json:"rows"`
	}
	decode(t, rec, &preview)
	require.Len(t, preview.Rows, 1)
	assert.Equal(t, "100.00", preview.Rows[0].BasePrice)
	assert.Equal(t, "90", preview.Rows[0].NewPrice)
	assert.False(t, preview.Rows[0].Negative)
}

// =============================================================================
// SCENARIOS AND IDENTITY
// =============================================================================

func TestAPI_ScenarioLoad(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/scenarios/load",
		map[string]string{"scenarioId": "chained-profiles"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, router, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var products struct {
		Products []any `json:"products"`
	}
	decode(t, rec, &products)
	assert.NotEmpty(t, products.Products)

	rec = doRequest(t, router, http.MethodGet, "/api/pricing-profiles", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profiles struct {
		PricingProfiles []any `json:"pricingProfiles"`
	}
	decode(t, rec, &profiles)
	assert.Len(t, profiles.PricingProfiles, 2)

	rec = doRequest(t, router, http.MethodGet, "/api/scenarios/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var current struct {
		Scenario struct {
			ID string `json:"id"`
		} `json:"scenario"`
	}
	decode(t, rec, &current)
	assert.Equal(t, "chained-profiles", current.Scenario.ID)
}

func TestAPI_UsersAreIsolated(t *testing.T) {
	router := newTestRouter(t)
	seedProductAPI(t, router, "SKU-1", "50.00")

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set("X-User-Email", "someone-else@foboh.local")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Products []any `json:"products"`
	}
	decode(t, rec, &resp)
	assert.Empty(t, resp.Products, "another user must not see the demo user's products")
}
