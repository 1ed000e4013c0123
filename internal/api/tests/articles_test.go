package api_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xcastelo/saf-server/internal/api/testutils"
	"github.com/xcastelo/saf-server/internal/models"
)

func TestCreateArticleType(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	// Test case 1: Successful creation
	article := testutils.CreateArticle(t, testCtx, "Wheelchair", 5)
	assert.NotEmpty(t, article.ID)
	assert.Equal(t, 5, article.TotalStock)
	assert.Equal(t, 0, article.ReservedStock)
	assert.Equal(t, 5, article.AvailableStock)

	// Test case 2: Duplicate name is rejected
	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/items",
		models.CreateArticleTypeRequest{
			Name:     "Wheelchair",
			Category: "mobility",
			Icon:     "🦽",
		}, testutils.AuthHeaders(testCtx.Token))
	assert.Equal(t, http.StatusConflict, w.Code)

	// Test case 3: Missing required fields
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/items",
		map[string]string{"name": "No Category"}, testutils.AuthHeaders(testCtx.Token))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Test case 4: Negative initial stock
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/items",
		map[string]interface{}{
			"name":         "Negative",
			"category":     "mobility",
			"icon":         "🦽",
			"initialStock": -1,
		}, testutils.AuthHeaders(testCtx.Token))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListArticleTypesSearch(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	testutils.CreateArticle(t, testCtx, "Wheelchair", 2)
	testutils.CreateArticle(t, testCtx, "Shower Chair", 3)
	testutils.CreateArticle(t, testCtx, "Walking Frame", 1)

	w := testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/items?q=chair", nil,
		testutils.AuthHeaders(testCtx.Token))
	require.Equal(t, http.StatusOK, w.Code)

	var articles []models.ArticleType
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &articles))
	assert.Len(t, articles, 2)
	for _, a := range articles {
		assert.Contains(t, []string{"Wheelchair", "Shower Chair"}, a.Name)
	}
}

func TestAdjustTotalStock(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	article := testutils.CreateArticle(t, testCtx, "Commode", 3)

	// Test case 1: Raise the total
	newTotal := 10
	w := testutils.PerformRequest(testCtx.Router, http.MethodPut, "/api/items/"+article.ID+"/stock",
		models.AdjustStockRequest{NewTotalStock: &newTotal}, testutils.AuthHeaders(testCtx.Token))
	require.Equal(t, http.StatusOK, w.Code)

	var updated models.ArticleType
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, 10, updated.TotalStock)
	assert.Equal(t, 10, updated.AvailableStock)

	// Test case 2: Lower the total to zero while nothing is reserved
	newTotal = 0
	w = testutils.PerformRequest(testCtx.Router, http.MethodPut, "/api/items/"+article.ID+"/stock",
		models.AdjustStockRequest{NewTotalStock: &newTotal}, testutils.AuthHeaders(testCtx.Token))
	assert.Equal(t, http.StatusOK, w.Code)

	// Test case 3: Negative total is rejected
	newTotal = -1
	w = testutils.PerformRequest(testCtx.Router, http.MethodPut, "/api/items/"+article.ID+"/stock",
		models.AdjustStockRequest{NewTotalStock: &newTotal}, testutils.AuthHeaders(testCtx.Token))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Test case 4: Unknown article
	newTotal = 5
	w = testutils.PerformRequest(testCtx.Router, http.MethodPut, "/api/items/no-such-id/stock",
		models.AdjustStockRequest{NewTotalStock: &newTotal}, testutils.AuthHeaders(testCtx.Token))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdjustTotalStockBelowReserved(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	article := testutils.CreateArticle(t, testCtx, "Hospital Bed", 5)
	person := testutils.CreatePerson(t, testCtx, "P-100", "Alma Jensen")
	testutils.CreateLoan(t, testCtx, person.ID,
		[]models.LoanItemRequest{{ArticleTypeID: article.ID, Quantity: 3}},
		"2026-08-01", "2026-12-01")

	// Lowering below the reserved quantity must fail and change nothing.
	newTotal := 2
	w := testutils.PerformRequest(testCtx.Router, http.MethodPut, "/api/items/"+article.ID+"/stock",
		models.AdjustStockRequest{NewTotalStock: &newTotal}, testutils.AuthHeaders(testCtx.Token))
	assert.Equal(t, http.StatusConflict, w.Code)

	after := testutils.GetArticle(t, testCtx, article.ID)
	assert.Equal(t, 5, after.TotalStock)
	assert.Equal(t, 3, after.ReservedStock)
	assert.Equal(t, 2, after.AvailableStock)

	// Lowering to exactly the reserved quantity is allowed.
	newTotal = 3
	w = testutils.PerformRequest(testCtx.Router, http.MethodPut, "/api/items/"+article.ID+"/stock",
		models.AdjustStockRequest{NewTotalStock: &newTotal}, testutils.AuthHeaders(testCtx.Token))
	assert.Equal(t, http.StatusOK, w.Code)

	after = testutils.GetArticle(t, testCtx, article.ID)
	assert.Equal(t, 0, after.AvailableStock)
}

func TestDeleteArticleType(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	// Test case 1: Delete an unused article at zero stock
	article := testutils.CreateArticle(t, testCtx, "Crutches", 0)
	w := testutils.PerformRequest(testCtx.Router, http.MethodDelete, "/api/items/"+article.ID, nil,
		testutils.AuthHeaders(testCtx.Token))
	assert.Equal(t, http.StatusOK, w.Code)

	// Test case 2: An article holding stock cannot be deleted
	stocked := testutils.CreateArticle(t, testCtx, "Crutches Pair", 4)
	w = testutils.PerformRequest(testCtx.Router, http.MethodDelete, "/api/items/"+stocked.ID, nil,
		testutils.AuthHeaders(testCtx.Token))
	assert.Equal(t, http.StatusConflict, w.Code)

	// Test case 3: Delete an article referenced by a loan
	used := testutils.CreateArticle(t, testCtx, "Rollator", 2)
	person := testutils.CreatePerson(t, testCtx, "P-200", "Niels Berg")
	testutils.CreateLoan(t, testCtx, person.ID,
		[]models.LoanItemRequest{{ArticleTypeID: used.ID, Quantity: 1}},
		"2026-08-01", "2026-09-01")

	w = testutils.PerformRequest(testCtx.Router, http.MethodDelete, "/api/items/"+used.ID, nil,
		testutils.AuthHeaders(testCtx.Token))
	assert.Equal(t, http.StatusConflict, w.Code)

	// Test case 4: Delete a non-existent article
	w = testutils.PerformRequest(testCtx.Router, http.MethodDelete, "/api/items/no-such-id", nil,
		testutils.AuthHeaders(testCtx.Token))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDefaultCatalog(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	// Test case 1: The catalog itself is served without touching the inventory
	w := testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/catalog", nil,
		testutils.AuthHeaders(testCtx.Token))
	require.Equal(t, http.StatusOK, w.Code)

	var catalog []models.CatalogEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &catalog))
	assert.NotEmpty(t, catalog)

	// Test case 2: Applying the catalog creates every entry with zero stock
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/catalog", nil,
		testutils.AuthHeaders(testCtx.Token))
	require.Equal(t, http.StatusCreated, w.Code)

	var added []models.ArticleType
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &added))
	assert.Len(t, added, len(catalog))
	for _, a := range added {
		assert.Equal(t, 0, a.TotalStock)
	}

	// Test case 3: Applying again skips existing names instead of failing
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/catalog", nil,
		testutils.AuthHeaders(testCtx.Token))
	require.Equal(t, http.StatusCreated, w.Code)

	added = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &added))
	assert.Empty(t, added)
}
