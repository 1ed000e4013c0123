package testutils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xcastelo/saf-server/internal/api"
	"github.com/xcastelo/saf-server/internal/config"
	"github.com/xcastelo/saf-server/internal/models"
	"github.com/xcastelo/saf-server/internal/repository"
	"github.com/xcastelo/saf-server/internal/service"
	"github.com/xcastelo/saf-server/internal/utils"
)

const (
	TestPassword  = "test-admin-password"
	testJWTSecret = "test-secret-key"
)

// TestContext holds all dependencies for tests
type TestContext struct {
	Router     *gin.Engine
	Repository repository.Repository
	Service    service.Service
	Config     *config.Config
	Token      string
}

// SetupTestContext boots the full stack against a throwaway SQLite database
// under t.TempDir() and logs in, so tests exercise the real HTTP surface.
func SetupTestContext(t *testing.T) *TestContext {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Database.Path = filepath.Join(dir, "ledger.db")
	cfg.Backup.Dir = filepath.Join(dir, "backups")
	cfg.Auth.JWTSecret = testJWTSecret
	cfg.Auth.AdminPassword = TestPassword

	db, err := config.SetupDatabase(cfg)
	require.NoError(t, err, "Failed to set up test database")

	repo := repository.NewSQLiteRepository(db, cfg.Database.Path)
	t.Cleanup(func() { repo.Close() })

	svc, err := service.NewDefaultService(repo, cfg, utils.NewLogger())
	require.NoError(t, err, "Failed to set up service")

	handler := api.NewHandler(svc, utils.NewLogger(), []byte(cfg.Auth.JWTSecret))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler.SetupRoutes(router)

	testCtx := &TestContext{
		Router:     router,
		Repository: repo,
		Service:    svc,
		Config:     cfg,
	}
	testCtx.Token = login(t, router)
	return testCtx
}

func login(t *testing.T, router *gin.Engine) string {
	t.Helper()

	w := PerformRequest(router, http.MethodPost, "/api/auth/login",
		models.LoginRequest{Password: TestPassword}, nil)
	require.Equal(t, http.StatusOK, w.Code, "login failed: %s", w.Body.String())

	var resp models.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// AuthHeaders returns headers with Authorization token
func AuthHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
}

// CreateArticle registers an article type through the API and returns it.
func CreateArticle(t *testing.T, ctx *TestContext, name string, initialStock int) models.ArticleType {
	t.Helper()

	w := PerformRequest(ctx.Router, http.MethodPost, "/api/items",
		models.CreateArticleTypeRequest{
			Name:         name,
			Category:     "mobility",
			Icon:         "🦽",
			InitialStock: initialStock,
		}, AuthHeaders(ctx.Token))
	require.Equal(t, http.StatusCreated, w.Code, "create article failed: %s", w.Body.String())

	var article models.ArticleType
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &article))
	return article
}

// CreatePerson registers a borrower through the API and returns it.
func CreatePerson(t *testing.T, ctx *TestContext, externalID, name string) models.Person {
	t.Helper()

	w := PerformRequest(ctx.Router, http.MethodPost, "/api/persons",
		models.CreatePersonRequest{
			ExternalID: externalID,
			Name:       name,
			Address:    "1 Test Street",
		}, AuthHeaders(ctx.Token))
	require.Equal(t, http.StatusCreated, w.Code, "create person failed: %s", w.Body.String())

	var person models.Person
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &person))
	return person
}

// CreateLoan opens a loan through the API and returns it.
func CreateLoan(t *testing.T, ctx *TestContext, personID string, items []models.LoanItemRequest, start, end string) models.Loan {
	t.Helper()

	w := PerformRequest(ctx.Router, http.MethodPost, "/api/loans",
		models.CreateLoanRequest{
			PersonID:        personID,
			Items:           items,
			StartDate:       start,
			ExpectedEndDate: end,
		}, AuthHeaders(ctx.Token))
	require.Equal(t, http.StatusCreated, w.Code, "create loan failed: %s", w.Body.String())

	var loan models.Loan
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loan))
	return loan
}

// GetArticle fetches one article type by listing and filtering on id.
func GetArticle(t *testing.T, ctx *TestContext, id string) models.ArticleType {
	t.Helper()

	w := PerformRequest(ctx.Router, http.MethodGet, "/api/items", nil, AuthHeaders(ctx.Token))
	require.Equal(t, http.StatusOK, w.Code)

	var articles []models.ArticleType
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &articles))
	for _, a := range articles {
		if a.ID == id {
			return a
		}
	}
	t.Fatalf("article %s not found", id)
	return models.ArticleType{}
}
