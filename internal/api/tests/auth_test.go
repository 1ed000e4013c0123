package api_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xcastelo/saf-server/internal/api/testutils"
	"github.com/xcastelo/saf-server/internal/models"
)

func TestLogin(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	// Test case 1: Successful login
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/login",
		models.LoginRequest{Password: testutils.TestPassword},
		nil,
	)
	assert.Equal(t, http.StatusOK, w.Code)

	// Test case 2: Wrong password
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/login",
		models.LoginRequest{Password: "wrong-password"},
		nil,
	)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Test case 3: Missing password
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/login",
		map[string]string{},
		nil,
	)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthRequired(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	protected := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/items"},
		{http.MethodGet, "/api/persons"},
		{http.MethodGet, "/api/loans"},
		{http.MethodGet, "/api/events"},
		{http.MethodGet, "/api/dashboard"},
		{http.MethodGet, "/api/backups"},
	}

	for _, route := range protected {
		// No token at all
		w := testutils.PerformRequest(testCtx.Router, route.method, route.path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s without token", route.method, route.path)

		// Garbage token
		w = testutils.PerformRequest(testCtx.Router, route.method, route.path, nil,
			testutils.AuthHeaders("not-a-real-token"))
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s with bad token", route.method, route.path)
	}

	// A valid token passes through
	w := testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/items", nil,
		testutils.AuthHeaders(testCtx.Token))
	assert.Equal(t, http.StatusOK, w.Code)
}
