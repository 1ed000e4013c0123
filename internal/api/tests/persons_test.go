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

func TestCreatePerson(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	// Test case 1: Successful registration
	person := testutils.CreatePerson(t, testCtx, "CPR-0101", "Alma Jensen")
	assert.NotEmpty(t, person.ID)
	assert.True(t, person.Active)

	// Test case 2: Same external id while active is a duplicate
	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/persons",
		models.CreatePersonRequest{
			ExternalID: "CPR-0101",
			Name:       "Someone Else",
			Address:    "2 Other Street",
		}, testutils.AuthHeaders(testCtx.Token))
	assert.Equal(t, http.StatusConflict, w.Code)

	// Test case 3: Missing required fields
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/persons",
		map[string]string{"name": "No External ID"}, testutils.AuthHeaders(testCtx.Token))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPersonReactivation(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	person := testutils.CreatePerson(t, testCtx, "CPR-0202", "Niels Berg")

	// Deactivate
	w := testutils.PerformRequest(testCtx.Router, http.MethodDelete, "/api/persons/"+person.ID, nil,
		testutils.AuthHeaders(testCtx.Token))
	require.Equal(t, http.StatusOK, w.Code)

	// Registering the same external id again reactivates the existing record
	// under its original internal id, so loan history stays attached.
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/persons",
		models.CreatePersonRequest{
			ExternalID: "CPR-0202",
			Name:       "Niels Berg",
			Address:    "3 New Street",
		}, testutils.AuthHeaders(testCtx.Token))
	require.Equal(t, http.StatusCreated, w.Code)

	var reactivated models.Person
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reactivated))
	assert.Equal(t, person.ID, reactivated.ID)
	assert.True(t, reactivated.Active)
	assert.Equal(t, "3 New Street", reactivated.Address)
}

func TestUpdatePerson(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	person := testutils.CreatePerson(t, testCtx, "CPR-0303", "Eva Madsen")
	other := testutils.CreatePerson(t, testCtx, "CPR-0404", "Lars Holm")

	// Test case 1: Partial update touches only the provided fields
	newName := "Eva Madsen-Larsen"
	w := testutils.PerformRequest(testCtx.Router, http.MethodPatch, "/api/persons/"+person.ID,
		models.UpdatePersonRequest{Name: &newName}, testutils.AuthHeaders(testCtx.Token))
	require.Equal(t, http.StatusOK, w.Code)

	var updated models.Person
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, newName, updated.Name)
	assert.Equal(t, person.Address, updated.Address)

	// Test case 2: Reassigning an external id held by another active person
	taken := other.ExternalID
	w = testutils.PerformRequest(testCtx.Router, http.MethodPatch, "/api/persons/"+person.ID,
		models.UpdatePersonRequest{ExternalID: &taken}, testutils.AuthHeaders(testCtx.Token))
	assert.Equal(t, http.StatusConflict, w.Code)

	// Test case 3: Unknown person
	w = testutils.PerformRequest(testCtx.Router, http.MethodPatch, "/api/persons/no-such-id",
		models.UpdatePersonRequest{Name: &newName}, testutils.AuthHeaders(testCtx.Token))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeactivatePersonWithActiveLoan(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	article := testutils.CreateArticle(t, testCtx, "Walking Frame", 2)
	person := testutils.CreatePerson(t, testCtx, "CPR-0505", "Karen Friis")
	loan := testutils.CreateLoan(t, testCtx, person.ID,
		[]models.LoanItemRequest{{ArticleTypeID: article.ID, Quantity: 1}},
		"2026-08-01", "2026-09-01")

	// An open loan blocks deactivation
	w := testutils.PerformRequest(testCtx.Router, http.MethodDelete, "/api/persons/"+person.ID, nil,
		testutils.AuthHeaders(testCtx.Token))
	assert.Equal(t, http.StatusConflict, w.Code)

	// After returning the loan, deactivation succeeds
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/loans/"+loan.ID+"/return",
		models.ReturnLoanRequest{}, testutils.AuthHeaders(testCtx.Token))
	require.Equal(t, http.StatusOK, w.Code)

	w = testutils.PerformRequest(testCtx.Router, http.MethodDelete, "/api/persons/"+person.ID, nil,
		testutils.AuthHeaders(testCtx.Token))
	assert.Equal(t, http.StatusOK, w.Code)

	// Soft delete keeps the record in the listing, flagged inactive
	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/persons", nil,
		testutils.AuthHeaders(testCtx.Token))
	require.Equal(t, http.StatusOK, w.Code)

	var persons []models.Person
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &persons))
	found := false
	for _, p := range persons {
		if p.ID == person.ID {
			found = true
			assert.False(t, p.Active)
		}
	}
	assert.True(t, found)
}
