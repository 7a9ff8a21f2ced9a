package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aristath/folio/internal/modules/holdings"
	"github.com/aristath/folio/internal/modules/reconciliation"
	testingpkg "github.com/aristath/folio/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRefresher struct {
	err    error
	scopes []reconciliation.Scope
}

func (f *fakeRefresher) Reconcile(ctx context.Context, scope reconciliation.Scope) (*reconciliation.Report, error) {
	f.scopes = append(f.scopes, scope)
	if f.err != nil {
		return nil, f.err
	}
	return &reconciliation.Report{Trigger: scope.Trigger, UserID: scope.UserID, HoldingsUpdated: 2}, nil
}

func setup(t *testing.T) (http.Handler, *fakeRefresher) {
	t.Helper()
	db, cleanup := testingpkg.NewTestDB(t, "folio")
	t.Cleanup(cleanup)

	repo := holdings.NewRepository(db.Conn(), zerolog.Nop())
	for _, h := range testingpkg.NewHoldingFixtures() {
		require.NoError(t, repo.Create(context.Background(), h))
	}

	refresher := &fakeRefresher{}
	router := chi.NewRouter()
	NewHandler(holdings.NewService(repo, zerolog.Nop()), refresher, zerolog.Nop()).RegisterRoutes(router)
	return router, refresher
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func userPath(suffix string) string {
	return "/users/" + testingpkg.FixtureUserID + "/holdings" + suffix
}

func TestHandleList(t *testing.T) {
	router, _ := setup(t)

	rec := do(router, http.MethodGet, userPath(""), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 192200.0, body["total_value"])
	assert.Len(t, body["holdings"], 5)

	sectors := body["sector_allocation"].([]interface{})
	first := sectors[0].(map[string]interface{})
	assert.Equal(t, "Others", first["name"], "first-seen sector of the newest holding")
}

func TestHandleCreate(t *testing.T) {
	router, _ := setup(t)

	rec := do(router, http.MethodPost, userPath(""),
		`{"symbol":"wipro","name":"Wipro","category":"stock","quantity":10,"buy_price":450,"sector":"IT"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "WIPRO", body["symbol"])
	assert.Equal(t, 450.0, body["current_price"])
	assert.Equal(t, 4500.0, body["value"])

	rec = do(router, http.MethodGet, userPath("/"+body["id"].(string)), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleCreate_BadRequests(t *testing.T) {
	router, _ := setup(t)

	rec := do(router, http.MethodPost, userPath(""), `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodPost, userPath(""), `{"symbol":"X","category":"stock","quantity":1,"buy_price":-5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "buy_price")
}

func TestHandleGetUpdateDelete(t *testing.T) {
	router, _ := setup(t)

	rec := do(router, http.MethodGet, userPath("/h-tcs"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pnl_percent":10`)

	rec = do(router, http.MethodPut, userPath("/h-tcs"), `{"current_price":3000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pnl":0`)

	rec = do(router, http.MethodGet, "/users/stranger/holdings/h-tcs", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(router, http.MethodDelete, userPath("/h-tcs"), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(router, http.MethodDelete, userPath("/h-tcs"), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRefresh(t *testing.T) {
	router, refresher := setup(t)

	rec := do(router, http.MethodPost, userPath("/refresh"), "")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, refresher.scopes, 1)
	assert.Equal(t, testingpkg.FixtureUserID, refresher.scopes[0].UserID)
	assert.Equal(t, reconciliation.TriggerClient, refresher.scopes[0].Trigger)

	var body RefreshResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Report.HoldingsUpdated)
	assert.Equal(t, 192200.0, body.Portfolio.TotalValue)
}

func TestHandleRefresh_Failure(t *testing.T) {
	router, refresher := setup(t)
	refresher.err = errors.New("store down")

	rec := do(router, http.MethodPost, userPath("/refresh"), "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
