package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klgeo/outlets-cli/internal/model"
	"github.com/klgeo/outlets-cli/internal/nlquery"
)

// fakeStore is an in-memory OutletReader.
type fakeStore struct {
	outlets []model.Outlet
	err     error
}

func (f *fakeStore) GetOutlet(_ context.Context, id int64) (*model.Outlet, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, o := range f.outlets {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListOutlets(context.Context) ([]model.Outlet, error) {
	return f.outlets, f.err
}

// fakeAsker returns a fixed outcome.
type fakeAsker struct {
	outcome  nlquery.Outcome
	question string
}

func (f *fakeAsker) Ask(_ context.Context, question string) nlquery.Outcome {
	f.question = question
	return f.outcome
}

func newTestRouter(store *fakeStore, asker *fakeAsker) http.Handler {
	if store == nil {
		store = &fakeStore{}
	}
	if asker == nil {
		asker = &fakeAsker{}
	}
	return NewHandler(store, asker).Router(nil)
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := doRequest(t, newTestRouter(nil, nil), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListOutlets(t *testing.T) {
	lat, lng := 3.1578, 101.7119
	store := &fakeStore{outlets: []model.Outlet{
		{ID: 1, Name: "Subway KLCC", Address: "Suria KLCC", Latitude: &lat, Longitude: &lng},
		{ID: 2, Name: "Subway Bangsar", Address: "Jalan Telawi"},
	}}

	rec := doRequest(t, newTestRouter(store, nil), http.MethodGet, "/outlets", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []model.Outlet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Subway KLCC", got[0].Name)
	require.NotNil(t, got[0].Latitude)
	assert.InDelta(t, 3.1578, *got[0].Latitude, 1e-9)
	assert.Nil(t, got[1].Latitude)
}

func TestListOutletsEmptyIsArrayNot404(t *testing.T) {
	rec := doRequest(t, newTestRouter(nil, nil), http.MethodGet, "/outlets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestListOutletsStoreError(t *testing.T) {
	store := &fakeStore{err: eris.New("db gone")}
	rec := doRequest(t, newTestRouter(store, nil), http.MethodGet, "/outlets", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db gone")
}

func TestGetOutlet(t *testing.T) {
	store := &fakeStore{outlets: []model.Outlet{{ID: 7, Name: "Subway Sentral", Address: "KL Sentral"}}}

	rec := doRequest(t, newTestRouter(store, nil), http.MethodGet, "/outlets/7", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got model.Outlet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Subway Sentral", got.Name)
}

func TestGetOutletNotFound(t *testing.T) {
	rec := doRequest(t, newTestRouter(nil, nil), http.MethodGet, "/outlets/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"outlet not found"}`, rec.Body.String())
}

func TestGetOutletBadID(t *testing.T) {
	rec := doRequest(t, newTestRouter(nil, nil), http.MethodGet, "/outlets/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryAnswered(t *testing.T) {
	asker := &fakeAsker{outcome: nlquery.Outcome{
		Kind:   nlquery.OutcomeAnswered,
		Answer: "There are 2 such outlets.",
	}}

	rec := doRequest(t, newTestRouter(nil, asker), http.MethodPost, "/query",
		`{"question":"How many outlets are open after 10pm?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"answer":"There are 2 such outlets.","outcome":"answered"}`, rec.Body.String())
	assert.Equal(t, "How many outlets are open after 10pm?", asker.question)
}

func TestQueryFailureIsStill200(t *testing.T) {
	asker := &fakeAsker{outcome: nlquery.Outcome{
		Kind:   nlquery.OutcomeRejectedQuery,
		Answer: "That question would require an operation the assistant is not allowed to run.",
		SQL:    "DROP TABLE outlets",
		Detail: "query rejected: mutating keyword DROP is not allowed",
	}}

	rec := doRequest(t, newTestRouter(nil, asker), http.MethodPost, "/query", `{"question":"drop it all"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "rejected_query", resp["outcome"])
	// Neither the SQL nor the internal detail leaks into the body.
	assert.NotContains(t, rec.Body.String(), "DROP")
	assert.NotContains(t, rec.Body.String(), "rejected:")
}

func TestQueryBadBody(t *testing.T) {
	rec := doRequest(t, newTestRouter(nil, nil), http.MethodPost, "/query", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryMissingQuestion(t *testing.T) {
	rec := doRequest(t, newTestRouter(nil, nil), http.MethodPost, "/query", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(nil, nil)
	req := httptest.NewRequest(http.MethodOptions, "/query", nil)
	req.Header.Set("Origin", "http://localhost:8501")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
