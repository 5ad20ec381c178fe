package swagger

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ReadsInfo(t *testing.T) {
	doc, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "slotariff API", doc.Info.Title)
	assert.Equal(t, "1.0.0", doc.Info.Version)
}

func TestHandler_Routes(t *testing.T) {
	h, err := Handler("/docs/")
	require.NoError(t, err)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/docs/openapi.json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "3.0.3", body["openapi"])
	assert.Contains(t, body["paths"], "/api/v1/prices")

	rec = get("/docs/openapi.yaml")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "openapi: 3.0.3")

	rec = get("/docs/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>slotariff API 1.0.0</title>")
	assert.Contains(t, rec.Body.String(), "openapi.json")

	assert.Equal(t, http.StatusNotFound, get("/docs/nope").Code)
}
