package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newClusterHandler() *Cluster {
	return NewCluster(nil)
}

func TestClusterListByProject_EmptyID(t *testing.T) {
	h := newClusterHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/projects//clusters", nil)
	r = withChiURLParam(r, "projectID", "")

	h.ListByProject(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "missing required ID")
}

func TestClusterCreate_InvalidJSON(t *testing.T) {
	h := newClusterHandler()
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPost, "/clusters", "{bad json")

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "invalid JSON")
}

func TestClusterCreate_MissingRequiredFields(t *testing.T) {
	h := newClusterHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/clusters", map[string]any{})

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "validation error")
}

func TestClusterCreate_InvalidSlugName(t *testing.T) {
	tests := []struct {
		name string
		slug string
	}{
		{"uppercase", "MyCluster"},
		{"spaces", "my cluster"},
		{"special chars", "cluster@01"},
		{"starts with digit", "1cluster"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newClusterHandler()
			rec := httptest.NewRecorder()
			r := newRequest(http.MethodPost, "/clusters", map[string]any{
				"org_id":         "test-org-1",
				"project_id":     "test-project-1",
				"name":           tt.slug,
				"plan":           "m10",
				"engine_version": "7.0",
			})

			h.Create(rec, r)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestClusterUpdateStatus_InvalidStatus(t *testing.T) {
	h := newClusterHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPut, "/clusters/"+validID+"/status", map[string]any{
		"status": "exploded",
	})
	r = withChiURLParam(r, "id", validID)

	h.UpdateStatus(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClusterGet_EmptyID(t *testing.T) {
	h := newClusterHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/clusters/", nil)
	r = withChiURLParam(r, "id", "")

	h.Get(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
