package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newPolicyHandler() *Policy {
	return NewPolicy(nil)
}

func TestPolicyGet_EmptyClusterID(t *testing.T) {
	h := newPolicyHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/clusters//backup-policy", nil)
	r = withChiURLParam(r, "clusterID", "")

	h.Get(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "missing required ID")
}

func TestPolicyUpdate_InvalidJSON(t *testing.T) {
	h := newPolicyHandler()
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPatch, "/clusters/"+validID+"/backup-policy", "{bad json")
	r = withChiURLParam(r, "clusterID", validID)

	h.Update(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "invalid JSON")
}

func TestPolicyUpdate_FrequencyOutOfRange(t *testing.T) {
	tests := []struct {
		name  string
		hours int
	}{
		{"negative", -4},
		{"above weekly cap", 169},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newPolicyHandler()
			rec := httptest.NewRecorder()
			r := newRequest(http.MethodPatch, "/clusters/"+validID+"/backup-policy", map[string]any{
				"snapshot_frequency_hours": tt.hours,
			})
			r = withChiURLParam(r, "clusterID", validID)

			h.Update(rec, r)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestPolicyUpdate_InvalidComplianceLevel(t *testing.T) {
	h := newPolicyHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPatch, "/clusters/"+validID+"/backup-policy", map[string]any{
		"compliance_level": "iso27001",
	})
	r = withChiURLParam(r, "clusterID", validID)

	h.Update(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPolicyUpdate_PITRRetentionAboveCap(t *testing.T) {
	h := newPolicyHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPatch, "/clusters/"+validID+"/backup-policy", map[string]any{
		"pitr_retention_days": 36,
	})
	r = withChiURLParam(r, "clusterID", validID)

	h.Update(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPolicyApplyPreset_MissingPreset(t *testing.T) {
	h := newPolicyHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/clusters/"+validID+"/backup-policy/preset", map[string]any{})
	r = withChiURLParam(r, "clusterID", validID)

	h.ApplyPreset(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "validation error")
}

func TestPolicyEnableLegalHold_MissingReason(t *testing.T) {
	h := newPolicyHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/clusters/"+validID+"/backup-policy/legal-hold", map[string]any{})
	r = withChiURLParam(r, "clusterID", validID)

	h.EnableLegalHold(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "validation error")
}

func TestPolicyComplianceStatus_EmptyClusterID(t *testing.T) {
	h := newPolicyHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/clusters//compliance", nil)
	r = withChiURLParam(r, "clusterID", "")

	h.ComplianceStatus(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
