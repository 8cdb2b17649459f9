package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stratumdb/controlplane/internal/core"
)

func TestWriteServiceError_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", &core.NotFoundError{Resource: "backup", ID: validID}, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("get backup: %w", &core.NotFoundError{Resource: "backup", ID: validID}), http.StatusNotFound},
		{"backup in progress", core.ErrBackupInProgress, http.StatusConflict},
		{"backup active", core.ErrBackupActive, http.StatusConflict},
		{"restore terminal", core.ErrRestoreTerminal, http.StatusConflict},
		{"cluster not ready", fmt.Errorf("cluster x status is suspended: %w", core.ErrClusterNotReady), http.StatusUnprocessableEntity},
		{"backup not completed", core.ErrBackupNotCompleted, http.StatusUnprocessableEntity},
		{"restore point out of range", core.ErrRestorePointOutOfRange, http.StatusUnprocessableEntity},
		{"legal hold", core.ErrLegalHold, http.StatusUnprocessableEntity},
		{"preset not found", core.ErrPresetNotFound, http.StatusBadRequest},
		{"provisioning", &core.ProvisioningError{Err: errors.New("temporal unavailable")}, http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, tt.err)
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestWriteServiceError_ValidationIncludesFields(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, &core.ValidationError{Fields: []core.FieldError{
		{Field: "retention_days", Message: "must be between 1 and 365"},
	}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "retention_days")
	assert.Contains(t, rec.Body.String(), "must be between 1 and 365")
}
