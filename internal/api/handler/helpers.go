package handler

import (
	"errors"
	"net/http"

	"github.com/stratumdb/controlplane/internal/api/response"
	"github.com/stratumdb/controlplane/internal/core"
)

// writeServiceError maps a service-layer error onto an HTTP status. Unknown
// errors become 500 without leaking internals beyond the message.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		response.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
		return
	}

	var perr *core.ProvisioningError
	if errors.As(err, &perr) {
		response.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	switch {
	case core.IsNotFound(err):
		response.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrBackupInProgress),
		errors.Is(err, core.ErrBackupActive),
		errors.Is(err, core.ErrRestoreTerminal):
		response.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrClusterNotReady),
		errors.Is(err, core.ErrBackupNotCompleted),
		errors.Is(err, core.ErrRestorePointOutOfRange),
		errors.Is(err, core.ErrLegalHold):
		response.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, core.ErrPresetNotFound):
		response.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		response.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
