package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stratumdb/controlplane/internal/api/request"
	"github.com/stratumdb/controlplane/internal/api/response"
	"github.com/stratumdb/controlplane/internal/core"
)

type Restore struct {
	svc *core.RestoreService
}

func NewRestore(svc *core.RestoreService) *Restore {
	return &Restore{svc: svc}
}

func (h *Restore) ListByCluster(w http.ResponseWriter, r *http.Request) {
	clusterID, err := request.RequireID(chi.URLParam(r, "clusterID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	pg := request.ParsePagination(r)

	restores, hasMore, err := h.svc.ListByCluster(r.Context(), clusterID, pg.Limit, pg.Cursor)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var nextCursor string
	if hasMore && len(restores) > 0 {
		nextCursor = restores[len(restores)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, restores, nextCursor, hasMore)
}

func (h *Restore) Create(w http.ResponseWriter, r *http.Request) {
	clusterID, err := request.RequireID(chi.URLParam(r, "clusterID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.CreateRestore
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	restore, err := h.svc.Create(r.Context(), core.CreateRestoreParams{
		ClusterID:       clusterID,
		RestorePoint:    req.RestorePoint,
		TargetClusterID: req.TargetClusterID,
		RequestedBy:     req.RequestedBy,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusAccepted, restore)
}

func (h *Restore) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	restore, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, restore)
}

func (h *Restore) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	restore, warning, err := h.svc.Cancel(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	body := map[string]any{"restore": restore}
	if warning != "" {
		body["warning"] = warning
	}
	response.WriteJSON(w, http.StatusOK, body)
}

// UpdateProgress is the worker's callback path. It accepts the latest
// reported state; stale replays are absorbed by the service.
func (h *Restore) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateRestoreProgress
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.UpdateProgress(r.Context(), id, req.Status, req.Progress, req.CurrentStep); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
