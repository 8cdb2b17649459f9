package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stratumdb/controlplane/internal/api/request"
	"github.com/stratumdb/controlplane/internal/api/response"
	"github.com/stratumdb/controlplane/internal/core"
	"github.com/stratumdb/controlplane/internal/model"
	"github.com/stratumdb/controlplane/internal/platform"
)

type Cluster struct {
	svc *core.ClusterService
}

func NewCluster(svc *core.ClusterService) *Cluster {
	return &Cluster{svc: svc}
}

func (h *Cluster) ListByProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := request.RequireID(chi.URLParam(r, "projectID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	pg := request.ParsePagination(r)

	clusters, hasMore, err := h.svc.ListByProject(r.Context(), projectID, pg.Limit, pg.Cursor)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var nextCursor string
	if hasMore && len(clusters) > 0 {
		nextCursor = clusters[len(clusters)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, clusters, nextCursor, hasMore)
}

func (h *Cluster) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateCluster
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now()
	cluster := &model.Cluster{
		ID:            platform.NewID(),
		OrgID:         req.OrgID,
		ProjectID:     req.ProjectID,
		Name:          req.Name,
		Plan:          req.Plan,
		EngineVersion: req.EngineVersion,
		Status:        model.ClusterStatusProvisioning,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.svc.Create(r.Context(), cluster); err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, cluster)
}

func (h *Cluster) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	cluster, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, cluster)
}

func (h *Cluster) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateClusterStatus
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.UpdateStatus(r.Context(), id, req.Status); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
