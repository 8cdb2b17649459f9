package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stratumdb/controlplane/internal/api/request"
	"github.com/stratumdb/controlplane/internal/api/response"
	"github.com/stratumdb/controlplane/internal/core"
)

type Policy struct {
	svc *core.PolicyService
}

func NewPolicy(svc *core.PolicyService) *Policy {
	return &Policy{svc: svc}
}

func (h *Policy) Get(w http.ResponseWriter, r *http.Request) {
	clusterID, err := request.RequireID(chi.URLParam(r, "clusterID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	policy, err := h.svc.GetOrCreate(r.Context(), clusterID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, policy)
}

func (h *Policy) Update(w http.ResponseWriter, r *http.Request) {
	clusterID, err := request.RequireID(chi.URLParam(r, "clusterID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdatePolicy
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	policy, err := h.svc.Update(r.Context(), clusterID, core.PolicyPatch{
		IsEnabled:              req.IsEnabled,
		SnapshotFrequencyHours: req.SnapshotFrequencyHours,
		SnapshotRetentionDays:  req.SnapshotRetentionDays,
		ComplianceLevel:        req.ComplianceLevel,
		ComplianceTags:         req.ComplianceTags,
		RetentionRules:         req.RetentionRules,
		PITREnabled:            req.PITREnabled,
		PITRRetentionDays:      req.PITRRetentionDays,
		CrossRegionEnabled:     req.CrossRegionEnabled,
		CrossRegionTarget:      req.CrossRegionTarget,
		EncryptionEnabled:      req.EncryptionEnabled,
		EncryptionKeyID:        req.EncryptionKeyID,
		BackupWindow:           req.BackupWindow,
		AlertOnFailure:         req.AlertOnFailure,
		AlertOnSuccess:         req.AlertOnSuccess,
		AlertRecipients:        req.AlertRecipients,
		AutoExport:             req.AutoExport,
	}, req.Actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, policy)
}

func (h *Policy) ApplyPreset(w http.ResponseWriter, r *http.Request) {
	clusterID, err := request.RequireID(chi.URLParam(r, "clusterID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.ApplyPreset
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	policy, err := h.svc.ApplyCompliancePreset(r.Context(), clusterID, req.Preset, req.Actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, policy)
}

func (h *Policy) EnableLegalHold(w http.ResponseWriter, r *http.Request) {
	clusterID, err := request.RequireID(chi.URLParam(r, "clusterID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.EnableLegalHold
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	policy, err := h.svc.EnableLegalHold(r.Context(), clusterID, req.Reason, req.Until, req.Actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, policy)
}

func (h *Policy) DisableLegalHold(w http.ResponseWriter, r *http.Request) {
	clusterID, err := request.RequireID(chi.URLParam(r, "clusterID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.DisableLegalHold
	if r.ContentLength != 0 {
		if err := request.Decode(r, &req); err != nil {
			response.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	policy, err := h.svc.DisableLegalHold(r.Context(), clusterID, req.Actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, policy)
}

func (h *Policy) ComplianceStatus(w http.ResponseWriter, r *http.Request) {
	clusterID, err := request.RequireID(chi.URLParam(r, "clusterID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	status, err := h.svc.ComplianceStatus(r.Context(), clusterID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, status)
}
