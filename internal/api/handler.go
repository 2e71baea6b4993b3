// Package api exposes the action-dispatched citation-monitor control API.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/citewatch/citewatch/internal/api/respond"
	"github.com/citewatch/citewatch/internal/model"
	"github.com/citewatch/citewatch/internal/ratelimit"
	"github.com/citewatch/citewatch/internal/services"
)

// actionRequest is the single-endpoint envelope: action selects the
// operation, the remaining fields are read per action.
type actionRequest struct {
	Action         string                `json:"action"`
	UserID         string                `json:"user_id"`
	MonitorID      string                `json:"monitor_id"`
	Query          string                `json:"query"`
	Domain         string                `json:"domain"`
	Engines        []string              `json:"engines"`
	ChangeTypes    []model.ChangeType    `json:"change_types"`
	AlertThreshold *model.AlertThreshold `json:"alert_threshold"`
	IsActive       *bool                 `json:"is_active"`
}

// MonitorHandler serves POST /api/citation-monitor.
type MonitorHandler struct {
	svc     *services.MonitorService
	limiter *ratelimit.Limiter
	limit   ratelimit.Limit
	log     zerolog.Logger
}

// NewMonitorHandler wires the handler. limiter guards check_changes per
// caller; pass a zero limit to disable admission control (tests).
func NewMonitorHandler(svc *services.MonitorService, limiter *ratelimit.Limiter, limit ratelimit.Limit, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{svc: svc, limiter: limiter, limit: limit, log: log}
}

// HandleAction decodes the envelope and dispatches on action.
func (h *MonitorHandler) HandleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON body")
		return
	}

	switch req.Action {
	case "create_monitor":
		h.createMonitor(w, r, req)
	case "check_changes":
		h.checkChanges(w, r, req)
	case "get_alerts":
		h.getAlerts(w, r, req)
	case "update_monitor":
		h.updateMonitor(w, r, req)
	case "delete_monitor":
		h.deleteMonitor(w, r, req)
	default:
		respond.WriteBadRequest(w, fmt.Sprintf("unknown action %q", req.Action))
	}
}

func (h *MonitorHandler) createMonitor(w http.ResponseWriter, r *http.Request, req actionRequest) {
	var threshold model.AlertThreshold
	if req.AlertThreshold != nil {
		threshold = *req.AlertThreshold
	}
	mon, snap, err := h.svc.CreateMonitor(r.Context(), services.CreateMonitorRequest{
		UserID:         req.UserID,
		Query:          req.Query,
		Domain:         req.Domain,
		Engines:        req.Engines,
		ChangeTypes:    req.ChangeTypes,
		AlertThreshold: threshold,
	})
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"monitorId":       mon.ID,
		"initialSnapshot": snap,
	})
}

func (h *MonitorHandler) checkChanges(w http.ResponseWriter, r *http.Request, req actionRequest) {
	if req.UserID == "" {
		respond.WriteBadRequest(w, "user_id is required")
		return
	}

	// Admission control on the request itself; the scheduler additionally
	// limits individual provider calls.
	if h.limiter != nil && h.limit.Max > 0 {
		res, err := h.limiter.Allow("api:"+req.UserID, h.limit)
		if err != nil {
			w.Header().Set("Retry-After", strconv.Itoa(int(time.Until(res.ResetAt).Seconds())+1))
			respond.WriteDomainError(w, err)
			return
		}
	}

	result, err := h.svc.CheckChanges(r.Context(), req.UserID, req.MonitorID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, result)
}

func (h *MonitorHandler) getAlerts(w http.ResponseWriter, r *http.Request, req actionRequest) {
	summary, err := h.svc.GetAlerts(r.Context(), req.UserID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, summary)
}

func (h *MonitorHandler) updateMonitor(w http.ResponseWriter, r *http.Request, req actionRequest) {
	err := h.svc.UpdateMonitor(r.Context(), services.UpdateMonitorRequest{
		UserID:         req.UserID,
		MonitorID:      req.MonitorID,
		IsActive:       req.IsActive,
		AlertThreshold: req.AlertThreshold,
		ChangeTypes:    req.ChangeTypes,
	})
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *MonitorHandler) deleteMonitor(w http.ResponseWriter, r *http.Request, req actionRequest) {
	if err := h.svc.DeleteMonitor(r.Context(), req.UserID, req.MonitorID); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
