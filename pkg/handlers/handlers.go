package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"softphone-governor/pkg/audit"
	"softphone-governor/pkg/coordinator"
	"softphone-governor/pkg/models"
	"softphone-governor/pkg/tenant"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	coordinator *coordinator.Coordinator
	tenants     *tenant.Store
	auditLog    *audit.Ring
	ping        func(ctx context.Context) error
	podID       string
	logger      *logrus.Logger
}

// NewHandler builds the HTTP handlers. ping may be nil when no Redis is configured.
func NewHandler(coord *coordinator.Coordinator, tenants *tenant.Store, auditLog *audit.Ring, ping func(ctx context.Context) error, podID string, logger *logrus.Logger) *Handler {
	return &Handler{
		coordinator: coord,
		tenants:     tenants,
		auditLog:    auditLog,
		ping:        ping,
		podID:       podID,
		logger:      logger,
	}
}

// Events receives phone engine signals.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	var env models.Envelope
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&env); err != nil {
		h.logger.WithError(err).Warn("Rejected malformed signal envelope")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	response := h.coordinator.HandleSignal(r.Context(), env)
	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) Commands(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cmd, err := models.DecodeCommand(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.coordinator.Dispatch(r.Context(), cmd); err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"config_id":    cmd.Config(),
			"command_type": cmd.Type(),
		}).Error("Failed to dispatch command")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"success": true,
		"type":    cmd.Type(),
	})
}

func (h *Handler) PushConfig(w http.ResponseWriter, r *http.Request) {
	configID := mux.Vars(r)["configId"]

	err := h.coordinator.PushConfig(r.Context(), configID)
	if errors.Is(err, coordinator.ErrConfigNotFound) {
		http.Error(w, "Config not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("config_id", configID).Error("Failed to push config")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"config_id": configID,
	})
}

func (h *Handler) RemoveConfig(w http.ResponseWriter, r *http.Request) {
	configID := mux.Vars(r)["configId"]

	if err := h.coordinator.RemoveConfig(r.Context(), configID); err != nil {
		h.logger.WithError(err).WithField("config_id", configID).Error("Failed to remove config")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"config_id": configID,
	})
}

// AdviseOnIncomingCall tells the engine which config should answer a call.
func (h *Handler) AdviseOnIncomingCall(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		http.Error(w, "Missing phone", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, h.tenants.Advise(phone))
}

func (h *Handler) SoftphoneLog(w http.ResponseWriter, r *http.Request) {
	var entry models.SoftphoneLog
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&entry); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.coordinator.RecordLog(entry)

	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("OK"))
}

func (h *Handler) Logs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	writeJSON(w, http.StatusOK, h.auditLog.Recent(limit))
}

func (h *Handler) Dialogs(w http.ResponseWriter, r *http.Request) {
	dialogs := h.coordinator.Dialogs()
	sort.Slice(dialogs, func(i, j int) bool { return dialogs[i].CreatedAt.Before(dialogs[j].CreatedAt) })
	writeJSON(w, http.StatusOK, dialogs)
}

func (h *Handler) Dialog(w http.ResponseWriter, r *http.Request) {
	dialogID := mux.Vars(r)["dialogId"]
	d, ok := h.coordinator.Dialog(dialogID)
	if !ok {
		http.Error(w, "Dialog not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.ping(ctx); err != nil {
			h.logger.WithError(err).Warn("Health check failed")
			http.Error(w, "Health check failed", http.StatusServiceUnavailable)
			return
		}
	}

	response := map[string]interface{}{
		"status":         "healthy",
		"active_dialogs": h.coordinator.ActiveDialogs(),
		"timestamp":      time.Now(),
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"pod_id":         h.podID,
		"active_dialogs": h.coordinator.ActiveDialogs(),
		"dedup_backend":  h.coordinator.DedupBackend(),
		"audit_capacity": h.auditLog.Capacity(),
		"tenants":        h.tenants.Count(),
		"timestamp":      time.Now(),
	}

	writeJSON(w, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
