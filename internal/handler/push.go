package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/thornbury/seedling/internal/auth"
	"github.com/thornbury/seedling/internal/model"
	"github.com/thornbury/seedling/internal/push"
	"github.com/thornbury/seedling/internal/store"
)

// knownNotifTypes is the set of notification types a parent can toggle.
var knownNotifTypes = []string{
	model.NotifTypeStreakBonus,
	model.NotifTypeAllTasksDone,
	model.NotifTypePrivilegeDecided,
	model.NotifTypeRewardRedeemed,
}

type PushHandler struct {
	pushStore *store.PushStore
	service   *push.Service
	logger    *slog.Logger
}

func NewPushHandler(ps *store.PushStore, svc *push.Service, logger *slog.Logger) *PushHandler {
	return &PushHandler{pushStore: ps, service: svc, logger: logger}
}

type subscribeRequest struct {
	Endpoint   string `json:"endpoint"`
	P256dh     string `json:"p256dh"`
	Auth       string `json:"auth"`
	DeviceName string `json:"device_name"`
}

// Subscribe registers a browser push subscription for the signed-in parent.
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	familyID := auth.FamilyID(r.Context())

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if req.Endpoint == "" || req.P256dh == "" || req.Auth == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "endpoint, p256dh, and auth are required"})
		return
	}

	sub, err := h.pushStore.CreateSubscription(userID, familyID, req.Endpoint, req.P256dh, req.Auth, req.DeviceName)
	if err != nil {
		h.logger.Error("create push subscription", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save subscription"})
		return
	}

	writeJSON(w, http.StatusCreated, sub)
}

// Unsubscribe removes the subscription for the endpoint the browser hands
// back. Browsers know their endpoint, not our row id.
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Endpoint == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "endpoint is required"})
		return
	}

	if err := h.pushStore.DeleteSubscription(userID, req.Endpoint); err != nil {
		h.logger.Error("delete push subscription", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete subscription"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListSubscriptions lists the signed-in parent's device subscriptions.
func (h *PushHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	subs, err := h.pushStore.ListSubscriptionsByUser(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list subscriptions"})
		return
	}
	if subs == nil {
		subs = []model.PushSubscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

// GetVAPIDKey returns the server's public VAPID key for the browser's
// pushManager.subscribe call.
func (h *PushHandler) GetVAPIDKey(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "push notifications are not configured"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.service.VAPIDPublicKey()})
}

// GetPreferences returns the parent's effective notification preferences.
// Types with no stored row default to enabled.
func (h *PushHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	stored, err := h.pushStore.ListPreferences(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get preferences"})
		return
	}
	byType := make(map[string]bool, len(stored))
	for _, p := range stored {
		byType[p.NotificationType] = p.Enabled
	}

	type pref struct {
		Type    string `json:"type"`
		Enabled bool   `json:"enabled"`
	}
	prefs := make([]pref, 0, len(knownNotifTypes))
	for _, t := range knownNotifTypes {
		enabled, ok := byType[t]
		if !ok {
			enabled = true
		}
		prefs = append(prefs, pref{Type: t, Enabled: enabled})
	}

	writeJSON(w, http.StatusOK, prefs)
}

// UpdatePreferences stores per-type notification toggles.
func (h *PushHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	familyID := auth.FamilyID(r.Context())

	var req struct {
		Preferences []struct {
			Type    string `json:"type"`
			Enabled bool   `json:"enabled"`
		} `json:"preferences"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	for _, p := range req.Preferences {
		known := false
		for _, t := range knownNotifTypes {
			if p.Type == t {
				known = true
				break
			}
		}
		if !known {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown notification type: " + p.Type})
			return
		}
	}

	for _, p := range req.Preferences {
		if err := h.pushStore.SetPreference(userID, familyID, p.Type, p.Enabled); err != nil {
			h.logger.Error("set push preference", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update preferences"})
			return
		}
	}

	h.GetPreferences(w, r)
}

// TestNotification sends a test push to every device of the signed-in
// parent.
func (h *PushHandler) TestNotification(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "push notifications are not configured"})
		return
	}

	userID := auth.UserID(r.Context())

	subs, err := h.pushStore.ListSubscriptionsByUser(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list subscriptions"})
		return
	}

	payload := push.Payload{
		Title: "Seedling",
		Body:  "Push notifications are working!",
		URL:   "/settings",
		Tag:   "test",
	}

	sent := 0
	for i := range subs {
		if err := h.service.Send(&subs[i], payload); err != nil {
			h.logger.Error("test push send", "error", err)
			continue
		}
		sent++
	}

	writeJSON(w, http.StatusOK, map[string]int{"sent": sent})
}
