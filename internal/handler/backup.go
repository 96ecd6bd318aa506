package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/thornbury/seedling/internal/auth"
	"github.com/thornbury/seedling/internal/backup"
	"github.com/thornbury/seedling/internal/model"
	"github.com/thornbury/seedling/internal/store"
)

type BackupHandler struct {
	manager     *backup.Manager
	backupStore *store.BackupStore
	logger      *slog.Logger
}

func NewBackupHandler(m *backup.Manager, bs *store.BackupStore, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: m, backupStore: bs, logger: logger}
}

func (h *BackupHandler) getBackup(familyID, id int64) (*model.Backup, error) {
	b, err := h.backupStore.GetByID(id)
	if err != nil {
		return nil, err
	}
	if b == nil || b.FamilyID != familyID {
		return nil, nil
	}
	return b, nil
}

// Status reports the backup manager's current state.
func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}

// List returns the family's backup history with storage totals.
func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	backups, err := h.backupStore.ListByFamily(familyID, parseLimit(r, 50))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list backups"})
		return
	}
	if backups == nil {
		backups = []model.Backup{}
	}

	count, err := h.backupStore.CountByFamily(familyID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to count backups"})
		return
	}
	totalSize, err := h.backupStore.TotalSizeByFamily(familyID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to sum backup sizes"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"backups":          backups,
		"count":            count,
		"total_size_bytes": totalSize,
	})
}

// RunNow triggers a backup immediately and waits for it to finish.
func (h *BackupHandler) RunNow(w http.ResponseWriter, r *http.Request) {
	status := h.manager.Status()
	if status.State == backup.StateDisabled {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "backups are not configured"})
		return
	}
	if status.InProgress {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "backup already in progress"})
		return
	}

	id, err := h.manager.RunNow(r.Context())
	if err != nil {
		h.logger.Error("manual backup", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "backup failed"})
		return
	}

	record, err := h.backupStore.GetByID(id)
	if err != nil || record == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load backup record"})
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

// Restore downloads, decrypts and swaps in the selected backup. On success
// the process exits so the supervisor restarts it on the restored database;
// the client sees the connection drop and should poll for the server to
// come back.
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	record, err := h.getBackup(familyID, id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get backup"})
		return
	}
	if record == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "backup not found"})
		return
	}
	if record.Status != model.BackupStatusCompleted {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "backup did not complete; it cannot be restored"})
		return
	}

	if err := h.manager.Restore(r.Context(), id); err != nil {
		h.logger.Error("restore backup", "backup_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "restore failed"})
		return
	}
}

// Download streams the encrypted backup file to the client.
func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	record, err := h.getBackup(familyID, id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get backup"})
		return
	}
	if record == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "backup not found"})
		return
	}

	body, size, err := h.manager.Download(r.Context(), id)
	if err != nil {
		h.logger.Error("download backup", "backup_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to download backup"})
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.Filename))
	if size > 0 {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
	}
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Error("stream backup", "backup_id", id, "error", err)
	}
}
