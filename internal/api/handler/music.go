package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/artscan/internal/api/response"
	"github.com/kiranshivaraju/artscan/pkg/models"
)

// TaskStatusReader reads recorded music task progress.
type TaskStatusReader interface {
	GetTaskStatus(ctx context.Context, taskID string) (models.GenerationTask, bool, error)
}

// NewTaskStatusHandler returns an http.HandlerFunc for
// GET /api/v1/music/tasks/{taskID}.
func NewTaskStatusHandler(tasks TaskStatusReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		taskID := strings.TrimSpace(chi.URLParam(r, "taskID"))
		if taskID == "" {
			response.BadRequest(w, "taskID is required", nil)
			return
		}

		task, ok, err := tasks.GetTaskStatus(r.Context(), taskID)
		if err != nil {
			slog.Error("read task status failed", "task_id", taskID, "error", err)
			response.Internal(w, "Failed to read task status")
			return
		}
		if !ok {
			response.NotFound(w, "Music task not found or expired")
			return
		}
		response.JSON(w, task)
	}
}
