// internal/api/handlers/task_handler.go
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fawad-mazhar/skyhub/internal/models"
	"github.com/fawad-mazhar/skyhub/internal/storage/blob"
	"github.com/fawad-mazhar/skyhub/internal/task"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// ResultStore is the slice of the blob store the API reads and writes.
type ResultStore interface {
	Exists(key string) (bool, error)
	PutJSON(key string, v any) error
	GetJSON(key string, v any) (bool, error)
	GetRaw(key string) ([]byte, time.Time, bool, error)
}

// TaskQueue publishes task messages for the executor.
type TaskQueue interface {
	PublishTask(ctx context.Context, msg *models.QueueMessage) error
}

type TaskHandler struct {
	store      ResultStore
	queue      TaskQueue
	signer     *URLSigner
	storeName  string
	resultsTTL time.Duration
	validate   *validator.Validate
	logger     *slog.Logger
}

func NewTaskHandler(store ResultStore, queue TaskQueue, signer *URLSigner, storeName string, resultsTTL time.Duration, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		store:      store,
		queue:      queue,
		signer:     signer,
		storeName:  storeName,
		resultsTTL: resultsTTL,
		validate:   validator.New(),
		logger:     logger,
	}
}

type scheduleRequest struct {
	TaskName      string          `json:"task_name" validate:"required"`
	TaskParams    json.RawMessage `json:"task_params" validate:"required"`
	TaskSkipCache bool            `json:"task_skip_cache"`
}

type scheduleResponse struct {
	TaskID         string `json:"task_id"`
	TaskResultsURL string `json:"task_results_url"`
}

type statusResponse struct {
	TaskID    string              `json:"task_id"`
	Bucket    string              `json:"bucket"`
	Processed bool                `json:"processed"`
	Meta      models.ResultRecord `json:"meta"`
}

// ScheduleTask submits a task. An existing result record for the derived task
// id short-circuits the queue entirely unless the caller opts out of the
// cache; either way the client gets the presigned URL its results will be
// served from.
func (h *TaskHandler) ScheduleTask(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	taskID, err := task.Identify(req.TaskName, req.TaskParams)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	key := blob.ResultsKey(taskID)
	useCache := false
	if !req.TaskSkipCache {
		exists, err := h.store.Exists(key)
		if err != nil {
			h.logger.Error("cache lookup failed", "task_id", taskID, "error", err)
			writeError(w, http.StatusBadRequest, "result store unavailable")
			return
		}
		useCache = exists
	}

	if useCache {
		h.logger.Info("served task results from cache", "task_name", req.TaskName, "task_id", taskID)
	} else {
		record := models.ResultRecord{Status: models.TaskStatusScheduled}
		if err := h.store.PutJSON(key, record); err != nil {
			h.logger.Error("failed to write scheduled status", "task_id", taskID, "error", err)
			writeError(w, http.StatusBadRequest, "result store unavailable")
			return
		}

		msg := &models.QueueMessage{
			TaskID:     taskID,
			TaskName:   req.TaskName,
			TaskParams: req.TaskParams,
		}
		if err := h.queue.PublishTask(r.Context(), msg); err != nil {
			h.logger.Error("failed to queue task", "task_id", taskID, "error", err)
			writeError(w, http.StatusBadRequest, "failed to queue task")
			return
		}
		h.logger.Info("scheduled task", "task_name", req.TaskName, "task_id", taskID)
	}

	json.NewEncoder(w).Encode(scheduleResponse{
		TaskID:         taskID,
		TaskResultsURL: h.signer.Sign(taskID, h.resultsTTL, time.Now()),
	})
}

// GetTaskStatus reports the current record for a task id. A missing record
// and a store read failure both degrade to NOT_STARTED instead of surfacing
// an error; polling clients retry either way.
func (h *TaskHandler) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")

	var record models.ResultRecord
	found, err := h.store.GetJSON(blob.ResultsKey(taskID), &record)
	if err != nil {
		h.logger.Error("failed to read task results", "task_id", taskID, "error", err)
		found = false
	}
	if !found {
		record = models.ResultRecord{Status: models.TaskStatusNotStarted}
	}

	json.NewEncoder(w).Encode(statusResponse{
		TaskID:    taskID,
		Bucket:    h.storeName,
		Processed: found,
		Meta:      record,
	})
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
