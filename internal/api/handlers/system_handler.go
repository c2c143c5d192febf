// internal/api/handlers/system_handler.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/fawad-mazhar/skyhub/internal/config"
)

const Version = "1.1.0"

// SystemHandler reports deployment information for operators.
type SystemHandler struct {
	config *config.Config
}

func NewSystemHandler(cfg *config.Config) *SystemHandler {
	return &SystemHandler{config: cfg}
}

func (h *SystemHandler) GetSystemStatus(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{
		"version":     Version,
		"env_name":    h.config.EnvName,
		"store_name":  h.config.Blob.Name,
		"tasks_queue": h.config.RabbitMQ.TasksQueue,
	})
}
