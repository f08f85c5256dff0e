package api

import (
	"net/http"
	"time"

	"blockhunt/internal/db"
)

type HealthHandler struct {
	database *db.DB
	started  time.Time
}

func NewHealthHandler(database *db.DB) *HealthHandler {
	return &HealthHandler{database: database, started: time.Now()}
}

// GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	result := "ok"
	dbStatus := "ok"

	if err := h.database.Ping(); err != nil {
		dbStatus = "error"
		result = "degraded"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status": result,
		"uptime": time.Since(h.started).Round(time.Second).String(),
		"checks": map[string]string{
			"database": dbStatus,
		},
	})
}
