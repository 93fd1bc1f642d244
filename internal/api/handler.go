package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/flatten/internal/config"
	"github.com/gyaneshwarpardhi/flatten/internal/engine"
	"github.com/gyaneshwarpardhi/flatten/internal/event"
	"github.com/gyaneshwarpardhi/flatten/internal/metrics"
	"github.com/gyaneshwarpardhi/flatten/internal/value"
)

const (
	maxBatchSize = 500
	maxBodyBytes = 4 << 20

	// statusClientClosedRequest is nginx's non-standard code for a client that
	// went away before the response was ready.
	statusClientClosedRequest = 499
)

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng    *engine.Engine
	loader *config.Loader
	logger *slog.Logger
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(eng *engine.Engine, loader *config.Loader, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{eng: eng, loader: loader, logger: logger, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /v1/events/{tag}", h.ingestEvent)
	h.mux.HandleFunc("POST /v1/batches/{tag}", h.ingestBatch)
	h.mux.HandleFunc("GET /v1/config", h.getConfig)
	h.mux.HandleFunc("POST /v1/config/reload", h.reloadConfig)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(logger, h.mux)
}

// entryBody is the wire form of one batch entry. A missing time means now.
type entryBody struct {
	Time   *time.Time `json:"time,omitempty"`
	Record *value.Map `json:"record"`
}

// POST /v1/events/{tag}: synchronous single-record ingestion.
func (h *Handler) ingestEvent(w http.ResponseWriter, r *http.Request) {
	tag, ok := pathTag(w, r)
	if !ok {
		return
	}
	var rec value.Map
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON record: %s", err))
		return
	}
	now := time.Now()
	b := &event.Batch{
		ID:         uuid.New().String(),
		Tag:        tag,
		Entries:    []event.Entry{{Time: now, Record: &rec}},
		ReceivedAt: now,
	}

	res, err := h.eng.ProcessSync(r.Context(), b)
	if err != nil {
		writeError(w, syncErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /v1/batches/{tag}: async batch ingestion (up to maxBatchSize entries).
func (h *Handler) ingestBatch(w http.ResponseWriter, r *http.Request) {
	tag, ok := pathTag(w, r)
	if !ok {
		return
	}
	var entries []entryBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&entries); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if len(entries) == 0 {
		writeError(w, http.StatusBadRequest, "batch must contain at least one entry")
		return
	}
	if len(entries) > maxBatchSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("batch size %d exceeds max %d", len(entries), maxBatchSize))
		return
	}

	now := time.Now()
	b := &event.Batch{
		ID:         uuid.New().String(),
		Tag:        tag,
		Entries:    make([]event.Entry, 0, len(entries)),
		ReceivedAt: now,
	}
	for i, e := range entries {
		if e.Record == nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("entries[%d]: record is required", i))
			return
		}
		ts := now
		if e.Time != nil {
			ts = *e.Time
		}
		b.Entries = append(b.Entries, event.Entry{Time: ts, Record: e.Record})
	}

	if !h.eng.ProcessAsync(b, nil) {
		writeError(w, http.StatusServiceUnavailable, engine.ErrQueueFull.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"batch_id": b.ID,
		"tag":      tag,
		"entries":  len(b.Entries),
	})
}

// GET /v1/config: the flatten section currently in effect.
func (h *Handler) getConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.loader.Config()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"version": cfg.Version,
		"flatten": cfg.Flatten,
	})
}

// POST /v1/config/reload: re-read the config file. Invalid configs are
// rejected by the loader and the current transform stays in effect.
func (h *Handler) reloadConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.loader.Reload()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, config.ErrInvalid) {
			status = http.StatusUnprocessableEntity
		}
		h.logger.Warn("config reload failed", "error", err)
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded": true,
		"version":  cfg.Version,
		"key":      cfg.Flatten.Key,
	})
}

// GET /healthz: always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz: 503 if the batch queue is >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ready",
		"queue_utilization": util,
	})
}

// syncErrorStatus maps a ProcessSync error to a response status.
func syncErrorStatus(err error) int {
	switch {
	case errors.Is(err, engine.ErrQueueFull):
		return http.StatusServiceUnavailable
	case errors.Is(err, engine.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	}
	return http.StatusInternalServerError
}

func pathTag(w http.ResponseWriter, r *http.Request) (string, bool) {
	tag := strings.TrimSpace(r.PathValue("tag"))
	if tag == "" {
		writeError(w, http.StatusBadRequest, "tag is required")
		return "", false
	}
	return tag, true
}
