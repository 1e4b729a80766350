// Package http serves the persisted output tables to the Dashboard.
// The server is a strictly read-only view over the table store: it
// never invokes pipeline stages and never mutates a table.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "taxipulse/internal/errors"
	"taxipulse/internal/infrastructure"
	"taxipulse/internal/store"
)

// TableResponse is the JSON shape of one served table. An empty Rows
// slice is the documented "no data available" state, not an error.
type TableResponse struct {
	Table   string     `json:"table"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// TableListResponse lists the contract tables and which are available.
type TableListResponse struct {
	Tables    []string `json:"tables"`
	Available []string `json:"available"`
}

// Handler serves table reads.
type Handler struct {
	store   *store.Store
	metrics *infrastructure.Metrics
	logger  *slog.Logger
}

// NewHandler creates a table handler. metrics may be nil.
func NewHandler(st *store.Store, metrics *infrastructure.Metrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: st, metrics: metrics, logger: logger}
}

// Routes mounts the table endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/tables", h.ListTables)
	r.Get("/tables/{name}", h.GetTable)
}

// ListTables returns the table contract and the subset currently
// persisted.
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, TableListResponse{
		Tables:    store.Contract,
		Available: h.store.List(),
	})
}

// GetTable returns one named table. Unknown names are 404; a contract
// table that has not been materialized yet comes back empty rather than
// failing, so the Dashboard can render its empty state.
func (h *Handler) GetTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if !store.InContract(name) {
		h.count(name, "not_found")
		render.Render(w, r, apierrors.TableNotFoundError(name))
		return
	}

	resp := TableResponse{Table: name, Columns: []string{}, Rows: [][]string{}}

	if h.store.Exists(name) {
		header, rows, err := h.store.Read(r.Context(), name)
		if err != nil {
			h.count(name, "error")
			h.logger.ErrorContext(r.Context(), "table read failed",
				slog.String("table", name),
				slog.String("error", err.Error()))
			render.Render(w, r, apierrors.TableReadError(name, err))
			return
		}
		resp.Columns = header
		if rows != nil {
			resp.Rows = rows
		}
	}

	h.count(name, "ok")
	render.JSON(w, r, resp)
}

func (h *Handler) count(table, status string) {
	if h.metrics != nil {
		h.metrics.TableRequests.WithLabelValues(table, status).Inc()
	}
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}
