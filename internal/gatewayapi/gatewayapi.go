// Package gatewayapi exposes the gateway facade's five extension
// operations as a small JSON HTTP surface, in the teacher's
// handler-func-plus-json.NewEncoder idiom from internal/httpapi. The
// application loading this gateway is out of scope per spec.md §1, but
// a runnable binary still needs some concrete way to reach the facade,
// so this package stands in for it.
package gatewayapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"nero/internal/gateway"
	"nero/internal/middleware"
	"nero/pkg/types"
)

// Handlers wraps a Facade with its HTTP surface.
type Handlers struct {
	facade *gateway.Facade
}

// New builds Handlers around facade.
func New(facade *gateway.Facade) *Handlers {
	return &Handlers{facade: facade}
}

// Register wires every route onto mux, wrapped in the teacher's CORS
// header injection.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /filters", h.handleFilters)
	mux.HandleFunc("GET /search", h.handleSearch)
	mux.HandleFunc("GET /series/{id}", h.handleSeriesInfo)
	mux.HandleFunc("GET /series/{id}/episodes", h.handleSeriesEpisodes)
	mux.HandleFunc("GET /series/{id}/episodes/{episodeID}/videos", h.handleSeriesVideos)
}

func (h *Handlers) handleFilters(w http.ResponseWriter, r *http.Request) {
	middleware.EnableCORS(w)
	cats, err := h.facade.Filters(r.Context())
	writeJSON(w, cats, err)
}

func (h *Handlers) handleSearch(w http.ResponseWriter, r *http.Request) {
	middleware.EnableCORS(w)
	q := r.URL.Query()
	page := atoiDefault(q.Get("page"), 1)
	filters := parseFilters(q["filter"])

	result, err := h.facade.Search(r.Context(), q.Get("q"), page, filters)
	writeJSON(w, result, err)
}

func (h *Handlers) handleSeriesInfo(w http.ResponseWriter, r *http.Request) {
	middleware.EnableCORS(w)
	series, err := h.facade.GetSeriesInfo(r.Context(), r.PathValue("id"))
	writeJSON(w, series, err)
}

func (h *Handlers) handleSeriesEpisodes(w http.ResponseWriter, r *http.Request) {
	middleware.EnableCORS(w)
	page := atoiDefault(r.URL.Query().Get("page"), 1)
	result, err := h.facade.GetSeriesEpisodes(r.Context(), r.PathValue("id"), page)
	writeJSON(w, result, err)
}

func (h *Handlers) handleSeriesVideos(w http.ResponseWriter, r *http.Request) {
	middleware.EnableCORS(w)
	number := atoiDefault(r.URL.Query().Get("number"), 0)
	videos, err := h.facade.GetSeriesVideos(r.Context(), r.PathValue("id"), r.PathValue("episodeID"), number)
	writeJSON(w, videos, err)
}

// parseFilters decodes repeated ?filter=id:value1,value2 query params
// into SearchFilter records.
func parseFilters(raw []string) []types.SearchFilter {
	if len(raw) == 0 {
		return nil
	}
	out := make([]types.SearchFilter, 0, len(raw))
	for _, f := range raw {
		id, values, ok := strings.Cut(f, ":")
		if !ok || id == "" {
			continue
		}
		out = append(out, types.SearchFilter{ID: id, Values: strings.Split(values, ",")})
	}
	return out
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, payload any, err error) {
	if err != nil {
		status := http.StatusInternalServerError
		if err == gateway.ErrNotLoaded {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
