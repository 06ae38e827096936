package handlers

import "net/http"

// StatusHandler serves GET /status.
type StatusHandler struct {
	role     string
	registry Registry
	stats    StatsSource
}

// NewStatusHandler creates a status handler. Either source may be nil.
func NewStatusHandler(role string, reg Registry, stats StatsSource) *StatusHandler {
	return &StatusHandler{role: role, registry: reg, stats: stats}
}

// ServeHTTP implements http.Handler.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Role: h.role}
	if h.registry != nil {
		resp.Clients, resp.Proxies = h.registry.Len()
	}
	if h.stats != nil {
		resp.Supervisor = h.stats.Stats()
	}
	writeJSON(w, http.StatusOK, resp)
}
