package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"ntm-hq/ntm/pkg/registry"
	"ntm-hq/ntm/pkg/render"
	"ntm-hq/ntm/pkg/telemetry/logging"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// RegistryHandler serves the client and proxy routes.
type RegistryHandler struct {
	registry Registry
	logger   *slog.Logger
}

// NewRegistryHandler creates the registry route handlers.
func NewRegistryHandler(reg Registry, logger *slog.Logger) *RegistryHandler {
	return &RegistryHandler{
		registry: reg,
		logger:   logging.Component(logger, "api"),
	}
}

// Register mounts every registry route on mux, each wrapped by auth.
func (h *RegistryHandler) Register(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	if auth == nil {
		auth = func(next http.Handler) http.Handler { return next }
	}
	mux.Handle("GET /clients", auth(http.HandlerFunc(h.ListClients)))
	mux.Handle("PUT /client", auth(http.HandlerFunc(h.CreateClient)))
	mux.Handle("DELETE /client/{id}", auth(http.HandlerFunc(h.DeleteClient)))
	mux.Handle("GET /client/{id}/config", auth(http.HandlerFunc(h.ClientConfig)))
	mux.Handle("PUT /client/{id}/proxy", auth(http.HandlerFunc(h.AddProxy)))
	mux.Handle("DELETE /client/{id}/proxy/{name}", auth(http.HandlerFunc(h.RemoveProxy)))
}

// ListClients handles GET /clients.
func (h *RegistryHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newClientViews(h.registry.List()))
}

// CreateClient handles PUT /client with body {"id": "<client id>"}.
func (h *RegistryHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req createClientRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil || req.ID == nil {
		writeError(w, http.StatusBadRequest, errInvalidRequest.Error())
		return
	}

	if err := h.registry.CreateClient(r.Context(), *req.ID); err != nil {
		h.writeRegistryError(w, r, err)
		return
	}

	logging.FromContext(r.Context(), h.logger).Info("client created", "client_id", *req.ID)
	writeJSON(w, http.StatusCreated, MessageResponse{Message: "client added successfully"})
}

// DeleteClient handles DELETE /client/{id}.
func (h *RegistryHandler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.registry.DeleteClient(r.Context(), id); err != nil {
		h.writeRegistryError(w, r, err)
		return
	}

	logging.FromContext(r.Context(), h.logger).Info("client deleted", "client_id", id)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "client deleted successfully"})
}

// ClientConfig handles GET /client/{id}/config. The body is the rendered
// proxies section of the client configuration.
func (h *RegistryHandler) ClientConfig(w http.ResponseWriter, r *http.Request) {
	client, err := h.registry.Get(r.PathValue("id"))
	if err != nil {
		h.writeRegistryError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, render.Client(client))
}

// AddProxy handles PUT /client/{id}/proxy.
func (h *RegistryHandler) AddProxy(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, errInvalidRequest.Error())
		return
	}

	proxy, err := decodeProxy(data)
	if err != nil {
		logging.FromContext(r.Context(), h.logger).Debug("rejected proxy body", "error", err)
		writeError(w, http.StatusBadRequest, errInvalidRequest.Error())
		return
	}

	id := r.PathValue("id")
	if err := h.registry.AddProxy(r.Context(), id, proxy); err != nil {
		h.writeRegistryError(w, r, err)
		return
	}

	logging.FromContext(r.Context(), h.logger).Info("proxy added",
		"client_id", id,
		"proxy", proxy.Name,
		"type", proxy.Type,
		"remote_port", proxy.RemotePort,
	)
	writeJSON(w, http.StatusCreated, MessageResponse{Message: "proxy added successfully"})
}

// RemoveProxy handles DELETE /client/{id}/proxy/{name}.
func (h *RegistryHandler) RemoveProxy(w http.ResponseWriter, r *http.Request) {
	id, name := r.PathValue("id"), r.PathValue("name")
	if err := h.registry.RemoveProxy(r.Context(), id, name); err != nil {
		h.writeRegistryError(w, r, err)
		return
	}

	logging.FromContext(r.Context(), h.logger).Info("proxy removed", "client_id", id, "proxy", name)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "proxy deleted successfully"})
}

// writeRegistryError maps registry errors onto status codes.
func (h *RegistryHandler) writeRegistryError(w http.ResponseWriter, r *http.Request, err error) {
	var persistErr *registry.PersistError
	switch {
	case errors.As(err, &persistErr):
		logging.FromContext(r.Context(), h.logger).Error("registry mutation not persisted", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to persist registry")
	case errors.Is(err, registry.ErrProxyNotFound):
		writeError(w, http.StatusNotFound, registry.ErrProxyNotFound.Error())
	case errors.Is(err, registry.ErrClientNotFound):
		writeError(w, http.StatusBadRequest, registry.ErrClientNotFound.Error())
	case errors.Is(err, registry.ErrClientExists):
		writeError(w, http.StatusBadRequest, registry.ErrClientExists.Error())
	case errors.Is(err, registry.ErrProxyExists):
		writeError(w, http.StatusBadRequest, registry.ErrProxyExists.Error())
	case errors.Is(err, registry.ErrInvalidClient):
		writeError(w, http.StatusBadRequest, errInvalidRequest.Error())
	case errors.Is(err, registry.ErrInvalidProxy):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logging.FromContext(r.Context(), h.logger).Error("registry operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg})
}
