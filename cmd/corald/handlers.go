package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/openbiome/coral/pkg/access"
	"github.com/openbiome/coral/pkg/catalog"
	"github.com/openbiome/coral/pkg/identity"
	"github.com/openbiome/coral/pkg/observability"
	"github.com/openbiome/coral/pkg/permission"
)

// accessHandler serves permission introspection for operators and
// downstream services: what level does this token resolve to on this
// resource.
type accessHandler struct {
	resolver *access.Resolver
	idp      identity.Provider
}

type accessResponse struct {
	Level string `json:"level"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// principal validates the bearer token when one is present. A request
// without an Authorization header is anonymous, not an error.
func (h *accessHandler) principal(r *http.Request) (*access.Principal, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, nil
	}
	token := strings.TrimPrefix(header, "Bearer ")
	return h.idp.Validate(r.Context(), token)
}

// resourceID parses the path id variable.
func resourceID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, access.ErrBadRequest
	}
	return id, nil
}

func (h *accessHandler) project(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.resolver.ResolveProject)
}

func (h *accessHandler) sample(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.resolver.ResolveSample)
}

func (h *accessHandler) group(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.resolver.ResolveGroup)
}

func (h *accessHandler) resolve(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, id int64, p *access.Principal) (permission.Level, error)) {
	id, err := resourceID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	principal, err := h.principal(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	level, err := fn(r.Context(), id, principal)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, accessResponse{Level: level.String()})
}

// writeError maps the permission-layer error taxonomy to HTTP statuses.
func (h *accessHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, access.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, access.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, access.ErrBadRequest):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		observability.FromContext(r.Context()).WithError(err).Error("access check failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
