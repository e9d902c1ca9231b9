package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-identity/domains/tenants/be/service"
	platformlogging "github.com/zenGate-Global/palmyra-identity/platform/go/logging"
	"github.com/zenGate-Global/palmyra-identity/platform/go/persistence"
)

// Handler wires the tenants service to the HTTP surface.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("tenants service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the tenant routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/tenants", h.ListTenants)
	r.Post("/tenants", h.CreateTenant)
	r.Delete("/tenants/{tenantId}", h.DeleteTenant)
}

type tenantResponse struct {
	TenantID  string    `json:"tenantId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toTenantResponse(tenant service.Tenant) tenantResponse {
	return tenantResponse{
		TenantID:  tenant.ID.String(),
		Name:      tenant.Name,
		CreatedAt: tenant.CreatedAt,
		UpdatedAt: tenant.UpdatedAt,
	}
}

func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items := make([]tenantResponse, 0, len(tenants))
	for _, tenant := range tenants {
		items = append(items, toTenantResponse(tenant))
	}

	writeJSON(w, http.StatusOK, items)
}

type createTenantRequest struct {
	Name string `json:"name"`
}

func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	tenant, err := h.svc.Create(r.Context(), req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTenantResponse(tenant))
}

func (h *Handler) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "tenantId"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid tenant id", nil)
		return
	}

	tenant, svcErr := h.svc.Delete(r.Context(), id)
	if svcErr != nil {
		h.writeError(w, r, svcErr)
		return
	}

	writeJSON(w, http.StatusOK, toTenantResponse(tenant))
}

type problem struct {
	Status int                 `json:"status"`
	Detail string              `json:"detail"`
	Fields map[string][]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeProblem(w http.ResponseWriter, status int, detail string, fields map[string][]string) {
	writeJSON(w, status, problem{Status: status, Detail: detail, Fields: fields})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *persistence.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeProblem(w, http.StatusBadRequest, "validation error", validationErr.Fields)
	case errors.Is(err, service.ErrDuplicate):
		writeProblem(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, service.ErrNotFound):
		writeProblem(w, http.StatusNotFound, err.Error(), nil)
	default:
		logger := platformlogging.FromRequest(r, h.logger)
		logger.Error("tenant operation failed", zap.Error(err))
		writeProblem(w, http.StatusInternalServerError, "internal error", nil)
	}
}
