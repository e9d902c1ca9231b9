package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-identity/domains/identity/be/service"
	platformauth "github.com/zenGate-Global/palmyra-identity/platform/go/auth"
	platformlogging "github.com/zenGate-Global/palmyra-identity/platform/go/logging"
	"github.com/zenGate-Global/palmyra-identity/platform/go/persistence"
)

// Handler wires the identity service to the HTTP surface.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("identity service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// RegisterPublic mounts the unauthenticated identity routes.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/login", h.Login)
	r.Post("/password/reset", h.ResetPassword)
	r.Post("/password/change", h.ChangePassword)
}

// RegisterProtected mounts the routes that require a verified bearer token.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Get("/me", h.Me)
	r.Get("/users", h.ListUsers)
	r.Post("/users", h.CreateUser)
	r.Delete("/users/{userId}", h.DeleteUser)
}

type userResponse struct {
	UserID        string    `json:"userId"`
	TenantID      string    `json:"tenantId"`
	Email         string    `json:"email"`
	FailedLogins  int       `json:"failedLogins"`
	AccountLocked bool      `json:"accountLocked"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func toUserResponse(user service.User) userResponse {
	return userResponse{
		UserID:        user.ID.String(),
		TenantID:      user.TenantID,
		Email:         user.Email,
		FailedLogins:  user.FailedLogins,
		AccountLocked: user.AccountLocked,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AuthToken string `json:"authToken"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{AuthToken: token.Token})
}

type resetPasswordRequest struct {
	Email string `json:"email"`
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	user, err := h.svc.ResetPassword(r.Context(), req.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

type changePasswordRequest struct {
	Email           string `json:"email"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	user, err := h.svc.ChangePassword(r.Context(), req.Email, req.CurrentPassword, req.NewPassword)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := platformauth.ClaimsFromContext(r.Context())
	if !ok {
		writeProblem(w, http.StatusUnauthorized, "you are not authenticated", nil)
		return
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		writeProblem(w, http.StatusUnauthorized, "you are not authenticated", nil)
		return
	}

	user, err := h.svc.Me(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	claims, ok := platformauth.ClaimsFromContext(r.Context())
	if !ok {
		writeProblem(w, http.StatusUnauthorized, "you are not authenticated", nil)
		return
	}

	users, err := h.svc.ListUsers(r.Context(), claims.TenantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items := make([]userResponse, 0, len(users))
	for _, user := range users {
		items = append(items, toUserResponse(user))
	}

	writeJSON(w, http.StatusOK, items)
}

type createUserRequest struct {
	TenantID string `json:"tenantId"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	user, err := h.svc.Signup(r.Context(), service.SignupInput{
		TenantID: req.TenantID,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid user id", nil)
		return
	}

	user, svcErr := h.svc.DeleteUser(r.Context(), id)
	if svcErr != nil {
		h.writeError(w, r, svcErr)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
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
	case errors.Is(err, service.ErrDuplicateUser):
		writeProblem(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, service.ErrAccountLocked),
		errors.Is(err, service.ErrIncorrectPassword),
		errors.Is(err, service.ErrNoSuchUser):
		writeProblem(w, http.StatusUnauthorized, err.Error(), nil)
	case errors.Is(err, service.ErrUserNotFound):
		writeProblem(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, platformauth.ErrInvalidToken):
		writeProblem(w, http.StatusUnauthorized, err.Error(), nil)
	default:
		logger := platformlogging.FromRequest(r, h.logger)
		logger.Error("identity operation failed", zap.Error(err))
		writeProblem(w, http.StatusInternalServerError, "internal error", nil)
	}
}
