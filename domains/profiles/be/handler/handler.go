package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sidelinehq/trophy-cabinet/domains/profiles/be/service"
	"github.com/sidelinehq/trophy-cabinet/platform/go/auth"
	"github.com/sidelinehq/trophy-cabinet/platform/go/httpapi"
	platformlogging "github.com/sidelinehq/trophy-cabinet/platform/go/logging"
	"github.com/sidelinehq/trophy-cabinet/platform/go/validation"
)

type operation string

const (
	meOperation       operation = "getOwnProfile"
	updateMeOperation operation = "updateOwnProfile"
)

// Handler wires the profiles service to the /me routes.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("profiles service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the own-profile routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/me", h.Me)
	r.Patch("/me", h.UpdateMe)
}

type profileResponse struct {
	UserID      uuid.UUID `json:"userId"`
	DisplayName *string   `json:"displayName,omitempty"`
	AvatarURL   *string   `json:"avatarUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type updateProfileRequest struct {
	DisplayName *string `json:"displayName,omitempty"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
}

// Me upserts the caller's profile from their token claims and returns it.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.writeUnauthorized(w)
		return
	}

	profile, err := h.svc.Ensure(r.Context(), *ident)
	if err != nil {
		h.writeError(r.Context(), w, err, meOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toProfileResponse(profile))
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.writeUnauthorized(w)
		return
	}

	var body updateProfileRequest
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		httpapi.WriteProblem(w, httpapi.ProblemDetails{
			Type:   httpapi.ProblemTypeValidation,
			Title:  "Invalid request body",
			Status: http.StatusBadRequest,
		})
		return
	}

	profile, err := h.svc.Update(r.Context(), ident.UserID(), service.UpdateInput{
		DisplayName: body.DisplayName,
		AvatarURL:   body.AvatarURL,
	})
	if err != nil {
		h.writeError(r.Context(), w, err, updateMeOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toProfileResponse(profile))
}

func toProfileResponse(profile service.Profile) profileResponse {
	return profileResponse{
		UserID:      profile.UserID,
		DisplayName: profile.DisplayName,
		AvatarURL:   profile.AvatarURL,
		CreatedAt:   profile.CreatedAt,
		UpdatedAt:   profile.UpdatedAt,
	}
}

func (h *Handler) writeUnauthorized(w http.ResponseWriter) {
	httpapi.WriteProblem(w, httpapi.ProblemDetails{
		Type:   httpapi.ProblemTypeUnauthorized,
		Title:  "Authentication required",
		Status: http.StatusUnauthorized,
	})
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error, op operation) {
	status, problem := h.classifyError(err)

	logger := h.loggerFrom(ctx)
	fields := []zap.Field{
		zap.String("operation", string(op)),
		zap.Int("status", status),
	}

	if status >= http.StatusInternalServerError {
		logger.Error("profiles operation failed", append(fields, zap.Error(err))...)
	} else {
		logger.Warn("profiles request rejected", append(fields, zap.Error(err))...)
	}

	httpapi.WriteProblem(w, problem)
}

func (h *Handler) classifyError(err error) (int, httpapi.ProblemDetails) {
	var validationErr *validation.Error
	switch {
	case errors.As(err, &validationErr):
		fields := map[string][]string(validationErr.Fields)
		return http.StatusBadRequest, httpapi.ProblemDetails{
			Type:   httpapi.ProblemTypeValidation,
			Title:  "Validation failed",
			Status: http.StatusBadRequest,
			Detail: "one or more fields are invalid",
			Errors: &fields,
		}
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, httpapi.ProblemDetails{
			Type:   httpapi.ProblemTypeNotFound,
			Title:  "Resource not found",
			Status: http.StatusNotFound,
			Detail: "profile not found",
		}
	default:
		return http.StatusInternalServerError, httpapi.ProblemDetails{
			Type:   httpapi.ProblemTypeInternal,
			Title:  "Internal server error",
			Status: http.StatusInternalServerError,
			Detail: "an unexpected error occurred",
		}
	}
}

func (h *Handler) loggerFrom(ctx context.Context) *zap.Logger {
	if logger, ok := platformlogging.FromContext(ctx); ok {
		return logger
	}
	return h.logger
}
