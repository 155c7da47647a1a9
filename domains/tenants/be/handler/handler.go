package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sidelinehq/trophy-cabinet/domains/tenants/be/service"
	"github.com/sidelinehq/trophy-cabinet/platform/go/auth"
	"github.com/sidelinehq/trophy-cabinet/platform/go/httpapi"
	platformlogging "github.com/sidelinehq/trophy-cabinet/platform/go/logging"
	"github.com/sidelinehq/trophy-cabinet/platform/go/validation"
)

const tenantsBasePath = "/api/v1/tenants"

type operation string

const (
	createOperation operation = "createClub"
	getOperation    operation = "getClub"
	updateOperation operation = "updateClub"
)

// Handler wires the clubs service to its HTTP routes.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("clubs service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the club routes. The lookup accepts a slug or an ID; the
// slug form serves the join flow, so it only needs a session, not a
// membership.
func (h *Handler) Register(r chi.Router) {
	r.Post("/tenants", h.Create)
	r.Get("/tenants/{tenantID}", h.Get)
	r.Patch("/tenants/{tenantID}", h.Update)
}

type clubResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	LogoURL   *string   `json:"logoUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type createClubRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type updateClubRequest struct {
	Name    *string `json:"name,omitempty"`
	LogoURL *string `json:"logoUrl,omitempty"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.writeUnauthorized(w)
		return
	}

	var body createClubRequest
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		h.writeBadBody(w)
		return
	}

	club, err := h.svc.Create(r.Context(), *ident, service.CreateInput{
		Name: body.Name,
		Slug: body.Slug,
	})
	if err != nil {
		h.writeError(r.Context(), w, err, createOperation)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("%s/%s", tenantsBasePath, club.Slug))
	httpapi.WriteJSON(w, http.StatusCreated, toClubResponse(club))
}

// Get resolves a club by ID for members, or by slug for anyone holding a
// session. The slug form backs the join screen.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "tenantID")

	if id, err := uuid.Parse(ref); err == nil {
		actor, ok := actorFrom(r)
		if !ok {
			h.writeUnauthorized(w)
			return
		}
		club, err := h.svc.Get(r.Context(), actor, id)
		if err != nil {
			h.writeError(r.Context(), w, err, getOperation)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, toClubResponse(club))
		return
	}

	club, err := h.svc.GetBySlug(r.Context(), ref)
	if err != nil {
		h.writeError(r.Context(), w, err, getOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toClubResponse(club))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		h.writeUnauthorized(w)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		h.writeError(r.Context(), w, service.ErrNotFound, updateOperation)
		return
	}

	var body updateClubRequest
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		h.writeBadBody(w)
		return
	}

	club, err := h.svc.Update(r.Context(), actor, id, service.UpdateInput{
		Name:    body.Name,
		LogoURL: body.LogoURL,
	})
	if err != nil {
		h.writeError(r.Context(), w, err, updateOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toClubResponse(club))
}

func toClubResponse(club service.Club) clubResponse {
	return clubResponse{
		ID:        club.ID,
		Name:      club.Name,
		Slug:      club.Slug,
		LogoURL:   club.LogoURL,
		CreatedAt: club.CreatedAt,
		UpdatedAt: club.UpdatedAt,
	}
}

func actorFrom(r *http.Request) (uuid.UUID, bool) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return uuid.Nil, false
	}
	return ident.UserID(), true
}

func (h *Handler) writeUnauthorized(w http.ResponseWriter) {
	httpapi.WriteProblem(w, httpapi.ProblemDetails{
		Type:   httpapi.ProblemTypeUnauthorized,
		Title:  "Authentication required",
		Status: http.StatusUnauthorized,
	})
}

func (h *Handler) writeBadBody(w http.ResponseWriter) {
	httpapi.WriteProblem(w, httpapi.ProblemDetails{
		Type:   httpapi.ProblemTypeValidation,
		Title:  "Invalid request body",
		Status: http.StatusBadRequest,
	})
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error, op operation) {
	status, problem := h.classifyError(err)

	logger := h.loggerFrom(ctx)
	fields := []zap.Field{
		zap.String("operation", string(op)),
		zap.Int("status", status),
	}

	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("clubs operation failed", append(fields, zap.Error(err))...)
	case status == http.StatusNotFound:
		logger.Info("club not found", fields...)
	default:
		logger.Warn("clubs request rejected", append(fields, zap.Error(err))...)
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
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, httpapi.ProblemDetails{
			Type:   httpapi.ProblemTypeForbidden,
			Title:  "Forbidden",
			Status: http.StatusForbidden,
			Detail: "you do not have access to this club",
		}
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, httpapi.ProblemDetails{
			Type:   httpapi.ProblemTypeNotFound,
			Title:  "Resource not found",
			Status: http.StatusNotFound,
			Detail: "club not found",
		}
	case errors.Is(err, service.ErrSlugConflict):
		return http.StatusConflict, httpapi.ProblemDetails{
			Type:   httpapi.ProblemTypeConflict,
			Title:  "Conflict",
			Status: http.StatusConflict,
			Detail: "a club with this slug already exists",
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
