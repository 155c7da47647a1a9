package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sidelinehq/trophy-cabinet/domains/trophies/be/service"
	"github.com/sidelinehq/trophy-cabinet/platform/go/auth"
	"github.com/sidelinehq/trophy-cabinet/platform/go/httpapi"
	platformlogging "github.com/sidelinehq/trophy-cabinet/platform/go/logging"
	"github.com/sidelinehq/trophy-cabinet/platform/go/validation"
)

type operation string

const (
	createOperation operation = "createTrophyTemplate"
	getOperation    operation = "getTrophyTemplate"
	listOperation   operation = "listTrophyTemplates"
	updateOperation operation = "updateTrophyTemplate"
	deleteOperation operation = "deleteTrophyTemplate"
)

// Handler wires the trophies service to its HTTP routes.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("trophies service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the trophy catalog routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/tenants/{tenantID}/trophies", h.List)
	r.Post("/tenants/{tenantID}/trophies", h.Create)
	r.Get("/trophies/{templateID}", h.Get)
	r.Patch("/trophies/{templateID}", h.Update)
	r.Delete("/trophies/{templateID}", h.Delete)
}

type templateResponse struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenantId"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	IconURL     *string   `json:"iconUrl,omitempty"`
	Tier        *string   `json:"tier,omitempty"`
	Points      int       `json:"points"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type createTemplateRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	IconURL     *string `json:"iconUrl,omitempty"`
	Tier        *string `json:"tier,omitempty"`
	Points      int     `json:"points"`
}

type updateTemplateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	IconURL     *string `json:"iconUrl,omitempty"`
	Tier        *string `json:"tier,omitempty"`
	Points      *int    `json:"points,omitempty"`
}

type deleteTemplateResponse struct {
	AwardsRemoved int64 `json:"awardsRemoved"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		h.writeUnauthorized(w)
		return
	}

	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		h.writeError(r.Context(), w, service.ErrNotFound, listOperation)
		return
	}

	templates, err := h.svc.List(r.Context(), actor, tenantID)
	if err != nil {
		h.writeError(r.Context(), w, err, listOperation)
		return
	}

	items := make([]templateResponse, 0, len(templates))
	for _, template := range templates {
		items = append(items, toTemplateResponse(template))
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		h.writeUnauthorized(w)
		return
	}

	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		h.writeError(r.Context(), w, service.ErrNotFound, createOperation)
		return
	}

	var body createTemplateRequest
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		h.writeBadBody(w)
		return
	}

	template, err := h.svc.Create(r.Context(), actor, tenantID, service.CreateInput{
		Name:        body.Name,
		Description: body.Description,
		IconURL:     body.IconURL,
		Tier:        body.Tier,
		Points:      body.Points,
	})
	if err != nil {
		h.writeError(r.Context(), w, err, createOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusCreated, toTemplateResponse(template))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		h.writeUnauthorized(w)
		return
	}

	templateID, err := uuid.Parse(chi.URLParam(r, "templateID"))
	if err != nil {
		h.writeError(r.Context(), w, service.ErrNotFound, getOperation)
		return
	}

	template, err := h.svc.Get(r.Context(), actor, templateID)
	if err != nil {
		h.writeError(r.Context(), w, err, getOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toTemplateResponse(template))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		h.writeUnauthorized(w)
		return
	}

	templateID, err := uuid.Parse(chi.URLParam(r, "templateID"))
	if err != nil {
		h.writeError(r.Context(), w, service.ErrNotFound, updateOperation)
		return
	}

	var body updateTemplateRequest
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		h.writeBadBody(w)
		return
	}

	template, err := h.svc.Update(r.Context(), actor, templateID, service.UpdateInput{
		Name:        body.Name,
		Description: body.Description,
		IconURL:     body.IconURL,
		Tier:        body.Tier,
		Points:      body.Points,
	})
	if err != nil {
		h.writeError(r.Context(), w, err, updateOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toTemplateResponse(template))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		h.writeUnauthorized(w)
		return
	}

	templateID, err := uuid.Parse(chi.URLParam(r, "templateID"))
	if err != nil {
		h.writeError(r.Context(), w, service.ErrNotFound, deleteOperation)
		return
	}

	removed, err := h.svc.Delete(r.Context(), actor, templateID)
	if err != nil {
		h.writeError(r.Context(), w, err, deleteOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, deleteTemplateResponse{AwardsRemoved: removed})
}

func toTemplateResponse(template service.Template) templateResponse {
	resp := templateResponse{
		ID:          template.ID,
		TenantID:    template.TenantID,
		Name:        template.Name,
		Description: template.Description,
		IconURL:     template.IconURL,
		Points:      template.Points,
		CreatedAt:   template.CreatedAt,
		UpdatedAt:   template.UpdatedAt,
	}
	if template.Tier != nil {
		tier := string(*template.Tier)
		resp.Tier = &tier
	}
	return resp
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
		logger.Error("trophies operation failed", append(fields, zap.Error(err))...)
	case status == http.StatusNotFound:
		logger.Info("trophy template not found", fields...)
	default:
		logger.Warn("trophies request rejected", append(fields, zap.Error(err))...)
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
			Detail: "you do not have access to this trophy catalog",
		}
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, httpapi.ProblemDetails{
			Type:   httpapi.ProblemTypeNotFound,
			Title:  "Resource not found",
			Status: http.StatusNotFound,
			Detail: "trophy template not found",
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
