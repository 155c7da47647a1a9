package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sidelinehq/trophy-cabinet/domains/assets/be/service"
	"github.com/sidelinehq/trophy-cabinet/platform/go/auth"
	"github.com/sidelinehq/trophy-cabinet/platform/go/httpapi"
	platformlogging "github.com/sidelinehq/trophy-cabinet/platform/go/logging"
	"github.com/sidelinehq/trophy-cabinet/platform/go/validation"
)

// Uploads buffer to memory up to this size before spilling to disk.
const maxUploadBytes = 10 << 20

type operation string

const (
	uploadOperation operation = "uploadAsset"
	deleteOperation operation = "deleteAsset"
)

// Handler receives multipart asset uploads for a club.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("assets service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the asset routes. Object keys contain slashes, so the
// delete route takes the key as a query parameter.
func (h *Handler) Register(r chi.Router) {
	r.Post("/tenants/{tenantID}/assets", h.Upload)
	r.Delete("/tenants/{tenantID}/assets", h.Delete)
}

type assetResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		httpapi.WriteProblem(w, httpapi.ProblemDetails{
			Type:   httpapi.ProblemTypeUnauthorized,
			Title:  "Authentication required",
			Status: http.StatusUnauthorized,
		})
		return
	}

	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		h.writeError(r.Context(), w, validation.NewError("tenantId", "must be a UUID"), uploadOperation)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.writeError(r.Context(), w, validation.NewError("file", "multipart form is required"), uploadOperation)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(r.Context(), w, validation.NewError("file", "file part is required"), uploadOperation)
		return
	}
	defer file.Close()

	asset, err := h.svc.Upload(r.Context(), actor, tenantID, service.UploadInput{
		Category:    r.FormValue("category"),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		h.writeError(r.Context(), w, err, uploadOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusCreated, assetResponse{Key: asset.Key, URL: asset.URL})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		httpapi.WriteProblem(w, httpapi.ProblemDetails{
			Type:   httpapi.ProblemTypeUnauthorized,
			Title:  "Authentication required",
			Status: http.StatusUnauthorized,
		})
		return
	}

	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		h.writeError(r.Context(), w, validation.NewError("tenantId", "must be a UUID"), deleteOperation)
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		h.writeError(r.Context(), w, validation.NewError("key", "object key is required"), deleteOperation)
		return
	}

	if err := h.svc.Delete(r.Context(), actor, tenantID, key); err != nil {
		h.writeError(r.Context(), w, err, deleteOperation)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func actorFrom(r *http.Request) (uuid.UUID, bool) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return uuid.Nil, false
	}
	return ident.UserID(), true
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error, op operation) {
	status, problem := classifyError(err)

	logger := h.loggerFrom(ctx)
	fields := []zap.Field{
		zap.String("operation", string(op)),
		zap.Int("status", status),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("asset operation failed", append(fields, zap.Error(err))...)
	} else {
		logger.Warn("asset request rejected", append(fields, zap.Error(err))...)
	}

	httpapi.WriteProblem(w, problem)
}

func classifyError(err error) (int, httpapi.ProblemDetails) {
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
			Detail: "you do not have access to this club's assets",
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
