package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sidelinehq/trophy-cabinet/domains/awards/be/service"
	"github.com/sidelinehq/trophy-cabinet/platform/go/auth"
	"github.com/sidelinehq/trophy-cabinet/platform/go/httpapi"
	platformlogging "github.com/sidelinehq/trophy-cabinet/platform/go/logging"
	"github.com/sidelinehq/trophy-cabinet/platform/go/validation"
)

type operation string

const (
	createOperation       operation = "createAward"
	getOperation          operation = "getAward"
	listOperation         operation = "listAwards"
	deleteOperation       operation = "deleteAward"
	createSeasonOperation operation = "createSeason"
	listSeasonsOperation  operation = "listSeasons"
	createTeamOperation   operation = "createTeam"
	listTeamsOperation    operation = "listTeams"
)

// Handler wires the awards service to its HTTP routes.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("awards service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the award and catalog routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/tenants/{tenantID}/awards", h.List)
	r.Post("/tenants/{tenantID}/awards", h.Create)
	r.Get("/awards/{awardID}", h.Get)
	r.Delete("/awards/{awardID}", h.Delete)
	r.Get("/tenants/{tenantID}/seasons", h.ListSeasons)
	r.Post("/tenants/{tenantID}/seasons", h.CreateSeason)
	r.Get("/tenants/{tenantID}/teams", h.ListTeams)
	r.Post("/tenants/{tenantID}/teams", h.CreateTeam)
}

type personResponse struct {
	ID          uuid.UUID `json:"id"`
	DisplayName *string   `json:"displayName,omitempty"`
	AvatarURL   *string   `json:"avatarUrl,omitempty"`
}

type templateSummaryResponse struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	IconURL *string   `json:"iconUrl,omitempty"`
	Tier    *string   `json:"tier,omitempty"`
	Points  int       `json:"points"`
}

type seasonResponse struct {
	ID        uuid.UUID  `json:"id"`
	TenantID  uuid.UUID  `json:"tenantId"`
	Name      string     `json:"name"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
}

type teamResponse struct {
	ID        uuid.UUID  `json:"id"`
	TenantID  uuid.UUID  `json:"tenantId"`
	SeasonID  *uuid.UUID `json:"seasonId,omitempty"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"createdAt"`
}

type awardResponse struct {
	ID        uuid.UUID               `json:"id"`
	TenantID  uuid.UUID               `json:"tenantId"`
	Template  templateSummaryResponse `json:"template"`
	Recipient personResponse          `json:"recipient"`
	AwardedBy personResponse          `json:"awardedBy"`
	Season    *seasonResponse         `json:"season,omitempty"`
	Team      *teamResponse           `json:"team,omitempty"`
	AwardedAt time.Time               `json:"awardedAt"`
	Notes     *string                 `json:"notes,omitempty"`
	IsPublic  bool                    `json:"isPublic"`
	CreatedAt time.Time               `json:"createdAt"`
}

type createAwardRequest struct {
	TrophyTemplateID uuid.UUID  `json:"trophyTemplateId"`
	RecipientUserID  uuid.UUID  `json:"recipientUserId"`
	SeasonID         *uuid.UUID `json:"seasonId,omitempty"`
	TeamID           *uuid.UUID `json:"teamId,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
	IsPublic         bool       `json:"isPublic"`
}

type createSeasonRequest struct {
	Name      string     `json:"name"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	IsActive  bool       `json:"isActive"`
}

type createTeamRequest struct {
	Name     string     `json:"name"`
	SeasonID *uuid.UUID `json:"seasonId,omitempty"`
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

	var awards []service.Award
	if raw := r.URL.Query().Get("recipientId"); raw != "" {
		recipientID, err := uuid.Parse(raw)
		if err != nil {
			httpapi.WriteProblem(w, httpapi.ProblemDetails{
				Type:   httpapi.ProblemTypeValidation,
				Title:  "Validation failed",
				Status: http.StatusBadRequest,
				Detail: "recipientId must be a UUID",
			})
			return
		}
		awards, err = h.svc.ListForRecipient(r.Context(), actor, tenantID, recipientID)
		if err != nil {
			h.writeError(r.Context(), w, err, listOperation)
			return
		}
	} else {
		awards, err = h.svc.ListForTenant(r.Context(), actor, tenantID)
		if err != nil {
			h.writeError(r.Context(), w, err, listOperation)
			return
		}
	}

	items := make([]awardResponse, 0, len(awards))
	for _, award := range awards {
		items = append(items, toAwardResponse(award))
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

	var body createAwardRequest
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		h.writeBadBody(w)
		return
	}

	award, err := h.svc.Create(r.Context(), actor, tenantID, service.CreateInput{
		TrophyTemplateID: body.TrophyTemplateID,
		RecipientUserID:  body.RecipientUserID,
		SeasonID:         body.SeasonID,
		TeamID:           body.TeamID,
		Notes:            body.Notes,
		IsPublic:         body.IsPublic,
	})
	if err != nil {
		h.writeError(r.Context(), w, err, createOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusCreated, toAwardResponse(award))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		h.writeUnauthorized(w)
		return
	}

	awardID, err := uuid.Parse(chi.URLParam(r, "awardID"))
	if err != nil {
		h.writeError(r.Context(), w, service.ErrNotFound, getOperation)
		return
	}

	award, err := h.svc.Get(r.Context(), actor, awardID)
	if err != nil {
		h.writeError(r.Context(), w, err, getOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toAwardResponse(award))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		h.writeUnauthorized(w)
		return
	}

	awardID, err := uuid.Parse(chi.URLParam(r, "awardID"))
	if err != nil {
		h.writeError(r.Context(), w, service.ErrNotFound, deleteOperation)
		return
	}

	if err := h.svc.Delete(r.Context(), actor, awardID); err != nil {
		h.writeError(r.Context(), w, err, deleteOperation)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListSeasons(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		h.writeUnauthorized(w)
		return
	}

	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		h.writeError(r.Context(), w, service.ErrNotFound, listSeasonsOperation)
		return
	}

	seasons, err := h.svc.ListSeasons(r.Context(), actor, tenantID)
	if err != nil {
		h.writeError(r.Context(), w, err, listSeasonsOperation)
		return
	}

	items := make([]seasonResponse, 0, len(seasons))
	for _, season := range seasons {
		items = append(items, toSeasonResponse(season))
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) CreateSeason(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		h.writeUnauthorized(w)
		return
	}

	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		h.writeError(r.Context(), w, service.ErrNotFound, createSeasonOperation)
		return
	}

	var body createSeasonRequest
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		h.writeBadBody(w)
		return
	}

	season, err := h.svc.CreateSeason(r.Context(), actor, tenantID, service.SeasonInput{
		Name:      body.Name,
		StartDate: body.StartDate,
		EndDate:   body.EndDate,
		IsActive:  body.IsActive,
	})
	if err != nil {
		h.writeError(r.Context(), w, err, createSeasonOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusCreated, toSeasonResponse(season))
}

func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		h.writeUnauthorized(w)
		return
	}

	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		h.writeError(r.Context(), w, service.ErrNotFound, listTeamsOperation)
		return
	}

	teams, err := h.svc.ListTeams(r.Context(), actor, tenantID)
	if err != nil {
		h.writeError(r.Context(), w, err, listTeamsOperation)
		return
	}

	items := make([]teamResponse, 0, len(teams))
	for _, team := range teams {
		items = append(items, toTeamResponse(team))
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		h.writeUnauthorized(w)
		return
	}

	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		h.writeError(r.Context(), w, service.ErrNotFound, createTeamOperation)
		return
	}

	var body createTeamRequest
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		h.writeBadBody(w)
		return
	}

	team, err := h.svc.CreateTeam(r.Context(), actor, tenantID, service.TeamInput{
		Name:     body.Name,
		SeasonID: body.SeasonID,
	})
	if err != nil {
		h.writeError(r.Context(), w, err, createTeamOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusCreated, toTeamResponse(team))
}

func toAwardResponse(award service.Award) awardResponse {
	resp := awardResponse{
		ID:       award.ID,
		TenantID: award.TenantID,
		Template: templateSummaryResponse{
			ID:      award.Template.ID,
			Name:    award.Template.Name,
			IconURL: award.Template.IconURL,
			Tier:    award.Template.Tier,
			Points:  award.Template.Points,
		},
		Recipient: personResponse{
			ID:          award.Recipient.ID,
			DisplayName: award.Recipient.DisplayName,
			AvatarURL:   award.Recipient.AvatarURL,
		},
		AwardedBy: personResponse{
			ID:          award.AwardedBy.ID,
			DisplayName: award.AwardedBy.DisplayName,
			AvatarURL:   award.AwardedBy.AvatarURL,
		},
		AwardedAt: award.AwardedAt,
		Notes:     award.Notes,
		IsPublic:  award.IsPublic,
		CreatedAt: award.CreatedAt,
	}
	if award.Season != nil {
		season := toSeasonResponse(*award.Season)
		resp.Season = &season
	}
	if award.Team != nil {
		team := toTeamResponse(*award.Team)
		resp.Team = &team
	}
	return resp
}

func toSeasonResponse(season service.Season) seasonResponse {
	return seasonResponse{
		ID:        season.ID,
		TenantID:  season.TenantID,
		Name:      season.Name,
		StartDate: season.StartDate,
		EndDate:   season.EndDate,
		IsActive:  season.IsActive,
		CreatedAt: season.CreatedAt,
	}
}

func toTeamResponse(team service.Team) teamResponse {
	return teamResponse{
		ID:        team.ID,
		TenantID:  team.TenantID,
		SeasonID:  team.SeasonID,
		Name:      team.Name,
		CreatedAt: team.CreatedAt,
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
		logger.Error("awards operation failed", append(fields, zap.Error(err))...)
	case status == http.StatusNotFound:
		logger.Info("award resource not found", fields...)
	default:
		logger.Warn("awards request rejected", append(fields, zap.Error(err))...)
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
			Detail: "you do not have access to this resource",
		}
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, httpapi.ProblemDetails{
			Type:   httpapi.ProblemTypeNotFound,
			Title:  "Resource not found",
			Status: http.StatusNotFound,
			Detail: "award, season, team or referenced entity not found",
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
