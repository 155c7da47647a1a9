package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sidelinehq/trophy-cabinet/domains/memberships/be/service"
	"github.com/sidelinehq/trophy-cabinet/platform/go/auth"
	"github.com/sidelinehq/trophy-cabinet/platform/go/httpapi"
	platformlogging "github.com/sidelinehq/trophy-cabinet/platform/go/logging"
	"github.com/sidelinehq/trophy-cabinet/platform/go/validation"
)

type operation string

const (
	listMembersOperation operation = "listMembers"
	changeRoleOperation  operation = "changeMemberRole"
	removeOperation      operation = "removeMember"
	issueCodeOperation   operation = "issueInviteCode"
	listCodesOperation   operation = "listInviteCodes"
	deactivateOperation  operation = "deactivateInviteCode"
	joinOperation        operation = "joinWithInviteCode"
	myClubsOperation     operation = "listMyClubs"
)

// Handler wires the memberships service to its HTTP routes.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("memberships service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the membership and invite code routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/me/tenants", h.ListMyClubs)
	r.Post("/tenants:join", h.Join)
	r.Get("/tenants/{tenantID}/members", h.ListMembers)
	r.Patch("/memberships/{membershipID}", h.ChangeRole)
	r.Delete("/memberships/{membershipID}", h.Remove)
	r.Post("/tenants/{tenantID}/invite-codes", h.IssueInviteCode)
	r.Get("/tenants/{tenantID}/invite-codes", h.ListInviteCodes)
	r.Post("/invite-codes/{codeID}:deactivate", h.DeactivateInviteCode)
}

type memberResponse struct {
	MembershipID uuid.UUID  `json:"membershipId"`
	TenantID     uuid.UUID  `json:"tenantId"`
	UserID       uuid.UUID  `json:"userId"`
	Role         string     `json:"role"`
	Status       string     `json:"status"`
	JoinedAt     *time.Time `json:"joinedAt,omitempty"`
	DisplayName  *string    `json:"displayName,omitempty"`
	AvatarURL    *string    `json:"avatarUrl,omitempty"`
}

type clubMembershipResponse struct {
	MembershipID uuid.UUID  `json:"membershipId"`
	Role         string     `json:"role"`
	Status       string     `json:"status"`
	JoinedAt     *time.Time `json:"joinedAt,omitempty"`
	TenantID     uuid.UUID  `json:"tenantId"`
	TenantName   string     `json:"tenantName"`
	TenantSlug   string     `json:"tenantSlug"`
	TenantLogo   *string    `json:"tenantLogoUrl,omitempty"`
}

type inviteCodeResponse struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenantId"`
	Code        string     `json:"code"`
	RoleDefault string     `json:"roleDefault"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	MaxUses     *int       `json:"maxUses,omitempty"`
	UsesCount   int        `json:"usesCount"`
	IsActive    bool       `json:"isActive"`
	Usable      bool       `json:"usable"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type joinResponse struct {
	MembershipID uuid.UUID  `json:"membershipId"`
	TenantID     uuid.UUID  `json:"tenantId"`
	Role         string     `json:"role"`
	Status       string     `json:"status"`
	JoinedAt     *time.Time `json:"joinedAt,omitempty"`
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

type issueInviteCodeRequest struct {
	RoleDefault string     `json:"roleDefault,omitempty"`
	MaxUses     *int       `json:"maxUses,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

type joinRequest struct {
	Code string `json:"code"`
}

func (h *Handler) ListMyClubs(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		h.writeUnauthorized(w)
		return
	}

	clubs, err := h.svc.ListForUser(r.Context(), actor)
	if err != nil {
		h.writeError(r.Context(), w, err, myClubsOperation)
		return
	}

	items := make([]clubMembershipResponse, 0, len(clubs))
	for _, club := range clubs {
		items = append(items, clubMembershipResponse{
			MembershipID: club.MembershipID,
			Role:         club.Role.String(),
			Status:       club.Status.String(),
			JoinedAt:     club.JoinedAt,
			TenantID:     club.TenantID,
			TenantName:   club.TenantName,
			TenantSlug:   club.TenantSlug,
			TenantLogo:   club.TenantLogo,
		})
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.writeUnauthorized(w)
		return
	}

	var body joinRequest
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		h.writeBadBody(w)
		return
	}

	result, err := h.svc.Redeem(r.Context(), *ident, body.Code)
	if err != nil {
		h.writeError(r.Context(), w, err, joinOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, joinResponse{
		MembershipID: result.MembershipID,
		TenantID:     result.TenantID,
		Role:         result.Role.String(),
		Status:       result.Status.String(),
		JoinedAt:     result.JoinedAt,
	})
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		h.writeUnauthorized(w)
		return
	}

	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		h.writeError(r.Context(), w, service.ErrNotFound, listMembersOperation)
		return
	}

	members, err := h.svc.ListMembers(r.Context(), actor, tenantID)
	if err != nil {
		h.writeError(r.Context(), w, err, listMembersOperation)
		return
	}

	items := make([]memberResponse, 0, len(members))
	for _, member := range members {
		items = append(items, toMemberResponse(member))
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		h.writeUnauthorized(w)
		return
	}

	membershipID, err := uuid.Parse(chi.URLParam(r, "membershipID"))
	if err != nil {
		h.writeError(r.Context(), w, service.ErrNotFound, changeRoleOperation)
		return
	}

	var body changeRoleRequest
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		h.writeBadBody(w)
		return
	}

	member, err := h.svc.ChangeRole(r.Context(), actor, membershipID, body.Role)
	if err != nil {
		h.writeError(r.Context(), w, err, changeRoleOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toMemberResponse(member))
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		h.writeUnauthorized(w)
		return
	}

	membershipID, err := uuid.Parse(chi.URLParam(r, "membershipID"))
	if err != nil {
		h.writeError(r.Context(), w, service.ErrNotFound, removeOperation)
		return
	}

	if err := h.svc.Remove(r.Context(), actor, membershipID); err != nil {
		h.writeError(r.Context(), w, err, removeOperation)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) IssueInviteCode(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		h.writeUnauthorized(w)
		return
	}

	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		h.writeError(r.Context(), w, service.ErrNotFound, issueCodeOperation)
		return
	}

	var body issueInviteCodeRequest
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		h.writeBadBody(w)
		return
	}

	code, err := h.svc.IssueInviteCode(r.Context(), actor, tenantID, service.IssueInput{
		RoleDefault: body.RoleDefault,
		MaxUses:     body.MaxUses,
		ExpiresAt:   body.ExpiresAt,
	})
	if err != nil {
		h.writeError(r.Context(), w, err, issueCodeOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusCreated, toInviteCodeResponse(code))
}

func (h *Handler) ListInviteCodes(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		h.writeUnauthorized(w)
		return
	}

	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		h.writeError(r.Context(), w, service.ErrNotFound, listCodesOperation)
		return
	}

	codes, err := h.svc.ListInviteCodes(r.Context(), actor, tenantID)
	if err != nil {
		h.writeError(r.Context(), w, err, listCodesOperation)
		return
	}

	items := make([]inviteCodeResponse, 0, len(codes))
	for _, code := range codes {
		items = append(items, toInviteCodeResponse(code))
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) DeactivateInviteCode(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		h.writeUnauthorized(w)
		return
	}

	codeID, err := uuid.Parse(chi.URLParam(r, "codeID"))
	if err != nil {
		h.writeError(r.Context(), w, service.ErrNotFound, deactivateOperation)
		return
	}

	if err := h.svc.DeactivateInviteCode(r.Context(), actor, codeID); err != nil {
		h.writeError(r.Context(), w, err, deactivateOperation)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toMemberResponse(member service.Member) memberResponse {
	return memberResponse{
		MembershipID: member.MembershipID,
		TenantID:     member.TenantID,
		UserID:       member.UserID,
		Role:         member.Role.String(),
		Status:       member.Status.String(),
		JoinedAt:     member.JoinedAt,
		DisplayName:  member.DisplayName,
		AvatarURL:    member.AvatarURL,
	}
}

func toInviteCodeResponse(code service.InviteCode) inviteCodeResponse {
	return inviteCodeResponse{
		ID:          code.ID,
		TenantID:    code.TenantID,
		Code:        code.Code,
		RoleDefault: code.RoleDefault.String(),
		ExpiresAt:   code.ExpiresAt,
		MaxUses:     code.MaxUses,
		UsesCount:   code.UsesCount,
		IsActive:    code.IsActive,
		Usable:      code.Usable,
		CreatedAt:   code.CreatedAt,
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
		logger.Error("memberships operation failed", append(fields, zap.Error(err))...)
	case status == http.StatusNotFound:
		logger.Info("membership resource not found", fields...)
	default:
		logger.Warn("memberships request rejected", append(fields, zap.Error(err))...)
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
			Detail: "you do not have permission to manage this membership",
		}
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrCodeInvalid):
		return http.StatusNotFound, httpapi.ProblemDetails{
			Type:   httpapi.ProblemTypeNotFound,
			Title:  "Resource not found",
			Status: http.StatusNotFound,
			Detail: "membership or invite code not found",
		}
	case errors.Is(err, service.ErrCodeExhausted):
		return http.StatusConflict, httpapi.ProblemDetails{
			Type:   httpapi.ProblemTypeConflict,
			Title:  "Invite code exhausted",
			Status: http.StatusConflict,
			Detail: "this invite code has reached its maximum number of uses",
		}
	case errors.Is(err, service.ErrCodeExpired):
		return http.StatusGone, httpapi.ProblemDetails{
			Type:   httpapi.ProblemTypeGone,
			Title:  "Invite code expired",
			Status: http.StatusGone,
			Detail: "this invite code is past its expiry date",
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
