package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sidelinehq/trophy-cabinet/domains/memberships/be/service"
	platformauth "github.com/sidelinehq/trophy-cabinet/platform/go/auth"
	"github.com/sidelinehq/trophy-cabinet/platform/go/roles"
)

type mockService struct {
	resolveRoleFn func(ctx context.Context, tenantID, userID uuid.UUID) (roles.Role, error)
	listMembersFn func(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID) ([]service.Member, error)
	listForUserFn func(ctx context.Context, userID uuid.UUID) ([]service.ClubMembership, error)
	changeRoleFn  func(ctx context.Context, actor uuid.UUID, membershipID uuid.UUID, role string) (service.Member, error)
	removeFn      func(ctx context.Context, actor uuid.UUID, membershipID uuid.UUID) error
	issueFn       func(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID, input service.IssueInput) (service.InviteCode, error)
	listCodesFn   func(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID) ([]service.InviteCode, error)
	deactivateFn  func(ctx context.Context, actor uuid.UUID, codeID uuid.UUID) error
	redeemFn      func(ctx context.Context, identity platformauth.Identity, code string) (service.JoinResult, error)
}

func (m *mockService) ResolveRole(ctx context.Context, tenantID, userID uuid.UUID) (roles.Role, error) {
	if m.resolveRoleFn == nil {
		panic("resolveRoleFn not configured")
	}
	return m.resolveRoleFn(ctx, tenantID, userID)
}

func (m *mockService) ListMembers(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID) ([]service.Member, error) {
	if m.listMembersFn == nil {
		panic("listMembersFn not configured")
	}
	return m.listMembersFn(ctx, actor, tenantID)
}

func (m *mockService) ListForUser(ctx context.Context, userID uuid.UUID) ([]service.ClubMembership, error) {
	if m.listForUserFn == nil {
		panic("listForUserFn not configured")
	}
	return m.listForUserFn(ctx, userID)
}

func (m *mockService) ChangeRole(ctx context.Context, actor uuid.UUID, membershipID uuid.UUID, role string) (service.Member, error) {
	if m.changeRoleFn == nil {
		panic("changeRoleFn not configured")
	}
	return m.changeRoleFn(ctx, actor, membershipID, role)
}

func (m *mockService) Remove(ctx context.Context, actor uuid.UUID, membershipID uuid.UUID) error {
	if m.removeFn == nil {
		panic("removeFn not configured")
	}
	return m.removeFn(ctx, actor, membershipID)
}

func (m *mockService) IssueInviteCode(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID, input service.IssueInput) (service.InviteCode, error) {
	if m.issueFn == nil {
		panic("issueFn not configured")
	}
	return m.issueFn(ctx, actor, tenantID, input)
}

func (m *mockService) ListInviteCodes(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID) ([]service.InviteCode, error) {
	if m.listCodesFn == nil {
		panic("listCodesFn not configured")
	}
	return m.listCodesFn(ctx, actor, tenantID)
}

func (m *mockService) DeactivateInviteCode(ctx context.Context, actor uuid.UUID, codeID uuid.UUID) error {
	if m.deactivateFn == nil {
		panic("deactivateFn not configured")
	}
	return m.deactivateFn(ctx, actor, codeID)
}

func (m *mockService) Redeem(ctx context.Context, identity platformauth.Identity, code string) (service.JoinResult, error) {
	if m.redeemFn == nil {
		panic("redeemFn not configured")
	}
	return m.redeemFn(ctx, identity, code)
}

func newTestRouter(t *testing.T, svc service.Service) chi.Router {
	t.Helper()
	h := New(svc, zaptest.NewLogger(t))
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func authedRequest(method, target, body string, userID uuid.UUID) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ident := &platformauth.Identity{Subject: userID.String()}
	return req.WithContext(platformauth.WithIdentity(req.Context(), ident))
}

func TestJoinSuccess(t *testing.T) {
	t.Parallel()

	svc := &mockService{}
	userID := uuid.New()
	tenantID := uuid.New()
	membershipID := uuid.New()
	joinedAt := time.Now().UTC()

	svc.redeemFn = func(_ context.Context, identity platformauth.Identity, code string) (service.JoinResult, error) {
		require.Equal(t, userID, identity.UserID())
		require.Equal(t, "HAWKS234", code)
		return service.JoinResult{
			MembershipID: membershipID,
			TenantID:     tenantID,
			Role:         roles.RolePlayer,
			Status:       roles.StatusActive,
			JoinedAt:     &joinedAt,
		}, nil
	}

	router := newTestRouter(t, svc)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/tenants:join", `{"code":"HAWKS234"}`, userID))

	require.Equal(t, http.StatusOK, rec.Code)

	var body joinResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, membershipID, body.MembershipID)
	require.Equal(t, "player", body.Role)
}

func TestJoinErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid code", service.ErrCodeInvalid, http.StatusNotFound},
		{"exhausted code", service.ErrCodeExhausted, http.StatusConflict},
		{"expired code", service.ErrCodeExpired, http.StatusGone},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockService{}
			svc.redeemFn = func(context.Context, platformauth.Identity, string) (service.JoinResult, error) {
				return service.JoinResult{}, tc.err
			}

			router := newTestRouter(t, svc)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, authedRequest(http.MethodPost, "/tenants:join", `{"code":"WHATEVER"}`, uuid.New()))

			require.Equal(t, tc.status, rec.Code)
			require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestJoinRequiresAuth(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &mockService{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/tenants:join", strings.NewReader(`{"code":"HAWKS234"}`))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIssueInviteCode(t *testing.T) {
	t.Parallel()

	svc := &mockService{}
	tenantID := uuid.New()
	actor := uuid.New()

	svc.issueFn = func(_ context.Context, gotActor uuid.UUID, gotTenant uuid.UUID, input service.IssueInput) (service.InviteCode, error) {
		require.Equal(t, actor, gotActor)
		require.Equal(t, tenantID, gotTenant)
		require.Equal(t, "staff", input.RoleDefault)
		require.NotNil(t, input.MaxUses)
		require.Equal(t, 5, *input.MaxUses)
		return service.InviteCode{
			ID:          uuid.New(),
			TenantID:    gotTenant,
			Code:        "STAFF678",
			RoleDefault: roles.RoleStaff,
			MaxUses:     input.MaxUses,
			IsActive:    true,
			Usable:      true,
			CreatedAt:   time.Now().UTC(),
		}, nil
	}

	router := newTestRouter(t, svc)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost,
		"/tenants/"+tenantID.String()+"/invite-codes",
		`{"roleDefault":"staff","maxUses":5}`, actor))

	require.Equal(t, http.StatusCreated, rec.Code)

	var body inviteCodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "STAFF678", body.Code)
	require.True(t, body.Usable)
}

func TestListMembersForbidden(t *testing.T) {
	t.Parallel()

	svc := &mockService{}
	svc.listMembersFn = func(context.Context, uuid.UUID, uuid.UUID) ([]service.Member, error) {
		return nil, service.ErrForbidden
	}

	router := newTestRouter(t, svc)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet,
		"/tenants/"+uuid.New().String()+"/members", "", uuid.New()))

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeactivateInviteCode(t *testing.T) {
	t.Parallel()

	svc := &mockService{}
	codeID := uuid.New()
	svc.deactivateFn = func(_ context.Context, _ uuid.UUID, gotCode uuid.UUID) error {
		require.Equal(t, codeID, gotCode)
		return nil
	}

	router := newTestRouter(t, svc)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost,
		"/invite-codes/"+codeID.String()+":deactivate", "", uuid.New()))

	require.Equal(t, http.StatusNoContent, rec.Code)
}
