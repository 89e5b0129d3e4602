package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-sla-service/internal/domain"
	apperrors "github.com/spec-kit/ticket-sla-service/pkg/util"
)

type staffStub struct {
	members map[string]domain.StaffMember
}

func (s staffStub) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	m, ok := s.members[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &m, nil
}

func (s staffStub) ListActiveByRoles(context.Context, []domain.StaffRole) ([]domain.StaffMember, error) {
	return nil, errors.New("not used")
}

func newTestApp(t *testing.T, tokens *TokenManager) *fiber.App {
	t.Helper()
	staff := staffStub{members: map[string]domain.StaffMember{
		"lead":  {ID: "lead", Role: domain.StaffRoleTeamLead, Active: true},
		"agent": {ID: "agent", Role: domain.StaffRoleAgent, Active: true},
		"gone":  {ID: "gone", Role: domain.StaffRoleAdmin, Active: false},
	}}
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
	}})
	mw := NewAuthMiddleware(tokens, staff)
	app.Get("/admin", mw.Handle, RequireStaffRole(domain.StaffRoleTeamLead, domain.StaffRoleAdmin), func(c *fiber.Ctx) error {
		p, ok := PrincipalFromContext(c)
		require.True(t, ok)
		return c.SendString(string(p.Role))
	})
	return app
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, expires, err := tm.GenerateToken("lead", domain.SubjectTypeStaff, domain.StaffRoleTeamLead)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), expires, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "lead", claims.SubjectID)
	assert.Equal(t, domain.SubjectTypeStaff, claims.Subject)
	assert.Equal(t, domain.StaffRoleTeamLead, claims.Role)
}

func TestParseTokenRejectsForeignSecretAndExpiry(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	other := NewTokenManager("other", 5)
	token, _, err := other.GenerateToken("lead", domain.SubjectTypeStaff, "")
	require.NoError(t, err)
	_, err = tm.ParseToken(token)
	assert.Error(t, err)

	token, _, err = tm.GenerateToken("lead", domain.SubjectTypeStaff, "")
	require.NoError(t, err)
	tm.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	_, _, err := NewTokenManager("", 5).GenerateToken("x", domain.SubjectTypeService, domain.StaffRoleAdmin)
	assert.Error(t, err)
}

func TestAuthMiddlewareAndRoles(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	app := newTestApp(t, tm)

	mint := func(id string, subject domain.SubjectType, role domain.StaffRole) string {
		token, _, err := tm.GenerateToken(id, subject, role)
		require.NoError(t, err)
		return "Bearer " + token
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer abc", want: http.StatusUnauthorized},
		{name: "team lead", header: mint("lead", domain.SubjectTypeStaff, ""), want: http.StatusOK},
		{name: "token role cannot elevate staff", header: mint("agent", domain.SubjectTypeStaff, domain.StaffRoleAdmin), want: http.StatusForbidden},
		{name: "inactive staff", header: mint("gone", domain.SubjectTypeStaff, ""), want: http.StatusUnauthorized},
		{name: "unknown staff", header: mint("nobody", domain.SubjectTypeStaff, ""), want: http.StatusUnauthorized},
		{name: "service token", header: mint("scheduler", domain.SubjectTypeService, domain.StaffRoleAdmin), want: http.StatusOK},
		{name: "service token without role", header: mint("scheduler", domain.SubjectTypeService, ""), want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
