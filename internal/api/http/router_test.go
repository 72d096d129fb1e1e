package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/modbot/internal/api/http/handlers"
	"github.com/spec-kit/modbot/internal/auth"
	"github.com/spec-kit/modbot/internal/domain"
	"github.com/spec-kit/modbot/internal/observability"
	"github.com/spec-kit/modbot/internal/sanction"
	apperrors "github.com/spec-kit/modbot/pkg/util/errorutil"
)

type fakeModeration struct {
	cases    map[int]*domain.ModerationCase
	warnings map[string][]domain.Warning
	active   []domain.Sanction
	pending  []sanction.Entry
}

func (f *fakeModeration) LookupCase(_ context.Context, id int) (*domain.ModerationCase, error) {
	if c, ok := f.cases[id]; ok {
		return c, nil
	}
	return nil, apperrors.NewNotFound("Case", map[string]any{"case_id": id})
}

func (f *fakeModeration) WarningsFor(_ context.Context, userID string) ([]domain.Warning, error) {
	return f.warnings[userID], nil
}

func (f *fakeModeration) ActiveSanctions(context.Context) ([]domain.Sanction, error) {
	return f.active, nil
}

func (f *fakeModeration) PendingReversals() []sanction.Entry { return f.pending }

type fakeTickets struct{ lastOwner string }

func (f *fakeTickets) ListForOwner(_ context.Context, ownerID string) ([]domain.Ticket, error) {
	f.lastOwner = ownerID
	return []domain.Ticket{{ID: "chan-1", Number: 1, OwnerID: "user1", Active: true}}, nil
}

type fakeSuggestions struct{}

func (fakeSuggestions) Get(_ context.Context, id int) (*domain.Suggestion, error) {
	return &domain.Suggestion{ID: id, Title: "t", SubmitterID: "secret", Anonymous: true, Upvotes: []string{"a", "b"}}, nil
}

func (fakeSuggestions) List(context.Context, domain.SuggestionStatus) ([]domain.Suggestion, error) {
	return nil, nil
}

type fakeAudit struct{ limit int }

func (f *fakeAudit) Recent(_ context.Context, _ string, limit int) ([]domain.AuditRecord, error) {
	f.limit = limit
	return []domain.AuditRecord{{ID: "r1", Type: "moderation.warn"}}, nil
}

type downDependency struct{}

func (downDependency) Configured() bool { return true }

func (downDependency) Ping(context.Context) error { return errors.New("connection refused") }

type testAPI struct {
	app     *fiber.App
	tokens  *auth.TokenManager
	tickets *fakeTickets
	audit   *fakeAudit
}

func newTestAPI(t *testing.T, deps map[string]handlers.Dependency) *testAPI {
	t.Helper()
	expires := time.Now().Add(time.Hour)
	mod := &fakeModeration{
		cases: map[int]*domain.ModerationCase{7: {ID: 7, Type: domain.CaseBan, TargetID: "user1", Active: true}},
		warnings: map[string][]domain.Warning{
			"user1": {{ID: 1, ModeratorID: "mod1", Reason: "spam"}},
		},
		active: []domain.Sanction{
			{TargetID: "user1", Kind: domain.SanctionMute, CaseID: 3, AppliedAt: expires.Add(-time.Hour), DurationMs: domain.DurationMillis(time.Hour)},
			{TargetID: "user2", Kind: domain.SanctionBan, CaseID: 4},
		},
		pending: []sanction.Entry{{Key: sanction.Key{TargetID: "user1", Kind: domain.SanctionMute}, FireAt: expires}},
	}
	api := &testAPI{
		tokens:  auth.NewTokenManager("test-secret", 5),
		tickets: &fakeTickets{},
		audit:   &fakeAudit{},
	}
	metrics := observability.NewMetrics()
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("modbot", "test", deps),
		Moderation:     handlers.NewModerationHandler(mod),
		Tickets:        handlers.NewTicketsHandler(api.tickets),
		Suggestions:    handlers.NewSuggestionsHandler(fakeSuggestions{}),
		Audit:          handlers.NewAuditHandler(api.audit),
		Metrics:        metrics.Handler(),
		AuthMiddleware: auth.NewAuthMiddleware(api.tokens),
	})
	api.app = app
	return api
}

func (a *testAPI) token(t *testing.T, scopes ...string) string {
	t.Helper()
	tok, _, err := a.tokens.GenerateToken("operator", scopes, 0)
	require.NoError(t, err)
	return tok
}

func (a *testAPI) get(t *testing.T, path, token string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp.StatusCode, body
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHealthEndpoints(t *testing.T) {
	api := newTestAPI(t, map[string]handlers.Dependency{"redis": nil})

	status, body := api.get(t, "/health/live", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = api.get(t, "/health/ready", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"redis": "disabled"}, body["dependencies"])

	down := newTestAPI(t, map[string]handlers.Dependency{"postgres": downDependency{}})
	status, body = down.get(t, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", errorCode(body))
}

func TestMetricsEndpoint(t *testing.T) {
	api := newTestAPI(t, nil)
	api.get(t, "/health/live", "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := api.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "modbot_admin_requests_total")
}

func TestAPIRequiresBearerToken(t *testing.T) {
	api := newTestAPI(t, nil)

	status, body := api.get(t, "/api/cases/7", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, apperrors.CodeUnauthorized, errorCode(body))

	status, _ = api.get(t, "/api/cases/7", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = api.get(t, "/api/cases/7", api.token(t))
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, apperrors.CodePermissionDenied, errorCode(body))
}

func TestGetCase(t *testing.T) {
	api := newTestAPI(t, nil)
	tok := api.token(t, auth.ScopeRead)

	status, body := api.get(t, "/api/cases/7", tok)
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, "ban", data["type"])
	assert.Equal(t, "user1", data["target_id"])

	status, body = api.get(t, "/api/cases/99", tok)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, apperrors.CodeNotFound, errorCode(body))

	status, body = api.get(t, "/api/cases/abc", tok)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, apperrors.CodeInvalidInput, errorCode(body))
}

func TestWarningsAndSanctions(t *testing.T) {
	api := newTestAPI(t, nil)
	tok := api.token(t, auth.ScopeRead)

	status, body := api.get(t, "/api/users/user1/warnings", tok)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])

	status, body = api.get(t, "/api/sanctions", tok)
	require.Equal(t, http.StatusOK, status)
	items := body["data"].([]any)
	require.Len(t, items, 2)
	mute := items[0].(map[string]any)
	assert.Equal(t, true, mute["scheduled"])
	assert.NotNil(t, mute["expires_at"])
	ban := items[1].(map[string]any)
	assert.Equal(t, false, ban["scheduled"])
	assert.Nil(t, ban["expires_at"])
}

func TestTicketsAndSuggestions(t *testing.T) {
	api := newTestAPI(t, nil)
	tok := api.token(t, auth.ScopeRead)

	status, body := api.get(t, "/api/tickets?user=user1", tok)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "user1", api.tickets.lastOwner)
	assert.Len(t, body["data"], 1)

	status, body = api.get(t, "/api/suggestions/3", tok)
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.NotContains(t, data, "submitter_id")
	assert.EqualValues(t, 2, data["score"])

	status, body = api.get(t, "/api/suggestions?status=bogus", tok)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, apperrors.CodeInvalidInput, errorCode(body))
}

func TestAuditNeedsAdminScope(t *testing.T) {
	api := newTestAPI(t, nil)

	status, _ := api.get(t, "/api/audit", api.token(t, auth.ScopeRead))
	assert.Equal(t, http.StatusForbidden, status)

	status, body := api.get(t, "/api/audit?limit=5000", api.token(t, auth.ScopeAdmin))
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)
	assert.Equal(t, 500, api.audit.limit)
}

func TestUnknownRouteRendersError(t *testing.T) {
	api := newTestAPI(t, nil)
	status, body := api.get(t, "/nope", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, apperrors.CodeNotFound, errorCode(body))
}
