package guard

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/academia-portal/internal/domain"
	"github.com/spec-kit/academia-portal/internal/navigation"
	"github.com/spec-kit/academia-portal/internal/observability"
)

func authenticated(roles ...string) domain.SessionSnapshot {
	identity := domain.NewIdentity(domain.Claims{Subject: "jdoe", UserID: 1, Roles: domain.ParseRoleSet(roles)})
	return domain.SessionSnapshot{State: domain.SessionAuthenticated, Identity: identity}
}

func TestDecide(t *testing.T) {
	routes := navigation.DefaultRoutes()
	unknown := domain.SessionSnapshot{State: domain.SessionUnknown}
	anonymous := domain.SessionSnapshot{State: domain.SessionUnauthenticated}

	cases := []struct {
		name     string
		snapshot domain.SessionSnapshot
		req      Requirement
		want     Decision
	}{
		{"unknown without roles", unknown, Authenticated(), Decision{Outcome: Pending}},
		{"unknown with roles", unknown, AnyOf(domain.RoleAdmin), Decision{Outcome: Pending}},
		{"anonymous", anonymous, Authenticated(), Decision{Outcome: RedirectLogin, Redirect: "/login"}},
		{"anonymous with roles", anonymous, AnyOf(domain.RoleAdmin), Decision{Outcome: RedirectLogin, Redirect: "/login"}},
		{"authenticated no restriction", authenticated("STUDENT"), Authenticated(), Decision{Outcome: Permit}},
		{"teacher allowed", authenticated("TEACHER", "EMPLOYEE"), AnyOfNames("TEACHER"), Decision{Outcome: Permit}},
		{"student denied", authenticated("STUDENT"), AnyOfNames("TEACHER"), Decision{Outcome: RedirectUnauthorized, Redirect: "/unauthorized"}},
		{"role prefix admin", authenticated("ROLE_ADMIN"), AnyOfNames("ROLE_ADMIN"), Decision{Outcome: Permit}},
		{"unrecognized role fails", authenticated("JANITOR"), AnyOfNames("JANITOR"), Decision{Outcome: RedirectUnauthorized, Redirect: "/unauthorized"}},
		{"no roles denied", authenticated(), AnyOf(domain.RoleStudent), Decision{Outcome: RedirectUnauthorized, Redirect: "/unauthorized"}},
		{"empty any-of is authenticated", authenticated(), AnyOf(), Decision{Outcome: Permit}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Decide(tc.snapshot, tc.req, routes))
		})
	}
}

func TestUnknownNeverRedirects(t *testing.T) {
	unknown := domain.SessionSnapshot{State: domain.SessionUnknown}
	for _, route := range DefaultTable().Routes() {
		d := Decide(unknown, route.Requirement, navigation.DefaultRoutes())
		assert.Equal(t, Pending, d.Outcome, route.Prefix)
		assert.Empty(t, d.Redirect, route.Prefix)
	}
}

func TestTableMatch(t *testing.T) {
	table := NewTable(
		Route{Prefix: "/hr", Requirement: AnyOf(domain.RoleHRAnalyst)},
		Route{Prefix: "/hr/payroll", Requirement: AnyOf(domain.RoleAdmin)},
	)

	route, ok := table.Match("/hr/payroll/2024")
	require.True(t, ok)
	assert.Equal(t, "/hr/payroll", route.Prefix)

	route, ok = table.Match("/hr")
	require.True(t, ok)
	assert.Equal(t, "/hr", route.Prefix)

	_, ok = table.Match("/hrm")
	assert.False(t, ok)
	_, ok = DefaultTable().Match("/login")
	assert.False(t, ok)
}

type fakeSource struct {
	mu   sync.Mutex
	snap domain.SessionSnapshot
}

func (f *fakeSource) Snapshot() domain.SessionSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSource) set(s domain.SessionSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = s
}

func TestMiddleware(t *testing.T) {
	source := &fakeSource{snap: domain.SessionSnapshot{State: domain.SessionUnknown}}
	metrics := observability.NewMetrics()

	app := fiber.New()
	app.Use(Middleware(source, DefaultTable(), navigation.DefaultRoutes(), metrics, zap.NewNop()))
	app.Get("/finance", func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return c.SendStatus(http.StatusInternalServerError)
		}
		return c.SendString("finance for " + identity.Login)
	})
	app.Get("/public", func(c *fiber.Ctx) error { return c.SendString("public") })

	do := func(path string) *http.Response {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		return resp
	}

	resp := do("/finance")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Location"))

	source.set(domain.SessionSnapshot{State: domain.SessionUnauthenticated})
	resp = do("/finance")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	source.set(authenticated("STUDENT"))
	resp = do("/finance")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/unauthorized", resp.Header.Get("Location"))

	source.set(authenticated("EMPLOYEE"))
	resp = do("/finance")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	source.set(domain.SessionSnapshot{State: domain.SessionUnauthenticated})
	resp = do("/public")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	guardCounts := metrics.Snapshot()["guard"]
	assert.Equal(t, int64(1), guardCounts["/finance|pending"])
	assert.Equal(t, int64(1), guardCounts["/finance|permit"])
}

func TestRequire(t *testing.T) {
	source := &fakeSource{snap: authenticated("TEACHER")}
	app := fiber.New()
	app.Get("/grades", Require(source, AnyOf(domain.RoleTeacher), navigation.DefaultRoutes(), nil), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/grades", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestGuardMetricsKeyedByRoute(t *testing.T) {
	source := &fakeSource{snap: authenticated("ADMIN")}
	metrics := observability.NewMetrics()

	app := fiber.New()
	app.Use(Middleware(source, DefaultTable(), navigation.DefaultRoutes(), metrics, zap.NewNop()))
	app.Get("/students/*", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })
	app.Get("/grades/:id", Require(source, AnyOf(domain.RoleAdmin), navigation.DefaultRoutes(), metrics), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})

	for _, path := range []string{"/students/1", "/students/2/history", "/students/3", "/grades/7", "/grades/8"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		assert.Less(t, resp.StatusCode, http.StatusBadRequest, path)
	}

	guardCounts := metrics.Snapshot()["guard"]
	assert.Len(t, guardCounts, 2)
	assert.Equal(t, int64(3), guardCounts["/students|permit"])
	assert.Equal(t, int64(2), guardCounts["/grades/:id|permit"])
}
