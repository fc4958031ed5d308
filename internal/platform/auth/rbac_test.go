package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func callWithRoles(mw echo.MiddlewareFunc, roles ...string) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithIdentity(context.Background(), "u1", roles...))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}
	return rec, mw(handler)(c)
}

func TestRequireRole_Allowed(t *testing.T) {
	rec, err := callWithRoles(RequireRole(RoleHospital, RoleSupervisor), RoleHospital)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequireRole_Denied(t *testing.T) {
	_, err := callWithRoles(RequireRole(RoleHospital), RoleAnganwadiWorker)
	if err == nil {
		t.Fatal("expected error for unauthorized role")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", httpErr.Code)
	}
}

func TestRequireRole_AdminPassesEverything(t *testing.T) {
	_, err := callWithRoles(RequireRole(RoleHospital), RoleAdmin)
	if err != nil {
		t.Errorf("expected admin to pass, got %v", err)
	}
}

func TestRequireRole_AdminOnly(t *testing.T) {
	_, err := callWithRoles(RequireRole(RoleAdmin), RoleHospital)
	if err == nil {
		t.Error("expected hospital to be rejected from admin routes")
	}
}

func TestRequireRole_NoRoles(t *testing.T) {
	_, err := callWithRoles(RequireRole(RoleHospital))
	if err == nil {
		t.Error("expected error when no roles in context")
	}
}

func TestAnyRole(t *testing.T) {
	for _, role := range []string{RoleAnganwadiWorker, RoleSupervisor, RoleHospital, RoleAdmin} {
		if _, err := callWithRoles(AnyRole(), role); err != nil {
			t.Errorf("role %s rejected: %v", role, err)
		}
	}
	if _, err := callWithRoles(AnyRole(), "guest"); err == nil {
		t.Error("unknown role must be rejected")
	}
}

func TestIsPublicPath(t *testing.T) {
	for _, p := range []string{"/health", "/health/stores", "/metrics"} {
		if !IsPublicPath(p) {
			t.Errorf("expected %s to be public", p)
		}
	}
	if IsPublicPath("/api/patients") {
		t.Error("/api/patients must not be public")
	}
}
