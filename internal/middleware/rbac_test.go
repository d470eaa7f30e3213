package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/classdesk/classdesk-api/internal/models"
)

func rbacTestRouter(user *models.User, allowed ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if user != nil {
			c.Set(ContextUserKey, user)
		}
	})
	router.GET("/users/:id", RBAC(allowed...), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestRBACAllowsMatchingRole(t *testing.T) {
	router := rbacTestRouter(&models.User{ID: "adm-1", Role: models.RoleAdmin}, string(models.RoleAdmin))

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users/stu-1", nil)
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRBACRejectsOtherRole(t *testing.T) {
	router := rbacTestRouter(&models.User{ID: "stu-1", Role: models.RoleStudent}, string(models.RoleAdmin))

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users/stu-2", nil)
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRBACAllowSelfMatchesOwnID(t *testing.T) {
	router := rbacTestRouter(&models.User{ID: "stu-1", Role: models.RoleStudent}, string(models.RoleAdmin), AllowSelf)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users/stu-1", nil)
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRBACAllowSelfRejectsOtherID(t *testing.T) {
	router := rbacTestRouter(&models.User{ID: "stu-1", Role: models.RoleStudent}, string(models.RoleAdmin), AllowSelf)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users/stu-2", nil)
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRBACRequiresAuthenticatedUser(t *testing.T) {
	router := rbacTestRouter(nil, string(models.RoleAdmin))

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users/stu-1", nil)
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}
