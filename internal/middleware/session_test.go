package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		header string
		token  string
		ok     bool
	}{
		{name: "well formed", header: "Bearer abc123", token: "abc123", ok: true},
		{name: "case insensitive scheme", header: "bearer abc123", token: "abc123", ok: true},
		{name: "missing header", header: "", ok: false},
		{name: "wrong scheme", header: "Basic abc123", ok: false},
		{name: "empty token", header: "Bearer ", ok: false},
		{name: "no separator", header: "Bearerabc123", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(recorder)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			c.Request = req

			token, ok := bearerToken(c)
			if ok != tc.ok {
				t.Fatalf("unexpected ok: %v", ok)
			}
			if token != tc.token {
				t.Fatalf("unexpected token: %q", token)
			}
		})
	}
}

func TestSessionRejectsMissingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", Session(nil), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}
