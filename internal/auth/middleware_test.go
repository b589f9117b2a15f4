package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func newTestRouter(audience string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/", JWTMiddleware(testSecret, audience))
	group.GET("/me", func(c *gin.Context) {
		userID, _ := GetUserID(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "role": GetRole(c.Request.Context())})
	})
	group.GET("/admin", RequireRole(RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func issue(t *testing.T, secret, subject, role string, audience ...string) string {
	t.Helper()
	token, err := IssueToken(secret, subject, role, jwt.RegisteredClaims{
		Audience:  audience,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func serve(router *gin.Engine, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestJWTMiddleware(t *testing.T) {
	cases := []struct {
		name          string
		audience      string
		authorization string
		want          int
	}{
		{"missing header", "", "", http.StatusUnauthorized},
		{"wrong scheme", "", "Basic abc", http.StatusUnauthorized},
		{"empty token", "", "Bearer  ", http.StatusUnauthorized},
		{"wrong secret", "", "Bearer " + issue(t, "other", "user-1", ""), http.StatusUnauthorized},
		{"missing subject", "", "Bearer " + issue(t, testSecret, "", ""), http.StatusUnauthorized},
		{"wrong audience", "photo-api", "Bearer " + issue(t, testSecret, "user-1", "", "other-api"), http.StatusUnauthorized},
		{"valid", "photo-api", "Bearer " + issue(t, testSecret, "user-1", "", "photo-api"), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := serve(newTestRouter(tc.audience), "/me", tc.authorization)
			if resp.Code != tc.want {
				t.Fatalf("expected status %d, got %d (%s)", tc.want, resp.Code, resp.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	router := newTestRouter("")

	if resp := serve(router, "/admin", "Bearer "+issue(t, testSecret, "user-1", "applicant")); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for applicant, got %d", resp.Code)
	}
	if resp := serve(router, "/admin", "Bearer "+issue(t, testSecret, "reviewer", RoleAdmin)); resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for admin, got %d", resp.Code)
	}
}

func TestMissingSecretRejects(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/me", JWTMiddleware("  ", ""), func(c *gin.Context) { c.Status(http.StatusOK) })

	resp := serve(router, "/me", "Bearer "+issue(t, testSecret, "user-1", ""))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}
