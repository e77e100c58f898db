package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nemt_portal_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type testJWTConfig struct{}

func (testJWTConfig) GetJWTAccessSecret() string { return "test-secret" }

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newAuthEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/me", AuthRequired(testJWTConfig{}), func(c *gin.Context) {
		id := MustGetIdentity(c)
		if id == nil {
			return
		}
		c.JSON(http.StatusOK, gin.H{"userId": id.UserID().String(), "admin": id.HasRole("admin")})
	})
	engine.GET("/admin", AuthRequired(testJWTConfig{}), RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return engine
}

func TestAuthRequiredAcceptsValidToken(t *testing.T) {
	engine := newAuthEngine()
	userID := uuid.New()
	token := signToken(t, "test-secret", jwt.MapClaims{
		"sub":   userID.String(),
		"roles": []string{"dispatcher"},
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAuthRequiredRejectsWrongSecretAndMissingToken(t *testing.T) {
	engine := newAuthEngine()
	token := signToken(t, "other-secret", jwt.MapClaims{"sub": uuid.NewString()})

	for _, header := range []string{"", "Bearer " + token, "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
}

func TestRequireRoleForbidsMissingRole(t *testing.T) {
	engine := newAuthEngine()
	token := signToken(t, "test-secret", jwt.MapClaims{"sub": uuid.NewString(), "roles": []string{"dispatcher"}})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRateLimitBlocksAfterBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewIPRateLimiter(rate.Limit(0.001), 2, logger.Nop())
	engine := gin.New()
	engine.GET("/ping", limiter.RateLimit(), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence: %v", codes)
	}
}

func TestRequestIDEchoesIncomingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if got := rec.Header().Get(HeaderRequestID); got != "abc-123" {
		t.Fatalf("expected request id to be echoed, got %q", got)
	}
}

func TestGetIdentityWithoutAuthIsAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	id := GetIdentity(c)
	if id.IsAuthenticated() || id.UserID() != uuid.Nil || id.HasRole(RoleAdmin) {
		t.Fatalf("expected anonymous identity, got %+v", id)
	}
}

func TestMustGetIdentityReadsOperatorRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	userID := uuid.New()
	c.Set(ContextUserIDKey, userID)
	c.Set(ContextRolesKey, []string{RoleDispatcher})

	id := MustGetIdentity(c)
	if id == nil {
		t.Fatal("expected an authenticated identity")
	}
	if id.UserID() != userID || !id.HasRole(RoleDispatcher) || id.HasRole(RoleAdmin) {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if c.IsAborted() {
		t.Fatal("request must not be aborted for an authenticated operator")
	}
}

func TestMustGetIdentityAbortsAnonymousRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	if id := MustGetIdentity(c); id != nil {
		t.Fatalf("expected nil identity, got %+v", id)
	}
	if !c.IsAborted() || rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected aborted 401, got aborted=%v code=%d", c.IsAborted(), rec.Code)
	}
}
