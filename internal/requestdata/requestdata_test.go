package requestdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestMiddlewareParsesAuditHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var got AuditData
	router := gin.New()
	router.Use(Middleware())
	router.GET("/", func(c *gin.Context) {
		got = FromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Zt-User-Id", "12")
	req.Header.Set("X-Zt-Causer-Id", "34")
	req.Header.Set("X-Zt-Causer-Type", `App\Models\Agent`)
	req.Header.Set("X-Zt-Org-Id", "56")
	req.Header.Set("X-Zt-Project-Id", "78")
	router.ServeHTTP(httptest.NewRecorder(), req)

	if got.UserID != 12 || got.CauserID != 34 || got.OrgID != 56 || got.ProjectID != 78 {
		t.Fatalf("unexpected audit data %+v", got)
	}
	if !got.IsAgent() {
		t.Fatalf("want IsAgent for causer type %q", got.CauserType)
	}
}

func TestMiddlewareMissingHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var got AuditData
	router := gin.New()
	router.Use(Middleware())
	router.GET("/", func(c *gin.Context) {
		got = FromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got != (AuditData{}) {
		t.Fatalf("want zero audit data, got %+v", got)
	}
	if got.IsAgent() {
		t.Fatalf("zero causer type must not be an agent")
	}
}

func TestFromContextWithoutMiddleware(t *testing.T) {
	if d := FromContext(context.Background()); d != (AuditData{}) {
		t.Fatalf("want zero value, got %+v", d)
	}
}
