package rest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"bitbucket.org/mmdatafocus/clinic_backend/utils"
	"github.com/gin-gonic/gin"
)

func TestRequestContextMiddleware_ActorFromHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestContextMiddleware())

	var actor string
	r.GET("/probe", func(c *gin.Context) {
		actor = utils.GetActorFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("x-user", "dr.khin")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if actor != "dr.khin" {
		t.Fatalf("actor = %q", actor)
	}
}

func TestRequestContextMiddleware_Defaults(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestContextMiddleware())

	var actor, correlationId string
	r.GET("/probe", func(c *gin.Context) {
		actor = utils.GetActorFromContext(c.Request.Context())
		correlationId, _ = utils.GetCorrelationIdFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))

	if actor != utils.DefaultActor {
		t.Fatalf("actor = %q; expected default", actor)
	}
	if correlationId == "" {
		t.Fatalf("correlation id not generated")
	}
	if got := w.Header().Get("x-correlation-id"); got != correlationId {
		t.Fatalf("echoed correlation id %q != context value %q", got, correlationId)
	}
}

func TestRequestContextMiddleware_EchoesSuppliedCorrelationId(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestContextMiddleware())
	r.GET("/probe", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("x-correlation-id", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("x-correlation-id"); got != "abc-123" {
		t.Fatalf("x-correlation-id = %q", got)
	}
}
