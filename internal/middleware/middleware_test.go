package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BeygonK/Health-Information-System/internal/auth"
	"github.com/BeygonK/Health-Information-System/internal/service"
	"github.com/BeygonK/Health-Information-System/pkg/logger"
)

type countingVerifier struct {
	calls int
}

func (v *countingVerifier) Verify(_ context.Context, token string) (auth.Principal, bool) {
	v.calls++
	if token == "good" {
		return auth.Principal{Subject: "doctor1"}, true
	}
	return auth.Principal{}, false
}

func newAuthRouter(v auth.Verifier, reached *bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/secure", BearerAuth(v), func(c *gin.Context) {
		*reached = true
		c.String(http.StatusOK, c.GetString(logger.PrincipalKey))
	})
	return r
}

func TestBearerAuth(t *testing.T) {
	cases := []struct {
		name       string
		header     string
		wantStatus int
		wantCalls  int
	}{
		{name: "missing", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", wantStatus: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", wantStatus: http.StatusUnauthorized},
		{name: "rejected", header: "Bearer bad", wantStatus: http.StatusUnauthorized, wantCalls: 1},
		{name: "accepted", header: "bearer good", wantStatus: http.StatusOK, wantCalls: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := &countingVerifier{}
			reached := false
			r := newAuthRouter(v, &reached)

			req := httptest.NewRequest(http.MethodGet, "/secure", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantCalls, v.calls)
			if tc.wantStatus == http.StatusUnauthorized {
				assert.False(t, reached)
				assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
				assert.Contains(t, rec.Body.String(), `"UNAUTHORIZED"`)
			} else {
				assert.True(t, reached)
				assert.Equal(t, "doctor1", rec.Body.String())
			}
		})
	}
}

func TestCacheControl(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CacheControl())
	r.GET("/", func(c *gin.Context) {
		if CacheBypass(c) {
			SetCacheStatus(c, "BYPASS")
		} else {
			SetCacheStatus(c, "MISS")
		}
		c.Status(http.StatusNoContent)
	})

	for header, want := range map[string]string{
		"":                          "MISS",
		"max-age=0":                 "MISS",
		"no-cache":                  "BYPASS",
		"max-age=0, No-Cache":       "BYPASS",
		"no-store, must-revalidate": "MISS",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Cache-Control", header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Header().Get(CacheStatusHeader), header)
	}
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/clients/:client_id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/clients/a", "/clients/b", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	count, err := testutil.GatherAndCount(metrics.Registry(), "http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
