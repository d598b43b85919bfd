package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func corsEcho(cfg CORSConfig) *echo.Echo {
	e := echo.New()
	e.Use(CORS(cfg))
	e.GET("/api/series/:granularity", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	return e
}

func serve(e *echo.Echo, method, origin string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/series/hourly", nil)
	if origin != "" {
		req.Header.Set(echo.HeaderOrigin, origin)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCORSExactOrigins(t *testing.T) {
	e := corsEcho(CORSConfig{AllowOrigins: []string{"https://dash.example.com/"}})

	rec := serve(e, http.MethodGet, "https://DASH.example.com", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://DASH.example.com", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, echo.HeaderOrigin, rec.Header().Get(echo.HeaderVary))

	rec = serve(e, http.MethodGet, "https://evil.example.com", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "the browser enforces the missing header")
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, echo.HeaderOrigin, rec.Header().Get(echo.HeaderVary))

	rec = serve(e, http.MethodGet, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestCORSPreflight(t *testing.T) {
	e := corsEcho(CORSConfig{
		AllowOrigins: []string{"https://dash.example.com"},
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		MaxAge:       10 * time.Minute,
	})
	ask := map[string]string{
		echo.HeaderAccessControlRequestMethod:  http.MethodGet,
		echo.HeaderAccessControlRequestHeaders: "X-Session",
	}

	rec := serve(e, http.MethodOptions, "https://dash.example.com", ask)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://dash.example.com", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "GET, OPTIONS", rec.Header().Get(echo.HeaderAccessControlAllowMethods))
	assert.Equal(t, "X-Session", rec.Header().Get(echo.HeaderAccessControlAllowHeaders))
	assert.Equal(t, "600", rec.Header().Get(echo.HeaderAccessControlMaxAge))

	rec = serve(e, http.MethodOptions, "https://evil.example.com", ask)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods))
}

func TestCORSWildcard(t *testing.T) {
	e := corsEcho(CORSConfig{AllowOrigins: []string{"*"}, AllowHeaders: []string{echo.HeaderAccept}})

	rec := serve(e, http.MethodGet, "https://anyone.example.org", nil)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Empty(t, rec.Header().Get(echo.HeaderVary))

	rec = serve(e, http.MethodOptions, "https://anyone.example.org", map[string]string{
		echo.HeaderAccessControlRequestMethod: http.MethodGet,
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "GET, HEAD, OPTIONS", rec.Header().Get(echo.HeaderAccessControlAllowMethods))
	assert.Equal(t, echo.HeaderAccept, rec.Header().Get(echo.HeaderAccessControlAllowHeaders))
}
