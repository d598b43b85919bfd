package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// CORSConfig lists what cross-origin readers of the API may do. An origin of
// "*" admits any origin; other entries match the Origin header exactly,
// ignoring case and a trailing slash.
type CORSConfig struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
	MaxAge       time.Duration
}

type corsPolicy struct {
	any     bool
	origins map[string]struct{}
	methods string
	headers string
	maxAge  string
}

func newCORSPolicy(cfg CORSConfig) corsPolicy {
	p := corsPolicy{origins: make(map[string]struct{}, len(cfg.AllowOrigins))}
	for _, o := range cfg.AllowOrigins {
		o = normalizeOrigin(o)
		if o == "*" {
			p.any = true
			continue
		}
		if o != "" {
			p.origins[o] = struct{}{}
		}
	}
	methods := cfg.AllowMethods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodHead, http.MethodOptions}
	}
	p.methods = strings.Join(methods, ", ")
	p.headers = strings.Join(cfg.AllowHeaders, ", ")
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(int(cfg.MaxAge / time.Second))
	}
	return p
}

func normalizeOrigin(o string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(o), "/"))
}

// allowed returns the Access-Control-Allow-Origin value for origin, or "".
func (p corsPolicy) allowed(origin string) string {
	if p.any {
		return "*"
	}
	if _, ok := p.origins[normalizeOrigin(origin)]; ok {
		return origin
	}
	return ""
}

// CORS answers preflight requests itself and tags simple requests from an
// admitted origin. Requests from other origins pass through untagged, so the
// browser blocks them.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	p := newCORSPolicy(cfg)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			h := c.Response().Header()
			origin := req.Header.Get(echo.HeaderOrigin)
			preflight := req.Method == http.MethodOptions &&
				req.Header.Get(echo.HeaderAccessControlRequestMethod) != ""

			if !p.any {
				h.Add(echo.HeaderVary, echo.HeaderOrigin)
			}
			if origin == "" {
				return next(c)
			}
			allow := p.allowed(origin)
			if allow == "" {
				if preflight {
					return c.NoContent(http.StatusForbidden)
				}
				return next(c)
			}

			h.Set(echo.HeaderAccessControlAllowOrigin, allow)
			if !preflight {
				return next(c)
			}
			h.Set(echo.HeaderAccessControlAllowMethods, p.methods)
			if p.headers != "" {
				h.Set(echo.HeaderAccessControlAllowHeaders, p.headers)
			} else if reqHeaders := req.Header.Get(echo.HeaderAccessControlRequestHeaders); reqHeaders != "" {
				h.Set(echo.HeaderAccessControlAllowHeaders, reqHeaders)
			}
			if p.maxAge != "" {
				h.Set(echo.HeaderAccessControlMaxAge, p.maxAge)
			}
			return c.NoContent(http.StatusNoContent)
		}
	}
}
