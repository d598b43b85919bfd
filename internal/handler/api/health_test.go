package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

type fakePinger struct{ err error }

func (p fakePinger) Health(context.Context) error { return p.err }

func TestHealthEndpoints(t *testing.T) {
	e := echo.New()
	NewHealthHandler(nil, fakePinger{}).RegisterRoutes(e)
	assert.Equal(t, http.StatusOK, get(t, e, "/healthz").Status)
	assert.Equal(t, http.StatusOK, get(t, e, "/readyz").Status)

	down := echo.New()
	NewHealthHandler(nil, fakePinger{err: errors.New("database is locked")}).RegisterRoutes(down)
	assert.Equal(t, http.StatusOK, get(t, down, "/healthz").Status)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, down, "/readyz").Status)
}
