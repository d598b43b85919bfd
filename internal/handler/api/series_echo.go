package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"PowerPull/internal/domain/models"
	domrepo "PowerPull/internal/domain/repository"
	"PowerPull/internal/service/metrics"
	"PowerPull/internal/service/ratelimit"
	"PowerPull/internal/services/series"
	"PowerPull/internal/usecase"
	xhttp "PowerPull/pkg/http"
	xlogger "PowerPull/pkg/logger"
	"PowerPull/pkg/util"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const isoDate = "2006-01-02"

// SeriesService is the usecase behind the series endpoints.
type SeriesService interface {
	Series(ctx context.Context, q usecase.SeriesQuery) (models.Output, error)
	View(ctx context.Context, q usecase.ViewQuery) (map[models.Quantity]models.Output, error)
}

// SeriesEchoHandler serves single series, multi-quantity views and the live view socket.
type SeriesEchoHandler struct {
	logger   *xlogger.Logger
	svc      SeriesService
	limiter  *ratelimit.Limiter
	metrics  *metrics.ViewMetrics
	upgrader websocket.Upgrader
}

func NewSeriesEchoHandler(logger *xlogger.Logger, svc SeriesService, limiter *ratelimit.Limiter, m *metrics.ViewMetrics) *SeriesEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &SeriesEchoHandler{
		logger:  logger,
		svc:     svc,
		limiter: limiter,
		metrics: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *SeriesEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	if h.limiter != nil {
		g.Use(h.limiter.Middleware())
	}
	g.GET("/series/:granularity", h.Series)
	g.GET("/view", h.View)
	g.GET("/view/ws", h.ViewWS)
}

func (h *SeriesEchoHandler) Series(c echo.Context) error {
	start := time.Now()
	defer h.metrics.Observe("series", start)

	req := &models.SeriesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		h.metrics.Error("series", "bad_request")
		return xhttp.BadRequestResponse(c, verr)
	}
	spec, verr := windowSpec(req.Window, req.From, req.To)
	if verr != nil {
		h.metrics.Error("series", "bad_request")
		return xhttp.BadRequestResponse(c, verr)
	}

	out, err := h.svc.Series(c.Request().Context(), usecase.SeriesQuery{
		Granularity:   models.Granularity(req.Granularity),
		Window:        spec,
		Quantity:      models.Quantity(req.Quantity),
		Source:        req.Source,
		RealOnlyStats: req.Stats == "real",
		Session:       req.Session,
	})
	if err != nil {
		if errors.Is(err, domrepo.ErrSourceUnavailable) {
			h.metrics.Error("series", "source")
			return xhttp.DataResponse(c, http.StatusBadGateway, out)
		}
		return h.errorResponse(c, "series", err)
	}
	// gap-filled points are regenerated on each request
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, out)
}

func (h *SeriesEchoHandler) View(c echo.Context) error {
	start := time.Now()
	defer h.metrics.Observe("view", start)

	req := &models.ViewRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		h.metrics.Error("view", "bad_request")
		return xhttp.BadRequestResponse(c, verr)
	}
	q, verr := viewQuery(req)
	if verr != nil {
		h.metrics.Error("view", "bad_request")
		return xhttp.BadRequestResponse(c, verr)
	}

	views, err := h.svc.View(c.Request().Context(), q)
	if err != nil {
		return h.errorResponse(c, "view", err)
	}
	return xhttp.SuccessResponse(c, models.ViewFrame{RequestID: requestID(req.RequestID), Views: views})
}

// ViewWS accepts view requests as JSON messages. Each request is answered
// with a loading frame and then a result frame; results of requests
// overtaken by a newer one on the same connection are never sent.
func (h *SeriesEchoHandler) ViewWS(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	h.metrics.Connected(1)
	defer h.metrics.Connected(-1)

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	session := c.QueryParam("session")
	if session == "" {
		session = uuid.NewString()
	}
	ws := &wsConn{conn: conn}
	defer conn.Close()

	conn.SetReadLimit(4096)
	var wg sync.WaitGroup
	for {
		req := &models.ViewRequest{}
		if err := conn.ReadJSON(req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read ended", xlogger.Error(err))
			}
			break
		}
		id := requestID(req.RequestID)

		if verr := xhttp.ValidateStruct(ctx, req); verr != nil {
			h.metrics.Error("view_ws", "bad_request")
			ws.send(frameError(id, verr[0].Message))
			continue
		}
		q, verr := viewQuery(req)
		if verr != nil {
			h.metrics.Error("view_ws", "bad_request")
			ws.send(frameError(id, verr[0].Message))
			continue
		}
		q.Session = session

		ws.send(models.ViewFrame{RequestID: id, Loading: true})
		wg.Add(1)
		go func(q usecase.ViewQuery, id string) {
			defer wg.Done()
			start := time.Now()
			views, err := h.svc.View(ctx, q)
			h.metrics.Observe("view_ws", start)
			switch {
			case errors.Is(err, usecase.ErrSuperseded):
				return
			case err != nil:
				h.metrics.Error("view_ws", "failed")
				ws.send(frameError(id, err.Error()))
			default:
				ws.send(models.ViewFrame{RequestID: id, Views: views})
			}
		}(q, id)
	}
	cancel()
	wg.Wait()
	return nil
}

func (h *SeriesEchoHandler) errorResponse(c echo.Context, endpoint string, err error) error {
	switch {
	case errors.Is(err, series.ErrInvalidWindow):
		h.metrics.Error(endpoint, "bad_request")
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{Code: "ERR_WINDOW", Field: "Window", Message: err.Error()}})
	case errors.Is(err, usecase.ErrUnknownSource):
		h.metrics.Error(endpoint, "bad_request")
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{Code: "ERR_SOURCE", Field: "Source", Message: err.Error()}})
	case errors.Is(err, usecase.ErrInvalidQuantity):
		h.metrics.Error(endpoint, "bad_request")
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{Code: "ERR_QUANTITY", Field: "Quantity", Message: err.Error()}})
	case errors.Is(err, usecase.ErrSuperseded):
		h.metrics.Error(endpoint, "superseded")
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("SUPERSEDED", "Session", err.Error(), http.StatusConflict))
	default:
		h.metrics.Error(endpoint, "internal")
		h.logger.Error(endpoint+" usecase error", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
}

type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) send(frame models.ViewFrame) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	_ = w.conn.WriteJSON(frame)
}

func frameError(id, msg string) models.ViewFrame {
	return models.ViewFrame{RequestID: id, Error: &msg}
}

func requestID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func windowSpec(window, from, to string) (models.WindowSpec, []xhttp.ValidationError) {
	spec := models.WindowSpec{Lookback: models.Lookback(window)}
	if spec.Lookback != models.LookbackCustom {
		return spec, nil
	}
	if from == "" || to == "" {
		return spec, []xhttp.ValidationError{{
			Code:    "ERR_REQUIRED",
			Field:   "From",
			Message: "From and To are required for a custom window",
		}}
	}
	// both already passed the datetime validator
	spec.From, _ = time.Parse(isoDate, from)
	spec.To, _ = time.Parse(isoDate, to)
	return spec, nil
}

func viewQuery(req *models.ViewRequest) (usecase.ViewQuery, []xhttp.ValidationError) {
	spec, verr := windowSpec(req.Window, req.From, req.To)
	if verr != nil {
		return usecase.ViewQuery{}, verr
	}
	qs, verr := quantities(req.Quantities)
	if verr != nil {
		return usecase.ViewQuery{}, verr
	}
	return usecase.ViewQuery{
		Granularity:   models.Granularity(req.Granularity),
		Window:        spec,
		Quantities:    qs,
		Source:        req.Source,
		RealOnlyStats: req.Stats == "real",
		Session:       req.Session,
	}, nil
}

func quantities(list string) ([]models.Quantity, []xhttp.ValidationError) {
	seen := make(map[models.Quantity]bool)
	var out []models.Quantity
	for _, part := range util.SplitList(list) {
		q := models.Quantity(strings.ToLower(part))
		if seen[q] {
			continue
		}
		if !q.Valid() {
			return nil, []xhttp.ValidationError{{
				Code:    "ERR_ONEOF",
				Field:   "Quantities",
				Message: "Quantities must be a list of: price, bids, volumes",
				Params:  map[string]interface{}{"options": []string{"price", "bids", "volumes"}},
			}}
		}
		seen[q] = true
		out = append(out, q)
	}
	if len(out) == 0 {
		return nil, []xhttp.ValidationError{{Code: "ERR_REQUIRED", Field: "Quantities", Message: "Quantities is required"}}
	}
	return out, nil
}
