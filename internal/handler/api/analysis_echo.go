package api

import (
	"encoding/json"
	"time"

	"github.com/labstack/echo/v4"

	models "LunarPull/internal/domain/models"
	icache "LunarPull/internal/service/cache"
	"LunarPull/internal/service/metrics"
	"LunarPull/internal/service/ratelimit"
	"LunarPull/internal/usecase"
	xhttp "LunarPull/pkg/http"
	xlogger "LunarPull/pkg/logger"
	"LunarPull/pkg/util"
)

// AnalysisEchoHandler serves stored analysis results and phase calendars.
type AnalysisEchoHandler struct {
	logger   *xlogger.Logger
	uc       *usecase.ResultsUseCase
	cache    icache.BytesCache
	cacheTTL time.Duration
	rl       *ratelimit.Limiter
}

func NewAnalysisEchoHandler(logger *xlogger.Logger, uc *usecase.ResultsUseCase, cache icache.BytesCache, cacheTTL time.Duration) *AnalysisEchoHandler {
	metrics.Register()
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &AnalysisEchoHandler{logger: logger, uc: uc, cache: cache, cacheTTL: cacheTTL, rl: ratelimit.New(2, 5)}
}

func (h *AnalysisEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/phases", h.Phases)
	g.GET("/returns", h.Returns)
	g.GET("/summary", h.Summary)
	e.GET("/healthz", h.Health)
}

// Phases may resolve remotely, so it is rate limited per client and cached.
func (h *AnalysisEchoHandler) Phases(c echo.Context) error {
	start := time.Now()
	req := &models.PhasesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, _ := util.ParseDay(req.From)
	to, _ := util.ParseDay(req.To)

	ctx := c.Request().Context()
	key := "api:phases:" + req.From + ":" + req.To
	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes(ctx, key); err != nil {
			h.logger.Warn("phases cache_get_error", xlogger.Error(err))
		} else if ok {
			var res usecase.PhasesResult
			if err := json.Unmarshal(b, &res); err == nil {
				h.logger.Debug("phases cache_hit", xlogger.String("key", key))
				metrics.Observe("phases", start, res.Count, nil)
				return xhttp.SuccessResponse(c, &res)
			}
		}
	}

	if !h.rl.Allow(c.RealIP()) {
		h.logger.Warn("phases rate_limited", xlogger.String("remote", c.RealIP()))
		return xhttp.TooManyRequestsResponse(c, time.Second)
	}

	res, err := h.uc.Phases(ctx, from, to)
	metrics.Observe("phases", start, countOf(res), err)
	if err != nil {
		h.logger.Error("phases usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.FromDomain(err))
	}
	if h.cache != nil {
		if b, err := json.Marshal(res); err == nil {
			if err := h.cache.SetBytes(ctx, key, b, h.cacheTTL); err != nil {
				h.logger.Warn("phases cache_set_error", xlogger.Error(err))
			}
		}
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=3600")
	return xhttp.SuccessResponse(c, res)
}

func countOf(res *usecase.PhasesResult) int {
	if res == nil {
		return 0
	}
	return res.Count
}

func (h *AnalysisEchoHandler) Returns(c echo.Context) error {
	start := time.Now()
	req := &models.ReturnsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.Returns(c.Request().Context(), req.Symbol, req.Limit)
	if err != nil {
		metrics.Observe("returns", start, 0, err)
		h.logger.Error("returns usecase error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.FromDomain(err))
	}
	metrics.Observe("returns", start, res.Count, nil)
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisEchoHandler) Summary(c echo.Context) error {
	start := time.Now()
	req := &models.SummaryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.Summaries(c.Request().Context(), req.Symbol, req.Limit)
	if err != nil {
		metrics.Observe("summary", start, 0, err)
		h.logger.Error("summary usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.FromDomain(err))
	}
	metrics.Observe("summary", start, res.Count, nil)
	return xhttp.ListResponse(c, res.Summaries, int64(res.Count), req.Limit)
}

func (h *AnalysisEchoHandler) Health(c echo.Context) error {
	err := h.uc.Health(c.Request().Context())
	if err != nil {
		h.logger.Warn("health check failed", xlogger.Error(err))
	}
	return xhttp.HealthResponse(c, err)
}
