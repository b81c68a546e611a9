package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	models "MarketPulse/internal/domain/models"
	icache "MarketPulse/internal/service/cache"
	"MarketPulse/internal/service/metrics"
	"MarketPulse/internal/service/ratelimit"
	"MarketPulse/internal/usecase"
	xhttp "MarketPulse/pkg/http"
	xlogger "MarketPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// MarketHandler implements Echo-based HTTP handlers for the query surface.
type MarketHandler struct {
	logger  *xlogger.Logger
	agg     *usecase.QuoteAggregator
	signals *usecase.SignalEngine
	rl      *ratelimit.Limiter
	cache   icache.BytesCache
}

func NewMarketHandler(logger *xlogger.Logger, agg *usecase.QuoteAggregator, signals *usecase.SignalEngine) *MarketHandler {
	metrics.Register()
	return &MarketHandler{logger: logger, agg: agg, signals: signals, rl: ratelimit.New()}
}

// SetCache enables short-lived response caching for the analysis endpoint.
func (h *MarketHandler) SetCache(c icache.BytesCache) { h.cache = c }

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/quote", h.Quote)
	g.GET("/quotes", h.Quotes)
	g.GET("/history", h.History)
	g.GET("/analysis", h.Analysis)
	g.GET("/signals/active", h.ActiveSignals)
	g.GET("/signals/history", h.SignalHistory)
}

func (h *MarketHandler) Quote(c echo.Context) error {
	defer observe("quote", time.Now())
	req := &models.QuoteRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	quote, err := h.agg.GetQuote(c.Request().Context(), req.Symbol)
	if err != nil {
		if errors.Is(err, usecase.ErrQuoteUnavailable) {
			return xhttp.NotFoundResponse(c, "no quote available for "+req.Symbol)
		}
		metrics.QueryErrors.WithLabelValues("quote").Inc()
		h.logger.Error("quote usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, quote)
}

func observe(endpoint string, start time.Time) {
	metrics.QueryLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func (h *MarketHandler) Quotes(c echo.Context) error {
	defer observe("quotes", time.Now())
	req := &models.QuotesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	quotes, err := h.agg.GetQuotes(c.Request().Context(), req.Symbols)
	if err != nil {
		metrics.QueryErrors.WithLabelValues("quotes").Inc()
		h.logger.Error("quotes usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, quotes)
}

func (h *MarketHandler) History(c echo.Context) error {
	defer observe("history", time.Now())
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	candles, err := h.agg.GetHistory(c.Request().Context(), req.Symbol, models.NormalizeRange(req.Range))
	if err != nil {
		metrics.QueryErrors.WithLabelValues("history").Inc()
		h.logger.Error("history usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, models.CandleHistory{
		Symbol:  req.Symbol,
		Candles: candles,
	})
}

// Analysis runs all three analyzers on demand; rate limited since it fans
// out to providers and the news supplier.
func (h *MarketHandler) Analysis(c echo.Context) error {
	defer observe("analysis", time.Now())
	req := &models.AnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if !h.rl.Allow(c.RealIP()+":analysis", 5, 2) {
		return c.NoContent(http.StatusTooManyRequests)
	}

	cacheKey := "analysis:" + req.Symbol
	if h.cache != nil {
		if b, ok, _ := h.cache.GetBytes(cacheKey); ok {
			return c.JSONBlob(http.StatusOK, b)
		}
	}

	res, err := h.signals.GetAnalysis(c.Request().Context(), req.Symbol)
	if err != nil {
		if errors.Is(err, usecase.ErrQuoteUnavailable) {
			return xhttp.NotFoundResponse(c, "no data available for "+req.Symbol)
		}
		metrics.QueryErrors.WithLabelValues("analysis").Inc()
		h.logger.Error("analysis usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if h.cache != nil {
		if b, err := json.Marshal(xhttp.APIResponse{
			Status:  http.StatusOK,
			Message: http.StatusText(http.StatusOK),
			Data:    res,
		}); err == nil {
			_ = h.cache.SetBytes(cacheKey, b, 15*time.Second)
		}
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketHandler) ActiveSignals(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.signals.GetActiveSignals())
}

func (h *MarketHandler) SignalHistory(c echo.Context) error {
	defer observe("signals_history", time.Now())
	req := &models.SignalHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	history, err := h.signals.GetSignalHistory(c.Request().Context(), req.Symbol, req.Limit)
	if err != nil {
		metrics.QueryErrors.WithLabelValues("signals_history").Inc()
		h.logger.Error("signal history usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, history)
}
