package api

import (
	"errors"
	"net/http"

	"CandlePull/internal/domain/models"
	domrepo "CandlePull/internal/domain/repository"
	"CandlePull/internal/usecase"
	xhttp "CandlePull/pkg/http"
	xlogger "CandlePull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// CandlesEchoHandler serves health and sync inspection endpoints.
type CandlesEchoHandler struct {
	logger *xlogger.Logger
	store  domrepo.CandleStore
	uc     *usecase.CandlesUseCase
}

func NewCandlesEchoHandler(logger *xlogger.Logger, store domrepo.CandleStore, uc *usecase.CandlesUseCase) *CandlesEchoHandler {
	return &CandlesEchoHandler{logger: logger, store: store, uc: uc}
}

func (h *CandlesEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	g := e.Group("/api")
	g.GET("/candles/latest", h.Latest)
	g.GET("/sync/status", h.SyncStatus)
}

func (h *CandlesEchoHandler) Health(c echo.Context) error {
	if err := h.store.Health(c.Request().Context()); err != nil {
		h.logger.Warn("health check failed", xlogger.Error(err))
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, err.Error())
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *CandlesEchoHandler) Latest(c echo.Context) error {
	req := &models.LatestCandleRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.Latest(c.Request().Context(), req.Symbol, req.Interval)
	if err != nil {
		if errors.Is(err, models.ErrInvalidInterval) || errors.Is(err, models.ErrInvalidTable) {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()).WithError(err))
		}
		h.logger.Error("latest candle usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("could not read latest candle").WithError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *CandlesEchoHandler) SyncStatus(c echo.Context) error {
	reports, err := h.uc.SyncStatus(c.Request().Context())
	if err != nil {
		h.logger.Error("sync status usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("could not read sync status").WithError(err))
	}
	return xhttp.ListResponse(c, reports, int64(len(reports)))
}
