package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"CandlePull/internal/domain/models"
	"CandlePull/internal/repository"
	"CandlePull/internal/usecase"
	"CandlePull/pkg/cache"
	xhttp "CandlePull/pkg/http"
	xlogger "CandlePull/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEcho(t *testing.T) (*echo.Echo, *repository.MemoryCandleStore, *repository.CacheStatusStore) {
	t.Helper()
	store := repository.NewMemoryCandleStore()
	status := repository.NewCacheStatusStore(cache.NewMemoryCache())
	h := NewCandlesEchoHandler(xlogger.Nop(), store, usecase.NewCandlesUseCase(store, status))

	e := echo.New()
	h.RegisterRoutes(e)
	return e, store, status
}

func get(e *echo.Echo, target string) (*httptest.ResponseRecorder, xhttp.APIResponse) {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body xhttp.APIResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestHealth(t *testing.T) {
	e, _, _ := newTestEcho(t)
	rec, body := get(e, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, body.Status)
}

type downStore struct{ *repository.MemoryCandleStore }

func (downStore) Health(context.Context) error { return errors.New("connection refused") }

func TestHealthUnavailable(t *testing.T) {
	store := downStore{repository.NewMemoryCandleStore()}
	status := repository.NewCacheStatusStore(cache.NewMemoryCache())
	e := echo.New()
	NewCandlesEchoHandler(xlogger.Nop(), store, usecase.NewCandlesUseCase(store, status)).RegisterRoutes(e)

	rec, body := get(e, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "connection refused", body.Data)
}

func TestLatestCandle(t *testing.T) {
	e, store, _ := newTestEcho(t)
	ctx := context.Background()
	open := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateTable(ctx, "BTCEUR_1d"))
	_, err := store.Upsert(ctx, "BTCEUR_1d", []models.Candle{{OpenTime: open, CloseTime: open.Add(24 * time.Hour), Close: decimal.NewFromInt(1)}})
	require.NoError(t, err)

	rec, body := get(e, "/api/candles/latest?symbol=BTCEUR&interval=1d")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, body.Status)
	data := body.Data.(map[string]interface{})
	assert.Equal(t, "BTCEUR_1d", data["table"])
	assert.Equal(t, "2023-06-01T00:00:00Z", data["latest_open_time"])
}

func TestLatestCandleValidation(t *testing.T) {
	e, _, _ := newTestEcho(t)

	rec, body := get(e, "/api/candles/latest")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, http.StatusBadRequest, body.Status)

	_, body = get(e, "/api/candles/latest?symbol=BTCEUR&interval=1x")
	assert.Equal(t, http.StatusBadRequest, body.Status)

	rec, body = get(e, "/api/candles/latest?symbol=BTC-EUR&interval=1h")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errs := body.Data.([]interface{})
	require.NotEmpty(t, errs)
	assert.Equal(t, "ERR_ALPHANUM", errs[0].(map[string]interface{})["code"])
}

func TestLatestCandleValidationMessages(t *testing.T) {
	e, _, _ := newTestEcho(t)

	rec, body := get(e, "/api/candles/latest?symbol=ABCDEFGHIJKLMNOPQRSTUVWXYZ&interval=1h")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errs := body.Data.([]interface{})
	require.Len(t, errs, 1)
	first := errs[0].(map[string]interface{})
	assert.Equal(t, "ERR_MAX", first["code"])
	assert.Equal(t, "Symbol", first["field"])
	assert.Equal(t, "Symbol must be at most 20 characters", first["message"])
	assert.Equal(t, map[string]interface{}{"max": "20"}, first["params"])

	_, body = get(e, "/api/candles/latest?interval=1h")
	first = body.Data.([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "ERR_REQUIRED", first["code"])
	assert.Equal(t, "Symbol is required", first["message"])
	assert.NotContains(t, first, "params")
}

func TestSyncStatus(t *testing.T) {
	e, _, status := newTestEcho(t)
	require.NoError(t, status.SaveReport(context.Background(), models.PairReport{Table: "BTCEUR_1h", Upserted: 5}))

	_, body := get(e, "/api/sync/status")
	assert.Equal(t, http.StatusOK, body.Status)
	data := body.Data.(map[string]interface{})
	assert.EqualValues(t, 1, data["total"])
}
