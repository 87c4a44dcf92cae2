package di

import (
	"testing"
	"time"

	"CandlePull/internal/repository"
	"CandlePull/pkg/config"
	"CandlePull/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`
backend:
  type: memory
server:
  enabled: false
binance:
  symbols: [BTCEUR]
  intervals: [1h]
`))
	require.NoError(t, err)
	cfg.Logging.Output = "stderr"
	return cfg
}

func TestProvideCandleStoreDryRunUsesMemory(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backend.Type = "postgres"
	cfg.Backend.DryRun = true

	store, cleanup, err := ProvideCandleStore(cfg, logger.Nop())
	require.NoError(t, err)
	defer cleanup()
	assert.IsType(t, &repository.MemoryCandleStore{}, store)
}

func TestProvidePublisherDisabled(t *testing.T) {
	pub, cleanup, err := ProvidePublisher(testConfig(t), logger.Nop())
	require.NoError(t, err)
	assert.Nil(t, pub)
	assert.NotPanics(t, cleanup)
}

func TestProvideHTTPServerDisabled(t *testing.T) {
	assert.Nil(t, ProvideHTTPServer(testConfig(t), nil, logger.Nop(), ProvideRegistry()))
}

func TestProvideCandleSyncRejectsBadEpoch(t *testing.T) {
	cfg := testConfig(t)
	cfg.Binance.Epoch = "not-a-date"

	store, cleanup, err := ProvideCandleStore(cfg, logger.Nop())
	require.NoError(t, err)
	defer cleanup()
	_, err = ProvideCandleSync(cfg, store, nil, nil, nil, nil, logger.Nop())
	assert.Error(t, err)
}

func TestInitializeAppMemoryBackend(t *testing.T) {
	app, cleanup, err := InitializeApp(testConfig(t))
	require.NoError(t, err)
	require.NotNil(t, app)
	cleanup()
}

func TestInitializeAppCleanupClosesRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = mr.Addr()

	_, cleanup, err := InitializeApp(cfg)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return mr.CurrentConnectionCount() > 0 }, time.Second, 10*time.Millisecond)

	cleanup()
	assert.Eventually(t, func() bool { return mr.CurrentConnectionCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestInitializeAppReleasesOnLaterFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = mr.Addr()
	// opened after the store and the cache; no brokers makes it fail
	cfg.Kafka.Enabled = true
	cfg.Kafka.Brokers = nil

	app, cleanup, err := InitializeApp(cfg)
	require.Error(t, err)
	assert.Nil(t, app)
	assert.Nil(t, cleanup)
	assert.Eventually(t, func() bool { return mr.CurrentConnectionCount() == 0 }, time.Second, 10*time.Millisecond)
}
