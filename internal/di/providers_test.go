package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalrepo "LunarPull/internal/repository"
	"LunarPull/internal/services/prices"
	"LunarPull/pkg/config"
)

func defaultConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte("log:\n  level: error\n"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestInitializeRunner_DefaultsNeedNoInfrastructure(t *testing.T) {
	cfg := defaultConfig(t)
	r, cleanup, err := InitializeRunner(cfg)
	require.NoError(t, err)
	defer cleanup()
	require.NotNil(t, r)
	assert.Equal(t, cfg.Run.Schedule != "", r.Scheduled())
}

func TestInitializeAPI_DefaultsNeedNoInfrastructure(t *testing.T) {
	app, cleanup, err := InitializeAPI(defaultConfig(t))
	require.NoError(t, err)
	defer cleanup()
	assert.NotNil(t, app)
}

func TestProvidePriceSource(t *testing.T) {
	cfg := defaultConfig(t)
	l, err := ProvideLogger(cfg)
	require.NoError(t, err)

	src, err := ProvidePriceSource(cfg, nil, l)
	require.NoError(t, err)
	assert.IsType(t, &prices.YahooClient{}, src)

	cfg.Run.PriceSource = "csv"
	src, err = ProvidePriceSource(cfg, nil, l)
	require.NoError(t, err)
	assert.IsType(t, &prices.CSVSource{}, src)

	cfg.Run.PriceSource = "warehouse"
	_, err = ProvidePriceSource(cfg, nil, l)
	assert.Error(t, err)
}

func TestProvidePipelineConfig(t *testing.T) {
	cfg := defaultConfig(t)
	pc := ProvidePipelineConfig(cfg)
	assert.Len(t, pc.Instruments, 4)
	assert.False(t, pc.StorePrices)
	assert.Equal(t, "lunar-phases", pc.LunarContainer)

	cfg.ClickHouse.Enabled = true
	assert.True(t, ProvidePipelineConfig(cfg).StorePrices)
	cfg.Run.PriceSource = "warehouse"
	assert.False(t, ProvidePipelineConfig(cfg).StorePrices)
}

func TestDisabledSinksFallBackToNoops(t *testing.T) {
	cfg := defaultConfig(t)
	l, err := ProvideLogger(cfg)
	require.NoError(t, err)

	assert.IsType(t, internalrepo.NopPublisher{}, ProvidePublisher(cfg, nil))

	store, err := ProvideAnalysisStore(cfg, nil, l)
	require.NoError(t, err)
	assert.IsType(t, internalrepo.NopStore{}, store)

	blobs, err := ProvideBlobStore(cfg, l)
	require.NoError(t, err)
	assert.Nil(t, blobs)

	cfg.Blob.Enabled = true
	cfg.Blob.LocalDir = t.TempDir()
	blobs, err = ProvideBlobStore(cfg, l)
	require.NoError(t, err)
	assert.IsType(t, &internalrepo.LocalBlobStore{}, blobs)
}
