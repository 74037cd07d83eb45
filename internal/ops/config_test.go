package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
)

const sampleConfig = `{
  "instrument": {
    "symbol": "EDU-SIM",
    "priceScale": 2,
    "tickSize": "0.01",
    "referencePrice": "100.00",
    "seedDepth": 10,
    "seedMinVolume": 5,
    "seedMaxVolume": 40
  },
  "scheduler": {
    "seed": 42,
    "minIntervalMs": 100,
    "maxIntervalMs": 500
  },
  "gateway": {
    "addr": ":9090"
  },
  "recorder": {
    "enabled": true,
    "dir": "/tmp/sessions"
  }
}`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	loaded, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "EDU-SIM", loaded.Engine.Symbol)
	assert.Equal(t, model.Price(1), loaded.Engine.TickSize)
	assert.Equal(t, model.Price(10000), loaded.Engine.ReferencePrice)
	assert.Equal(t, 10, loaded.Engine.SeedDepth)
	assert.Equal(t, 2, loaded.Scale)

	assert.Equal(t, int64(42), loaded.Scheduler.Seed)
	assert.Equal(t, 100*time.Millisecond, loaded.Scheduler.MinInterval)
	assert.Equal(t, 500*time.Millisecond, loaded.Scheduler.MaxInterval)

	assert.Equal(t, ":9090", loaded.Gateway.Addr)
	assert.Equal(t, 64, loaded.Gateway.SnapshotQueue)

	assert.True(t, loaded.Recorder.Enabled)
	assert.Equal(t, int64(64<<20), loaded.Recorder.SegmentBytes)
	assert.False(t, loaded.Archive.Enabled)
}

func TestLoadRejectsMissingSymbol(t *testing.T) {
	_, err := Load(writeConfig(t, `{"instrument": {"tickSize": "0.01", "referencePrice": "100"}}`))
	assert.ErrorContains(t, err, "symbol")
}

func TestLoadRejectsTickBelowScale(t *testing.T) {
	cfg := `{"instrument": {"symbol": "X", "priceScale": 2, "tickSize": "0.001", "referencePrice": "100"}}`
	_, err := Load(writeConfig(t, cfg))
	assert.ErrorContains(t, err, "tickSize")
}

func TestLoadRejectsRecorderWithoutDir(t *testing.T) {
	cfg := `{
	  "instrument": {"symbol": "X", "tickSize": "0.01", "referencePrice": "100"},
	  "recorder": {"enabled": true}
	}`
	_, err := Load(writeConfig(t, cfg))
	assert.ErrorContains(t, err, "recorder")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
