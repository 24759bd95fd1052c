package main

import (
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/deniseboyle690969/darkfi/internal/blockchain"
	"github.com/deniseboyle690969/darkfi/internal/tx"
)

func TestConfigDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "darkfid.yaml")

	// First load writes the default file.
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
	require.FileExists(t, path)

	// Edits survive a save/load round trip.
	cfg.NodeID = "node-2"
	cfg.Peers = map[string]string{"node-1": "127.0.0.1:8440"}
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.NodeID = ""
	require.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.DatabasePath = ""
	require.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.RateLimitBurst = 0
	require.Error(t, bad.Validate())
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", ""} {
		logger, err := NewLogger(level, "")
		require.NoError(t, err, "level %q", level)
		require.NotNil(t, logger)
	}

	logFile := filepath.Join(t.TempDir(), "darkfid.log")
	logger, err := NewLogger("info", logFile)
	require.NoError(t, err)
	logger.Info("started")
	// Sync flushes the file core; the stderr core may report EINVAL.
	_ = logger.Sync()
	require.FileExists(t, logFile)
}

func TestMetricsCollector(t *testing.T) {
	mc := NewMetricsCollector()
	mc.IncrementCounter(MetricTxAccepted)
	mc.IncrementCounter(MetricTxAccepted)
	mc.SetGauge(MetricBlockHeight, 7)
	mc.RecordHistogram(MetricTxApplyTime, 0.5)
	mc.RecordHistogram(MetricTxApplyTime, 1.5)

	require.Equal(t, int64(2), mc.Counter(MetricTxAccepted))

	summary := mc.Summary()
	gauges := summary["gauges"].(map[string]float64)
	require.Equal(t, 7.0, gauges[MetricBlockHeight])
	hist := summary["histograms"].(map[string]map[string]float64)[MetricTxApplyTime]
	require.Equal(t, 2.0, hist["count"])
	require.Equal(t, 0.5, hist["min"])
	require.Equal(t, 1.5, hist["max"])
	require.Equal(t, 1.0, hist["avg"])

	rec := httptest.NewRecorder()
	mc.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), MetricTxAccepted)
}

type stubLedger struct {
	txErr    error
	blockErr error
}

func (s *stubLedger) AddTransactions(txs []tx.Transaction) error { return s.txErr }
func (s *stubLedger) AddBlock(info *blockchain.BlockInfo) error  { return s.blockErr }

func TestInstrumentedLedger(t *testing.T) {
	mc := NewMetricsCollector()
	stub := &stubLedger{}
	il := &instrumentedLedger{ledger: stub, metrics: mc}

	require.NoError(t, il.AddTransactions([]tx.Transaction{{}}))
	require.Equal(t, int64(1), mc.Counter(MetricTxAccepted))

	stub.txErr = errors.New("rejected")
	require.Error(t, il.AddTransactions([]tx.Transaction{{}}))
	require.Equal(t, int64(1), mc.Counter(MetricTxRejected))

	block := &blockchain.BlockInfo{Header: blockchain.Header{Slot: 42}}
	require.NoError(t, il.AddBlock(block))
	require.Equal(t, int64(1), mc.Counter(MetricBlockAccepted))
	gauges := mc.Summary()["gauges"].(map[string]float64)
	require.Equal(t, 42.0, gauges[MetricBlockHeight])
}

func TestHealthChecker(t *testing.T) {
	hc := NewHealthChecker("test")
	hc.RegisterComponent("store", func() error { return nil })

	health := hc.CheckHealth()
	require.Equal(t, Healthy, health.OverallStatus)
	require.Equal(t, "test", health.Version)
	require.Len(t, health.Components, 1)

	rec := httptest.NewRecorder()
	hc.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	require.Equal(t, 200, rec.Code)

	hc.RegisterComponent("gossip", func() error { return errors.New("listener down") })
	health = hc.CheckHealth()
	require.Equal(t, Unhealthy, health.OverallStatus)

	rec = httptest.NewRecorder()
	hc.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	require.Equal(t, 503, rec.Code)
}
