package main

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/deniseboyle690969/darkfi/internal/blockchain"
	"github.com/deniseboyle690969/darkfi/internal/tx"
	"github.com/deniseboyle690969/darkfi/p2p"
)

// Metric names exposed by the daemon.
const (
	MetricTxAccepted    = "tx_accepted_total"
	MetricTxRejected    = "tx_rejected_total"
	MetricBlockAccepted = "block_accepted_total"
	MetricBlockRejected = "block_rejected_total"
	MetricBlockHeight   = "block_height"
	MetricTxApplyTime   = "tx_apply_seconds"
)

// MetricsCollector gathers counters, gauges and histograms for the
// metrics endpoint.
type MetricsCollector struct {
	mu         sync.RWMutex
	counters   map[string]int64
	gauges     map[string]float64
	histograms map[string][]float64
}

// NewMetricsCollector creates an empty collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters:   make(map[string]int64),
		gauges:     make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

// IncrementCounter adds one to a counter.
func (mc *MetricsCollector) IncrementCounter(name string) {
	mc.mu.Lock()
	mc.counters[name]++
	mc.mu.Unlock()
}

// SetGauge sets a gauge value.
func (mc *MetricsCollector) SetGauge(name string, value float64) {
	mc.mu.Lock()
	mc.gauges[name] = value
	mc.mu.Unlock()
}

// RecordHistogram appends an observation, keeping the last 1000.
func (mc *MetricsCollector) RecordHistogram(name string, value float64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	values := append(mc.histograms[name], value)
	if len(values) > 1000 {
		values = values[len(values)-1000:]
	}
	mc.histograms[name] = values
}

// Counter returns a counter's current value.
func (mc *MetricsCollector) Counter(name string) int64 {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.counters[name]
}

// Summary returns all metrics with min/max/avg histogram rollups.
func (mc *MetricsCollector) Summary() map[string]interface{} {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	counters := make(map[string]int64, len(mc.counters))
	for name, v := range mc.counters {
		counters[name] = v
	}
	gauges := make(map[string]float64, len(mc.gauges))
	for name, v := range mc.gauges {
		gauges[name] = v
	}

	histograms := make(map[string]map[string]float64, len(mc.histograms))
	for name, values := range mc.histograms {
		if len(values) == 0 {
			continue
		}
		min, max, sum := values[0], values[0], 0.0
		for _, v := range values {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
			sum += v
		}
		histograms[name] = map[string]float64{
			"count": float64(len(values)),
			"min":   min,
			"max":   max,
			"avg":   sum / float64(len(values)),
		}
	}

	return map[string]interface{}{
		"counters":   counters,
		"gauges":     gauges,
		"histograms": histograms,
	}
}

// Handler serves the metrics summary as JSON.
func (mc *MetricsCollector) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(mc.Summary())
	})
}

// instrumentedLedger wraps the validation layer with metrics.
type instrumentedLedger struct {
	ledger  p2p.Ledger
	metrics *MetricsCollector
}

func (il *instrumentedLedger) AddTransactions(txs []tx.Transaction) error {
	start := time.Now()
	err := il.ledger.AddTransactions(txs)
	il.metrics.RecordHistogram(MetricTxApplyTime, time.Since(start).Seconds())
	if err != nil {
		il.metrics.IncrementCounter(MetricTxRejected)
		return err
	}
	il.metrics.IncrementCounter(MetricTxAccepted)
	return nil
}

func (il *instrumentedLedger) AddBlock(info *blockchain.BlockInfo) error {
	if err := il.ledger.AddBlock(info); err != nil {
		il.metrics.IncrementCounter(MetricBlockRejected)
		return err
	}
	il.metrics.IncrementCounter(MetricBlockAccepted)
	il.metrics.SetGauge(MetricBlockHeight, float64(info.Header.Slot))
	return nil
}
