// darkfid is the ledger node daemon. It opens the block store, wires
// the contract validators, and serves the gossip endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/deniseboyle690969/darkfi/internal/blockchain"
	"github.com/deniseboyle690969/darkfi/internal/contract/consensus"
	"github.com/deniseboyle690969/darkfi/internal/contract/dao"
	"github.com/deniseboyle690969/darkfi/internal/contract/money"
	"github.com/deniseboyle690969/darkfi/internal/runtime"
	"github.com/deniseboyle690969/darkfi/p2p"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "darkfid:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "darkfid.yaml", "path to the config file")
	dbPath := flag.String("db", "", "override the database path")
	listen := flag.String("listen", "", "override the listen address")
	logLevel := flag.String("log-level", "", "override the log level")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := NewLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting darkfid",
		zap.String("version", version),
		zap.String("node", cfg.NodeID),
		zap.String("db", cfg.DatabasePath))

	bc, err := blockchain.Open(cfg.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("open block store: %w", err)
	}
	defer func() { _ = bc.Close() }()

	validator := runtime.NewValidator(bc, logger,
		money.New(), consensus.New(), dao.New())

	metrics := NewMetricsCollector()
	ledger := &instrumentedLedger{ledger: validator, metrics: metrics}

	node := p2p.NewNode(cfg.NodeID, cfg.Listen, cfg.Peers, ledger, logger)
	node.SetRateLimit(cfg.RateLimitBurst, cfg.RateLimitRefill, time.Second)

	health := NewHealthChecker(version)
	health.RegisterComponent("store", func() error {
		_, _, err := bc.Last()
		if errors.Is(err, blockchain.ErrEmptyChain) {
			return nil
		}
		return err
	})
	node.Handle("/health", health.Handler())
	node.Handle("/metrics", metrics.Handler())

	ready := make(chan struct{}, 1)
	if err := node.Start(ready); err != nil {
		return err
	}
	<-ready

	if err := node.Ping(); err != nil {
		logger.Warn("peer announcement failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return node.Shutdown(shutdownCtx)
}
