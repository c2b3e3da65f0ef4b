// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/microchain"
	"github.com/blinklabs-io/microchain/api"
	"github.com/blinklabs-io/microchain/chain"
	"github.com/blinklabs-io/microchain/event"
	"github.com/blinklabs-io/microchain/internal/config"
	"github.com/blinklabs-io/microchain/ledger"
	"github.com/blinklabs-io/microchain/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewIndexer builds an indexer from the process config
func NewIndexer(
	cfg *config.Config,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*microchain.Indexer, error) {
	contract, err := types.NewName(cfg.Contract)
	if err != nil {
		return nil, fmt.Errorf("invalid contract %q: %w", cfg.Contract, err)
	}
	shutdownTimeout, err := cfg.ShutdownDuration()
	if err != nil {
		return nil, err
	}
	return microchain.New(
		microchain.NewConfig(
			microchain.WithLogger(logger),
			microchain.WithPrometheusRegistry(promRegistry),
			microchain.WithDataDir(cfg.DataDir),
			microchain.WithContract(contract),
			microchain.WithPersistence(cfg.Persistence),
			microchain.WithAutoTrim(cfg.AutoTrim),
			microchain.WithTracing(cfg.Tracing),
			microchain.WithTracingStdout(cfg.TracingStdout),
			microchain.WithShutdownTimeout(shutdownTimeout),
		),
	)
}

// logEvents reports forks, rollbacks and replay faults from the event bus
func logEvents(eventBus *event.EventBus, logger *slog.Logger) {
	eventBus.SubscribeFunc(chain.ForkEventType, func(evt event.Event) {
		e, ok := evt.Data.(chain.ForkEvent)
		if !ok {
			return
		}
		logger.Info(
			"switched to new branch",
			"component", "node",
			"fork_point", e.ForkPoint,
			"depth", e.ForkDepth,
			"head", e.NewHead.String(),
		)
	})
	eventBus.SubscribeFunc(chain.RollbackEventType, func(evt event.Event) {
		e, ok := evt.Data.(chain.RollbackEvent)
		if !ok {
			return
		}
		logger.Info(
			"rolled back blocks",
			"component", "node",
			"head", e.Num,
			"count", e.Count,
		)
	})
	eventBus.SubscribeFunc(ledger.ReplayFaultEventType, func(evt event.Event) {
		e, ok := evt.Data.(ledger.ReplayFaultEvent)
		if !ok {
			return
		}
		logger.Warn(
			"action failed during replay",
			"component", "node",
			"block", e.Fault.BlockNum,
			"source_block", e.Fault.SourceBlockNum,
			"action", e.Fault.Action.String(),
			"error", e.Fault.Err,
		)
	})
}

func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	shutdownTimeout, err := cfg.ShutdownDuration()
	if err != nil {
		return err
	}
	idx, err := NewIndexer(cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	logEvents(idx.EventBus(), logger)

	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	if _, err := idx.Load(signalCtx); err != nil {
		return errors.Join(err, idx.Stop())
	}

	// Metrics and debug listener
	var metricsServer *http.Server
	if cfg.MetricsListenAddress != "" {
		http.Handle("/metrics", promhttp.Handler())
		logger.Info(
			"serving prometheus metrics on "+cfg.MetricsListenAddress,
			"component", "node",
		)
		metricsServer = &http.Server{
			Addr:              cfg.MetricsListenAddress,
			ReadHeaderTimeout: 60 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
	}

	apiServer := api.New(
		api.Config{
			ListenAddress:      cfg.ApiListenAddress,
			EnableAdmin:        cfg.EnableAdmin,
			MaxConcurrentPerIP: cfg.ApiMaxConcurrentPerIP,
		},
		idx,
		logger,
	)
	errChan := make(chan error, 2)
	if err := apiServer.Start(signalCtx); err != nil {
		return errors.Join(err, idx.Stop())
	}
	if metricsServer != nil {
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("metrics listener: %w", err)
			}
		}()
	}

	// Wait for signal or error
	var runErr error
	select {
	case <-signalCtx.Done():
		logger.Info("signal received, initiating graceful shutdown", "component", "node")
	case runErr = <-errChan:
		logger.Error("listener error", "component", "node", "error", runErr)
		signalCtxStop()
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		shutdownTimeout,
	)
	defer cancel()
	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}
	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Error("api server shutdown error", "component", "node", "error", err)
		errs = append(errs, err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "component", "node", "error", err)
			errs = append(errs, err)
		}
	}
	if err := idx.Stop(); err != nil {
		logger.Error("shutdown errors occurred", "component", "node", "error", err)
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		logger.Info("shutdown complete", "component", "node")
	}
	return errors.Join(errs...)
}
