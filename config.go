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

package microchain

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/microchain/chain"
	"github.com/blinklabs-io/microchain/types"
	"github.com/prometheus/client_golang/prometheus"
)

const DefaultContract = "genesis.eden"

type Config struct {
	promRegistry    prometheus.Registerer
	logger          *slog.Logger
	hashFunc        chain.HashFunc
	dataDir         string
	contract        types.Name
	tracing         bool
	tracingStdout   bool
	autoTrim        bool
	persist         bool
	shutdownTimeout time.Duration
}

// ConfigOptionFunc is a type that represents functions that modify the Indexer config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new microchain config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:   slog.New(slog.NewJSONHandler(io.Discard, nil)),
		contract: types.MustName(DefaultContract),
		hashFunc: chain.Sha256,
		persist:  true,
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c *Config) validate() error {
	if c.contract.IsEmpty() {
		return errors.New("contract account must be set")
	}
	if c.hashFunc == nil {
		return errors.New("hash function must be set")
	}
	return nil
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. Metrics are not
// registered when this is not set
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithDataDir specifies the persistent data directory to use. The default is to keep the block
// archive and metadata in memory
func WithDataDir(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithContract specifies the account whose actions are replayed. The default is genesis.eden
func WithContract(contract types.Name) ConfigOptionFunc {
	return func(c *Config) {
		c.contract = contract
	}
}

// WithHashFunc specifies the hash used for block ids. The default is SHA-256
func WithHashFunc(hashFunc chain.HashFunc) ConfigOptionFunc {
	return func(c *Config) {
		c.hashFunc = hashFunc
	}
}

// WithPersistence controls whether accepted blocks are written to the block archive and metadata
// store. It is enabled by default
func WithPersistence(persist bool) ConfigOptionFunc {
	return func(c *Config) {
		c.persist = persist
	}
}

// WithAutoTrim drops irreversible blocks from the in-memory block log each time the irreversible
// block advances. The block archive is not affected
func WithAutoTrim(autoTrim bool) ConfigOptionFunc {
	return func(c *Config) {
		c.autoTrim = autoTrim
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
