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

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "microchain.config"

const (
	DefaultShutdownTimeout = "30s"
	DefaultContract        = "genesis.eden"
	DefaultDataDir         = ".microchain"
	DefaultApiListenAddr   = ":8080"
	DefaultMetricsAddr     = ":12798"
)

var ErrInvalidShutdownTimeout = errors.New("invalid shutdown timeout")

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type Config struct {
	DataDir          string `yaml:"dataDir"          split_words:"true"`
	Contract         string `yaml:"contract"`
	ApiListenAddress string `yaml:"apiListenAddress" split_words:"true"`
	// Exposes the trim, undo and reset endpoints
	EnableAdmin bool `yaml:"enableAdmin" split_words:"true"`
	// Limits in-flight API requests per client address, 0 for no limit
	ApiMaxConcurrentPerIP int    `yaml:"apiMaxConcurrentPerIp" split_words:"true"`
	MetricsListenAddress  string `yaml:"metricsListenAddress"  split_words:"true"`
	Tracing               bool   `yaml:"tracing"`
	TracingStdout         bool   `yaml:"tracingStdout"         split_words:"true"`
	AutoTrim              bool   `yaml:"autoTrim"              split_words:"true"`
	Persistence           bool   `yaml:"persistence"`
	ShutdownTimeout       string `yaml:"shutdownTimeout"       split_words:"true"`
	Debug                 bool   `yaml:"debug"`
}

// ShutdownDuration parses ShutdownTimeout, falling back to the default when
// it is empty
func (c *Config) ShutdownDuration() (time.Duration, error) {
	value := c.ShutdownTimeout
	if value == "" {
		value = DefaultShutdownTimeout
	}
	ret, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidShutdownTimeout, err)
	}
	if ret <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidShutdownTimeout, value)
	}
	return ret, nil
}

func defaultConfig() *Config {
	return &Config{
		DataDir:              DefaultDataDir,
		Contract:             DefaultContract,
		ApiListenAddress:     DefaultApiListenAddr,
		MetricsListenAddress: DefaultMetricsAddr,
		AutoTrim:             true,
		Persistence:          true,
		ShutdownTimeout:      DefaultShutdownTimeout,
	}
}

var globalConfig = defaultConfig()

// findConfigFile returns the first config file found in the user and system
// locations, or "" if there is none
func findConfigFile() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(homeDir, ".microchain", "microchain.yaml")
		if _, err := os.Stat(userPath); err == nil {
			return userPath
		}
	}
	systemPath := "/etc/microchain/microchain.yaml"
	if _, err := os.Stat(systemPath); err == nil {
		return systemPath
	}
	return ""
}

// LoadConfig builds the config from defaults, the YAML file and then the
// MICROCHAIN_* environment variables, in increasing order of precedence
func LoadConfig(configFile string) (*Config, error) {
	cfg := defaultConfig()
	if configFile == "" {
		configFile = findConfigFile()
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	if err := envconfig.Process("microchain", cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if cfg.Contract == "" {
		return nil, errors.New("contract must not be empty")
	}
	if _, err := cfg.ShutdownDuration(); err != nil {
		return nil, err
	}
	globalConfig = cfg
	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}
