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
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "microchain.yaml")
	if err := os.WriteFile(tmpFile, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return tmpFile
}

func TestLoad_CompareFullStruct(t *testing.T) {
	yamlContent := `
dataDir: "/var/lib/microchain"
contract: "eden.gm"
apiListenAddress: "127.0.0.1:9000"
enableAdmin: true
apiMaxConcurrentPerIp: 8
metricsListenAddress: "127.0.0.1:9001"
tracing: true
tracingStdout: true
autoTrim: false
persistence: false
shutdownTimeout: "5s"
debug: true
`
	expected := &Config{
		DataDir:               "/var/lib/microchain",
		Contract:              "eden.gm",
		ApiListenAddress:      "127.0.0.1:9000",
		EnableAdmin:           true,
		ApiMaxConcurrentPerIP: 8,
		MetricsListenAddress:  "127.0.0.1:9001",
		Tracing:               true,
		TracingStdout:         true,
		AutoTrim:              false,
		Persistence:           false,
		ShutdownTimeout:       "5s",
		Debug:                 true,
	}

	actual, err := LoadConfig(writeConfigFile(t, yamlContent))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if !reflect.DeepEqual(actual, expected) {
		t.Errorf(
			"Loaded config does not match expected.\nActual: %+v\nExpected: %+v",
			actual,
			expected,
		)
	}
	if GetConfig() != actual {
		t.Errorf("expected GetConfig to return the loaded config")
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfigFile(t, "enableAdmin: true\n"))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	expected := defaultConfig()
	expected.EnableAdmin = true
	if !reflect.DeepEqual(cfg, expected) {
		t.Errorf(
			"config mismatch:\nExpected: %+v\nGot:      %+v",
			expected,
			cfg,
		)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	t.Setenv("MICROCHAIN_CONTRACT", "env.eden")
	t.Setenv("MICROCHAIN_DATA_DIR", "/tmp/env-microchain")
	t.Setenv("MICROCHAIN_ENABLE_ADMIN", "true")
	t.Setenv("MICROCHAIN_API_LISTEN_ADDRESS", ":7000")

	cfg, err := LoadConfig(writeConfigFile(t, "contract: \"file.eden\"\n"))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cfg.Contract != "env.eden" {
		t.Errorf("expected contract from environment, got: %s", cfg.Contract)
	}
	if cfg.DataDir != "/tmp/env-microchain" {
		t.Errorf("expected data dir from environment, got: %s", cfg.DataDir)
	}
	if !cfg.EnableAdmin {
		t.Errorf("expected admin endpoints to be enabled")
	}
	if cfg.ApiListenAddress != ":7000" {
		t.Errorf("expected API address from environment, got: %s", cfg.ApiListenAddress)
	}
}

func TestLoad_Errors(t *testing.T) {
	testDefs := []struct {
		name    string
		content string
	}{
		{name: "bad yaml", content: "contract: [\n"},
		{name: "empty contract", content: "contract: \"\"\n"},
		{name: "bad shutdown timeout", content: "shutdownTimeout: \"soon\"\n"},
		{name: "negative shutdown timeout", content: "shutdownTimeout: \"-1s\"\n"},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfigFile(t, testDef.content)); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestShutdownDuration(t *testing.T) {
	cfg := &Config{}
	d, err := cfg.ShutdownDuration()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if d != 30*time.Second {
		t.Errorf("expected default of 30s, got: %s", d)
	}
	cfg.ShutdownTimeout = "nope"
	if _, err := cfg.ShutdownDuration(); !errors.Is(err, ErrInvalidShutdownTimeout) {
		t.Errorf("expected ErrInvalidShutdownTimeout, got: %v", err)
	}
}
