/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/zalando/go-keyring"
)

// isolate points the config at a temp file and mocks the keyring.
func isolate(t *testing.T) string {
	t.Helper()
	keyring.MockInit()
	p := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigPath, p)
	return p
}

func TestEnvOverridesBackendURL(t *testing.T) {
	isolate(t)
	t.Setenv(EnvBackendURL, "https://example.test:8443")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.Backend.BaseURL, "https://example.test:8443"; got != want {
		t.Fatalf("Backend.BaseURL = %q, want %q", got, want)
	}
}

func TestEnvOverridesTelemetry(t *testing.T) {
	isolate(t)
	t.Setenv(EnvTelemetryOptIn, "true")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.General.TelemetryOptIn {
		t.Fatalf("General.TelemetryOptIn expected true from env override")
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "debug"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "/tmp/cs.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/cs.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestMergeKeepsEditorDefaultsForZeroFields(t *testing.T) {
	dst := Defaults()
	src := AppConfig{Editor: EditorConfig{ViewportMaxWidth: 1024}}
	mergeInto(&dst, &src)
	if dst.Editor.ViewportMaxWidth != 1024 {
		t.Fatalf("ViewportMaxWidth = %v, want 1024", dst.Editor.ViewportMaxWidth)
	}
	if dst.Editor.ViewportMaxHeight != 600 || dst.Editor.HistoryDepth != 100 || len(dst.Editor.Ratios) == 0 {
		t.Fatalf("zero fields overwrote defaults: %#v", dst.Editor)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "/var/tmp/cs.log")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "/var/tmp/cs.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
	if name, ok := EnvOverrideFor("logging.level"); !ok || name != EnvLogLevel {
		t.Fatalf("EnvOverrideFor(logging.level) = %q, %v", name, ok)
	}
	if _, ok := EnvOverrideFor("backend.base_url"); ok {
		t.Fatalf("backend.base_url reported as overridden")
	}
}

func TestSaveLoadRoundTripWithToken(t *testing.T) {
	p := isolate(t)
	cfg := Defaults()
	cfg.Editor.Ratios = []string{"1:1", "21:9"}
	cfg.Backend.TimeoutMs = 1500
	if err := Save(cfg, "secret-token"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(p); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	got, tok, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tok != "secret-token" {
		t.Fatalf("token = %q", tok)
	}
	if len(got.Editor.Ratios) != 2 || got.Editor.Ratios[1] != "21:9" {
		t.Fatalf("ratios = %v", got.Editor.Ratios)
	}
	if got.Backend.Timeout() != 1500*time.Millisecond {
		t.Fatalf("Timeout() = %v", got.Backend.Timeout())
	}
	if err := ClearToken(); err != nil {
		t.Fatalf("ClearToken: %v", err)
	}
	if err := ClearToken(); err != nil {
		t.Fatalf("ClearToken on missing token: %v", err)
	}
	if _, tok, _ = Load(); tok != "" {
		t.Fatalf("token survived ClearToken: %q", tok)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	p := isolate(t)
	if err := os.WriteFile(p, []byte("editor: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestDataDirFallsBackToConfigDir(t *testing.T) {
	p := isolate(t)
	dir, err := Defaults().DataDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Dir(p) {
		t.Fatalf("DataDir = %q, want %q", dir, filepath.Dir(p))
	}
	t.Setenv(EnvDataDir, "/srv/cs")
	cfg, _, _ := Load()
	if d, _ := cfg.DataDir(); d != "/srv/cs" {
		t.Fatalf("DataDir override = %q", d)
	}
}

func TestDefaultRatiosFollowPresets(t *testing.T) {
	got := Defaults().Editor.Ratios
	want := []string{"free", "1:1", "4:5", "9:16", "16:9", "4:3", "21:9"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("default ratios mismatch (-want +got):\n%s", diff)
	}
}
