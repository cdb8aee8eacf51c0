/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


package log

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func lastJSONLine(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var last []byte
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		if line := bytes.TrimSpace(sc.Bytes()); len(line) > 0 {
			last = append(last[:0], line...)
		}
	}
	if last == nil {
		t.Fatalf("no log lines in %q", b)
	}
	var m map[string]any
	if err := json.Unmarshal(last, &m); err != nil {
		t.Fatalf("unmarshal %q: %v", last, err)
	}
	return m
}

// A commit logged from a request context ends up in the rotated JSON file with
// the static, component and session attributes.
func TestFileHandlerCarriesSessionAttrs(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "logs", "contentstudio.json")
	var console bytes.Buffer
	Init(Options{Level: "debug", Format: "json", File: fpath, Writer: &console, Rotation: Rotation{MaxSizeMB: 1, MaxBackups: 1}})
	t.Cleanup(func() { Init(Options{Level: "info"}) })

	l := WithOperation(WithComponent("editor"), "commit")
	ctx := ContextWithSession(context.Background(), "a1b2c3")
	l.InfoContext(ctx, "commit finished", slog.String("asset", "img-1"), slog.Int("width", 1000))

	b, err := os.ReadFile(fpath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	want := map[string]any{
		"app":       "contentstudio",
		"component": "editor",
		"op":        "commit",
		"session":   "a1b2c3",
		"asset":     "img-1",
		"msg":       "commit finished",
	}
	for _, m := range []map[string]any{lastJSONLine(t, b), lastJSONLine(t, console.Bytes())} {
		for k, v := range want {
			if m[k] != v {
				t.Fatalf("attr %q = %v, want %v (record %v)", k, m[k], v, m)
			}
		}
		if m["width"] != float64(1000) {
			t.Fatalf("width = %v, want 1000", m["width"])
		}
		if _, ok := m["ver"].(string); !ok {
			t.Fatalf("missing ver attr in %v", m)
		}
	}
}

func TestRotationDefaults(t *testing.T) {
	w := Rotation{}.writer("x.log")
	if w.MaxSize != 10 || w.MaxBackups != 3 || w.MaxAge != 28 || !w.Compress {
		t.Fatalf("defaults = %+v", w)
	}
	w = Rotation{MaxSizeMB: 2, MaxBackups: 7, MaxAgeDays: 1}.writer("x.log")
	if w.MaxSize != 2 || w.MaxBackups != 7 || w.MaxAge != 1 {
		t.Fatalf("overrides = %+v", w)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in).Level(); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
