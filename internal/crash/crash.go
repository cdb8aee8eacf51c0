/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a written report, flushes editor drafts
// so no in-progress crop or trim is lost, and exits.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	applog "contentstudio/internal/log"
	"contentstudio/internal/telemetry"
	"contentstudio/internal/version"
)

// ReportsDirName is the folder under the data dir holding crash reports.
const ReportsDirName = "crash"

// keepReports is how many reports survive pruning.
const keepReports = 10

// exitFn is swapped in tests.
var exitFn = os.Exit

// Flusher persists in-progress work. editor.Registry implements it.
type Flusher interface {
	FlushDrafts()
}

// Handle tells Recover where to write and what to save. A nil Handle writes
// the report to the temp dir and saves nothing.
type Handle struct {
	DataDir string
	Drafts  Flusher
}

// Recover captures a panic, writes a report and flushes drafts.
//
// Usage: defer crash.Recover(h)
func Recover(h *Handle) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		reportPath, _ := writeReport(h, r, stack)
		if h != nil && h.Drafts != nil {
			flushDrafts(l, h.Drafts)
		}

		if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
			l.Error("failed to write crash message to stderr", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
			l.Error("failed to write version info to stderr", slog.Any("err", err))
		}
		exitFn(2)
	}
}

// flushDrafts must not let a second panic hide the first one.
func flushDrafts(l *slog.Logger, f Flusher) {
	defer func() {
		if r := recover(); r != nil {
			l.Error("draft flush panicked", slog.Any("panic", r))
		}
	}()
	f.FlushDrafts()
	l.Info("drafts flushed")
}

func reportsDir(h *Handle) string {
	if h == nil || h.DataDir == "" {
		return os.TempDir()
	}
	dir := filepath.Join(h.DataDir, ReportsDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return os.TempDir()
	}
	return dir
}

func writeReport(h *Handle, panicVal any, stack []byte) (string, error) {
	dir := reportsDir(h)
	stamp := time.Now().Format("20060102-150405.000")
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", stamp))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "contentstudio crash report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	_, _ = fmt.Fprintf(&buf, "Goroutines: %d\n", runtime.NumGoroutine())
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	if dir != os.TempDir() {
		pruneReports(dir, keepReports)
	}

	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}

// pruneReports deletes all but the newest keep reports in dir.
func pruneReports(dir string, keep int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "crash-") && strings.HasSuffix(e.Name(), ".log") {
			names = append(names, e.Name())
		}
	}
	if len(names) <= keep {
		return
	}
	// timestamped names sort chronologically
	sort.Strings(names)
	for _, n := range names[:len(names)-keep] {
		_ = os.Remove(filepath.Join(dir, n))
	}
}
