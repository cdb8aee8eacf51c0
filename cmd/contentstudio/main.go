/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"contentstudio/internal/api"
	"contentstudio/internal/commit"
	"contentstudio/internal/config"
	"contentstudio/internal/crash"
	"contentstudio/internal/editor"
	"contentstudio/internal/gesture"
	applog "contentstudio/internal/log"
	"contentstudio/internal/media"
	"contentstudio/internal/region"
	"contentstudio/internal/replay"
	"contentstudio/internal/telemetry"
	"contentstudio/internal/timeline"
	"contentstudio/internal/version"
)

func usage() {
	fmt.Println("contentstudio - crop and trim editor engine")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  contentstudio version                                   Show version")
	fmt.Println("  contentstudio crop <image> --asset ID [--ratio 16:9] [--commit]")
	fmt.Println("  contentstudio trim [<video>] --asset ID [--duration S] [--start S] [--end S] [--commit]")
	fmt.Println("  contentstudio replay <script.yaml> [--commit]           Run a gesture script")
	fmt.Println("  contentstudio serve [--addr host:port]                  Serve the editor API")
	fmt.Println("  contentstudio drafts                                    List unsaved drafts")
	fmt.Println("  contentstudio journal <asset> [--keep N]                Show (and prune) commit attempts for an asset")
	fmt.Println("  contentstudio ratios                                    List ratio presets")
	fmt.Println("  contentstudio login <token> | logout                    Store or remove the backend token")
	fmt.Println()
	fmt.Println("Without --commit, edits are validated and printed but not sent.")
}

func main() {
	applog.Init(applog.FromEnv())
	h := &crash.Handle{}
	defer crash.Recover(h)

	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		return
	}
	switch args[0] {
	case "version", "--version", "-v":
		fmt.Println(version.String())
		return
	case "help", "-h", "--help":
		usage()
		return
	case "logout":
		exitOn(config.ClearToken())
		fmt.Println("Token removed.")
		return
	}

	a, err := newApp(h)
	exitOn(err)
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "crop":
		err = cmdCrop(ctx, a, args[1:])
	case "trim":
		err = cmdTrim(ctx, a, args[1:])
	case "replay":
		err = cmdReplay(ctx, a, args[1:])
	case "serve":
		err = cmdServe(ctx, a, args[1:])
	case "drafts":
		err = cmdDrafts(ctx, a)
	case "journal":
		err = cmdJournal(ctx, a, args[1:])
	case "ratios":
		cmdRatios(a)
	case "login":
		if len(args) < 2 {
			usage()
			os.Exit(2)
		}
		err = config.Save(a.cfg, args[1])
		if err == nil {
			fmt.Println("Token stored in the system keychain.")
		}
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		a.close()
		exitOn(err)
	}
}

func exitOn(err error) {
	if err == nil {
		return
	}
	applog.WithComponent("cli").Error("command failed", slog.Any("err", err))
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}

// splitArgs separates the leading positional argument from flags so that
// "crop photo.jpg --asset x" and "crop --asset x photo.jpg" both work.
func splitArgs(args []string) (string, []string) {
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		return args[0], args[1:]
	}
	return "", args
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func openSession(a *app, kind editor.Kind, assetID string, ratio region.AspectRatio, live bool) (*editor.Session, error) {
	opts := a.baseOptions(live)
	opts.Kind = kind
	opts.Asset = commit.Asset{ID: assetID}
	opts.Ratio = ratio
	opts.Surface = &gesture.Hub{}
	s, err := a.registry.Open(opts)
	if err != nil {
		return nil, err
	}
	a.tel.Event(telemetry.EventSessionOpened, map[string]any{"kind": string(kind), "ratio": ratio.String()})
	return s, nil
}

func cmdCrop(ctx context.Context, a *app, args []string) error {
	path, rest := splitArgs(args)
	fs := flag.NewFlagSet("crop", flag.ContinueOnError)
	assetID := fs.String("asset", "", "asset id (defaults to the file name)")
	ratioStr := fs.String("ratio", "free", "aspect ratio, e.g. 1:1, 4:5, 16:9 or free")
	doCommit := fs.Bool("commit", false, "send the crop to the asset service")
	saveAsNew := fs.Bool("save-as-new", false, "keep the original and create a new asset")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if path == "" {
		path = fs.Arg(0)
	}
	if path == "" {
		return errors.New("crop requires <image>")
	}
	if *assetID == "" {
		*assetID = filepath.Base(path)
	}
	ratio, err := region.ParseAspectRatio(*ratioStr)
	if err != nil {
		return err
	}
	info, err := media.LoadImage(path)
	if err != nil {
		return err
	}
	s, err := openSession(a, editor.KindCrop, *assetID, ratio, *doCommit)
	if err != nil {
		return err
	}
	if err := s.LoadImage(ctx, info); err != nil {
		return err
	}
	st := s.State()
	fmt.Printf("%s: %dx%d %s, ratio %s\n", path, info.Width, info.Height, info.Format, st.Crop.Ratio)
	printJSON(commit.RoundCrop(*assetID, st.Crop.Region, st.Crop.Bounds, *saveAsNew))
	return finishCommit(ctx, s, *doCommit, *saveAsNew)
}

func cmdTrim(ctx context.Context, a *app, args []string) error {
	path, rest := splitArgs(args)
	fs := flag.NewFlagSet("trim", flag.ContinueOnError)
	assetID := fs.String("asset", "", "asset id (defaults to the file name)")
	duration := fs.Float64("duration", 0, "clip duration in seconds (probed with ffprobe when omitted)")
	start := fs.Float64("start", -1, "range start in seconds")
	end := fs.Float64("end", -1, "range end in seconds")
	doCommit := fs.Bool("commit", false, "send the trim to the asset service")
	saveAsNew := fs.Bool("save-as-new", false, "keep the original and create a new asset")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if path == "" {
		path = fs.Arg(0)
	}
	if *assetID == "" {
		if path == "" {
			return errors.New("trim requires <video> or --asset")
		}
		*assetID = filepath.Base(path)
	}
	d := *duration
	if d <= 0 {
		if path == "" {
			return errors.New("trim requires <video> or --duration")
		}
		info, err := media.FFProbe{}.Probe(ctx, path)
		if err != nil {
			return err
		}
		d = info.Duration
	}
	s, err := openSession(a, editor.KindTrim, *assetID, region.Free, *doCommit)
	if err != nil {
		return err
	}
	if err := s.LoadDuration(ctx, d); err != nil {
		return err
	}
	if *start >= 0 {
		if err := s.SetBoundary(timeline.HandleStart, *start); err != nil {
			return err
		}
	}
	if *end >= 0 {
		if err := s.SetBoundary(timeline.HandleEnd, *end); err != nil {
			return err
		}
	}
	tr := s.State().Trim
	printJSON(commit.RoundTrim(*assetID, tr.Start, tr.End, tr.Duration, *saveAsNew))
	return finishCommit(ctx, s, *doCommit, *saveAsNew)
}

func finishCommit(ctx context.Context, s *editor.Session, doCommit, saveAsNew bool) error {
	if !doCommit {
		return nil
	}
	asset, err := s.Commit(ctx, saveAsNew)
	if err != nil {
		var ce *commit.Error
		if errors.As(err, &ce) && ce.IsRetryable() {
			return fmt.Errorf("%w (retry later)", err)
		}
		return err
	}
	fmt.Println("Committed:")
	printJSON(asset)
	return nil
}

func cmdReplay(ctx context.Context, a *app, args []string) error {
	path, rest := splitArgs(args)
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	live := fs.Bool("commit", false, "send commits to the asset service instead of a dry run")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if path == "" {
		path = fs.Arg(0)
	}
	if path == "" {
		return errors.New("replay requires <script.yaml>")
	}
	sc, err := replay.ParseFile(path)
	if err != nil {
		return err
	}
	opts, err := sc.Options(a.baseOptions(*live))
	if err != nil {
		return err
	}
	s, err := a.registry.Open(opts)
	if err != nil {
		return err
	}
	rep, err := replay.NewRunner(media.FFProbe{}).Run(ctx, s, sc)
	if err != nil {
		return err
	}
	a.tel.Event(telemetry.EventReplayFinished, map[string]any{"kind": sc.Kind, "steps": rep.Steps})
	fmt.Printf("%s: %d steps, %d commits\n", path, rep.Steps, len(rep.Commits))
	printJSON(rep.Final)
	return nil
}

func cmdServe(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", a.cfg.Server.Addr, "listen address")
	dry := fs.Bool("dry-run", false, "validate commits without calling the asset service")
	if err := fs.Parse(args); err != nil {
		return err
	}
	srv := api.NewServer(api.ServerConfig{
		Addr:      *addr,
		Registry:  a.registry,
		Defaults:  a.baseOptions(!*dry),
		Prober:    media.FFProbe{},
		Logger:    applog.WithComponent("api"),
		StartTime: time.Now(),
	})
	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func cmdDrafts(ctx context.Context, a *app) error {
	drafts, err := a.store.ListDrafts(ctx)
	if err != nil {
		return err
	}
	if len(drafts) == 0 {
		fmt.Println("No drafts.")
		return nil
	}
	for _, d := range drafts {
		var sn editor.Snapshot
		_ = json.Unmarshal(d.State, &sn)
		switch sn.Kind {
		case editor.KindCrop:
			r := sn.Rect
			fmt.Printf("%-24s crop  %s  %.0f,%.0f %.0fx%.0f  %s\n", d.AssetID, sn.Ratio, r.X, r.Y, r.Width, r.Height, d.UpdatedAt.Format(time.RFC3339))
		default:
			fmt.Printf("%-24s trim  %.2f-%.2f  %s\n", d.AssetID, sn.Start, sn.End, d.UpdatedAt.Format(time.RFC3339))
		}
	}
	return nil
}

func cmdJournal(ctx context.Context, a *app, args []string) error {
	assetID, rest := splitArgs(args)
	fs := flag.NewFlagSet("journal", flag.ContinueOnError)
	keep := fs.Int("keep", 0, "delete all but the newest N attempts first")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if assetID == "" && fs.NArg() > 0 {
		assetID = fs.Arg(0)
	}
	if assetID == "" {
		return errors.New("journal requires <asset>")
	}
	if *keep > 0 {
		n, err := a.store.PruneCommits(ctx, assetID, *keep)
		if err != nil {
			return err
		}
		if n > 0 {
			fmt.Printf("pruned %d attempts\n", n)
		}
	}
	recs, err := a.store.ListCommits(ctx, assetID, 20)
	if err != nil {
		return err
	}
	for _, r := range recs {
		outcome := "-> " + r.ResultID
		if r.Error != "" {
			outcome = "failed: " + r.Error
		}
		fmt.Printf("%s  %-4s  %5dms  %s  %s\n", r.TS.Format(time.RFC3339), r.Op, r.DurationMs, string(r.Payload), outcome)
	}
	return nil
}

func cmdRatios(a *app) {
	for _, s := range a.cfg.Editor.Ratios {
		r, err := region.ParseAspectRatio(s)
		if err != nil {
			fmt.Printf("%-8s (invalid: %v)\n", s, err)
			continue
		}
		name := ""
		if p, ok := region.PresetFor(r); ok {
			name = p.Name
		}
		fmt.Printf("%-8s %.4f  %s\n", r.String(), r.Value(), name)
	}
}
