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
	"fmt"
	"log/slog"
	"strings"
	"time"

	"contentstudio/internal/commit"
	"contentstudio/internal/config"
	"contentstudio/internal/crash"
	"contentstudio/internal/editor"
	"contentstudio/internal/geom"
	"contentstudio/internal/history"
	applog "contentstudio/internal/log"
	"contentstudio/internal/store"
	"contentstudio/internal/telemetry"
)

// app holds the process-wide wiring shared by all commands.
type app struct {
	cfg      config.AppConfig
	token    string
	store    *store.Store
	history  *history.Manager
	tel      *telemetry.Client
	registry *editor.Registry
	log      *slog.Logger
}

// newApp loads configuration, sets up logging and telemetry and opens the
// drafts database. h is filled in so a later panic can flush drafts.
func newApp(h *crash.Handle) (*app, error) {
	cfg, token, err := config.Load()
	if err != nil {
		return nil, err
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
		Rotation:  applog.Rotation{MaxSizeMB: cfg.Logging.MaxSizeMB, MaxBackups: cfg.Logging.MaxBackups},
	})

	tcfg := telemetry.FromEnv()
	tcfg.OptIn = tcfg.OptIn || cfg.General.TelemetryOptIn
	tel := telemetry.New(tcfg)
	telemetry.SetDefault(tel)

	dir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("open drafts database: %w", err)
	}

	a := &app{
		cfg:   cfg,
		token: token,
		store: st,
		history: history.NewManager(history.Config{
			MaxPerKey:   cfg.Editor.HistoryDepth,
			MinInterval: cfg.Editor.CoalesceInterval(),
		}),
		tel:      tel,
		registry: editor.NewRegistry(),
		log:      applog.WithComponent("cli"),
	}
	h.DataDir = dir
	h.Drafts = a.registry
	return a, nil
}

func (a *app) close() {
	a.registry.FlushDrafts()
	a.registry.CloseAll()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	a.tel.Flush(ctx)
	a.tel.Close()
	if err := a.store.Close(); err != nil {
		a.log.Warn("close drafts database", slog.Any("err", err))
	}
}

// collaborator returns the asset service client, or a dry-run stand-in that
// only validates payloads. Without a backend URL there is nothing to call.
func (a *app) collaborator(live bool) commit.Collaborator {
	if !live {
		return dryRun{}
	}
	if a.cfg.Backend.BaseURL == "" {
		a.log.Warn("no backend URL configured; commits run as dry run")
		return dryRun{}
	}
	return commit.NewHTTPCollaborator(a.cfg.Backend.BaseURL, a.token, a.cfg.Backend.Timeout(), a.cfg.Backend.TLSInsecure)
}

func (a *app) baseOptions(live bool) editor.Options {
	return editor.Options{
		Viewport:     geom.Size{W: a.cfg.Editor.ViewportMaxWidth, H: a.cfg.Editor.ViewportMaxHeight},
		TrackWidth:   a.cfg.Editor.TimelineTrackWidth,
		Collaborator: a.collaborator(live),
		History:      a.history,
		Store:        a.store,
		Events:       a.tel,
	}
}

// dryRun validates commits and answers with a synthetic asset.
type dryRun struct{}

func (dryRun) CommitCrop(_ context.Context, p commit.CropPayload) (commit.Asset, error) {
	if err := commit.Validate("crop", p); err != nil {
		return commit.Asset{}, err
	}
	return commit.Asset{ID: dryRunID(p.AssetID, p.SaveAsNew), Width: p.Width, Height: p.Height}, nil
}

func (dryRun) CommitTrim(_ context.Context, p commit.TrimPayload) (commit.Asset, error) {
	if err := commit.Validate("trim", p); err != nil {
		return commit.Asset{}, err
	}
	return commit.Asset{ID: dryRunID(p.AssetID, p.SaveAsNew), Duration: geom.FloatRound(p.EndTime-p.StartTime, 2)}, nil
}

func dryRunID(id string, saveAsNew bool) string {
	if saveAsNew {
		return strings.TrimSuffix(id, "-copy") + "-copy"
	}
	return id
}
