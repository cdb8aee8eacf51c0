/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package api exposes editor sessions over HTTP for a browser front end.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"contentstudio/internal/editor"
	"contentstudio/internal/media"
	"contentstudio/internal/version"
)

// Server wraps the http.Server serving the editor API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// ServerConfig wires the API to the rest of the process.
type ServerConfig struct {
	Addr     string
	Registry *editor.Registry
	// Defaults are copied into every new session. Kind, ID, Asset, Ratio and
	// Surface are filled per request.
	Defaults  editor.Options
	Prober    media.Prober
	Logger    *slog.Logger
	StartTime time.Time
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      NewRouter(cfg),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0, // commits are bounded by the backend timeout
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr, "version", version.String())
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string { return s.httpServer.Addr }
