/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"contentstudio/internal/commit"
	"contentstudio/internal/editor"
	"contentstudio/internal/geom"
	"contentstudio/internal/gesture"
	applog "contentstudio/internal/log"
	"contentstudio/internal/media"
	"contentstudio/internal/region"
	"contentstudio/internal/timeline"
	"contentstudio/internal/version"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	if cfg.Logger == nil {
		cfg.Logger = applog.WithComponent("api")
	}
	if cfg.Registry == nil {
		cfg.Registry = editor.NewRegistry()
	}
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", listSessionsHandler(cfg))
		r.Post("/", createSessionHandler(cfg))

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", withSession(cfg, getSessionHandler))
			r.Delete("/", deleteSessionHandler(cfg))
			r.Post("/load", withSession(cfg, loadHandler))
			r.Post("/viewport", withSession(cfg, viewportHandler))
			r.Post("/ratio", withSession(cfg, ratioHandler))
			r.Post("/pointer", withSession(cfg, pointerHandler))
			r.Post("/timeupdate", withSession(cfg, timeUpdateHandler))
			r.Post("/play", withSession(cfg, playHandler))
			r.Post("/pause", withSession(cfg, pauseHandler))
			r.Post("/boundary", withSession(cfg, boundaryHandler))
			r.Post("/undo", withSession(cfg, historyHandler((*editor.Session).Undo)))
			r.Post("/redo", withSession(cfg, historyHandler((*editor.Session).Redo)))
			r.Post("/reset", withSession(cfg, resetHandler))
			r.Post("/commit", withSession(cfg, commitHandler))
		})
	})

	return r
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, s *editor.Session)

func withSession(cfg ServerConfig, h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := cfg.Registry.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeEditorError(w, err)
			return
		}
		h(w, r.WithContext(applog.ContextWithSession(r.Context(), s.ID())), s)
	}
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  version.String(),
			UptimeS:  int64(time.Since(cfg.StartTime).Seconds()),
			Sessions: len(cfg.Registry.List()),
		})
	}
}

func listSessionsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all := cfg.Registry.List()
		resp := SessionsResponse{Sessions: make([]editor.State, len(all))}
		for i, s := range all {
			resp.Sessions[i] = s.State()
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func createSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSessionRequest
		if err := decodeBody(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		kind, err := editor.ParseKind(req.Kind)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		ratio, err := region.ParseAspectRatio(req.Ratio)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_RATIO")
			return
		}

		opts := cfg.Defaults
		opts.ID = ""
		opts.Kind = kind
		opts.Asset = req.Asset
		opts.Ratio = ratio
		opts.Surface = &gesture.Hub{}
		s, err := cfg.Registry.Open(opts)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		// a failed load is reported through the state, the session stays open
		_ = loadInitial(r.Context(), cfg, s, req)
		WriteJSON(w, http.StatusCreated, s.State())
	}
}

func loadInitial(ctx context.Context, cfg ServerConfig, s *editor.Session, req CreateSessionRequest) error {
	switch s.Kind() {
	case editor.KindCrop:
		if req.Path != "" {
			info, err := media.LoadImage(req.Path)
			if err != nil {
				s.FailLoad(err)
				return err
			}
			return s.LoadImage(ctx, info)
		}
		if req.Asset.Width > 0 && req.Asset.Height > 0 {
			return s.LoadBounds(ctx, region.Bounds{Width: float64(req.Asset.Width), Height: float64(req.Asset.Height)})
		}
	case editor.KindTrim:
		if req.Path != "" && cfg.Prober != nil {
			info, err := cfg.Prober.Probe(ctx, req.Path)
			if err != nil {
				s.FailLoad(err)
				return err
			}
			return s.LoadVideo(ctx, info)
		}
		if req.Asset.Duration > 0 {
			return s.LoadDuration(ctx, req.Asset.Duration)
		}
	}
	return nil
}

func getSessionHandler(w http.ResponseWriter, r *http.Request, s *editor.Session) {
	WriteJSON(w, http.StatusOK, s.State())
}

func deleteSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Registry.Close(chi.URLParam(r, "id")); err != nil {
			writeEditorError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func loadHandler(w http.ResponseWriter, r *http.Request, s *editor.Session) {
	var req LoadRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return
	}
	var err error
	switch {
	case req.Error != "":
		s.FailLoad(errors.New(req.Error))
	case s.Kind() == editor.KindCrop:
		err = s.LoadBounds(r.Context(), region.Bounds{Width: req.Width, Height: req.Height})
	default:
		err = s.LoadDuration(r.Context(), req.Duration)
	}
	if err != nil {
		writeEditorError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, s.State())
}

func viewportHandler(w http.ResponseWriter, r *http.Request, s *editor.Session) {
	var req ViewportRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return
	}
	if err := s.SetViewport(req.Width, req.Height); err != nil {
		writeEditorError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, s.State())
}

func ratioHandler(w http.ResponseWriter, r *http.Request, s *editor.Session) {
	var req RatioRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return
	}
	ratio, err := region.ParseAspectRatio(req.Ratio)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_RATIO")
		return
	}
	if err := s.SetRatio(ratio); err != nil {
		writeEditorError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, s.State())
}

func pointerHandler(w http.ResponseWriter, r *http.Request, s *editor.Session) {
	var req PointerRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return
	}
	kind, err := gesture.ParseKind(req.Kind)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
		return
	}
	area := gesture.AreaCrop
	if s.Kind() == editor.KindTrim {
		area = gesture.AreaTimeline
	}
	if req.Area != "" {
		if area, err = gesture.ParseArea(req.Area); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
	}
	res, err := s.Pointer(gesture.Event{
		Kind:    kind,
		Area:    area,
		Pos:     geom.DisplayPt{X: req.X, Y: req.Y},
		Pointer: gesture.ParsePointer(req.Pointer),
	})
	if err != nil {
		writeEditorError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, PointerResponse{
		Mode:           res.Mode.String(),
		Handled:        res.Handled,
		Changed:        res.Changed,
		Ended:          res.Ended,
		PreventDefault: res.PreventDefault,
		Commands:       s.DrainCommands(),
		State:          s.State(),
	})
}

func timeUpdateHandler(w http.ResponseWriter, r *http.Request, s *editor.Session) {
	var req TimeUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return
	}
	wrapped, err := s.TimeUpdate(req.Current, req.Playing)
	if err != nil {
		writeEditorError(w, err)
		return
	}
	writePlayback(w, s, wrapped)
}

func playHandler(w http.ResponseWriter, r *http.Request, s *editor.Session) {
	if err := s.Play(); err != nil {
		writeEditorError(w, err)
		return
	}
	writePlayback(w, s, false)
}

func pauseHandler(w http.ResponseWriter, r *http.Request, s *editor.Session) {
	if err := s.Pause(); err != nil {
		writeEditorError(w, err)
		return
	}
	writePlayback(w, s, false)
}

func writePlayback(w http.ResponseWriter, s *editor.Session, wrapped bool) {
	WriteJSON(w, http.StatusOK, PlaybackResponse{Wrapped: wrapped, Commands: s.DrainCommands(), State: s.State()})
}

func boundaryHandler(w http.ResponseWriter, r *http.Request, s *editor.Session) {
	var req BoundaryRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return
	}
	h, err := timeline.ParseHandle(req.Handle)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
		return
	}
	if req.Time != nil {
		err = s.SetBoundary(h, *req.Time)
	} else {
		err = s.SetBoundaryAtPlayhead(h)
	}
	if err != nil {
		writeEditorError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, s.State())
}

func historyHandler(step func(*editor.Session) (bool, error)) sessionHandler {
	return func(w http.ResponseWriter, r *http.Request, s *editor.Session) {
		applied, err := step(s)
		if err != nil {
			writeEditorError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, HistoryResponse{Applied: applied, State: s.State()})
	}
}

func resetHandler(w http.ResponseWriter, r *http.Request, s *editor.Session) {
	if err := s.Reset(); err != nil {
		writeEditorError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, s.State())
}

func commitHandler(w http.ResponseWriter, r *http.Request, s *editor.Session) {
	var req CommitRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return
	}
	asset, err := s.Commit(r.Context(), req.SaveAsNew)
	if err != nil {
		writeEditorError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, CommitResponse{Asset: asset, State: s.State()})
}

// writeEditorError maps domain errors to status codes.
func writeEditorError(w http.ResponseWriter, err error) {
	var ce *commit.Error
	switch {
	case errors.Is(err, editor.ErrNotFound):
		WriteError(w, http.StatusNotFound, "session not found", "NOT_FOUND")
	case errors.Is(err, editor.ErrClosed):
		WriteError(w, http.StatusGone, err.Error(), "CLOSED")
	case errors.Is(err, editor.ErrWrongKind):
		WriteError(w, http.StatusConflict, err.Error(), "WRONG_KIND")
	case errors.Is(err, commit.ErrCommitPending):
		WriteError(w, http.StatusConflict, err.Error(), "COMMIT_PENDING")
	case errors.Is(err, gesture.ErrNotReady):
		WriteError(w, http.StatusConflict, err.Error(), "NOT_READY")
	case errors.Is(err, gesture.ErrSessionActive), errors.Is(err, gesture.ErrListenersHeld):
		WriteError(w, http.StatusConflict, err.Error(), "GESTURE_ACTIVE")
	case errors.Is(err, region.ErrBadRatio):
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_RATIO")
	case errors.Is(err, media.ErrLoad):
		WriteError(w, http.StatusUnprocessableEntity, err.Error(), "LOAD_FAILED")
	case errors.As(err, &ce):
		if ce.IsRetryable() {
			WriteError(w, http.StatusBadGateway, ce.Detail, "COMMIT_FAILED")
		} else {
			WriteError(w, http.StatusUnprocessableEntity, ce.Detail, "COMMIT_REJECTED")
		}
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}
