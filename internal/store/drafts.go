/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Draft is the last editor state of an asset that was not committed yet.
type Draft struct {
	AssetID   string
	Kind      string // "crop" or "trim"
	State     []byte
	UpdatedAt time.Time
}

// language=SQL
// dialect=SQLite
const upsertDraftSQL = `INSERT INTO drafts(asset_id, kind, state, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT(asset_id) DO UPDATE SET kind=excluded.kind, state=excluded.state, updated_at=excluded.updated_at`

// language=SQL
// dialect=SQLite
const selectDraftSQL = `SELECT kind, state, updated_at FROM drafts WHERE asset_id = ?`

// language=SQL
// dialect=SQLite
const listDraftsSQL = `SELECT asset_id, kind, state, updated_at FROM drafts ORDER BY updated_at DESC`

// language=SQL
// dialect=SQLite
const deleteDraftSQL = `DELETE FROM drafts WHERE asset_id = ?`

// SaveDraft inserts or replaces the draft of d.AssetID.
func (s *Store) SaveDraft(ctx context.Context, d Draft) error {
	if d.AssetID == "" {
		return errors.New("draft needs an asset id")
	}
	ts := d.UpdatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx, upsertDraftSQL, d.AssetID, d.Kind, d.State, ts.UTC().Format(time.RFC3339Nano))
	return err
}

// LoadDraft returns the draft of assetID; ok is false when there is none.
func (s *Store) LoadDraft(ctx context.Context, assetID string) (Draft, bool, error) {
	var kind, tsStr string
	var state []byte
	err := s.db.QueryRowContext(ctx, selectDraftSQL, assetID).Scan(&kind, &state, &tsStr)
	if errors.Is(err, sql.ErrNoRows) {
		return Draft{}, false, nil
	}
	if err != nil {
		return Draft{}, false, err
	}
	ts, _ := time.Parse(time.RFC3339Nano, tsStr)
	return Draft{AssetID: assetID, Kind: kind, State: state, UpdatedAt: ts}, true, nil
}

// ListDrafts returns all drafts, newest first.
func (s *Store) ListDrafts(ctx context.Context) ([]Draft, error) {
	rows, err := s.db.QueryContext(ctx, listDraftsSQL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Draft
	for rows.Next() {
		var d Draft
		var tsStr string
		if err := rows.Scan(&d.AssetID, &d.Kind, &d.State, &tsStr); err != nil {
			return nil, err
		}
		d.UpdatedAt, _ = time.Parse(time.RFC3339Nano, tsStr)
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteDraft removes the draft of assetID. Missing drafts are not an error.
func (s *Store) DeleteDraft(ctx context.Context, assetID string) error {
	_, err := s.db.ExecContext(ctx, deleteDraftSQL, assetID)
	return err
}
