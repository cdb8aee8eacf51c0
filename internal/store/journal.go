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
	"time"
)

// CommitRecord is one journaled commit attempt.
type CommitRecord struct {
	ID         int64
	AssetID    string
	Op         string
	Payload    []byte
	ResultID   string // empty on failure
	Error      string // empty on success
	DurationMs int64
	TS         time.Time
}

// language=SQL
// dialect=SQLite
const insertCommitSQL = `INSERT INTO commits(asset_id, op, payload, result_id, error, duration_ms, ts) VALUES (?, ?, ?, ?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const listCommitsSQL = `SELECT id, op, payload, COALESCE(result_id, ''), COALESCE(error, ''), duration_ms, ts
FROM commits WHERE asset_id = ? ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneCommitsSQL = `DELETE FROM commits WHERE asset_id = ? AND id NOT IN (
	SELECT id FROM commits WHERE asset_id = ? ORDER BY ts DESC, id DESC LIMIT ?
)`

// RecordCommit appends an attempt to the journal and returns its row id.
func (s *Store) RecordCommit(ctx context.Context, r CommitRecord) (int64, error) {
	ts := r.TS
	if ts.IsZero() {
		ts = time.Now()
	}
	res, err := s.db.ExecContext(ctx, insertCommitSQL, r.AssetID, r.Op, r.Payload, nullable(r.ResultID), nullable(r.Error), r.DurationMs, ts.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListCommits returns up to limit most recent attempts for assetID.
func (s *Store) ListCommits(ctx context.Context, assetID string, limit int) ([]CommitRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, listCommitsSQL, assetID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []CommitRecord
	for rows.Next() {
		r := CommitRecord{AssetID: assetID}
		var tsStr string
		if err := rows.Scan(&r.ID, &r.Op, &r.Payload, &r.ResultID, &r.Error, &r.DurationMs, &tsStr); err != nil {
			return nil, err
		}
		r.TS, _ = time.Parse(time.RFC3339Nano, tsStr)
		out = append(out, r)
	}
	return out, rows.Err()
}

// PruneCommits keeps at most keepLast attempts for assetID.
func (s *Store) PruneCommits(ctx context.Context, assetID string, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, pruneCommitsSQL, assetID, assetID, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
