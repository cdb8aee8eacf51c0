/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package commit

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

//go:embed schema/*.schema.json
var schemaFS embed.FS

var (
	schemaOnce sync.Once
	schemas    map[string]*gojsonschema.Schema
	schemaErr  error
)

func loadSchemas() (map[string]*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		out := map[string]*gojsonschema.Schema{}
		for _, op := range []string{"crop", "trim"} {
			b, err := schemaFS.ReadFile("schema/" + op + ".schema.json")
			if err != nil {
				schemaErr = err
				return
			}
			s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(b))
			if err != nil {
				schemaErr = fmt.Errorf("compile %s schema: %w", op, err)
				return
			}
			out[op] = s
		}
		schemas = out
	})
	return schemas, schemaErr
}

// Validate checks a payload against the embedded request schema for op.
func Validate(op string, payload any) error {
	all, err := loadSchemas()
	if err != nil {
		return err
	}
	s, ok := all[op]
	if !ok {
		return fmt.Errorf("%w: unknown op %q", ErrInvalidPayload, op)
	}
	res, err := s.Validate(gojsonschema.NewGoLoader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidPayload, strings.Join(msgs, "; "))
	}
	return nil
}

// HTTPCollaborator posts commits to the asset service as JSON.
type HTTPCollaborator struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewHTTPCollaborator creates a client. baseURL may include a trailing slash; it will be normalized.
func NewHTTPCollaborator(baseURL, token string, timeout time.Duration, tlsInsecure bool) *HTTPCollaborator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	hc := &http.Client{Timeout: timeout}
	if tlsInsecure {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for local dev servers
		hc.Transport = tr
	}
	return &HTTPCollaborator{BaseURL: strings.TrimRight(baseURL, "/"), Token: token, client: hc}
}

func (c *HTTPCollaborator) CommitCrop(ctx context.Context, p CropPayload) (Asset, error) {
	return c.post(ctx, "crop", p.AssetID, p)
}

func (c *HTTPCollaborator) CommitTrim(ctx context.Context, p TrimPayload) (Asset, error) {
	return c.post(ctx, "trim", p.AssetID, p)
}

func (c *HTTPCollaborator) post(ctx context.Context, op, assetID string, payload any) (Asset, error) {
	if err := Validate(op, payload); err != nil {
		return Asset{}, &Error{Op: op, Detail: err.Error(), Err: err}
	}
	var out Asset
	path := "/api/assets/" + url.PathEscape(assetID) + "/" + op
	if err := c.doJSON(ctx, op, http.MethodPost, path, payload, &out); err != nil {
		return Asset{}, err
	}
	if out.ID == "" {
		return Asset{}, &Error{Op: op, StatusCode: http.StatusOK, Detail: "response carries no asset id"}
	}
	return out, nil
}

func (c *HTTPCollaborator) doJSON(ctx context.Context, op, method, path string, body, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return &Error{Op: op, Detail: err.Error(), Err: err}
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return &Error{Op: op, Detail: err.Error(), Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(buf))
	if err != nil {
		return &Error{Op: op, Detail: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Op: op, Detail: err.Error(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &Error{Op: op, StatusCode: resp.StatusCode, Detail: detailMessage(raw, resp.Status)}
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, Detail: "decode response: " + err.Error(), Err: err}
	}
	return nil
}

// detailMessage extracts {"detail": ...} from an error body. A string detail
// is used verbatim; structured details are re-encoded; other bodies are
// returned trimmed, falling back to the status line.
func detailMessage(raw []byte, status string) string {
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Detail) > 0 {
		var s string
		if json.Unmarshal(env.Detail, &s) == nil {
			return s
		}
		return string(env.Detail)
	}
	if s := strings.TrimSpace(string(raw)); s != "" {
		return s
	}
	return status
}
