// Package httpfs implements blobstore.Store against a file server exposing
// POST /getFile and POST /writeJson.
package httpfs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/kailas-cloud/locusmap/internal/blobstore"
)

const maxResponseSize = 512 << 20

// ErrNotJSON is returned when writing a blob the server cannot store.
var ErrNotJSON = errors.New("file server only accepts JSON blobs")

// Config holds file server parameters.
type Config struct {
	BaseURL string
	// Dir is prepended to every file name.
	Dir     string
	Timeout time.Duration
}

// Store implements blobstore.Store over HTTP.
type Store struct {
	base string
	dir  string
	http *http.Client
}

var _ blobstore.Store = (*Store)(nil)

// New creates a file server client.
func New(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Store{
		base: strings.TrimRight(cfg.BaseURL, "/"),
		dir:  cfg.Dir,
		http: &http.Client{Timeout: timeout},
	}
}

type getFileRequest struct {
	FileName     string `json:"fileName"`
	ContentType  string `json:"contentType"`
	EncodingType string `json:"encodingType"`
}

type getFileResponse struct {
	Data string `json:"data"`
}

type writeJSONRequest struct {
	FileName string          `json:"fileName"`
	Index    json.RawMessage `json:"index"`
}

func (s *Store) fileName(name string) string {
	if s.dir == "" {
		return name
	}
	return path.Join(s.dir, name)
}

// GetFile fetches a file. JSON files are requested as utf8 text, others as base64.
func (s *Store) GetFile(ctx context.Context, name string) ([]byte, error) {
	if err := blobstore.ValidateName(name); err != nil {
		return nil, err //nolint:wrapcheck // sentinel carries the name
	}
	req := getFileRequest{FileName: s.fileName(name), ContentType: "application/json", EncodingType: "utf8"}
	binary := path.Ext(name) != ".json"
	if binary {
		req.ContentType, req.EncodingType = "application/octet-stream", "base64"
	}

	body, err := s.post(ctx, "/getFile", req, name)
	if err != nil {
		return nil, err
	}
	var resp getFileResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode getFile response for %s: %w", name, err)
	}
	if !binary {
		return []byte(resp.Data), nil
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return data, nil
}

// WriteFile stores a JSON document through /writeJson.
func (s *Store) WriteFile(ctx context.Context, name string, data []byte) error {
	if err := blobstore.ValidateName(name); err != nil {
		return err //nolint:wrapcheck // sentinel carries the name
	}
	if !json.Valid(data) {
		return fmt.Errorf("%s: %w", name, ErrNotJSON)
	}
	_, err := s.post(ctx, "/writeJson", writeJSONRequest{FileName: s.fileName(name), Index: data}, name)
	return err
}

func (s *Store) post(ctx context.Context, endpoint string, payload any, name string) ([]byte, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", endpoint, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base+endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", endpoint, name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", name, blobstore.ErrNotFound)
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, fmt.Errorf("%s %s: status %d: %s", endpoint, name, resp.StatusCode, bytes.TrimSpace(body))
	}
	return body, nil
}
