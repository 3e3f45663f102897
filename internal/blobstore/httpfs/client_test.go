package httpfs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/kailas-cloud/locusmap/internal/blobstore"
)

// fileServer is an in-memory implementation of the file server protocol.
type fileServer struct {
	mu    sync.Mutex
	files map[string][]byte
	last  getFileRequest
}

func newFileServer(t *testing.T) (*fileServer, *httptest.Server) {
	t.Helper()
	fs := &fileServer{files: make(map[string][]byte)}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /getFile", func(w http.ResponseWriter, r *http.Request) {
		var req getFileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fs.mu.Lock()
		fs.last = req
		data, ok := fs.files[req.FileName]
		fs.mu.Unlock()
		if !ok {
			http.Error(w, "no such file", http.StatusNotFound)
			return
		}
		out := string(data)
		if req.EncodingType == "base64" {
			out = base64.StdEncoding.EncodeToString(data)
		}
		_ = json.NewEncoder(w).Encode(getFileResponse{Data: out})
	})
	mux.HandleFunc("POST /writeJson", func(w http.ResponseWriter, r *http.Request) {
		var req writeJSONRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fs.mu.Lock()
		fs.files[req.FileName] = req.Index
		fs.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return fs, srv
}

func TestGetFile_JSON(t *testing.T) {
	fs, srv := newFileServer(t)
	fs.files["data/dataMap.json"] = []byte(`[{"_id":"m1"}]`)

	s := New(Config{BaseURL: srv.URL + "/", Dir: "data"})
	data, err := s.GetFile(context.Background(), "dataMap.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `[{"_id":"m1"}]` {
		t.Errorf("data = %s", data)
	}
	if fs.last.ContentType != "application/json" || fs.last.EncodingType != "utf8" {
		t.Errorf("request = %+v", fs.last)
	}
}

func TestGetFile_Binary(t *testing.T) {
	fs, srv := newFileServer(t)
	fs.files["index.bleve"] = []byte{0x28, 0xb5, 0x00, 0xff}

	s := New(Config{BaseURL: srv.URL})
	data, err := s.GetFile(context.Background(), "index.bleve")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != string([]byte{0x28, 0xb5, 0x00, 0xff}) {
		t.Errorf("data = %x", data)
	}
	if fs.last.EncodingType != "base64" {
		t.Errorf("encoding = %q, want base64", fs.last.EncodingType)
	}
}

func TestGetFile_NotFound(t *testing.T) {
	_, srv := newFileServer(t)

	s := New(Config{BaseURL: srv.URL})
	_, err := s.GetFile(context.Background(), "indexData.json")
	if !errors.Is(err, blobstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetFile_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	s := New(Config{BaseURL: srv.URL})
	_, err := s.GetFile(context.Background(), "dataMap.json")
	if err == nil || errors.Is(err, blobstore.ErrNotFound) {
		t.Errorf("expected server error, got %v", err)
	}
}

func TestWriteFile_RoundTrip(t *testing.T) {
	fs, srv := newFileServer(t)

	s := New(Config{BaseURL: srv.URL, Dir: "data"})
	if err := s.WriteFile(context.Background(), "indexData.json", []byte(`{"version":1}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := fs.files["data/indexData.json"]; !ok {
		t.Fatal("file not stored")
	}
	data, err := s.GetFile(context.Background(), "indexData.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"version":1}` {
		t.Errorf("data = %s", data)
	}
}

func TestWriteFile_RejectsNonJSON(t *testing.T) {
	_, srv := newFileServer(t)

	s := New(Config{BaseURL: srv.URL})
	err := s.WriteFile(context.Background(), "index.bleve", []byte{0x28, 0xb5})
	if !errors.Is(err, ErrNotJSON) {
		t.Errorf("expected ErrNotJSON, got %v", err)
	}
}
