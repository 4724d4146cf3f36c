// Package testutil provides shared test fixtures: an in-process survey
// backend and small image files to upload to it.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// WritePNG writes a w x h grayscale PNG into dir and returns its path.
func WritePNG(t testing.TB, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 2 {
		img.SetGray(x, h/2, color.Gray{Y: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Backend is an httptest server speaking the survey API under /api.
// Configure its fields before the first request.
type Backend struct {
	Server *httptest.Server

	// ID is the JSON literal returned by upload, e.g. `42` or `"abc"`.
	ID string
	// UploadCode, when not 0 or 200, makes upload fail with that status.
	UploadCode int
	// Statuses are the status bodies served in order; the last repeats.
	Statuses []string
	// ResultsCode, when not 0 or 200, makes results fail with that status.
	ResultsCode int
	ResultsBody string
	HealthBody  string

	mu           sync.Mutex
	uploads      int
	statusCalls  int
	resultsCalls int
	lastFilename string
	lastUpload   []byte
}

// NewBackend starts a Backend that accepts one upload as survey 42 and
// reports it completed on the first status query.
func NewBackend(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		ID:          "42",
		Statuses:    []string{`{"status": "completed", "progress": 100}`},
		ResultsBody: `{"data": [{"name": "Q1", "value": 40}, {"name": "Q2", "value": 75}]}`,
		HealthBody:  `{"status": "ok"}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/upload", b.handleUpload)
	mux.HandleFunc("GET /api/status/{id}", b.handleStatus)
	mux.HandleFunc("GET /api/results/{id}", b.handleResults)
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, b.HealthBody)
	})
	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the API base URL.
func (b *Backend) URL() string {
	return b.Server.URL + "/api"
}

func (b *Backend) knownID(id string) bool {
	return id == strings.Trim(b.ID, `"`)
}

func (b *Backend) handleUpload(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.uploads++
	b.mu.Unlock()

	if b.UploadCode != 0 && b.UploadCode != http.StatusOK {
		http.Error(w, http.StatusText(b.UploadCode), b.UploadCode)
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, `{"detail": "missing file"}`)
		return
	}
	defer f.Close()
	data, _ := io.ReadAll(f)

	b.mu.Lock()
	b.lastFilename = hdr.Filename
	b.lastUpload = data
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, fmt.Sprintf(`{"id": %s}`, b.ID))
}

func (b *Backend) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !b.knownID(r.PathValue("id")) {
		writeJSON(w, http.StatusNotFound, `{"detail": "Survey not found"}`)
		return
	}
	b.mu.Lock()
	body := b.Statuses[min(b.statusCalls, len(b.Statuses)-1)]
	b.statusCalls++
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, body)
}

func (b *Backend) handleResults(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.resultsCalls++
	b.mu.Unlock()

	if !b.knownID(r.PathValue("id")) {
		writeJSON(w, http.StatusNotFound, `{"detail": "Survey not found"}`)
		return
	}
	if b.ResultsCode != 0 && b.ResultsCode != http.StatusOK {
		writeJSON(w, b.ResultsCode, `{"detail": "Survey processing not completed"}`)
		return
	}
	writeJSON(w, http.StatusOK, b.ResultsBody)
}

func writeJSON(w http.ResponseWriter, code int, body string) {
	if !json.Valid([]byte(body)) {
		http.Error(w, "invalid fixture body", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = io.WriteString(w, body)
}

// Uploads returns the number of upload requests served.
func (b *Backend) Uploads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.uploads
}

// StatusCalls returns the number of status requests for the known id.
func (b *Backend) StatusCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.statusCalls
}

// ResultsCalls returns the number of results requests served.
func (b *Backend) ResultsCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resultsCalls
}

// LastUpload returns the file name and content of the last accepted upload.
func (b *Backend) LastUpload() (string, []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastFilename, b.lastUpload
}
