package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/p-n-ai/pai-ionian/internal/platform/config"
)

func TestHealthEndpoints(t *testing.T) {
	healthy := func(context.Context) error { return nil }
	broken := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		checks     map[string]func(context.Context) error
		path       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "healthz returns 200",
			path:       "/healthz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
		{
			name:       "readyz without dependencies",
			path:       "/readyz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ready"}`,
		},
		{
			name:       "readyz with healthy dependencies",
			checks:     map[string]func(context.Context) error{"cache": healthy, "database": healthy},
			path:       "/readyz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ready"}`,
		},
		{
			name:       "readyz reports failing dependency",
			checks:     map[string]func(context.Context) error{"cache": healthy, "database": broken},
			path:       "/readyz",
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"status":"unavailable","check":"database"}`,
		},
		{
			name:       "websocket not mounted",
			path:       "/ws",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newMux(tt.checks, nil)
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			mux.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestNewMux_MountsWebSocket(t *testing.T) {
	called := false
	ws := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	})
	rec := httptest.NewRecorder()
	newMux(nil, ws).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws?user=u1", nil))

	if !called || rec.Code != http.StatusTeapot {
		t.Errorf("ws handler called = %v, status = %d", called, rec.Code)
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LogConfig
		wantOut string
		hidden  bool
	}{
		{"json default", config.LogConfig{Level: "info", Format: "json"}, `"msg":"hello"`, false},
		{"text format", config.LogConfig{Level: "info", Format: "text"}, "msg=hello", false},
		{"level filters", config.LogConfig{Level: "error", Format: "json"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			newLogger(tt.cfg, &buf).Info("hello", "user_id", "u1")
			if tt.hidden {
				if buf.Len() != 0 {
					t.Errorf("output = %q, want nothing below level", buf.String())
				}
				return
			}
			if !strings.Contains(buf.String(), tt.wantOut) {
				t.Errorf("output = %q, want %q", buf.String(), tt.wantOut)
			}
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	cat, err := loadCatalog("")
	if err != nil {
		t.Fatalf("loadCatalog(\"\") error = %v", err)
	}
	if cat.Len() == 0 {
		t.Error("embedded catalog is empty")
	}

	dir := t.TempDir()
	doc := `lessons:
  - name: Tiny
    steps:
      - type: info
        title: Only step
`
	if err := os.WriteFile(filepath.Join(dir, "tiny.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	cat, err = loadCatalog(dir)
	if err != nil {
		t.Fatalf("loadCatalog(dir) error = %v", err)
	}
	l, err := cat.LessonAt(0)
	if err != nil || l.Name != "Tiny" {
		t.Errorf("LessonAt(0) = %q, %v, want Tiny", l.Name, err)
	}

	if _, err := loadCatalog(filepath.Join(dir, "missing")); err == nil {
		t.Error("loadCatalog() should fail for a missing directory")
	}
}
