package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-ionian/internal/export"
)

func TestRun_ValidateDefault(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"validate"}, &stdout, &stderr); code != 0 {
		t.Fatalf("run() = %d, stderr = %s", code, stderr.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "Module 1: Foundations") {
		t.Errorf("output missing lesson name: %s", out)
	}
	if !strings.Contains(out, "ok: 1 lessons, 13 steps") {
		t.Errorf("output missing summary: %s", out)
	}
}

func TestRun_ValidateMalformed(t *testing.T) {
	dir := t.TempDir()
	bad := `lessons:
  - name: Broken
    steps:
      - type: mcq
        prompt: Pick
        options: [A, B]
        correct_answer: C
`
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if code := run([]string{"validate", dir}, &stdout, &stderr); code != 1 {
		t.Errorf("run() = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "error:") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRun_Export(t *testing.T) {
	out := filepath.Join(t.TempDir(), "lessons.xlsx")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"export", "-o", out}, &stdout, &stderr); code != 0 {
		t.Fatalf("run() = %d, stderr = %s", code, stderr.String())
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(export.SheetSteps)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 14 {
		t.Errorf("rows = %d, want 14", len(rows))
	}
}

func TestRun_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no args", nil, 2},
		{"unknown", []string{"frobnicate"}, 2},
		{"help", []string{"help"}, 0},
		{"flag help", []string{"export", "-h"}, 0},
		{"missing dir", []string{"validate", "/does/not/exist"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if got := run(tt.args, &stdout, &stderr); got != tt.want {
				t.Errorf("run(%v) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}
