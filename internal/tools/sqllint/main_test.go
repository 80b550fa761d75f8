package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSource(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestRunAcceptsMarkedStatements(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "q.go", "package q\n\nconst QOne = `--sql 0f9a3c1e-8f0b-4a55-9d7c-1b2f3e4d5a60\nSELECT 1`\n\nconst Label = \"plan selection\"\n")

	var out bytes.Buffer
	if err := run([]string{dir}, &out); err != nil {
		t.Fatalf("run returned error: %v\n%s", err, out.String())
	}
}

func TestRunReportsMissingAndDuplicateMarkers(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "a.go", "package q\n\nconst QA = `--sql 0f9a3c1e-8f0b-4a55-9d7c-1b2f3e4d5a60\nSELECT 1`\n")
	writeSource(t, dir, "b.go", "package q\n\nconst (\n\tQB = `--sql 0f9a3c1e-8f0b-4a55-9d7c-1b2f3e4d5a60\nSELECT 2`\n\tQC = `UPDATE t SET x = 1`\n)\n")
	writeSource(t, dir, "b_test.go", "package q\n\nconst QT = `DELETE FROM t`\n")

	var out bytes.Buffer
	err := run([]string{dir}, &out)
	if err == nil {
		t.Fatal("expected lint failure")
	}
	report := out.String()
	if !strings.Contains(report, "already used by QA (QB)") {
		t.Fatalf("duplicate marker not reported:\n%s", report)
	}
	if !strings.Contains(report, "missing or invalid --sql <uuid> marker (QC)") {
		t.Fatalf("missing marker not reported:\n%s", report)
	}
	if strings.Contains(report, "QT") {
		t.Fatalf("test files must be skipped:\n%s", report)
	}
}

func TestRunOnRepositoryStatements(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"../../sqlinline"}, &out); err != nil {
		t.Fatalf("repository statements fail lint: %v\n%s", err, out.String())
	}
}
