package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// sampleArtifacts copies the shipped model files into dir.
func sampleArtifacts(t *testing.T, dir string) (model, scaler, columns string) {
	t.Helper()
	paths := make([]string, 0, 3)
	for _, name := range []string{"diabetes_model.json", "scaler.json", "model_columns.json"} {
		payload, err := os.ReadFile(filepath.Join("..", "..", "models", name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, payload, 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		paths = append(paths, path)
	}
	return paths[0], paths[1], paths[2]
}

func TestPublishPromoteList(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "registry.db")
	model, scaler, columns := sampleArtifacts(t, dir)
	ctx := context.Background()

	var out bytes.Buffer
	args := []string{"-db", db, "-model", model, "-scaler", scaler, "-columns", columns, "-stage", "Production"}
	if err := publish(ctx, args, &out); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := publish(ctx, []string{"-db", db, "-model", model, "-columns", columns}, &out); err != nil {
		t.Fatalf("second publish: %v", err)
	}
	if !strings.Contains(out.String(), "published diabetes version 2 (None)") {
		t.Fatalf("unexpected output %q", out.String())
	}

	if err := promote(ctx, []string{"-db", db, "-version", "2", "-stage", "Production"}, &out); err != nil {
		t.Fatalf("promote: %v", err)
	}

	out.Reset()
	if err := list(ctx, []string{"-db", db}, &out); err != nil {
		t.Fatalf("list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two versions, got %q", out.String())
	}
	if !strings.HasPrefix(lines[1], "2") || !strings.Contains(lines[1], "Production") {
		t.Fatalf("unexpected first row %q", lines[1])
	}
	if !strings.Contains(lines[2], "Archived") || !strings.Contains(lines[2], "columns,model,scaler") {
		t.Fatalf("unexpected second row %q", lines[2])
	}
}

func TestPublishRejectsInconsistentArtifacts(t *testing.T) {
	dir := t.TempDir()
	model, _, _ := sampleArtifacts(t, dir)
	columns := filepath.Join(dir, "short_columns.json")
	if err := os.WriteFile(columns, []byte(`["age","bmi"]`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	err := publish(context.Background(), []string{"-db", filepath.Join(dir, "r.db"), "-model", model, "-columns", columns}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected publish to fail for mismatched columns")
	}
}

func TestPromoteNeedsVersion(t *testing.T) {
	if err := promote(context.Background(), []string{"-db", filepath.Join(t.TempDir(), "r.db")}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error without -version")
	}
}
