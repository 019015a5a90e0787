package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeWatchList(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "watchlist.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing watch list: %v", err)
	}
	return path
}

func TestLoadWatchList(t *testing.T) {
	path := writeWatchList(t, `
projects:
  - project: web-app
    branch: main
    environment: production
  - project: docs-site
`)

	list, err := LoadWatchList(path)
	if err != nil {
		t.Fatalf("LoadWatchList: %v", err)
	}
	if len(list.Projects) != 2 {
		t.Fatalf("projects = %d, want 2", len(list.Projects))
	}

	first := list.Projects[0]
	if first.Project != "web-app" || first.Branch != "main" || first.Environment != "production" {
		t.Errorf("first entry = %+v", first)
	}

	second := list.Projects[1]
	if second.Branch != "main" {
		t.Errorf("branch = %q, want the main default", second.Branch)
	}
	if second.Environment != "" {
		t.Errorf("environment = %q, want empty (watch all)", second.Environment)
	}
}

func TestLoadWatchListMissingProject(t *testing.T) {
	path := writeWatchList(t, `
projects:
  - branch: main
`)

	if _, err := LoadWatchList(path); err == nil {
		t.Fatal("expected error for entry without a project")
	}
}

func TestLoadWatchListBadYAML(t *testing.T) {
	path := writeWatchList(t, "projects: [unclosed")

	if _, err := LoadWatchList(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadWatchListMissingFile(t *testing.T) {
	if _, err := LoadWatchList(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for a missing file")
	}
}
