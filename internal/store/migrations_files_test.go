package store

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func TestMigrationsHaveMatchingUpAndDownFiles(t *testing.T) {
	migrationsDir := filepath.Join("..", "..", "db", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}

	pattern := regexp.MustCompile(`^(\d+)_.*\.(up|down)\.sql$`)
	byVersion := map[string]map[string]bool{}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		match := pattern.FindStringSubmatch(name)
		if match == nil {
			continue
		}
		version := match[1]
		direction := match[2]
		if byVersion[version] == nil {
			byVersion[version] = map[string]bool{}
		}
		if byVersion[version][direction] {
			t.Fatalf("duplicate %s migration file for version %s", direction, version)
		}
		byVersion[version][direction] = true
	}

	if len(byVersion) == 0 {
		t.Fatal("no migrations discovered")
	}

	for version, dirs := range byVersion {
		if !dirs["up"] || !dirs["down"] {
			t.Fatalf("version %s must include both up and down files", version)
		}
	}
}

// The full-text fallback queries must compute to_tsvector over the same
// expressions the GIN indexes cover.
func TestSearchIndexesMatchQueryExpressions(t *testing.T) {
	migrationPath := filepath.Join("..", "..", "db", "migrations", "0002_search_indexes.up.sql")
	sqlBytes, err := os.ReadFile(migrationPath)
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	sqlText := string(sqlBytes)

	expectedExpressions := []string{
		"to_tsvector('english', title || ' ' || client)",
		"to_tsvector('english', title || ' ' || generated_content)",
		"to_tsvector('english', comment_text || ' ' || selected_text)",
	}
	for _, expression := range expectedExpressions {
		if !strings.Contains(sqlText, expression) {
			t.Fatalf("expected migration to index %q", expression)
		}
	}
	if !strings.Contains(sqlText, "USING GIN") {
		t.Fatal("expected GIN indexes for full-text search")
	}
}
