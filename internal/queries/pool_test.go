package queries_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cashmeremcp/surge/internal/queries"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeFile(t, "queries.json",
		`{"search_queries": ["marine biology", "quantum dots", "urban heat islands"]}`)

	var warn bytes.Buffer
	p := queries.Load(path, "search_queries", 100, &warn)

	if warn.Len() != 0 {
		t.Errorf("unexpected warning: %s", warn.String())
	}
	if p.Len() != 3 {
		t.Errorf("pool size = %d, want 3", p.Len())
	}
	if p.IsFallback() {
		t.Error("pool should not be a fallback")
	}

	valid := map[string]bool{
		"marine biology":     true,
		"quantum dots":       true,
		"urban heat islands": true,
	}
	for i := 0; i < 50; i++ {
		if q := p.Pick(); !valid[q] {
			t.Fatalf("Pick returned %q, not in the loaded set", q)
		}
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	var warn bytes.Buffer
	p := queries.Load(filepath.Join(t.TempDir(), "absent.json"), "search_queries", 100, &warn)

	if !p.IsFallback() {
		t.Fatal("expected a fallback pool")
	}
	if p.Len() != 100 {
		t.Errorf("fallback size = %d, want 100", p.Len())
	}
	if !strings.Contains(warn.String(), "Using fallback queries") {
		t.Errorf("warning missing fallback notice: %s", warn.String())
	}

	if q := p.Pick(); !strings.HasPrefix(q, "query ") {
		t.Errorf("fallback query %q lacks the placeholder prefix", q)
	}
}

func TestLoadInvalidJSONFallsBack(t *testing.T) {
	path := writeFile(t, "broken.json", `{"search_queries": [`)

	var warn bytes.Buffer
	p := queries.Load(path, "search_queries", 10, &warn)

	if !p.IsFallback() {
		t.Fatal("expected a fallback pool")
	}
	if !strings.Contains(warn.String(), "not valid JSON") {
		t.Errorf("warning = %s, want invalid JSON notice", warn.String())
	}
}

func TestLoadMissingKeyFallsBack(t *testing.T) {
	path := writeFile(t, "wrongkey.json", `{"other": ["a"]}`)

	var warn bytes.Buffer
	p := queries.Load(path, "search_queries", 10, &warn)

	if !p.IsFallback() {
		t.Fatal("expected a fallback pool")
	}
	if p.Len() != 10 {
		t.Errorf("fallback size = %d, want 10", p.Len())
	}
}

func TestLoadSkipsNonStringEntries(t *testing.T) {
	path := writeFile(t, "mixed.json", `{"search_queries": ["ok", 42, "", null, "also ok"]}`)

	p := queries.Load(path, "search_queries", 10, nil)
	if p.IsFallback() {
		t.Fatal("pool should not be a fallback")
	}
	if p.Len() != 2 {
		t.Errorf("pool size = %d, want 2", p.Len())
	}
}

func TestFallbackClampsSize(t *testing.T) {
	if got := queries.Fallback(0).Len(); got != 1 {
		t.Errorf("Fallback(0) size = %d, want 1", got)
	}
}
