package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoadDir(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("loads txt files", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "rfc793.txt", "TCP specification")
		writeFile(t, dir, "rfc768.txt", "UDP specification")
		writeFile(t, dir, "notes.md", "not part of the corpus")

		docs, err := LoadDir(&logger, dir)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(docs) != 2 {
			t.Fatalf("expected 2 documents, got %d", len(docs))
		}

		bySource := make(map[string]string)
		for _, doc := range docs {
			bySource[doc.Source] = doc.Content
		}

		if bySource["rfc793"] != "TCP specification" {
			t.Errorf("unexpected rfc793 content: %q", bySource["rfc793"])
		}
		if bySource["rfc768"] != "UDP specification" {
			t.Errorf("unexpected rfc768 content: %q", bySource["rfc768"])
		}
	})

	t.Run("empty directory", func(t *testing.T) {
		docs, err := LoadDir(&logger, t.TempDir())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(docs) != 0 {
			t.Errorf("expected no documents, got %d", len(docs))
		}
	})

	t.Run("missing directory yields no documents", func(t *testing.T) {
		docs, err := LoadDir(&logger, filepath.Join(t.TempDir(), "does-not-exist"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(docs) != 0 {
			t.Errorf("expected no documents, got %d", len(docs))
		}
	})
}

func TestSourceFromPath(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"data/rfcs/rfc793.txt", "rfc793"},
		{"rfc9293.txt", "rfc9293"},
		{"/abs/path/rfc2616.txt", "rfc2616"},
	}

	for _, tt := range tests {
		if got := SourceFromPath(tt.path); got != tt.expected {
			t.Errorf("SourceFromPath(%q) = %q, expected %q", tt.path, got, tt.expected)
		}
	}
}

func TestSourcePath(t *testing.T) {
	path := SourcePath("data/rfcs", "rfc793")
	if SourceFromPath(path) != "rfc793" {
		t.Errorf("expected SourcePath to invert SourceFromPath, got %q", path)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
