package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// LoadDir reads every .txt file in dir into a Document.
// Unreadable files are logged and skipped.
func LoadDir(logger *zerolog.Logger, dir string) ([]Document, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("glob corpus dir: %w", err)
	}

	documents := make([]Document, 0, len(matches))
	for _, path := range matches {
		content, err := os.ReadFile(path)
		if err != nil {
			logger.Warn().
				Err(err).
				Str("path", path).
				Msg("Skipping unreadable corpus file")
			continue
		}

		documents = append(documents, Document{
			Source:  SourceFromPath(path),
			Content: string(content),
		})
	}

	return documents, nil
}

// SourceFromPath derives a document source name from its file path.
func SourceFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SourcePath is the inverse of SourceFromPath for .txt corpus files.
func SourcePath(dir, source string) string {
	return filepath.Join(dir, source+".txt")
}
