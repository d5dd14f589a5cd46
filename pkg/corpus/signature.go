package corpus

import (
	"crypto/sha256"
	"fmt"
	"os"
)

// Signature identifies one version of a corpus file.
type Signature struct {
	Filename string
	Hash     string
	// LastModified is the file mtime in seconds since the epoch.
	LastModified float64
}

// FileSignature computes the content hash and mtime of a file, used to
// decide whether it must be re-indexed.
func FileSignature(path string) (Signature, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Signature{}, fmt.Errorf("stat file: %w", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Signature{}, fmt.Errorf("read file: %w", err)
	}

	hash := sha256.Sum256(content)

	return Signature{
		Filename:     info.Name(),
		Hash:         fmt.Sprintf("%x", hash),
		LastModified: float64(info.ModTime().UnixNano()) / 1e9,
	}, nil
}
