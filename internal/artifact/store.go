// Package artifact stores generated images on disk. Filenames are derived
// from the prompt and requestor but reduced to ASCII alphanumerics so any
// prompt is safe to use as a file name.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store saves generation outputs. The dispatcher depends on this interface
// rather than the filesystem directly.
type Store interface {
	// Save writes the image and returns the artifact reference recorded on
	// the request (the file name, not the full path).
	Save(prompt, requestorID string, image []byte) (string, error)
}

// DirStore writes artifacts into a single directory.
type DirStore struct {
	dir string
}

// NewDirStore creates the directory if needed and returns a store over it.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact: create dir: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

// Save writes the image under a sanitized, collision-suffixed name.
func (s *DirStore) Save(prompt, requestorID string, image []byte) (string, error) {
	name := FileName(prompt, requestorID)
	path := filepath.Join(s.dir, name)

	// Keep distinct outputs for identical prompts.
	for i := 1; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		name = fmt.Sprintf("%s_%d.png", strings.TrimSuffix(FileName(prompt, requestorID), ".png"), i)
		path = filepath.Join(s.dir, name)
	}

	if err := os.WriteFile(path, image, 0o644); err != nil {
		return "", fmt.Errorf("artifact: write %s: %w", name, err)
	}
	return name, nil
}

// Path returns the absolute location of a previously saved artifact.
func (s *DirStore) Path(name string) string { return filepath.Join(s.dir, name) }

// FileName builds a safe ".png" name from the first 20 prompt characters and
// the requestor id, dropping everything that is not ASCII alphanumeric.
func FileName(prompt, requestorID string) string {
	head := prompt
	if len(head) > 20 {
		head = head[:20]
	}
	var b strings.Builder
	for _, r := range head + requestorID {
		if isASCIIAlphanum(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		b.WriteString("output")
	}
	return b.String() + ".png"
}

func isASCIIAlphanum(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
