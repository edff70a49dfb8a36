package export

import (
	"fmt"
	"os"
	"path/filepath"
)

// Saver stores an exported file somewhere the user can reach it
type Saver interface {
	// Save writes data under filename and returns where it ended up
	Save(filename string, data []byte) (string, error)
}

// LocalSaver implements Saver by writing into a directory
type LocalSaver struct {
	basePath string
}

// NewLocalSaver creates a LocalSaver, creating the directory if needed
func NewLocalSaver(basePath string) (*LocalSaver, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}

	return &LocalSaver{
		basePath: basePath,
	}, nil
}

// Save writes the file through a temporary sibling and renames it into place,
// so a failed write never leaves a truncated export behind.
func (l *LocalSaver) Save(filename string, data []byte) (string, error) {
	path := filepath.Join(l.basePath, filepath.Base(filename))

	tmp, err := os.CreateTemp(l.basePath, ".export-*")
	if err != nil {
		return "", fmt.Errorf("creating temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return "", fmt.Errorf("setting file mode: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("moving file into place: %w", err)
	}
	return path, nil
}
