package flow

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when the named flow has no document on disk.
var ErrNotFound = errors.New("flow: not found")

// Store loads flow documents from a directory, one JSON file per flow.
// A missing flow is fatal for that run.
type Store struct {
	root string
}

// NewStore creates a store rooted at dir, creating it if necessary.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("flow: init store directory %s: %w", dir, err)
	}
	return &Store{root: dir}, nil
}

func (s *Store) pathFor(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("flow: invalid flow name (empty)")
	}
	if strings.ContainsAny(name, "/\\") {
		return "", fmt.Errorf("flow: invalid flow name %q (contains path separator)", name)
	}
	return filepath.Join(s.root, name+".json"), nil
}

// Load reads and validates the named flow.
func (s *Store) Load(name string) (*Flow, error) {
	path, err := s.pathFor(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("flow: read %s: %w", name, err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if f.Name == "" {
		f.Name = name
	}
	return f, nil
}

// List returns the names of every stored flow.
func (s *Store) List() ([]string, error) {
	entries, err := fs.Glob(os.DirFS(s.root), "*.json")
	if err != nil {
		return nil, fmt.Errorf("flow: list store: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, strings.TrimSuffix(entry, ".json"))
	}
	return names, nil
}
