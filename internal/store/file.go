package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gofrs/flock"
)

const (
	linkSuffix    = "_link.json"
	referenceFile = "data.json"
)

// FileStore keeps everything as JSON files under a root directory:
//
//	data/<arcana>_link.json   social links
//	data/<kind>/<name>.json   characters and personas
//	int/data.json             reference lists
type FileStore struct {
	root string
}

// NewFileStore creates the directory layout under root if needed.
func NewFileStore(root string) (*FileStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("store: data directory is required")
	}
	for _, dir := range []string{"data", "int"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("store: create %s: %w", dir, err)
		}
	}
	return &FileStore{root: root}, nil
}

// Root returns the directory the store was opened on.
func (s *FileStore) Root() string { return s.root }

// LinkDir is the directory holding the link files.
func (s *FileStore) LinkDir() string { return filepath.Join(s.root, "data") }

func (s *FileStore) linkPath(arcana string) string {
	return filepath.Join(s.LinkDir(), arcana+linkSuffix)
}

func (s *FileStore) ReadLink(ctx context.Context, arcana string) ([]byte, error) {
	if err := validName("arcana", arcana); err != nil {
		return nil, err
	}
	path := s.linkPath(arcana)
	lock := flock.New(path + ".lock")
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("store: lock %s: %w", path, err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(data) == 0) {
		return nil, fmt.Errorf("link %s: %w", arcana, ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}
	return data, nil
}

// WriteLink replaces the link file under an exclusive lock. The record is
// written to a temporary file first and renamed over the old one.
func (s *FileStore) WriteLink(ctx context.Context, arcana string, data []byte) error {
	if err := validName("arcana", arcana); err != nil {
		return err
	}
	path := s.linkPath(arcana)
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("store: lock %s: %w", path, err)
	}
	defer func() { _ = lock.Unlock() }()
	return writeFileAtomic(path, data)
}

func (s *FileStore) ListLinks(ctx context.Context) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.LinkDir(), "*"+linkSuffix))
	if err != nil {
		return nil, fmt.Errorf("store: list links: %w", err)
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSuffix(filepath.Base(m), linkSuffix))
	}
	slices.Sort(out)
	return out, nil
}

func (s *FileStore) entityPath(kind, name string) string {
	return filepath.Join(s.root, "data", kind, name+".json")
}

func (s *FileStore) ReadEntity(ctx context.Context, kind, name string) ([]byte, error) {
	if err := validEntity(kind, name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.entityPath(kind, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s %s: %w", kind, name, ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s %s: %w", kind, name, err)
	}
	return data, nil
}

func (s *FileStore) WriteEntity(ctx context.Context, kind, name string, data []byte) error {
	if err := validEntity(kind, name); err != nil {
		return err
	}
	path := s.entityPath(kind, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("store: create %s dir: %w", kind, err)
	}
	return writeFileAtomic(path, data)
}

func (s *FileStore) DeleteEntity(ctx context.Context, kind, name string) error {
	if err := validEntity(kind, name); err != nil {
		return err
	}
	err := os.Remove(s.entityPath(kind, name))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s %s: %w", kind, name, ErrNotExist)
	}
	return err
}

func (s *FileStore) ListEntities(ctx context.Context, kind string) ([]string, error) {
	if err := validName("kind", kind); err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(filepath.Join(s.root, "data", kind, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("store: list %s: %w", kind, err)
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSuffix(filepath.Base(m), ".json"))
	}
	slices.Sort(out)
	return out, nil
}

func (s *FileStore) referencePath() string {
	return filepath.Join(s.root, "int", referenceFile)
}

func (s *FileStore) readReferences() (map[string][]string, error) {
	data, err := os.ReadFile(s.referencePath())
	if errors.Is(err, fs.ErrNotExist) {
		return map[string][]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read reference lists: %w", err)
	}
	var lists map[string][]string
	if err := json.Unmarshal(data, &lists); err != nil {
		return nil, fmt.Errorf("store: parse reference lists: %w", err)
	}
	if lists == nil {
		lists = map[string][]string{}
	}
	return lists, nil
}

func (s *FileStore) ReferenceList(ctx context.Context, name string) ([]string, error) {
	lists, err := s.readReferences()
	if err != nil {
		return nil, err
	}
	values, ok := lists[name]
	if !ok {
		return nil, fmt.Errorf("reference list %s: %w", name, ErrNotExist)
	}
	return values, nil
}

func (s *FileStore) WriteReferenceList(ctx context.Context, name string, values []string) error {
	if err := validName("reference list", name); err != nil {
		return err
	}
	lists, err := s.readReferences()
	if err != nil {
		return err
	}
	lists[name] = slices.Clone(values)
	data, err := json.MarshalIndent(lists, "", "    ")
	if err != nil {
		return fmt.Errorf("store: encode reference lists: %w", err)
	}
	return writeFileAtomic(s.referencePath(), data)
}

func (s *FileStore) Close() error { return nil }

func validEntity(kind, name string) error {
	if err := validName("kind", kind); err != nil {
		return err
	}
	return validName(kind, name)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("store: create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("store: write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("store: sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("store: replace %s: %w", path, err)
	}
	return nil
}
