package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotExist is returned when a link, entity or reference list is absent.
var ErrNotExist = errors.New("store: not found")

// Entity kinds persisted next to the links.
const (
	KindCharacter = "chars"
	KindPersona   = "pers"
)

// LinkStore persists one serialized social link per arcana.
type LinkStore interface {
	ReadLink(ctx context.Context, arcana string) ([]byte, error)
	// WriteLink replaces the whole record for arcana.
	WriteLink(ctx context.Context, arcana string, data []byte) error
	ListLinks(ctx context.Context) ([]string, error)
}

// EntityStore persists flat named records (characters, personas).
type EntityStore interface {
	ReadEntity(ctx context.Context, kind, name string) ([]byte, error)
	WriteEntity(ctx context.Context, kind, name string, data []byte) error
	DeleteEntity(ctx context.Context, kind, name string) error
	ListEntities(ctx context.Context, kind string) ([]string, error)
}

// ReferenceStore serves the static lists the editor offers as choices
// (arcanas, locations, animations, emotions).
type ReferenceStore interface {
	ReferenceList(ctx context.Context, name string) ([]string, error)
	WriteReferenceList(ctx context.Context, name string, values []string) error
}

// Store is the full collaborator surface used by the application.
type Store interface {
	LinkStore
	EntityStore
	ReferenceStore
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open returns the backend named by backend. dataDir is the root of the file
// backend; sqlitePath is the database of the sqlite backend.
func Open(backend, dataDir, sqlitePath string) (Store, error) {
	switch backend {
	case "", BackendFile:
		return NewFileStore(dataDir)
	case BackendSQLite:
		return OpenSQLite(sqlitePath)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", backend)
	}
}

// validName rejects names that would escape their directory.
func validName(what, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("store: %s name is required", what)
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("store: invalid %s name %q", what, name)
	}
	return nil
}
