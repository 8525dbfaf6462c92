package snapshot

import (
	"context"
	"fmt"
	"strings"

	"github.com/hpungsan/stopka/internal/config"
	"github.com/hpungsan/stopka/internal/contact"
	"github.com/hpungsan/stopka/internal/errors"
)

// Store persists one contact record per task, keyed by task id.
// Writes to an existing key overwrite it; concurrent writers are not
// coordinated and the last write wins.
type Store interface {
	// Write stores r under r.TaskID and returns the key.
	Write(ctx context.Context, r contact.Record) (string, error)

	// List returns every stored key. Order is backend-defined.
	List(ctx context.Context) ([]string, error)

	// Read returns the record stored under key. It fails with NOT_FOUND when
	// the key is absent and CORRUPT_DATA when the payload cannot be decoded.
	Read(ctx context.Context, key string) (contact.Record, error)

	Close() error
}

// Open returns the store selected by backend, rooted at dir.
func Open(backend, dir string) (Store, error) {
	switch backend {
	case config.StoreFile, "":
		s, err := NewFileStore(dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoreSQLite:
		s, err := OpenSQLite(dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown store backend %q", backend))
	}
}

// ValidateKey rejects keys that cannot be used as a file name component.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.NewInvalidRequest("snapshot key must not be empty")
	}
	if strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return errors.NewInvalidRequest(fmt.Sprintf("snapshot key %q must not contain path separators or '..'", key))
	}
	return nil
}
