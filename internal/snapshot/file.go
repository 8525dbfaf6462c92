package snapshot

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/stopka/internal/contact"
	"github.com/hpungsan/stopka/internal/errors"
)

const (
	filePrefix = "task_"
	fileSuffix = ".json"
)

// FileStore keeps each record in its own JSON file, task_<id>.json.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create snapshot directory: %w", err))
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory the store writes to.
func (s *FileStore) Dir() string {
	return s.dir
}

// FileName returns the file name used for key.
func FileName(key string) string {
	return filePrefix + key + fileSuffix
}

// Write stores r, replacing any existing file for the same task.
// The payload goes to a temp file first and is renamed into place.
func (s *FileStore) Write(ctx context.Context, r contact.Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := r.TaskID
	if err := ValidateKey(key); err != nil {
		return "", err
	}

	data, err := Encode(r)
	if err != nil {
		return "", err
	}

	finalPath := filepath.Join(s.dir, FileName(key))
	tempPath := filepath.Join(s.dir, "."+FileName(key)+"."+ulid.Make().String()+".tmp")

	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidRequest) {
			return "", err
		}
		return "", errors.NewInternal(fmt.Errorf("failed to create snapshot file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return "", errors.NewInternal(err)
	}
	if err := file.Close(); err != nil {
		file = nil
		return "", errors.NewInternal(err)
	}
	file = nil

	if err := os.Rename(tempPath, finalPath); err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to move snapshot into place: %w", err))
	}
	success = true

	return key, nil
}

// List returns the keys of all task_*.json files in the store directory.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		key := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		if key == "" {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Read loads the record stored under key.
func (s *FileStore) Read(ctx context.Context, key string) (contact.Record, error) {
	if err := ctx.Err(); err != nil {
		return contact.Record{}, err
	}
	if err := ValidateKey(key); err != nil {
		return contact.Record{}, err
	}

	file, err := openFileNoFollowRead(filepath.Join(s.dir, FileName(key)))
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return contact.Record{}, errors.NewNotFound(key)
		}
		if errors.Is(err, errors.ErrInvalidRequest) {
			return contact.Record{}, err
		}
		return contact.Record{}, errors.NewInternal(err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return contact.Record{}, errors.NewInternal(err)
	}
	return Decode(key, data)
}

// Close is a no-op for file-backed stores.
func (s *FileStore) Close() error {
	return nil
}
