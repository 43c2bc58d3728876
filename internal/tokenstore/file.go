package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	apperrors "github.com/spec-kit/academia-portal/pkg/util"
)

// File keeps a JSON key/value document on disk, the way browser local
// storage keeps one origin's entries. Only the configured key is touched.
type File struct {
	mu   sync.Mutex
	path string
	key  string
}

func NewFile(path, key string) *File {
	return &File{path: path, key: key}
}

func (f *File) Save(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return apperrors.NewStorageError("save", err)
	}
	doc[f.key] = token
	if err := f.write(doc); err != nil {
		return apperrors.NewStorageError("save", err)
	}
	return nil
}

func (f *File) Load(_ context.Context) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return "", false, apperrors.NewStorageError("load", err)
	}
	token, ok := doc[f.key]
	return token, ok, nil
}

func (f *File) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return apperrors.NewStorageError("clear", err)
	}
	if _, ok := doc[f.key]; !ok {
		return nil
	}
	delete(doc, f.key)
	if err := f.write(doc); err != nil {
		return apperrors.NewStorageError("clear", err)
	}
	return nil
}

func (f *File) read() (map[string]string, error) {
	doc := map[string]string{}
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// write replaces the document atomically so a crash never leaves half a file.
func (f *File) write(doc map[string]string) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".storage-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

// Ping reports whether the backing document can be read.
func (f *File) Ping(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, err := f.read()
	return err
}
