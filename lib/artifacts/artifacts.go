package artifacts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrNotFound = errors.New("artifact not found")

// Store holds the intermediate JSON artifacts written by extract and read
// back by stage.
type Store interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	// Delete removes an artifact, deleting a missing one is not an error.
	Delete(ctx context.Context, name string) error
	Location(name string) string
}

// Dir keeps artifacts as files in a local directory.
type Dir struct {
	Path string
}

func NewDir(path string) (Dir, error) {
	err := os.MkdirAll(path, 0755)
	if err != nil {
		return Dir{}, fmt.Errorf("create artifact dir: %w", err)
	}
	return Dir{Path: path}, nil
}

func (d Dir) Location(name string) string {
	return filepath.Join(d.Path, name)
}

func (d Dir) Put(_ context.Context, name string, data []byte) error {
	// write to a sibling first so a failed run never leaves half an artifact
	tmp, err := os.CreateTemp(d.Path, name+".*.tmp")
	if err != nil {
		return err
	}
	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), d.Location(name))
}

func (d Dir) Get(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(d.Location(name))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, d.Location(name))
	}
	return data, err
}

func (d Dir) Delete(_ context.Context, name string) error {
	err := os.Remove(d.Location(name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
