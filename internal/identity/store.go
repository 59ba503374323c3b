package identity

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// FileStore keeps one small file per key under dir. It satisfies the
// same get/set/remove contract mobile clients have against their local
// key-value storage.
type FileStore struct {
	fs  afero.Fs
	dir string
}

func NewFileStore(fs afero.Fs, dir string) *FileStore {
	return &FileStore{fs: fs, dir: dir}
}

func (f *FileStore) Get(key string) (string, error) {
	b, err := afero.ReadFile(f.fs, f.path(key))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func (f *FileStore) Set(key, value string) error {
	if err := f.fs.MkdirAll(f.dir, 0o700); err != nil {
		return err
	}
	return afero.WriteFile(f.fs, f.path(key), []byte(value), 0o600)
}

func (f *FileStore) Remove(key string) error {
	err := f.fs.Remove(f.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (f *FileStore) path(key string) string {
	return filepath.Join(f.dir, key)
}
