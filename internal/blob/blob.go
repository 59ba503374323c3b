// Package blob stores uploaded images on a filesystem and issues
// durable retrieval URLs for them.
package blob

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

type Kind string

const (
	KindPhoto  Kind = "photos"
	KindAnswer Kind = "answers"
)

var ErrEmptyBlob = errors.New("empty blob")

// safeName flattens anything that could escape the store layout
// (separators, dots, whitespace) to underscores, the same character
// policy identity ids are normalized with.
func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}

// Store writes blobs under root using the layout
// {kind}/{sessionCode}/{deviceId}_{epochMillis}.jpg and maps them to
// URLs below baseURL, where the HTTP layer serves root.
type Store struct {
	fs      afero.Fs
	root    string
	baseURL string
}

func NewStore(fs afero.Fs, root, baseURL string) *Store {
	return &Store{fs: fs, root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

// Save persists data and returns its retrieval URL.
func (s *Store) Save(kind Kind, sessionCode, deviceID string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyBlob
	}
	// sessionCode and deviceID arrive from unauthenticated clients and
	// must never influence which directory the blob lands in.
	name := fmt.Sprintf("%s_%d.jpg", safeName(deviceID), time.Now().UnixMilli())
	rel := path.Join(string(kind), safeName(sessionCode), name)
	full := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := s.fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	if err := afero.WriteFile(s.fs, full, data, 0o644); err != nil {
		return "", err
	}
	return s.baseURL + "/" + rel, nil
}

// Root is the directory the HTTP layer should serve as baseURL.
func (s *Store) Root() string {
	return s.root
}
