// Package files stores uploaded media on the local filesystem under the
// configured media root, behind stable random names.
package files

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// URLPrefix is where the media root is mounted on the HTTP server.
const URLPrefix = "/media"

type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating media root")
	}
	return &Store{root: root}, nil
}

// Save writes src under subdir with a random name, keeping the original
// extension, and returns the public URL of the stored file.
func (s *Store) Save(src io.Reader, origName, subdir string) (string, error) {
	ext := strings.ToLower(filepath.Ext(origName))
	name := uuid.New().String() + ext

	dir := filepath.Join(s.root, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating media dir")
	}

	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", errors.Wrap(err, "creating media file")
	}
	defer func() { _ = dst.Close() }()

	if _, err = io.Copy(dst, src); err != nil {
		return "", errors.Wrap(err, "writing media file")
	}
	return path.Join(URLPrefix, subdir, name), nil
}

// Remove deletes a stored file given its public URL; unknown files are not an
// error.
func (s *Store) Remove(url string) error {
	rel := strings.TrimPrefix(url, URLPrefix+"/")
	if rel == url || strings.Contains(rel, "..") {
		return errors.New("not a media URL")
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing media file")
	}
	return nil
}

// Root returns the directory served at URLPrefix.
func (s *Store) Root() string { return s.root }

// Ext returns the lowercased extension of a filename without the dot; the
// material "type" column stores this.
func Ext(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}
