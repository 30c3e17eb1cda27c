// Package storage contains the upload helpers: a local temp store that
// receives multipart files and the uploader that moves them to the
// third-party media store.
package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// LocalStore writes uploaded files into Dir.
type LocalStore struct {
	Dir     string
	MaxSize int64 // bytes; 0 means unlimited
}

// ErrTooLarge is returned when an upload exceeds MaxSize.
var ErrTooLarge = errors.New("file exceeds size limit")

func NewLocalStore(dir string, maxSize int64) *LocalStore {
	return &LocalStore{Dir: dir, MaxSize: maxSize}
}

// SaveMultipart copies fh into Dir under a unique name derived from the
// client's file name and returns the local path and the byte count.
func (s *LocalStore) SaveMultipart(fh *multipart.FileHeader) (string, int64, error) {
	if s.MaxSize > 0 && fh.Size > s.MaxSize {
		return "", 0, ErrTooLarge
	}
	src, err := fh.Open()
	if err != nil {
		return "", 0, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("mkdir %s: %w", s.Dir, err)
	}
	path := filepath.Join(s.Dir, uuid.NewString()+"-"+SanitizeName(fh.Filename))
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("create %s: %w", path, err)
	}

	var r io.Reader = src
	if s.MaxSize > 0 {
		r = io.LimitReader(src, s.MaxSize+1)
	}
	n, err := io.Copy(dst, r)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err == nil && s.MaxSize > 0 && n > s.MaxSize {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, err
	}
	return path, n, nil
}

// Remove deletes a file previously returned by SaveMultipart.  A missing
// file is not an error.
func (s *LocalStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// SanitizeName strips directories and anything outside [A-Za-z0-9._-].
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	if len(name) > 100 {
		name = name[len(name)-100:]
	}
	return name
}
