// Package filex holds filesystem helpers for the vault database and file
// attachments.
package filex

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// MaxAttachmentSize caps the size of a file stored inside an entry.
const MaxAttachmentSize = 10 << 20

// ErrTooLarge is returned by ReadAttachment for oversized files.
var ErrTooLarge = errors.New("file too large")

// EnsureParentDir creates the directory that will hold path, readable only
// by the current user.
func EnsureParentDir(path string) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return dir, nil
}

// ReadAttachment reads a regular file of at most limit bytes and returns
// its base name and contents.
func ReadAttachment(path string, limit int64) (string, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return "", nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !st.Mode().IsRegular() {
		return "", nil, fmt.Errorf("%s is not a regular file", path)
	}
	if st.Size() > limit {
		return "", nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrTooLarge, path, st.Size(), limit)
	}

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return "", nil, fmt.Errorf("read %s: %w", path, err)
	}
	if int64(len(data)) > limit {
		return "", nil, fmt.Errorf("%w: %s grew past limit %d", ErrTooLarge, path, limit)
	}
	return filepath.Base(path), data, nil
}

// WriteAttachment stores data at path with owner-only permissions. It never
// overwrites an existing file.
func WriteAttachment(path string, data []byte) error {
	if _, err := EnsureParentDir(path); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
