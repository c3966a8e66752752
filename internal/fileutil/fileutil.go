package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// WriteFileAtomic writes data to a temporary file next to path and renames it
// into place, so readers never observe a partially written file.
func WriteFileAtomic(fs afero.Fs, path string, data []byte, mode os.FileMode) error {
	_, err := WriteStreamAtomic(fs, path, mode, func(w io.Writer) (int64, error) {
		n, err := w.Write(data)
		return int64(n), err
	})
	return err
}

// WriteStreamAtomic runs fill against a temporary file in path's directory
// and renames the result to path once fill and Close both succeed. The
// temporary file is removed on any failure.
func WriteStreamAtomic(fs afero.Fs, path string, mode os.FileMode, fill func(io.Writer) (int64, error)) (int64, error) {
	dir := filepath.Dir(path)
	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(path)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = fs.Remove(tmpName) }

	written, err := fill(tmp)
	if err != nil {
		_ = tmp.Close()
		cleanup()
		return written, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return written, fmt.Errorf("close temp file: %w", err)
	}
	if err := fs.Chmod(tmpName, mode); err != nil {
		cleanup()
		return written, fmt.Errorf("chmod temp file: %w", err)
	}
	if err := fs.Rename(tmpName, path); err != nil {
		cleanup()
		return written, fmt.Errorf("rename into place: %w", err)
	}
	return written, nil
}

// Exists reports whether a regular file or directory exists at path.
// Errors other than "not exist" are returned to the caller.
func Exists(fs afero.Fs, path string) (bool, error) {
	_, err := fs.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}
