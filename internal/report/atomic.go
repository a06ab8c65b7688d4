package report

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/crypto/sha3"
)

// FilePermission is the mode of every result file.
const FilePermission fs.FileMode = 0o644

// WriteFileAtomic writes a file through a temporary sibling and renames it
// into place once write returns successfully, so readers never observe a
// partially written result. The returned digest is the hex encoded SHA3-256
// of the bytes written.
//
// On any error the temporary file is removed and an existing file at path
// is left untouched.
func WriteFileAtomic(path string, write func(io.Writer) error) (digest string, err error) {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close() //nolint:errcheck // may already be closed
			if rmErr := removeIfExists(tmp.Name()); rmErr != nil {
				err = errors.Join(err, rmErr)
			}
		}
	}()

	hash := sha3.New256()
	buffered := bufio.NewWriter(io.MultiWriter(tmp, hash))

	if err = write(buffered); err != nil {
		return "", err
	}
	if err = buffered.Flush(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err = tmp.Chmod(FilePermission); err != nil {
		return "", fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return "", fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move result into place: %w", err)
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// removeIfExists deletes path, treating a missing file as success.
func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
