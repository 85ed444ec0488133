// Package document reads, hashes and atomically writes the local plaintext
// connection book and its encrypted backup. Content is opaque bytes.
package document

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrLocalIO marks failures reading or writing local files.
var ErrLocalIO = errors.New("local file I/O failed")

// IOError records the operation and path of a local I/O failure.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrLocalIO }

// FileMode is used for every file this package creates. Both the plaintext
// and the backup are private to the user.
const FileMode fs.FileMode = 0o600

// BackupSuffix is appended to the plaintext path to name the encrypted backup.
const BackupSuffix = ".enc"

// BackupPath returns the path of the encrypted backup for configFile.
func BackupPath(configFile string) string {
	return configFile + BackupSuffix
}

// Read returns the file contents. A missing file yields (nil, false, nil).
func Read(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &IOError{Op: "read", Path: path, Err: err}
	}
	return data, true, nil
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Sum returns the lowercase hex sha256 of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Hash returns the hex sha256 of the file at path, or "" when it does not
// exist or cannot be read.
func Hash(path string) string {
	data, ok, err := Read(path)
	if err != nil || !ok {
		return ""
	}
	return Sum(data)
}

// WriteFile replaces path with data. The bytes go to a temporary file in the
// same directory which is synced and renamed over path, so readers see either
// the old or the new content, never a partial write.
func WriteFile(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return &IOError{Op: "mkdir", Path: dir, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &IOError{Op: "create", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return &IOError{Op: "write", Path: tmpName, Err: err}
	}
	if err = tmp.Sync(); err != nil {
		return &IOError{Op: "sync", Path: tmpName, Err: err}
	}
	if err = tmp.Chmod(FileMode); err != nil {
		return &IOError{Op: "chmod", Path: tmpName, Err: err}
	}
	if err = tmp.Close(); err != nil {
		return &IOError{Op: "close", Path: tmpName, Err: err}
	}
	if err = os.Rename(tmpName, path); err != nil {
		return &IOError{Op: "rename", Path: path, Err: err}
	}
	return nil
}
