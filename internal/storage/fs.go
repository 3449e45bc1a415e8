// Package storage abstracts the host file system behind a small interface
// so persistence code can run against a real directory or a test double.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FS is the file-system collaborator contract: binary and text reads,
// create-or-overwrite text writes, deletion, and listing by extension.
type FS interface {
	ReadBinary(path string) ([]byte, error)
	ReadText(path string) (string, error)
	// WriteText creates or overwrites the file. The written content must
	// never be observable in a partial state.
	WriteText(path string, content string) error
	Delete(path string) error
	// List returns the paths under the root that carry the given
	// extension, e.g. ".json".
	List(ext string) ([]string, error)
	// Exists reports whether the path currently resolves to a file.
	Exists(path string) bool
}

// DirFS implements FS on top of the operating system, rooted at a
// directory. Paths passed to its methods are interpreted relative to the
// root unless absolute.
type DirFS struct {
	root string
}

// NewDirFS creates a DirFS rooted at dir.
func NewDirFS(dir string) *DirFS {
	return &DirFS{root: dir}
}

// Root returns the root directory.
func (d *DirFS) Root() string {
	return d.root
}

func (d *DirFS) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(d.root, path)
}

// ReadBinary reads the full contents of a file.
func (d *DirFS) ReadBinary(path string) ([]byte, error) {
	data, err := os.ReadFile(d.resolve(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// ReadText reads the full contents of a file as a string.
func (d *DirFS) ReadText(path string) (string, error) {
	data, err := d.ReadBinary(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteText writes content atomically: the data goes to a uniquely named
// temporary file in the target directory, which is then renamed over the
// destination. Readers either see the old file or the new one, never a
// partial write.
func (d *DirFS) WriteText(path string, content string) error {
	target := d.resolve(path)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp := filepath.Join(dir, "."+filepath.Base(target)+".tmp-"+uuid.NewString())
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// Delete removes a file. Deleting a file that does not exist is not an
// error: the caller only cares that it is gone.
func (d *DirFS) Delete(path string) error {
	err := os.Remove(d.resolve(path))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// List walks the root and returns paths with the given extension,
// relative to the root.
func (d *DirFS) List(ext string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ext) {
			rel, relErr := filepath.Rel(d.root, path)
			if relErr != nil {
				return relErr
			}
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", ext, err)
	}
	return out, nil
}

// Exists reports whether the path resolves to an existing file.
func (d *DirFS) Exists(path string) bool {
	info, err := os.Stat(d.resolve(path))
	return err == nil && !info.IsDir()
}
