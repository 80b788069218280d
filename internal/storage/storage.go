// Package storage keeps uploaded attachment files in a single local
// directory. Files are addressed by their saved name or by the public
// "/attachments/<name>" URL stored in attachment metadata.
package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// URLPrefix is the public path under which the directory is served.
const URLPrefix = "/attachments/"

var (
	ErrNotFound    = errors.New("storage: file not found")
	ErrInvalidName = errors.New("storage: invalid file name")
	ErrEmptyFile   = errors.New("storage: file is empty")
)

// FileInfo describes a stored file.
type FileInfo struct {
	Name         string    `json:"name"`
	OriginalName string    `json:"original_name,omitempty"`
	URL          string    `json:"url"`
	Size         int64     `json:"size"`
	ModTime      time.Time `json:"mod_time"`
}

type Local struct {
	dir string
	now func() time.Time
}

// NewLocal uses dir, creating it when absent.
func NewLocal(dir string) (*Local, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("storage: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create dir: %w", err)
	}
	return &Local{dir: dir, now: time.Now}, nil
}

func (l *Local) Dir() string { return l.dir }

// Save writes r under a generated ASCII name "<unix-ms>-<hex>.<ext>" and
// keeps the caller's original name only in the returned FileInfo. The file
// is written to a temp name first so a failed copy never leaves a partial
// attachment behind.
func (l *Local) Save(ctx context.Context, originalName string, r io.Reader) (FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return FileInfo{}, err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return FileInfo{}, fmt.Errorf("storage: create dir: %w", err)
	}
	name, err := l.generateName(originalName)
	if err != nil {
		return FileInfo{}, err
	}

	tmp, err := os.CreateTemp(l.dir, ".upload-*")
	if err != nil {
		return FileInfo{}, fmt.Errorf("storage: temp file: %w", err)
	}
	n, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if copyErr == nil && n == 0 {
		copyErr = ErrEmptyFile
	}
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmp.Name())
		return FileInfo{}, errors.Join(copyErr, closeErr)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(l.dir, name)); err != nil {
		_ = os.Remove(tmp.Name())
		return FileInfo{}, fmt.Errorf("storage: rename: %w", err)
	}
	return FileInfo{
		Name:         name,
		OriginalName: originalName,
		URL:          URLPrefix + name,
		Size:         n,
		ModTime:      l.now(),
	}, nil
}

func (l *Local) generateName(original string) (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d-%s%s", l.now().UnixMilli(), hex.EncodeToString(b[:]), asciiExt(original)), nil
}

// asciiExt keeps the extension only when it is plain ASCII alphanumerics.
func asciiExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

// Path resolves a saved name or "/attachments/<name>" URL to a path inside
// the directory.
func (l *Local) Path(nameOrURL string) (string, error) {
	name, err := NameFromURL(nameOrURL)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.dir, name), nil
}

func (l *Local) Exists(nameOrURL string) bool {
	p, err := l.Path(nameOrURL)
	if err != nil {
		return false
	}
	st, err := os.Stat(p)
	return err == nil && st.Mode().IsRegular()
}

func (l *Local) Open(nameOrURL string) (*os.File, error) {
	p, err := l.Path(nameOrURL)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

func (l *Local) Remove(nameOrURL string) error {
	p, err := l.Path(nameOrURL)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

// List returns regular files in the directory sorted by name, skipping
// in-flight temp uploads.
func (l *Local) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, err
	}
	out := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, FileInfo{Name: e.Name(), URL: URLPrefix + e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// NameFromURL strips the public prefix and rejects anything that could
// escape the directory.
func NameFromURL(nameOrURL string) (string, error) {
	name := strings.TrimPrefix(strings.TrimSpace(nameOrURL), "/")
	name = strings.TrimPrefix(name, strings.TrimPrefix(URLPrefix, "/"))
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return "", ErrInvalidName
	}
	return name, nil
}
