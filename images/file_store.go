package images

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FileStore saves uploads to disk under a base directory and references them
// as publicPrefix + "/" + name.
type FileStore struct {
	basePath     string
	publicPrefix string
}

// NewFileStore creates the base directory if missing.
func NewFileStore(basePath, publicPrefix string) (*FileStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("upload dir is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	publicPrefix = "/" + strings.Trim(publicPrefix, "/")
	return &FileStore{basePath: basePath, publicPrefix: publicPrefix}, nil
}

func (f *FileStore) Put(ctx context.Context, filename string, r io.Reader, _ int64, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := objectName(filename)
	out, err := os.Create(filepath.Join(f.basePath, name))
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path.Join(f.publicPrefix, name), nil
}

// Delete removes a previously stored file. Missing files are not an error.
func (f *FileStore) Delete(_ context.Context, ref string) error {
	name, ok := strings.CutPrefix(ref, f.publicPrefix+"/")
	if !ok || name == "" || strings.ContainsAny(name, `/\`) || name == ".." {
		return ErrNotManaged
	}
	if err := os.Remove(filepath.Join(f.basePath, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}
