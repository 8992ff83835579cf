// Package images stores fish and disease photos uploaded with a submission and
// removes them again when the owning record is deleted.
package images

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotManaged reports a reference this store did not produce, such as an
// inline data: URL or a link to another host. Callers skip those on cleanup.
var ErrNotManaged = errors.New("images: reference not managed by this store")

// Store persists image bytes and hands back the reference kept on the record.
type Store interface {
	Put(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, ref string) error
}

// objectName builds a collision-free name that keeps the original extension.
func objectName(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) > 8 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	return uuid.NewString() + ext
}

// IsInline reports whether ref carries the image itself (data: URL).
func IsInline(ref string) bool { return strings.HasPrefix(ref, "data:") }
