package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Local writes documents under a directory served at urlPrefix.
type Local struct {
	dir       string
	urlPrefix string
	now       func() time.Time
}

func NewLocal(dir, urlPrefix string) *Local {
	if urlPrefix == "" {
		urlPrefix = "/uploads"
	}
	return &Local{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/"), now: time.Now}
}

func (l *Local) Put(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	filename := objectName(l.now(), name)
	target := filepath.Join(l.dir, filename)
	dst, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	// a partial upload never stays on disk
	_, err = io.Copy(dst, r)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		os.Remove(target)
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return fmt.Sprintf("%s/%s", l.urlPrefix, filename), nil
}

// Dir is the directory documents are written to.
func (l *Local) Dir() string { return l.dir }
