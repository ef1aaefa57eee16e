// Package sink writes attachment bytes somewhere addressable.
package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalDir stores each attachment under a random name in one directory.
// The returned reference is the file path, which is what documents are keyed by.
type LocalDir struct {
	dir string
}

func NewLocalDir(dir string) (*LocalDir, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalDir{dir: dir}, nil
}

func (d *LocalDir) Put(ctx context.Context, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(d.dir, uuid.NewString())
	if err := os.WriteFile(path, content, 0o640); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}
	return filepath.ToSlash(path), nil
}
