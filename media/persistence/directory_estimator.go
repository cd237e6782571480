package persistence

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/dfryer1193/xbrush/media/domain"
)

var _ domain.StorageEstimator = (*DirectoryEstimator)(nil)

// DirectoryEstimator reports the bytes used by regular files under a directory
// against a fixed quota.
type DirectoryEstimator struct {
	root  string
	quota int64
}

// NewDirectoryEstimator returns nil when quota is not positive, leaving the
// caller on the entry-summing fallback.
func NewDirectoryEstimator(root string, quota int64) *DirectoryEstimator {
	if quota <= 0 {
		return nil
	}
	return &DirectoryEstimator{root: root, quota: quota}
}

// Estimate walks the directory tree, stopping early when ctx ends.
func (e *DirectoryEstimator) Estimate(ctx context.Context) (domain.StorageEstimate, error) {
	var usage int64
	err := filepath.WalkDir(e.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		usage += info.Size()
		return nil
	})
	if err != nil {
		return domain.StorageEstimate{}, fmt.Errorf("failed to walk %s: %w", e.root, err)
	}

	return domain.StorageEstimate{Usage: usage, Quota: e.quota}, nil
}
