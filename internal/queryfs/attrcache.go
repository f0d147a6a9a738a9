package queryfs

import (
	"fmt"

	"github.com/maypok86/otter"

	"github.com/mvp-joe/queryfs/internal/ops"
)

// DefaultCacheCapacity bounds each of the three caches unless configuration
// says otherwise. Entries are keyed by logical path and replaced on the next
// read after invalidation, so the working set stays around the number of
// paths the kernel is actively looking at.
const DefaultCacheCapacity = 16384

// AttrCache is the read-through cache in front of the three lookup
// operations: getattr, readdir, and statfs. Mutating operations invalidate
// conservatively by path.
type AttrCache struct {
	getattr otter.Cache[string, *ops.Attr]
	readdir otter.Cache[string, []string]
	statfs  otter.Cache[string, *ops.StatFS]
}

// NewAttrCache builds the three path-keyed caches. A non-positive capacity
// falls back to DefaultCacheCapacity.
func NewAttrCache(capacity int) (*AttrCache, error) {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	getattr, err := otter.MustBuilder[string, *ops.Attr](capacity).
		Cost(func(string, *ops.Attr) uint32 { return 1 }).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build getattr cache: %w", err)
	}
	readdir, err := otter.MustBuilder[string, []string](capacity).
		Cost(func(string, []string) uint32 { return 1 }).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build readdir cache: %w", err)
	}
	statfs, err := otter.MustBuilder[string, *ops.StatFS](capacity).
		Cost(func(string, *ops.StatFS) uint32 { return 1 }).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build statfs cache: %w", err)
	}
	return &AttrCache{getattr: getattr, readdir: readdir, statfs: statfs}, nil
}

// GetAttr reads through the getattr cache.
func (c *AttrCache) GetAttr(path string, resolve func() (*ops.Attr, error)) (*ops.Attr, error) {
	if v, ok := c.getattr.Get(path); ok {
		return v, nil
	}
	v, err := resolve()
	if err != nil {
		return nil, err
	}
	c.getattr.Set(path, v)
	return v, nil
}

// ReadDir reads through the readdir cache.
func (c *AttrCache) ReadDir(path string, resolve func() ([]string, error)) ([]string, error) {
	if v, ok := c.readdir.Get(path); ok {
		return v, nil
	}
	v, err := resolve()
	if err != nil {
		return nil, err
	}
	c.readdir.Set(path, v)
	return v, nil
}

// StatFS reads through the statfs cache.
func (c *AttrCache) StatFS(path string, resolve func() (*ops.StatFS, error)) (*ops.StatFS, error) {
	if v, ok := c.statfs.Get(path); ok {
		return v, nil
	}
	v, err := resolve()
	if err != nil {
		return nil, err
	}
	c.statfs.Set(path, v)
	return v, nil
}

// InvalidateAttr drops the cached attributes of path.
func (c *AttrCache) InvalidateAttr(path string) {
	c.getattr.Delete(path)
}

// InvalidateDir drops the cached listing of path.
func (c *AttrCache) InvalidateDir(path string) {
	c.readdir.Delete(path)
}

// Close releases the cache resources.
func (c *AttrCache) Close() {
	c.getattr.Close()
	c.readdir.Close()
	c.statfs.Close()
}
