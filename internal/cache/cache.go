// Package cache provides caching for rendered plots and computed views.
package cache

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sxyu/watplot/internal/grid"
	"github.com/sxyu/watplot/internal/region"
)

// Config contains cache configuration.
type Config struct {
	ImageCacheSizeMB int
	ImageTTL         time.Duration
	ViewCacheSize    int
}

// View is a computed view kept for reuse by later renders and queries.
// Cached matrices are shared and must not be modified.
type View struct {
	Matrix   *grid.Matrix
	Resolved region.Rect
}

// Manager manages the rendered image and view caches.
type Manager struct {
	imageCache *bigcache.BigCache
	viewCache  *lru.Cache[uint64, *View]
}

// NewManager creates a new cache manager.
func NewManager(cfg Config) (*Manager, error) {
	ttl := cfg.ImageTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	// Configure image cache
	imageCacheConfig := bigcache.Config{
		Shards:             64,
		LifeWindow:         ttl,
		CleanWindow:        ttl / 2,
		MaxEntriesInWindow: 10000,
		MaxEntrySize:       512 * 1024, // typical plot PNG
		HardMaxCacheSize:   cfg.ImageCacheSizeMB,
		Verbose:            false,
	}

	imageCache, err := bigcache.New(context.Background(), imageCacheConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create image cache: %w", err)
	}

	size := cfg.ViewCacheSize
	if size <= 0 {
		size = 1
	}
	viewCache, err := lru.New[uint64, *View](size)
	if err != nil {
		imageCache.Close()
		return nil, fmt.Errorf("failed to create view cache: %w", err)
	}

	return &Manager{
		imageCache: imageCache,
		viewCache:  viewCache,
	}, nil
}

// GetImage retrieves a rendered image from cache.
func (m *Manager) GetImage(key string) ([]byte, bool) {
	data, err := m.imageCache.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetImage stores a rendered image in cache.
func (m *Manager) SetImage(key string, data []byte) error {
	return m.imageCache.Set(key, data)
}

// GetView retrieves a computed view from cache.
func (m *Manager) GetView(key uint64) (*View, bool) {
	return m.viewCache.Get(key)
}

// SetView stores a computed view in cache.
func (m *Manager) SetView(key uint64, v *View) {
	m.viewCache.Add(key, v)
}

// ViewKey hashes the inputs that determine a view.
func ViewKey(file string, rect region.Rect, maxW, maxH int) uint64 {
	d := xxhash.New()
	d.WriteString(file)
	d.WriteString("\x00")
	for _, v := range []float64{rect.X, rect.Y, rect.Width, rect.Height} {
		d.WriteString(strconv.FormatUint(math.Float64bits(v), 16))
		d.WriteString(",")
	}
	d.WriteString(strconv.Itoa(maxW))
	d.WriteString("x")
	d.WriteString(strconv.Itoa(maxH))
	return d.Sum64()
}

// ImageKey generates a cache key for a rendered plot.
func ImageKey(view uint64, width, height int, colormap string, logScale, axes bool) string {
	return fmt.Sprintf("png:%016x:%dx%d:%s:log=%t:axes=%t", view, width, height, colormap, logScale, axes)
}

// Stats returns cache statistics.
func (m *Manager) Stats() map[string]interface{} {
	return map[string]interface{}{
		"image_cache_len": m.imageCache.Len(),
		"image_cache_cap": m.imageCache.Capacity(),
		"view_cache_len":  m.viewCache.Len(),
	}
}

// Close closes the cache manager.
func (m *Manager) Close() error {
	return m.imageCache.Close()
}
