package inksep

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sync"
)

// Cache stores validated advisory responses. A miss returns nil, nil.
// Output never depends on whether the cache hits.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]byte, error) { return nil, nil }
func (NopCache) Set(context.Context, string, []byte) error   { return nil }

// MemoryCache is an unbounded in-process cache.
type MemoryCache struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{m: make(map[string][]byte)}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = append([]byte(nil), value...)
	return nil
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// adviceKey fingerprints the image, the palette and the rendered request.
func adviceKey(kind string, img *Image, palette Palette, req *OracleRequest) string {
	h := md5.New()
	fmt.Fprintf(h, "%s|%s|", kind, img.Fingerprint())
	for _, c := range palette {
		fmt.Fprintf(h, "%s=%s;", c.ID, c.Hex())
	}
	fmt.Fprintf(h, "|%s", req.Prompt)
	return "advice:" + kind + ":" + hex.EncodeToString(h.Sum(nil))
}
