package loader

import (
	"path/filepath"
	"sync"

	"github.com/Faultbox/rtviewer/internal/texture"
)

// DecodeFunc decodes the image at path.
type DecodeFunc func(path string) (*texture.Texture, error)

// TextureCache decodes each texture path once. Failed decodes are
// remembered too so a broken file is reported a single time.
type TextureCache struct {
	decode DecodeFunc

	mu     sync.Mutex
	data   map[string]*texture.Texture
	failed map[string]error

	// Stats
	hits   int
	misses int
}

// NewTextureCache creates a cache. A nil decode uses texture.Decode.
func NewTextureCache(decode DecodeFunc) *TextureCache {
	if decode == nil {
		decode = texture.Decode
	}
	return &TextureCache{
		decode: decode,
		data:   make(map[string]*texture.Texture),
		failed: make(map[string]error),
	}
}

// Load returns the texture for path, decoding it on first use.
func (c *TextureCache) Load(path string) (*texture.Texture, error) {
	key := filepath.Clean(path)

	c.mu.Lock()
	defer c.mu.Unlock()

	if tex, ok := c.data[key]; ok {
		c.hits++
		return tex, nil
	}
	if err, ok := c.failed[key]; ok {
		c.hits++
		return nil, err
	}
	c.misses++

	tex, err := c.decode(key)
	if err != nil {
		c.failed[key] = err
		return nil, err
	}
	c.data[key] = tex
	return tex, nil
}

// Len returns the number of successfully decoded textures.
func (c *TextureCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Stats returns cache statistics.
func (c *TextureCache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
