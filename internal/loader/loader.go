// Package loader reads Wavefront OBJ scenes and their MTL material
// libraries into the scene graph.
package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"github.com/Faultbox/rtviewer/internal/logger"
	"github.com/Faultbox/rtviewer/internal/scene"
	"github.com/Faultbox/rtviewer/pkg/charset"
	"github.com/Faultbox/rtviewer/pkg/math"
)

// Loader parses OBJ/MTL files. It is not safe for concurrent use, but
// several loaders may share one TextureCache.
type Loader struct {
	enc   encoding.Encoding
	cache *TextureCache
	log   *zap.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithCharset decodes names in OBJ and MTL files from enc.
func WithCharset(enc encoding.Encoding) Option {
	return func(l *Loader) { l.enc = enc }
}

// WithTextureCache shares a texture cache between loaders.
func WithTextureCache(c *TextureCache) Option {
	return func(l *Loader) { l.cache = c }
}

// WithLogger overrides the component logger.
func WithLogger(log *zap.Logger) Option {
	return func(l *Loader) { l.log = log }
}

// New creates a loader.
func New(opts ...Option) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	if l.cache == nil {
		l.cache = NewTextureCache(nil)
	}
	if l.log == nil {
		l.log = logger.Named("loader")
	}
	return l
}

// Cache returns the loader's texture cache.
func (l *Loader) Cache() *TextureCache { return l.cache }

// Load reads path with a default loader.
func Load(path string) ([]*scene.Surface, []*scene.Material, error) {
	return New().Load(path)
}

// scanLines calls fn with the fields of every non-empty, non-comment line.
func (l *Loader) scanLines(r io.Reader, fn func(line int, fields []string) error) error {
	sc := bufio.NewScanner(charset.NewReader(r, l.enc))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	n := 0
	for sc.Scan() {
		n++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if err := fn(n, fields); err != nil {
			return err
		}
	}
	return sc.Err()
}

func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return f, nil
}

func parseFloats(args []string, n int) ([]float32, error) {
	if len(args) < n {
		return nil, fmt.Errorf("%w: want %d numbers, got %d", ErrMalformed, n, len(args))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v, err := strconv.ParseFloat(args[i], 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrMalformed, args[i])
		}
		out[i] = float32(v)
	}
	return out, nil
}

func parseFloat(args []string) (float32, error) {
	v, err := parseFloats(args, 1)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

func parseVec3(args []string) (math.Vec3, error) {
	v, err := parseFloats(args, 3)
	if err != nil {
		return math.Vec3{}, err
	}
	return math.Vec3{X: v[0], Y: v[1], Z: v[2]}, nil
}

// parseColor accepts "r g b" or a single grey value.
func parseColor(args []string) (math.Vec3, error) {
	if len(args) == 1 {
		g, err := parseFloat(args)
		if err != nil {
			return math.Vec3{}, err
		}
		return math.Vec3{X: g, Y: g, Z: g}, nil
	}
	return parseVec3(args)
}
