package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/rtviewer/internal/scene"
	"github.com/Faultbox/rtviewer/pkg/math"
)

// Load reads the OBJ file at path together with the material libraries it
// references. Surfaces are returned in file order; a new surface starts at
// every usemtl, g or o statement. Faces without a material use a material
// named "default" appended after the library materials.
func (l *Loader) Load(path string) ([]*scene.Surface, []*scene.Material, error) {
	start := time.Now()

	f, err := openFile(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	p := &objParser{
		l:          l,
		dir:        filepath.Dir(path),
		byName:     make(map[string]int),
		matIndex:   -1,
		defaultIdx: -1,
	}
	err = l.scanLines(f, p.statement)
	if err != nil {
		for _, m := range p.materials {
			m.Release()
		}
		var le *LoadError
		if errors.As(err, &le) {
			return nil, nil, le
		}
		return nil, nil, &LoadError{Path: path, Line: p.line, Err: err}
	}

	surfaces := p.surfaces[:0]
	for _, s := range p.surfaces {
		if len(s.Triangles) > 0 {
			surfaces = append(surfaces, s)
		}
	}

	l.log.Info("scene loaded",
		zap.String("path", path),
		zap.Int("surfaces", len(surfaces)),
		zap.Int("materials", len(p.materials)),
		zap.Int("vertices", len(p.positions)),
		zap.Duration("elapsed", time.Since(start)))
	return surfaces, p.materials, nil
}

type objParser struct {
	l    *Loader
	dir  string
	line int

	positions []math.Vec3
	texcoords []math.Vec2
	normals   []math.Vec3

	materials  []*scene.Material
	byName     map[string]int
	defaultIdx int

	surfaces []*scene.Surface
	current  *scene.Surface
	group    string
	matIndex int
}

func (p *objParser) statement(line int, fields []string) error {
	p.line = line
	args := fields[1:]

	switch fields[0] {
	case "v":
		v, err := parseVec3(args)
		if err != nil {
			return err
		}
		p.positions = append(p.positions, v)
	case "vt":
		if len(args) == 0 {
			return fmt.Errorf("%w: vt without coordinates", ErrMalformed)
		}
		uv := make([]float32, 2)
		for i := 0; i < 2 && i < len(args); i++ {
			f, err := parseFloat(args[i:])
			if err != nil {
				return err
			}
			uv[i] = f
		}
		// OBJ puts v=0 at the bottom of the image; textures index rows from the top.
		p.texcoords = append(p.texcoords, math.Vec2{X: uv[0], Y: 1 - uv[1]})
	case "vn":
		n, err := parseVec3(args)
		if err != nil {
			return err
		}
		p.normals = append(p.normals, n)
	case "f":
		return p.face(args)
	case "usemtl":
		if len(args) == 0 {
			return fmt.Errorf("%w: usemtl without name", ErrMalformed)
		}
		name := strings.Join(args, " ")
		idx, ok := p.byName[name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnresolvedMaterial, name)
		}
		if idx != p.matIndex {
			p.matIndex = idx
			p.current = nil
		}
	case "mtllib":
		for _, name := range args {
			if err := p.library(filepath.Join(p.dir, name)); err != nil {
				return err
			}
		}
	case "g", "o":
		p.group = strings.Join(args, " ")
		p.current = nil
	default:
		// s, l, p and vendor extensions carry nothing we render.
	}
	return nil
}

func (p *objParser) library(path string) error {
	mats, err := p.l.loadMTL(path)
	if err != nil {
		return err
	}
	for _, m := range mats {
		if _, dup := p.byName[m.Name]; dup {
			p.l.log.Warn("duplicate material ignored", zap.String("material", m.Name), zap.String("library", path))
			m.Release()
			continue
		}
		p.byName[m.Name] = len(p.materials)
		p.materials = append(p.materials, m)
	}
	return nil
}

func (p *objParser) surface() *scene.Surface {
	if p.current != nil {
		return p.current
	}
	idx := p.matIndex
	if idx < 0 {
		if p.defaultIdx < 0 {
			p.defaultIdx = len(p.materials)
			p.materials = append(p.materials, scene.DefaultMaterial())
		}
		idx = p.defaultIdx
	}
	p.current = &scene.Surface{Name: p.group, MaterialIndex: idx}
	p.surfaces = append(p.surfaces, p.current)
	return p.current
}

type corner struct {
	pos       math.Vec3
	uv        *math.Vec2
	normal    math.Vec3
	hasNormal bool
}

// face triangulates a polygon as a fan around its first corner.
func (p *objParser) face(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("%w: face with %d corners", ErrMalformed, len(args))
	}
	corners := make([]corner, len(args))
	for i, ref := range args {
		c, err := p.corner(ref)
		if err != nil {
			return err
		}
		corners[i] = c
	}

	s := p.surface()
	for i := 1; i+1 < len(corners); i++ {
		tri := [3]corner{corners[0], corners[i], corners[i+1]}
		faceNormal, ok := tri[1].pos.Sub(tri[0].pos).Cross(tri[2].pos.Sub(tri[0].pos)).TryNormalize()
		if !ok {
			faceNormal = math.Vec3{Z: 1}
		}

		var t scene.Triangle
		for k, c := range tri {
			n := c.normal
			if !c.hasNormal {
				n = faceNormal
			}
			t.Vertices[k] = scene.Vertex{Position: c.pos, Normal: n, TexCoord: c.uv}
		}
		s.Triangles = append(s.Triangles, t)
	}
	return nil
}

// corner resolves a v, v/vt, v//vn or v/vt/vn reference.
func (p *objParser) corner(ref string) (corner, error) {
	parts := strings.Split(ref, "/")
	if len(parts) > 3 {
		return corner{}, fmt.Errorf("%w: face corner %q", ErrMalformed, ref)
	}

	var c corner
	vi, err := resolveIndex(parts[0], len(p.positions))
	if err != nil {
		return corner{}, err
	}
	c.pos = p.positions[vi]

	if len(parts) > 1 && parts[1] != "" {
		ti, err := resolveIndex(parts[1], len(p.texcoords))
		if err != nil {
			return corner{}, err
		}
		uv := p.texcoords[ti]
		c.uv = &uv
	}
	if len(parts) > 2 && parts[2] != "" {
		ni, err := resolveIndex(parts[2], len(p.normals))
		if err != nil {
			return corner{}, err
		}
		c.normal = p.normals[ni]
		c.hasNormal = true
	}
	return c, nil
}

// resolveIndex converts a 1-based or negative relative OBJ index.
func resolveIndex(s string, n int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: index %q", ErrMalformed, s)
	}
	switch {
	case i > 0:
		i--
	case i < 0:
		i += n
	default:
		return 0, fmt.Errorf("%w: index 0", ErrMalformed)
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("%w: index %s out of range (%d defined)", ErrMalformed, s, n)
	}
	return i, nil
}
