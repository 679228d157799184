package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/rtviewer/internal/scene"
	"github.com/Faultbox/rtviewer/internal/texture"
)

var mapSlots = map[string]scene.Slot{
	"map_Kd":   scene.SlotDiffuse,
	"map_Ks":   scene.SlotSpecular,
	"map_bump": scene.SlotNormal,
	"map_Bump": scene.SlotNormal,
	"bump":     scene.SlotNormal,
	"norm":     scene.SlotNormal,
	"map_d":    scene.SlotOpacity,
	"map_Pr":   scene.SlotRoughness,
	"map_Pm":   scene.SlotMetallicness,
}

// loadMTL reads a material library. Texture maps are resolved relative to
// the library; a map that fails to decode is logged and left unbound.
func (l *Loader) loadMTL(path string) ([]*scene.Material, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p := &mtlParser{l: l, dir: filepath.Dir(path)}
	if err := l.scanLines(f, p.statement); err != nil {
		for _, m := range p.materials {
			m.Release()
		}
		return nil, &LoadError{Path: path, Line: p.line, Err: err}
	}
	return p.materials, nil
}

type mtlParser struct {
	l         *Loader
	dir       string
	line      int
	materials []*scene.Material
	current   *scene.Material
}

func (p *mtlParser) statement(line int, fields []string) error {
	p.line = line
	key, args := fields[0], fields[1:]

	if key == "newmtl" {
		if len(args) == 0 {
			return fmt.Errorf("%w: newmtl without name", ErrMalformed)
		}
		p.current = scene.NewMaterial(strings.Join(args, " "))
		p.materials = append(p.materials, p.current)
		return nil
	}
	if p.current == nil {
		return fmt.Errorf("%w: %s before newmtl", ErrMalformed, key)
	}
	m := p.current

	if slot, ok := mapSlots[key]; ok {
		p.bindMap(m, slot, args)
		return nil
	}

	var err error
	switch key {
	case "Ka":
		m.Ambient, err = parseColor(args)
	case "Kd":
		m.Diffuse, err = parseColor(args)
	case "Ks":
		m.Specular, err = parseColor(args)
	case "Ke":
		m.Emission, err = parseColor(args)
	case "Ns":
		m.Shininess, err = parseFloat(args)
	case "Ni":
		m.IOR, err = parseFloat(args)
	case "Pr":
		m.Roughness, err = parseFloat(args)
	case "Pm":
		m.Metallicness, err = parseFloat(args)
	case "refl":
		m.Reflectivity, err = parseFloat(args)
	case "shader":
		if len(args) == 0 {
			return fmt.Errorf("%w: shader without name", ErrMalformed)
		}
		shader, ok := scene.ParseShader(strings.ToLower(args[0]))
		if !ok {
			p.l.log.Warn("unknown shader", zap.String("material", m.Name), zap.String("shader", args[0]))
		}
		m.Shader = shader
	default:
		// d, Tr, illum and friends are not used by the renderer.
	}
	return err
}

// bindMap decodes the texture named by the last argument; leading
// arguments are map options such as -bm.
func (p *mtlParser) bindMap(m *scene.Material, slot scene.Slot, args []string) {
	if len(args) == 0 {
		p.l.log.Warn("texture map without file", zap.String("material", m.Name), zap.Stringer("slot", slot))
		return
	}
	file := args[len(args)-1]
	if !filepath.IsAbs(file) {
		file = filepath.Join(p.dir, file)
	}

	tex, err := p.l.cache.Load(file)
	if err != nil {
		var decErr *texture.DecodeError
		if !errors.As(err, &decErr) {
			decErr = &texture.DecodeError{Path: file, Err: err}
		}
		p.l.log.Warn("texture unavailable, using flat color",
			zap.String("material", m.Name), zap.Stringer("slot", slot), zap.Error(decErr))
		return
	}
	_ = m.SetTexture(slot, tex)
}
