// Package renderer presents ray traced frames with OpenGL.
package renderer

import (
	"errors"
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/rtviewer/internal/engine/shader"
	"github.com/Faultbox/rtviewer/internal/frameloop"
	"github.com/Faultbox/rtviewer/internal/logger"
)

// ErrFrameSize is returned by Blit for a frame whose pixel slice does not
// match its extent.
var ErrFrameSize = errors.New("frame size mismatch")

// Fullscreen triangle generated from gl_VertexID. Frame row 0 is the top
// of the image, so v is flipped.
const vertexShader = `
#version 410 core

out vec2 uv;

void main() {
	vec2 pos = vec2((gl_VertexID << 1) & 2, gl_VertexID & 2);
	uv = vec2(pos.x, 1.0 - pos.y);
	gl_Position = vec4(pos * 2.0 - 1.0, 0.0, 1.0);
}
`

const fragmentShader = `
#version 410 core

in vec2 uv;
out vec4 FragColor;

uniform sampler2D frame;
uniform float gamma;

void main() {
	vec3 c = texture(frame, uv).rgb;
	FragColor = vec4(pow(c, vec3(1.0 / gamma)), 1.0);
}
`

// Renderer uploads frames to a texture and draws it over the viewport.
type Renderer struct {
	program  uint32
	vao      uint32
	texture  uint32
	gammaLoc int32

	texWidth, texHeight int
	blits               uint64

	log *zap.Logger
}

// New creates a renderer for the given viewport.
// Must be called after the OpenGL context is created.
func New(width, height int) (*Renderer, error) {
	r := &Renderer{log: logger.Named("renderer")}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	r.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	var err error
	r.program, err = shader.CompileProgram(vertexShader, fragmentShader)
	if err != nil {
		return nil, fmt.Errorf("failed to create shader program: %w", err)
	}
	r.gammaLoc = shader.MustGetUniform(r.program, "gamma")
	gl.UseProgram(r.program)
	gl.Uniform1i(shader.GetUniform(r.program, "frame"), 0)

	// Core profile refuses to draw without a bound VAO, even an empty one.
	gl.GenVertexArrays(1, &r.vao)

	gl.GenTextures(1, &r.texture)
	gl.BindTexture(gl.TEXTURE_2D, r.texture)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)

	gl.Disable(gl.DEPTH_TEST)
	gl.ClearColor(0, 0, 0, 1)
	r.Resize(width, height)

	return r, nil
}

// Close cleans up renderer resources.
func (r *Renderer) Close() {
	r.log.Info("closing renderer", zap.Uint64("blits", r.blits))
	if r.texture != 0 {
		gl.DeleteTextures(1, &r.texture)
	}
	if r.vao != 0 {
		gl.DeleteVertexArrays(1, &r.vao)
	}
	if r.program != 0 {
		gl.DeleteProgram(r.program)
	}
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
	r.log.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// Blit draws f stretched over the viewport with the settings' gamma.
func (r *Renderer) Blit(f frameloop.Frame, s frameloop.Settings) error {
	if f.Width <= 0 || f.Height <= 0 || len(f.Pix) != f.Width*f.Height*4 {
		return fmt.Errorf("%w: %dx%d with %d bytes", ErrFrameSize, f.Width, f.Height, len(f.Pix))
	}

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, r.texture)
	if f.Width != r.texWidth || f.Height != r.texHeight {
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(f.Width), int32(f.Height), 0,
			gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(f.Pix))
		r.texWidth, r.texHeight = f.Width, f.Height
	} else {
		gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(f.Width), int32(f.Height),
			gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(f.Pix))
	}

	gl.Clear(gl.COLOR_BUFFER_BIT)
	gl.UseProgram(r.program)
	gl.Uniform1f(r.gammaLoc, s.Gamma)
	gl.BindVertexArray(r.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	gl.BindVertexArray(0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("blit frame %d: GL error 0x%x", f.Iteration, code)
	}
	r.blits++
	return nil
}
