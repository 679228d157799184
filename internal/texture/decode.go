package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF
	_ "image/jpeg" // register JPEG
	_ "image/png"  // register PNG
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"  // register BMP
	_ "golang.org/x/image/tiff" // register TIFF
	_ "golang.org/x/image/webp" // register WebP
)

// Decode reads and decodes the image at path. TGA is selected by file
// extension since it has no signature; every other format is sniffed.
// All failures are returned as *DecodeError.
func Decode(path string) (*Texture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	tex, err := DecodeBytes(data, filepath.Ext(path))
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return tex, nil
}

// DecodeBytes decodes an in-memory image. ext is the file extension
// including the dot and is only consulted for TGA.
func DecodeBytes(data []byte, ext string) (*Texture, error) {
	var img image.Image
	if strings.EqualFold(ext, ".tga") {
		nrgba, err := DecodeTGA(data)
		if err != nil {
			return nil, err
		}
		img = nrgba
	} else {
		decoded, format, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			if errors.Is(err, image.ErrFormat) {
				return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
			}
			return nil, fmt.Errorf("decoding %s: %w", format, err)
		}
		img = decoded
	}
	return FromImage(img)
}
