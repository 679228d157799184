// Package charset decodes legacy-encoded text found in older OBJ/MTL exports.
package charset

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// UTF8 is the name of the pass-through charset.
const UTF8 = "utf-8"

var encodings = map[string]encoding.Encoding{
	"windows-1250": charmap.Windows1250,
	"windows-1252": charmap.Windows1252,
	"iso-8859-2":   charmap.ISO8859_2,
	"iso-8859-1":   charmap.ISO8859_1,
	"euc-kr":       korean.EUCKR,
}

// Lookup returns the encoding registered under name. An empty name or
// "utf-8" yields nil, meaning no conversion is needed.
func Lookup(name string) (encoding.Encoding, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == UTF8 || name == "utf8" {
		return nil, nil
	}
	enc, ok := encodings[name]
	if !ok {
		return nil, fmt.Errorf("unsupported charset %q", name)
	}
	return enc, nil
}

// NewReader wraps r so that it yields UTF-8. A nil encoding returns r unchanged.
func NewReader(r io.Reader, enc encoding.Encoding) io.Reader {
	if enc == nil {
		return r
	}
	return transform.NewReader(r, enc.NewDecoder())
}

// DecodeString converts s from enc to UTF-8.
// Returns the original string if conversion fails.
func DecodeString(s string, enc encoding.Encoding) string {
	if enc == nil {
		return s
	}
	result, _, err := transform.String(enc.NewDecoder(), s)
	if err != nil {
		return s
	}
	return result
}

// Names returns the supported charset names.
func Names() []string {
	names := []string{UTF8}
	for name := range encodings {
		names = append(names, name)
	}
	return names
}
