package excel

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/toxidity-18/Marketing-Data-Engine/domain/core"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decoders maps supported encoding names to their x/text decoders. UTF-8 is handled
// separately because it needs validation rather than transcoding.
var decoders = map[string]encoding.Encoding{
	"latin-1":      charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-1":   charmap.ISO8859_1,
	"cp1252":       charmap.Windows1252,
	"windows-1252": charmap.Windows1252,
}

// decodeText converts raw bytes to UTF-8 using the first encoding in the cascade that
// succeeds and reports which one it was.
func decodeText(data []byte, encodings []string) (string, string, error) {
	var lastErr error
	for _, name := range encodings {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "utf-8" || name == "utf8" {
			body := bytes.TrimPrefix(data, utf8BOM)
			if utf8.Valid(body) {
				return string(body), name, nil
			}
			lastErr = fmt.Errorf("invalid utf-8 sequence")
			continue
		}

		enc, ok := decoders[name]
		if !ok {
			lastErr = fmt.Errorf("unknown encoding %q", name)
			continue
		}
		out, _, err := transform.Bytes(enc.NewDecoder(), data)
		if err != nil {
			lastErr = err
			continue
		}
		return string(out), name, nil
	}
	return "", "", fmt.Errorf("%w (tried %v): %v", core.ErrUndecodable, encodings, lastErr)
}
