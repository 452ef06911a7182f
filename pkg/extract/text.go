// pkg/extract/text.go
package extract

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// decodeText decodes file bytes as UTF-8, falling back to Windows-1250
// when the bytes are not valid UTF-8. Older portal exports still use
// the single-byte central-European encoding; a decode failure must not
// become an error.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	decoded, err := charmap.Windows1250.NewDecoder().Bytes(data)
	if err != nil {
		// Single-byte decoders accept arbitrary input, so this branch
		// is unreachable in practice; raw bytes beat an error anyway.
		return string(data)
	}
	return string(decoded)
}
