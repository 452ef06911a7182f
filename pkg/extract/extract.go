// pkg/extract/extract.go

// Package extract normalizes heterogeneous billing documents to plain
// text. The true format is decided by content sniffing first and the
// file extension second, because portals under error or session-expiry
// conditions serve HTML pages with a document's extension.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// sniffPrefixLen bounds how much of the file the signature table sees.
const sniffPrefixLen = 256

// sniffRule pairs a byte-signature predicate with its handler. Rules
// are evaluated in order; the first match wins and preempts the
// extension dispatch entirely.
type sniffRule struct {
	name   string
	match  func(prefix []byte) bool
	handle func(data []byte, logger *zap.Logger) (string, error)
}

var sniffRules = []sniffRule{
	{name: "html", match: looksLikeHTML, handle: mislabeledHTML},
}

// Text extracts human-readable text from a previously retrieved file.
func Text(path string, logger *zap.Logger) (string, error) {
	log := logger.Named("extract")

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	prefix := data
	if len(prefix) > sniffPrefixLen {
		prefix = prefix[:sniffPrefixLen]
	}
	for _, rule := range sniffRules {
		if rule.match(prefix) {
			log.Debug("Content signature overrides extension",
				zap.String("path", path), zap.String("signature", rule.name))
			return rule.handle(data, log)
		}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return pdfText(path)
	case ".xlsx", ".xls":
		text, err := spreadsheetText(data)
		if err != nil {
			// Legacy binary workbooks the parser cannot open degrade
			// to a raw decode instead of erroring.
			log.Warn("Spreadsheet parse failed; returning raw decode",
				zap.String("path", path), zap.Error(err))
			return decodeText(data), nil
		}
		return text, nil
	case ".csv", ".txt":
		return decodeText(data), nil
	default:
		return decodeText(data), nil
	}
}
