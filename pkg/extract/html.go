// pkg/extract/html.go
package extract

import (
	"bytes"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// FormatMismatchNote prefixes text recovered from a response that was
// HTML despite the document extension, so downstream consumers can tell
// a real document apart from an error page.
const FormatMismatchNote = "[uwaga: serwer zwrócił stronę HTML zamiast oczekiwanego dokumentu]"

var htmlSignatures = [][]byte{
	[]byte("<html"),
	[]byte("<!doctype"),
	[]byte("<!--"),
	[]byte("<head"),
	[]byte("<body"),
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// looksLikeHTML reports whether the byte prefix textually resembles an
// HTML document opening tag or comment, case-insensitively.
func looksLikeHTML(prefix []byte) bool {
	p := bytes.TrimPrefix(prefix, utf8BOM)
	p = bytes.TrimLeft(p, " \t\r\n")
	p = bytes.ToLower(p)
	for _, sig := range htmlSignatures {
		if bytes.HasPrefix(p, sig) {
			return true
		}
	}
	return false
}

// mislabeledHTML extracts the visible text of an HTML page, prefixed
// with the format-mismatch note. Content-type mismatch is not an error
// here; the caller still gets whatever the portal had to say.
func mislabeledHTML(data []byte, logger *zap.Logger) (string, error) {
	logger.Info("Expected document format was not delivered; extracting HTML text instead")
	return FormatMismatchNote + "\n\n" + VisibleText(data), nil
}

var spaceRun = regexp.MustCompile(`[ \t]+`)
var blankRun = regexp.MustCompile(`\n{3,}`)

// VisibleText strips script and style blocks and all tags from an HTML
// document, returning the remaining text with whitespace normalized.
func VisibleText(data []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(data))

	var sb strings.Builder
	skipDepth := 0
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return tidyText(sb.String())
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if isInvisibleTag(string(name)) {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if isInvisibleTag(string(name)) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := strings.TrimSpace(string(tokenizer.Text()))
			if text != "" {
				sb.WriteString(text)
				sb.WriteByte('\n')
			}
		}
	}
}

func isInvisibleTag(name string) bool {
	switch name {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}

func tidyText(text string) string {
	text = spaceRun.ReplaceAllString(text, " ")
	text = blankRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
