// pkg/portal/discovery_test.go
package portal

import (
	"os"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClassifyLinks(t *testing.T) {
	raw := []RawLink{
		{Href: "https://portal.example/dl/107.00-2026-01.pdf", Text: "107.00-2026-01.pdf"},
		{Href: "https://portal.example/file?id=42", Text: "Faktura styczeń"},
		{Href: "https://portal.example/file?id=43", Text: "rozliczenie_2025-12.xlsx"},
		{Href: "https://portal.example/report.csv?session=abc", Text: "Raport"},
		{Href: "https://portal.example/kontakt", Text: "Kontakt"},
		{Href: "#top", Text: "Do góry"},
		{Href: "javascript:void(0)", Text: "faktura.pdf"},
		{Href: "", Text: "pusty"},
	}

	docs, others := ClassifyLinks(raw)

	require.Len(t, docs, 4)
	assert.Equal(t, FileTypePDF, docs[0].FileType)
	assert.Equal(t, "2026-01", docs[0].Period)

	// Billing vocabulary without any extension.
	assert.Equal(t, "Faktura styczeń", docs[1].Label)
	assert.Equal(t, FileTypeUnknown, docs[1].FileType)

	// Extensionless URL, but the label carries the real file name.
	assert.Equal(t, FileTypeXLSX, docs[2].FileType)
	assert.Equal(t, "2025-12", docs[2].Period)

	// URL extension with a trailing query string.
	assert.Equal(t, FileTypeCSV, docs[3].FileType)

	// Same-page anchors, script pseudo-URLs and empty hrefs are dropped
	// entirely; ordinary links land in others.
	require.Len(t, others, 1)
	assert.Equal(t, "Kontakt", others[0].Label)
}

func TestClassifyLinksBoundsOtherLinks(t *testing.T) {
	var raw []RawLink
	for i := 0; i < maxOtherLinks*2; i++ {
		raw = append(raw, RawLink{Href: "https://portal.example/page", Text: "strona"})
	}

	_, others := ClassifyLinks(raw)
	assert.Len(t, others, maxOtherLinks)
}

func TestInferFileType(t *testing.T) {
	tests := []struct {
		name  string
		label string
		href  string
		want  FileType
	}{
		{"label wins over url", "zestawienie.xlsx", "https://p.example/dl.pdf", FileTypeXLSX},
		{"url fallback", "Pobierz", "https://p.example/doc.PDF", FileTypePDF},
		{"url with query", "Pobierz", "https://p.example/doc.zip?x=1", FileTypeZIP},
		{"neither", "Pobierz", "https://p.example/doc", FileTypeUnknown},
		{"spec label", "107.00-2026-01.pdf", "https://p.example/f?id=1", FileTypePDF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferFileType(tt.label, tt.href))
		})
	}
}

func TestInferPeriod(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"107.00-2026-01.pdf", "2026-01"},
		{"rozliczenie_2025-12.xlsx", "2025-12"},
		{"faktura.pdf", ""},
		{"2026-01", ""}, // no trailing dot boundary
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InferPeriod(tt.label), "label %q", tt.label)
	}
}

func TestCollapseText(t *testing.T) {
	in := "  Fak tura\n\n\t za    styczeń \r\n 2026  "
	assert.Equal(t, "Fak tura za styczeń 2026", CollapseText(in, 100))

	long := strings.Repeat("a ", 300)
	assert.Len(t, CollapseText(long, 50), 50)
}

func TestCollapseTextCutsOnRuneBoundary(t *testing.T) {
	// "ż" is two bytes; an odd byte limit falls mid-rune.
	in := strings.Repeat("ż", 40)
	out := CollapseText(in, 51)

	assert.True(t, utf8.ValidString(out), "truncation must not split a rune")
	assert.LessOrEqual(t, len(out), 51)
	assert.Equal(t, 50, len(out))
}

func TestExpireSessionDeletesStoredSession(t *testing.T) {
	dir := t.TempDir()
	store := NewCookieStore(dir, zap.NewNop())
	require.NoError(t, store.Save([]CookieRecord{{Name: "SESSID", Value: "x"}}))

	c := &Client{store: store, logger: zap.NewNop()}
	err := c.expireSession(c.logger)

	require.ErrorIs(t, err, ErrSessionExpired)
	_, statErr := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(statErr), "stored session must be deleted as a side effect")

	// Expiring an already-deleted session still reports the same error.
	require.ErrorIs(t, c.expireSession(c.logger), ErrSessionExpired)
}

func TestUsableHref(t *testing.T) {
	assert.False(t, usableHref(""))
	assert.False(t, usableHref("#section"))
	assert.False(t, usableHref("JavaScript:history.back()"))
	assert.True(t, usableHref("https://portal.example/faktury"))
	assert.True(t, usableHref("/relative/path.pdf"))
}
