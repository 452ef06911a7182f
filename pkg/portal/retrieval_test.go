// pkg/portal/retrieval_test.go
package portal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildFileName(t *testing.T) {
	tests := []struct {
		name     string
		caller   string
		ext      string
		want     string
		wantGen  bool // generated timestamp name expected
		wantExt  string
	}{
		{"caller name with matching ext", "faktura-2026-01.pdf", ".pdf", "faktura-2026-01.pdf", false, ""},
		{"caller name without ext", "faktura-2026-01", ".pdf", "faktura-2026-01.pdf", false, ""},
		{"ext without dot", "raport", "csv", "raport.csv", false, ""},
		{"empty ext falls back", "raport", "", "raport.pdf", false, ""},
		{"empty name is generated", "", ".xlsx", "", true, ".xlsx"},
		{"traversal stripped", "../../etc/passwd", ".pdf", "passwd.pdf", false, ""},
		{"windows separators stripped", `..\..\boot.ini`, ".txt", "boot.ini.txt", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildFileName(tt.caller, tt.ext)
			if tt.wantGen {
				assert.True(t, strings.HasPrefix(got, "document-"), "got %q", got)
				assert.True(t, strings.HasSuffix(got, tt.wantExt), "got %q", got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "faktura.pdf", sanitizeName("downloads/faktura.pdf"))
	assert.Equal(t, "", sanitizeName(""))
	assert.Equal(t, "", sanitizeName("."))
	assert.Equal(t, "x", sanitizeName("  x  "))
}

func TestExtFromURL(t *testing.T) {
	assert.Equal(t, ".pdf", extFromURL("https://p.example/dl/doc.PDF"))
	assert.Equal(t, ".csv", extFromURL("https://p.example/dl/raport.csv?sid=1"))
	assert.Equal(t, ".pdf", extFromURL("https://p.example/dl?id=42"), "fallback extension")
}
