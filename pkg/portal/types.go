// pkg/portal/types.go
package portal

import "time"

// FileType is the best-guess format of a discovered document link,
// inferred from its label or URL. The guess is advisory: the true
// format is decided later by content sniffing (pkg/extract).
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeXLSX FileType = "xlsx"
	FileTypeXLS  FileType = "xls"
	FileTypeCSV  FileType = "csv"
	FileTypeTXT  FileType = "txt"
	FileTypeZIP  FileType = "zip"
	// FileTypeUnknown is used when neither the label nor the URL
	// carries a recognizable extension.
	FileTypeUnknown FileType = "file"
)

// DocumentLink is a page link heuristically believed to point at a
// downloadable billing document. Derived per discovery call, never
// persisted.
type DocumentLink struct {
	Label     string   `json:"label"`
	TargetURL string   `json:"target_url"`
	FileType  FileType `json:"file_type"`
	// Period is the billing period parsed from the label
	// (e.g. "2026-01" from "107.00-2026-01.pdf"), empty when absent.
	Period string `json:"period,omitempty"`
}

// PageLink is a non-document link kept for caller inspection.
type PageLink struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// DiscoveryResult is the full outcome of one document discovery pass.
type DiscoveryResult struct {
	Documents  []DocumentLink `json:"documents"`
	OtherLinks []PageLink     `json:"other_links"`
	// PageText is a bounded, whitespace-collapsed snapshot of the
	// page's visible text, so a caller with no structural knowledge of
	// the portal can still reason about what was on screen.
	PageText  string `json:"page_text"`
	SourceURL string `json:"source_url"`
}

// RetrievedFile describes a previously downloaded document on disk.
type RetrievedFile struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// LoginResult reports the outcome of an explicit login call. NewLogin
// tells the caller whether a fresh credential submission happened, so
// the surrounding application can notify the user of re-authentication.
type LoginResult struct {
	Authenticated bool `json:"authenticated"`
	NewLogin      bool `json:"new_login"`
}
