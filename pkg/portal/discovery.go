// pkg/portal/discovery.go
package portal

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xanderpitz/billhawk/pkg/browser"
)

const (
	// otherLinks are kept for caller inspection only, so a small cap
	// is enough.
	maxOtherLinks = 25
	// maxPageText bounds the visible-text snapshot.
	maxPageText = 4000
)

// sectionKeywords steer the best-effort in-page navigation toward the
// portal's document area. Ordered: earlier entries are more specific.
var sectionKeywords = []string{
	"faktury",
	"dokumenty",
	"rozliczenia",
	"invoices",
	"documents",
	"billing",
}

// billingVocab classifies link labels that carry no file extension.
var billingVocab = []string{
	"faktura",
	"rachunek",
	"nota",
	"korekta",
	"rozliczenie",
	"invoice",
	"statement",
	"billing",
}

var (
	// labelExtPattern matches a document extension at the end of a label.
	labelExtPattern = regexp.MustCompile(`(?i)\.(pdf|xlsx|xls|csv|txt|zip)$`)
	// urlExtPattern tolerates a trailing query string on URLs.
	urlExtPattern = regexp.MustCompile(`(?i)\.(pdf|xlsx|xls|csv|txt|zip)(\?[^#]*)?$`)
	// periodPattern extracts a billing period like "2026-01" from
	// labels such as "107.00-2026-01.pdf".
	periodPattern = regexp.MustCompile(`[-_](\d{4}-\d{2})\.`)

	whitespaceRun = regexp.MustCompile(`\s+`)
)

// RawLink is an anchor as harvested from the page, before classification.
type RawLink struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

// anchorScript harvests every anchor with a non-empty href.
const anchorScript = `(() =>
	Array.from(document.querySelectorAll('a[href]')).map(a => ({
		href: a.href,
		text: (a.innerText || a.textContent || '').trim(),
	}))
)()`

const pageTextScript = `document.body ? document.body.innerText : ''`

// discover runs one discovery pass on an already authenticated tab.
func (c *Client) discover(tab *browser.Tab) (*DiscoveryResult, error) {
	log := c.logger.Named("discovery")

	// Best-effort hop into the documents section. Not finding a
	// matching link is fine; discovery then works on the current page.
	matched := tryNavigateToSection(tab, log)
	if matched != "" {
		log.Debug("Navigated toward document section", zap.String("keyword", matched))
	}

	// Settle period covers client-rendered/AJAX content after any
	// navigation.
	if err := tab.Run(chromedp.Sleep(c.cfg.Network.PostLoadWait)); err != nil {
		return nil, fmt.Errorf("waiting for page to settle: %w", err)
	}

	// A login form at this point means the session died mid-operation.
	// Do not silently recover: drop the stored session and let the
	// caller decide whether to re-drive login.
	loginForm, err := hasLoginForm(tab.Context())
	if err != nil {
		return nil, err
	}
	if loginForm {
		return nil, c.expireSession(log)
	}

	// Screenshot on every pass, not just failures, so the page state
	// behind any result can be inspected later.
	captureScreenshot(tab.Context(), c.cfg.Storage.Dir, "discovery", log)

	var raw []RawLink
	var pageText, sourceURL string
	err = tab.Run(
		chromedp.Evaluate(anchorScript, &raw),
		chromedp.Evaluate(pageTextScript, &pageText),
		chromedp.Location(&sourceURL),
	)
	if err != nil {
		return nil, fmt.Errorf("harvesting page links: %w", err)
	}

	docs, others := ClassifyLinks(raw)
	log.Info("Discovery pass complete",
		zap.String("source_url", sourceURL),
		zap.Int("documents", len(docs)),
		zap.Int("other_links", len(others)),
	)

	return &DiscoveryResult{
		Documents:  docs,
		OtherLinks: others,
		PageText:   CollapseText(pageText, maxPageText),
		SourceURL:  sourceURL,
	}, nil
}

// expireSession discards the stored session and reports the typed
// expiry to the caller, who must re-authenticate before retrying.
func (c *Client) expireSession(log *zap.Logger) error {
	if err := c.store.Invalidate(); err != nil {
		log.Warn("Could not delete expired session file", zap.Error(err))
	}
	return ErrSessionExpired
}

// tryNavigateToSection clicks the first anchor whose visible text
// matches a section keyword, preferring exact matches over substring
// matches. Returns the matched keyword, or "" when nothing matched.
// Failures are swallowed (discovery proceeds on the current page) but
// logged.
func tryNavigateToSection(tab *browser.Tab, logger *zap.Logger) string {
	kwJSON, err := json.MarshalToString(sectionKeywords)
	if err != nil {
		return ""
	}
	script := fmt.Sprintf(`(() => {
		const keywords = %s;
		const anchors = Array.from(document.querySelectorAll('a[href]'));
		const norm = a => (a.innerText || a.textContent || '').trim().toLowerCase();
		for (const kw of keywords) {
			const hit = anchors.find(a => norm(a) === kw);
			if (hit) { hit.click(); return kw; }
		}
		for (const kw of keywords) {
			const hit = anchors.find(a => norm(a).includes(kw));
			if (hit) { hit.click(); return kw; }
		}
		return '';
	})()`, kwJSON)

	var matched string
	if err := tab.Run(chromedp.Evaluate(script, &matched)); err != nil {
		logger.Debug("Section navigation attempt failed; staying on current page", zap.Error(err))
		return ""
	}
	return matched
}

// ClassifyLinks splits harvested anchors into document candidates and
// other links. A link is a candidate when any of the layered heuristics
// fires: document extension in the URL (query string ignored), document
// extension in the visible label (covers extensionless URLs labelled by
// the real file name), or billing vocabulary in the label.
func ClassifyLinks(raw []RawLink) ([]DocumentLink, []PageLink) {
	var docs []DocumentLink
	var others []PageLink

	for _, link := range raw {
		href := strings.TrimSpace(link.Href)
		if !usableHref(href) {
			continue
		}

		if isDocumentCandidate(link.Text, href) {
			docs = append(docs, DocumentLink{
				Label:     link.Text,
				TargetURL: href,
				FileType:  InferFileType(link.Text, href),
				Period:    InferPeriod(link.Text),
			})
			continue
		}

		if len(others) < maxOtherLinks {
			others = append(others, PageLink{URL: href, Label: link.Text})
		}
	}
	return docs, others
}

// usableHref rejects empty targets, same-page anchors and script
// pseudo-URLs.
func usableHref(href string) bool {
	if href == "" || strings.HasPrefix(href, "#") {
		return false
	}
	lower := strings.ToLower(href)
	return !strings.HasPrefix(lower, "javascript:")
}

func isDocumentCandidate(label, href string) bool {
	if urlExtPattern.MatchString(href) {
		return true
	}
	trimmed := strings.TrimSpace(label)
	if labelExtPattern.MatchString(trimmed) {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, kw := range billingVocab {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// InferFileType derives a best-guess file type, checking the label
// before the URL: servers that hide the extension behind an opaque URL
// usually still label the link with the real file name.
func InferFileType(label, href string) FileType {
	if m := labelExtPattern.FindStringSubmatch(strings.TrimSpace(label)); m != nil {
		return FileType(strings.ToLower(m[1]))
	}
	if m := urlExtPattern.FindStringSubmatch(href); m != nil {
		return FileType(strings.ToLower(m[1]))
	}
	return FileTypeUnknown
}

// InferPeriod extracts an optional billing period (YYYY-MM) from a
// document label, or "" when the label carries none.
func InferPeriod(label string) string {
	if m := periodPattern.FindStringSubmatch(label); m != nil {
		return m[1]
	}
	return ""
}

// CollapseText collapses whitespace runs to single spaces and bounds
// the result to max bytes, cutting on a rune boundary so the snapshot
// stays valid UTF-8.
func CollapseText(text string, max int) string {
	collapsed := strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
	if len(collapsed) > max {
		cut := max
		for cut > 0 && !utf8.RuneStart(collapsed[cut]) {
			cut--
		}
		collapsed = collapsed[:cut]
	}
	return collapsed
}
