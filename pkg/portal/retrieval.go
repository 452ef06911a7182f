// pkg/portal/retrieval.go
package portal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xanderpitz/billhawk/pkg/browser"
)

// fallbackExt is used when neither the server nor the URL reveals an
// extension. Billing portals overwhelmingly serve PDF.
const fallbackExt = ".pdf"

// download retrieves targetURL through the browser's native download
// channel, falling back to replaying the session cookies over plain
// HTTP when the primary path fails for any reason. Both paths write the
// server's bytes verbatim, so they produce identical files for the same
// URL under an unchanged session.
func (c *Client) download(tab *browser.Tab, targetURL, name string) (string, error) {
	log := c.logger.Named("retrieval")

	path, err := c.downloadViaBrowser(tab, targetURL, name)
	if err == nil {
		log.Info("Document retrieved via browser download", zap.String("path", path))
		return path, nil
	}
	log.Warn("Primary download path failed; falling back to cookie replay",
		zap.String("url", targetURL), zap.Error(err))

	path, err = c.downloadViaCookieReplay(tab, targetURL, name)
	if err != nil {
		return "", err
	}
	log.Info("Document retrieved via cookie-replay fallback", zap.String("path", path))
	return path, nil
}

// downloadViaBrowser races a bounded wait for the browser's
// download-begun signal against navigating to the target URL.
func (c *Client) downloadViaBrowser(tab *browser.Tab, targetURL, name string) (string, error) {
	dlCtx, cancel := context.WithTimeout(tab.Context(), c.cfg.Network.DownloadTimeout)
	defer cancel()

	begun := make(chan *cdpbrowser.EventDownloadWillBegin, 1)
	finished := make(chan *cdpbrowser.EventDownloadProgress, 1)
	chromedp.ListenTarget(dlCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *cdpbrowser.EventDownloadWillBegin:
			select {
			case begun <- e:
			default:
			}
		case *cdpbrowser.EventDownloadProgress:
			if e.State == cdpbrowser.DownloadProgressStateCompleted ||
				e.State == cdpbrowser.DownloadProgressStateCanceled {
				select {
				case finished <- e:
				default:
				}
			}
		}
	})

	// AllowAndName stores the file under its GUID; it is renamed to the
	// final path once complete.
	err := chromedp.Run(dlCtx,
		cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllowAndName).
			WithDownloadPath(c.cfg.Storage.Dir).
			WithEventsEnabled(true),
	)
	if err != nil {
		return "", fmt.Errorf("configuring download behavior: %w", err)
	}

	// Navigating to a direct download aborts the navigation itself with
	// net::ERR_ABORTED; that is the success case here.
	navErr := make(chan error, 1)
	go func() {
		navErr <- chromedp.Run(dlCtx, chromedp.Navigate(targetURL))
	}()

	var beginEv *cdpbrowser.EventDownloadWillBegin
	select {
	case beginEv = <-begun:
	case err := <-navErr:
		if err != nil && !strings.Contains(err.Error(), "ERR_ABORTED") {
			return "", fmt.Errorf("navigating to %s: %w", targetURL, err)
		}
		// Navigation settled without a download signal yet; keep
		// waiting until the deadline.
		select {
		case beginEv = <-begun:
		case <-dlCtx.Done():
			return "", fmt.Errorf("no download began for %s: %w", targetURL, dlCtx.Err())
		}
	case <-dlCtx.Done():
		return "", fmt.Errorf("no download began for %s: %w", targetURL, dlCtx.Err())
	}

	select {
	case ev := <-finished:
		if ev.State == cdpbrowser.DownloadProgressStateCanceled {
			return "", fmt.Errorf("browser canceled download of %s", targetURL)
		}
	case <-dlCtx.Done():
		return "", fmt.Errorf("download of %s did not complete: %w", targetURL, dlCtx.Err())
	}

	finalPath := filepath.Join(c.cfg.Storage.Dir, buildFileName(name, filepath.Ext(beginEv.SuggestedFilename)))
	guidPath := filepath.Join(c.cfg.Storage.Dir, beginEv.GUID)
	if err := os.Rename(guidPath, finalPath); err != nil {
		return "", fmt.Errorf("moving downloaded file into place: %w", err)
	}
	return finalPath, nil
}

// downloadViaCookieReplay reads the live cookie set from the
// authenticated tab and replays it as a Cookie header on a direct GET.
func (c *Client) downloadViaCookieReplay(tab *browser.Tab, targetURL, name string) (string, error) {
	records, err := harvestCookies(tab.Context())
	if err != nil {
		return "", err
	}

	reqCtx, cancel := context.WithTimeout(context.Background(), c.cfg.Network.RequestTimeout)
	defer cancel()

	body, err := c.fetcher.Get(reqCtx, targetURL, CookieHeader(records))
	if err != nil {
		return "", err
	}

	path := filepath.Join(c.cfg.Storage.Dir, buildFileName(name, extFromURL(targetURL)))
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("writing downloaded file %s: %w", path, err)
	}
	return path, nil
}

// buildFileName combines the caller-supplied name (or a generated
// timestamp name) with the resolved extension. The name is sanitized so
// a hostile suggested name cannot escape the storage directory.
func buildFileName(name, ext string) string {
	if ext == "" {
		ext = fallbackExt
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	base := sanitizeName(name)
	if base == "" {
		base = "document-" + time.Now().Format("20060102-150405")
	}
	if strings.EqualFold(filepath.Ext(base), ext) {
		return base
	}
	return base + ext
}

// sanitizeName strips path separators and traversal components.
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "." || name == "/" {
		return ""
	}
	return strings.TrimSpace(name)
}

// extFromURL guesses the extension from the URL's path, ignoring any
// query string.
func extFromURL(rawURL string) string {
	if m := urlExtPattern.FindStringSubmatch(rawURL); m != nil {
		return "." + strings.ToLower(m[1])
	}
	return fallbackExt
}
