// pkg/portal/cookiejar.go
package portal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// sessionFileName is dot-prefixed so ListRetrievedFiles skips it.
const sessionFileName = ".session.json"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CookieRecord is the persisted form of a single browser cookie.
type CookieRecord struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"` // unix seconds, -1 for session cookies
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"httpOnly"`
	SameSite string  `json:"sameSite,omitempty"`
}

// CookieStore persists the portal session's cookie set as a single JSON
// blob at a fixed, hidden location inside the storage directory.
//
// The file is read and written without cross-process locking; two
// processes racing to refresh the session is an accepted limitation.
type CookieStore struct {
	path   string
	logger *zap.Logger
}

// NewCookieStore creates a store rooted in dir.
func NewCookieStore(dir string, logger *zap.Logger) *CookieStore {
	return &CookieStore{
		path:   filepath.Join(dir, sessionFileName),
		logger: logger.Named("cookiejar"),
	}
}

// Path returns the location of the persisted session file.
func (s *CookieStore) Path() string { return s.path }

// Load reads the persisted cookie set. A missing file returns an empty
// set and no error; a malformed file is treated the same way (the
// session is simply re-established) but logged.
func (s *CookieStore) Load() ([]CookieRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading session file %s: %w", s.path, err)
	}

	var records []CookieRecord
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn("Session file is malformed; discarding it",
			zap.String("path", s.path), zap.Error(err))
		return nil, nil
	}
	return records, nil
}

// Save overwrites the persisted cookie set. Called unconditionally on
// every successful login because portals rotate cookies even when the
// credentials have not changed.
func (s *CookieStore) Save(records []CookieRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %d cookies: %w", len(records), err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing session file %s: %w", s.path, err)
	}
	s.logger.Debug("Session persisted", zap.Int("cookies", len(records)))
	return nil
}

// Invalidate deletes the persisted session. A missing file is a no-op.
func (s *CookieStore) Invalidate() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting session file %s: %w", s.path, err)
	}
	s.logger.Info("Stored session invalidated")
	return nil
}

// FromNetworkCookies converts live CDP cookies into persistable records.
func FromNetworkCookies(cookies []*network.Cookie) []CookieRecord {
	records := make([]CookieRecord, 0, len(cookies))
	for _, c := range cookies {
		records = append(records, CookieRecord{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: string(c.SameSite),
		})
	}
	return records
}

// SetCookieParams converts a persisted record back into a CDP
// Network.setCookie request.
func (r CookieRecord) SetCookieParams() *network.SetCookieParams {
	p := network.SetCookie(r.Name, r.Value).
		WithDomain(r.Domain).
		WithPath(r.Path).
		WithSecure(r.Secure).
		WithHTTPOnly(r.HTTPOnly)
	if r.Expires > 0 {
		expires := cdp.TimeSinceEpoch(timeFromUnixFloat(r.Expires))
		p = p.WithExpires(&expires)
	}
	if r.SameSite != "" {
		p = p.WithSameSite(network.CookieSameSite(r.SameSite))
	}
	return p
}

// CookieHeader renders records as a single Cookie request header value
// for the cookie-replay HTTP fallback.
func CookieHeader(records []CookieRecord) string {
	pairs := make([]string, 0, len(records))
	for _, r := range records {
		pairs = append(pairs, r.Name+"="+r.Value)
	}
	return strings.Join(pairs, "; ")
}
