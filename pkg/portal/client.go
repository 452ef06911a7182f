// pkg/portal/client.go
package portal

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/xanderpitz/billhawk/internal/config"
	"github.com/xanderpitz/billhawk/pkg/browser"
	"github.com/xanderpitz/billhawk/pkg/extract"
	"github.com/xanderpitz/billhawk/pkg/network"
)

// Client is the facade collaborators use: it owns the shared browser
// engine, the cookie store and the HTTP fallback fetcher, and exposes
// the portal operations. All browser interactions inside one operation
// are awaited sequentially; the Client does not run multiple pages
// against the same session in parallel.
type Client struct {
	cfg     *config.Config
	logger  *zap.Logger
	engine  *browser.Engine
	store   *CookieStore
	session *Controller
	fetcher *network.Fetcher
}

// NewClient wires a Client and ensures the storage directory exists.
// The browser process is not started until the first operation needs it.
func NewClient(cfg *config.Config, logger *zap.Logger) (*Client, error) {
	if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory %s: %w", cfg.Storage.Dir, err)
	}

	log := logger.Named("portal")
	engine := browser.NewEngine(logger, cfg)
	store := NewCookieStore(cfg.Storage.Dir, log)

	netCfg := network.NewDefaultClientConfig(logger)
	netCfg.RequestTimeout = cfg.Network.RequestTimeout
	netCfg.IgnoreTLSErrors = cfg.Network.IgnoreTLSErrors

	return &Client{
		cfg:     cfg,
		logger:  log,
		engine:  engine,
		store:   store,
		session: NewController(cfg, engine, store, log),
		fetcher: network.NewFetcher(netCfg, engine.UserAgent(), logger),
	}, nil
}

// Login establishes (or confirms) an authenticated session. Idempotent
// and safe to call speculatively before any other operation.
func (c *Client) Login(ctx context.Context) (LoginResult, error) {
	tab, fresh, err := c.session.Authenticate(ctx)
	if err != nil {
		return LoginResult{}, err
	}
	defer tab.Close()
	return LoginResult{Authenticated: true, NewLogin: fresh}, nil
}

// ListDocuments authenticates and runs one discovery pass over the
// portal's document area.
func (c *Client) ListDocuments(ctx context.Context) (*DiscoveryResult, error) {
	tab, _, err := c.session.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	defer tab.Close()
	return c.discover(tab)
}

// DownloadDocument authenticates and retrieves targetURL into the
// storage directory, returning the stored path. name is optional; when
// empty a timestamp-based name is generated.
func (c *Client) DownloadDocument(ctx context.Context, targetURL, name string) (string, error) {
	if targetURL == "" {
		return "", fmt.Errorf("download: target URL must not be empty")
	}
	tab, _, err := c.session.Authenticate(ctx)
	if err != nil {
		return "", err
	}
	defer tab.Close()
	return c.download(tab, targetURL, name)
}

// ReadDocument normalizes a previously retrieved file to plain text.
// Purely local; needs no session.
func (c *Client) ReadDocument(path string) (string, error) {
	return extract.Text(path, c.logger)
}

// ListRetrievedFiles lists previously downloaded files, most recently
// modified first. Purely local; needs no session.
func (c *Client) ListRetrievedFiles() ([]RetrievedFile, error) {
	return ListRetrievedFiles(c.cfg.Storage.Dir)
}

// Shutdown releases the shared browser process. Idempotent.
func (c *Client) Shutdown(ctx context.Context) {
	c.engine.Release(ctx)
}
