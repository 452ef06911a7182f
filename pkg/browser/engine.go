// pkg/browser/engine.go
package browser

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/xanderpitz/billhawk/internal/config"
	"github.com/xanderpitz/billhawk/pkg/browser/stealth"
)

// Engine owns the single long-lived headless browser process. It is
// launched lazily on first Acquire, reused across all operations, and
// torn down by Release. All per-operation tabs derive from its
// allocator context.
type Engine struct {
	logger *zap.Logger
	cfg    *config.Config

	persona stealth.Persona

	mu          sync.Mutex
	allocCtx    context.Context
	allocCancel context.CancelFunc

	// sf collapses concurrent Acquire calls into a single launch.
	sf singleflight.Group

	// wg tracks open tabs for a graceful shutdown.
	wg sync.WaitGroup
}

// NewEngine prepares an Engine. The browser process is not started yet.
func NewEngine(logger *zap.Logger, cfg *config.Config) *Engine {
	return &Engine{
		logger: logger.Named("browser"),
		cfg:    cfg,
		persona: stealth.Persona{
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
			Platform:  "Win32",
			Languages: []string{"pl-PL", "pl", "en-US", "en"},
			Screen:    stealth.ScreenProperties{Width: 1920, Height: 1080},
		},
	}
}

// UserAgent exposes the persona's user agent so HTTP requests made
// outside the browser can match it.
func (e *Engine) UserAgent() string { return e.persona.UserAgent }

// Acquire ensures a live browser process exists and returns. It is
// idempotent: a live handle is reused unchanged, a disconnected one is
// replaced. Concurrent callers share a single launch.
func (e *Engine) Acquire(ctx context.Context) error {
	_, err, _ := e.sf.Do("acquire", func() (interface{}, error) {
		e.mu.Lock()
		alive := e.allocCtx != nil && e.allocCtx.Err() == nil
		e.mu.Unlock()
		if alive {
			return nil, nil
		}
		return nil, e.launch(ctx)
	})
	return err
}

// launch starts the headless browser process and verifies it responds.
func (e *Engine) launch(ctx context.Context) error {
	e.logger.Info("Launching headless browser")

	opts := e.buildAllocatorOptions()

	// The allocator must outlive the caller's ctx: it is process-wide
	// state released only by Release.
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	// Health probe: confirm the browser starts and responds before
	// handing the allocator out.
	probeCtx, cancelProbe := context.WithTimeout(allocCtx, 30*time.Second)
	probeCtx, cancelProbeTab := chromedp.NewContext(probeCtx)
	defer cancelProbeTab()
	defer cancelProbe()

	if err := chromedp.Run(probeCtx, chromedp.Navigate("about:blank")); err != nil {
		cancel()
		return fmt.Errorf("browser failed to start or respond (check browser.exec_path / BILLHAWK_BROWSER_PATH): %w", err)
	}

	e.mu.Lock()
	e.allocCtx = allocCtx
	e.allocCancel = cancel
	e.mu.Unlock()

	e.logger.Info("Browser launched and responsive")
	return nil
}

// buildAllocatorOptions assembles flags for a stealthy browser instance.
func (e *Engine) buildAllocatorOptions() []chromedp.ExecAllocatorOption {
	// Later flags override earlier ones, so the default that reveals
	// automation is switched off rather than filtered out.
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("headless", e.cfg.Browser.Headless),
		chromedp.Flag("ignore-certificate-errors", e.cfg.Browser.IgnoreTLSErrors),
		// Stops Blink from flipping navigator.webdriver.
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-gpu", e.cfg.Browser.Headless),
		chromedp.UserAgent(e.persona.UserAgent),
	)

	// Constrained deployments pin a specific binary.
	if e.cfg.Browser.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(e.cfg.Browser.ExecPath))
	}

	// Extra flags from config.yaml.
	for _, f := range parseBrowserFlags(e.cfg.Browser.Args) {
		opts = append(opts, chromedp.Flag(f.name, f.value))
	}

	// Flags required inside containers (e.g. Docker on Linux).
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}

	return opts
}

// browserFlag is one parsed command-line switch for the browser binary.
type browserFlag struct {
	name  string
	value interface{}
}

// parseBrowserFlags converts config-supplied argument strings into flag
// name/value pairs: "key=value" keeps its value, a bare argument becomes
// a boolean switch, and leading dashes are tolerated.
func parseBrowserFlags(args []string) []browserFlag {
	flags := make([]browserFlag, 0, len(args))
	for _, arg := range args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(parts[0], "--")
		if name == "" {
			continue
		}
		if len(parts) == 2 {
			flags = append(flags, browserFlag{name: name, value: parts[1]})
		} else {
			flags = append(flags, browserFlag{name: name, value: true})
		}
	}
	return flags
}

// NewTab opens an isolated browser context (tab) with the stealth
// persona applied. The caller owns the Tab and must Close it on every
// exit path.
func (e *Engine) NewTab(ctx context.Context) (*Tab, error) {
	if err := e.Acquire(ctx); err != nil {
		return nil, err
	}

	e.mu.Lock()
	allocCtx := e.allocCtx
	e.mu.Unlock()

	tab := newTab(allocCtx, e.logger)
	if err := chromedp.Run(tab.ctx, stealth.Apply(e.persona, e.logger)); err != nil {
		tab.Close()
		return nil, fmt.Errorf("failed to apply stealth profile: %w", err)
	}

	e.wg.Add(1)
	tab.onClose = e.wg.Done
	return tab, nil
}

// Release tears down the browser process and clears the handle. It is
// a no-op when no instance exists and safe to call repeatedly.
func (e *Engine) Release(ctx context.Context) {
	e.mu.Lock()
	allocCtx := e.allocCtx
	cancel := e.allocCancel
	e.allocCtx = nil
	e.allocCancel = nil
	e.mu.Unlock()

	if cancel == nil {
		return
	}

	// Wait for open tabs, respecting the caller's deadline.
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		e.logger.Warn("Release deadline exceeded; forcing browser termination", zap.Error(ctx.Err()))
	}

	e.logger.Info("Shutting down browser process")
	cancel()
	<-allocCtx.Done()
}
