// pkg/browser/tab.go
package browser

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Tab is a single isolated browser context. Cookies, cache and storage
// are scoped to the tab, so concurrent logical operations cannot
// contaminate each other. The creating operation owns the Tab and must
// Close it on every exit path.
type Tab struct {
	id     string
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	onClose func()

	mu     sync.Mutex
	closed bool
}

func newTab(allocCtx context.Context, logger *zap.Logger) *Tab {
	id := uuid.New().String()
	ctx, cancel := chromedp.NewContext(allocCtx)
	return &Tab{
		id:     id,
		logger: logger.With(zap.String("tab_id", id[:8])),
		ctx:    ctx,
		cancel: cancel,
	}
}

// ID returns the unique identifier for this tab, used for log correlation.
func (t *Tab) ID() string { return t.id }

// Context returns the chromedp context for running actions in this tab.
func (t *Tab) Context() context.Context { return t.ctx }

// Run executes chromedp actions in this tab.
func (t *Tab) Run(actions ...chromedp.Action) error {
	return chromedp.Run(t.ctx, actions...)
}

// RunWithTimeout executes actions with a bounded deadline. A timed-out
// wait surfaces as context.DeadlineExceeded, never a hang.
func (t *Tab) RunWithTimeout(timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(t.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// Close releases the tab. Safe to call more than once; only the first
// call tears down the context.
func (t *Tab) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.mu.Unlock()

	t.cancel()
	if t.onClose != nil {
		t.onClose()
	}
	t.logger.Debug("Tab closed")
}
