// pkg/portal/diag.go
package portal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// captureScreenshot writes a full-page screenshot into dir for support
// diagnostics. Best effort: a failed capture is logged, never fatal,
// because it must not mask the error that triggered it.
func captureScreenshot(ctx context.Context, dir, prefix string, logger *zap.Logger) string {
	shotCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(shotCtx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		logger.Warn("Diagnostic screenshot capture failed", zap.Error(err))
		return ""
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-%s.png", prefix, time.Now().Format("20060102-150405")))
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		logger.Warn("Could not write diagnostic screenshot", zap.String("path", path), zap.Error(err))
		return ""
	}

	logger.Info("Diagnostic screenshot written", zap.String("path", path))
	return path
}
