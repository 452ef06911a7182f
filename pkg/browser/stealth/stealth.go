// pkg/browser/stealth/stealth.go
package stealth

import (
	"context"
	_ "embed" // Required for the go:embed directive
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

//go:embed evasions.js
var evasionsScript string

// ScreenProperties defines the resolution of the spoofed display.
type ScreenProperties struct {
	Width  int64 `json:"width"`
	Height int64 `json:"height"`
}

// Persona defines a consistent browser profile to be spoofed. Portals
// fingerprint automation through navigator.webdriver, empty plugin
// lists and mismatched language headers; the persona papers over all
// three.
type Persona struct {
	UserAgent string           `json:"userAgent"`
	Platform  string           `json:"platform"` // navigator.platform, e.g. Win32
	Languages []string         `json:"languages"`
	Screen    ScreenProperties `json:"screen"`
}

// Apply orchestrates the stealth actions for a fresh browser context.
func Apply(persona Persona, logger *zap.Logger) chromedp.Action {
	l := logger.Named("stealth")
	return chromedp.Tasks{
		network.Enable(),
		setExtraHTTPHeaders(persona, l),
		setUserAgent(persona, l),
		setDeviceMetrics(persona, l),
		injectEvasionScript(persona, l),
		page.SetWebLifecycleState(page.SetWebLifecycleStateStateActive),
		chromedp.ActionFunc(func(ctx context.Context) error {
			l.Debug("Stealth profile applied", zap.String("user_agent", persona.UserAgent))
			return nil
		}),
	}
}

// injectEvasionScript registers the JS evasions to run on every new document.
func injectEvasionScript(persona Persona, logger *zap.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		personaJSON, err := json.Marshal(persona)
		if err != nil {
			logger.Error("Failed to marshal persona", zap.Error(err))
			return fmt.Errorf("stealth: failed to marshal persona: %w", err)
		}

		script := fmt.Sprintf("const BILLHAWK_PERSONA = %s;\n%s", string(personaJSON), evasionsScript)

		if _, err = page.AddScriptToEvaluateOnNewDocument(script).Do(ctx); err != nil {
			logger.Error("Failed to register evasion script with CDP", zap.Error(err))
			return fmt.Errorf("stealth: failed to add script on new document: %w", err)
		}
		return nil
	})
}

// setUserAgent overrides the UserAgent, platform and Accept-Language.
func setUserAgent(persona Persona, logger *zap.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		err := emulation.SetUserAgentOverride(persona.UserAgent).
			WithPlatform(persona.Platform).
			WithAcceptLanguage(strings.Join(persona.Languages, ",")).
			Do(ctx)
		if err != nil {
			logger.Error("Failed to set user agent override via CDP", zap.Error(err))
			return fmt.Errorf("stealth: failed to set user agent override: %w", err)
		}
		return nil
	})
}

// setExtraHTTPHeaders configures a weighted Accept-Language header.
func setExtraHTTPHeaders(persona Persona, logger *zap.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if len(persona.Languages) == 0 {
			return nil
		}
		formatted := persona.Languages[0]
		for i := 1; i < len(persona.Languages); i++ {
			q := 1.0 - float64(i)*0.1
			if q < 0.7 {
				q = 0.7
			}
			formatted += fmt.Sprintf(",%s;q=%.1f", persona.Languages[i], q)
		}
		headers := map[string]interface{}{"Accept-Language": formatted}
		if err := network.SetExtraHTTPHeaders(network.Headers(headers)).Do(ctx); err != nil {
			logger.Error("Failed to set extra HTTP headers via CDP", zap.Error(err))
			return fmt.Errorf("stealth: failed to set extra http headers: %w", err)
		}
		return nil
	})
}

// setDeviceMetrics configures the viewport to a believable resolution.
func setDeviceMetrics(persona Persona, logger *zap.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if persona.Screen.Width <= 0 || persona.Screen.Height <= 0 {
			return nil
		}
		err := emulation.SetDeviceMetricsOverride(persona.Screen.Width, persona.Screen.Height, 1.0, false).
			WithScreenOrientation(&emulation.ScreenOrientation{
				Type:  emulation.OrientationTypeLandscapePrimary,
				Angle: 0,
			}).Do(ctx)
		if err != nil {
			logger.Error("Failed to set device metrics override via CDP", zap.Error(err))
			return fmt.Errorf("stealth: failed to set device metrics: %w", err)
		}
		return nil
	})
}
