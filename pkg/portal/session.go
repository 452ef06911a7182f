// pkg/portal/session.go
package portal

import (
	"context"
	"errors"
	"fmt"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xanderpitz/billhawk/internal/config"
	"github.com/xanderpitz/billhawk/pkg/browser"
)

// Controller establishes an authenticated portal session. Each call to
// Authenticate opens a brand-new isolated tab; the caller owns it and
// must Close it on every exit path.
//
// The flow: restore the persisted cookie set, validate it structurally
// against the landing page, and fall back to a credential login when
// the restore is empty or rejected. Validity has no expiry timestamp to
// check; the only signal is whether the portal shows a login form.
type Controller struct {
	cfg    *config.Config
	logger *zap.Logger
	engine *browser.Engine
	store  *CookieStore
}

// NewController wires the session controller.
func NewController(cfg *config.Config, engine *browser.Engine, store *CookieStore, logger *zap.Logger) *Controller {
	return &Controller{
		cfg:    cfg,
		logger: logger.Named("session"),
		engine: engine,
		store:  store,
	}
}

// Authenticate returns a live authenticated tab and whether a fresh
// credential login occurred. On any error the tab is already closed.
func (sc *Controller) Authenticate(ctx context.Context) (*browser.Tab, bool, error) {
	tab, err := sc.engine.NewTab(ctx)
	if err != nil {
		return nil, false, err
	}

	restored, err := sc.restoreAndValidate(tab)
	if err != nil {
		tab.Close()
		return nil, false, err
	}
	if restored {
		sc.logger.Debug("Stored session accepted by the portal")
		return tab, false, nil
	}

	// The restore was empty or rejected; drop the stored session before
	// logging in fresh.
	if err := sc.store.Invalidate(); err != nil {
		sc.logger.Warn("Could not delete stale session file", zap.Error(err))
	}

	if err := sc.credentialLogin(tab); err != nil {
		tab.Close()
		return nil, false, err
	}

	// Persist unconditionally: cookies rotate even with unchanged
	// credentials.
	records, err := harvestCookies(tab.Context())
	if err != nil {
		sc.logger.Warn("Could not read cookies after login; session will not be reusable", zap.Error(err))
	} else if err := sc.store.Save(records); err != nil {
		sc.logger.Warn("Could not persist session", zap.Error(err))
	}

	sc.logger.Info("Credential login succeeded")
	return tab, true, nil
}

// restoreAndValidate injects the stored cookie set and checks whether
// the portal accepts it. Returns false when no usable session exists.
func (sc *Controller) restoreAndValidate(tab *browser.Tab) (bool, error) {
	records, err := sc.store.Load()
	if err != nil {
		return false, err
	}
	if len(records) == 0 {
		sc.logger.Debug("No stored session; going straight to credential login")
		return false, nil
	}

	if err := tab.Run(injectCookies(records)); err != nil {
		return false, fmt.Errorf("injecting %d stored cookies: %w", len(records), err)
	}

	if err := sc.navigate(tab, sc.cfg.Portal.BaseURL); err != nil {
		return false, err
	}

	loginForm, err := hasLoginForm(tab.Context())
	if err != nil {
		return false, err
	}
	if loginForm {
		sc.logger.Info("Stored session rejected by the portal")
		return false, nil
	}
	return true, nil
}

// credentialLogin submits the configured credentials through the login
// form. Each structural failure is a distinct terminal outcome and
// leaves a diagnostic screenshot in the storage directory.
func (sc *Controller) credentialLogin(tab *browser.Tab) error {
	if err := sc.cfg.ValidateCredentials(); err != nil {
		return fmt.Errorf("%w: %v", ErrMissingCredentials, err)
	}

	if err := sc.navigate(tab, sc.cfg.Portal.LoginURL); err != nil {
		return err
	}

	userField := firstMatch(tab.Context(), usernameCandidates, sc.logger)
	if userField == nil {
		captureScreenshot(tab.Context(), sc.cfg.Storage.Dir, "login-failure", sc.logger)
		return fmt.Errorf("%w: no username field found on %s", ErrLoginFailed, sc.cfg.Portal.LoginURL)
	}
	passField := firstMatch(tab.Context(), passwordCandidates, sc.logger)
	if passField == nil {
		captureScreenshot(tab.Context(), sc.cfg.Storage.Dir, "login-failure", sc.logger)
		return fmt.Errorf("%w: no password field found on %s", ErrLoginFailed, sc.cfg.Portal.LoginURL)
	}

	err := tab.RunWithTimeout(sc.cfg.Network.NavigationTimeout,
		chromedp.SendKeys(userField.Query, sc.cfg.Portal.Username, userField.QueryOption()),
		chromedp.SendKeys(passField.Query, sc.cfg.Portal.Password, passField.QueryOption()),
	)
	if err != nil {
		captureScreenshot(tab.Context(), sc.cfg.Storage.Dir, "login-failure", sc.logger)
		return fmt.Errorf("%w: filling credential fields: %v", ErrLoginFailed, err)
	}

	submit := firstMatch(tab.Context(), submitCandidates, sc.logger)
	if submit == nil {
		captureScreenshot(tab.Context(), sc.cfg.Storage.Dir, "login-failure", sc.logger)
		return fmt.Errorf("%w: no submit control found on %s", ErrLoginFailed, sc.cfg.Portal.LoginURL)
	}

	// Race the click against a bounded wait for the post-login page.
	// The wait erroring out is fine here; what decides success is the
	// structural check below.
	if err := tab.RunWithTimeout(sc.cfg.Network.NavigationTimeout,
		chromedp.Click(submit.Query, submit.QueryOption()),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		sc.logger.Debug("Post-submit navigation wait ended early", zap.Error(err))
	}
	if err := tab.Run(chromedp.Sleep(sc.cfg.Network.PostLoadWait)); err != nil {
		return fmt.Errorf("waiting for post-login page: %w", err)
	}

	stillThere, err := hasLoginForm(tab.Context())
	if err != nil {
		return err
	}
	if stillThere {
		captureScreenshot(tab.Context(), sc.cfg.Storage.Dir, "login-failure", sc.logger)
		return fmt.Errorf("%w: login form still present after submit (wrong credentials?)", ErrLoginFailed)
	}
	return nil
}

// navigate loads url with a strict DOM-ready wait, retrying once with a
// lenient network-commit wait plus a fixed settle delay when the strict
// wait times out.
func (sc *Controller) navigate(tab *browser.Tab, url string) error {
	err := tab.RunWithTimeout(sc.cfg.Network.NavigationTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err == nil {
		return nil
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}

	sc.logger.Warn("Strict navigation wait timed out; retrying with lenient commit wait",
		zap.String("url", url))

	err = tab.RunWithTimeout(sc.cfg.Network.NavigationTimeout,
		chromedp.ActionFunc(func(ctx context.Context) error {
			// page.Navigate returns at navigation commit, before the
			// page finishes loading.
			_, _, errText, _, err := page.Navigate(url).Do(ctx)
			if err != nil {
				return err
			}
			if errText != "" {
				return fmt.Errorf("navigation failed: %s", errText)
			}
			return nil
		}),
		chromedp.Sleep(sc.cfg.Network.PostLoadWait),
	)
	if err != nil {
		return fmt.Errorf("navigating to %s (lenient retry): %w", url, err)
	}
	return nil
}

// injectCookies builds a single action restoring the whole cookie set.
func injectCookies(records []CookieRecord) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, r := range records {
			if err := r.SetCookieParams().Do(ctx); err != nil {
				return fmt.Errorf("setting cookie %q: %w", r.Name, err)
			}
		}
		return nil
	})
}

// harvestCookies reads the live cookie set for the current page,
// including HttpOnly cookies that page scripts cannot see. Callers
// invoke it while the tab is still on a portal page, so the harvest
// covers the portal's whole session.
func harvestCookies(ctx context.Context) ([]CookieRecord, error) {
	var cookies []*network.Cookie
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("reading browser cookies: %w", err)
	}
	return FromNetworkCookies(cookies), nil
}
