// pkg/portal/selectors.go
package portal

import (
	"context"
	"fmt"
	"strconv"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// By selects the lookup mechanism for a Candidate.
type By string

const (
	ByCSS   By = "css"
	ByXPath By = "xpath"
)

// Candidate is one entry of an ordered selector fallback list. The
// portal exposes no stable selectors, so every element of interest is
// located by trying candidates in order and using the first match.
type Candidate struct {
	Query string
	By    By
}

// QueryOption maps the candidate onto the matching chromedp option.
func (c Candidate) QueryOption() chromedp.QueryOption {
	if c.By == ByXPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// presenceScript returns a JS expression that is true when the
// candidate matches something in the current DOM.
func (c Candidate) presenceScript() string {
	q := strconv.Quote(c.Query)
	if c.By == ByXPath {
		return fmt.Sprintf(
			"document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue !== null", q)
	}
	return fmt.Sprintf("document.querySelector(%s) !== null", q)
}

// Ordered candidate lists for the login form. Name attributes first,
// then ids, then generic attributes, per decreasing specificity.
var (
	usernameCandidates = []Candidate{
		{Query: `input[name="username"]`, By: ByCSS},
		{Query: `input[name="login"]`, By: ByCSS},
		{Query: `input[name="email"]`, By: ByCSS},
		{Query: `input#username`, By: ByCSS},
		{Query: `input#login`, By: ByCSS},
		{Query: `input[type="email"]`, By: ByCSS},
		{Query: `form input[type="text"]`, By: ByCSS},
	}

	passwordCandidates = []Candidate{
		{Query: `input[name="password"]`, By: ByCSS},
		{Query: `input#password`, By: ByCSS},
		{Query: `input[type="password"]`, By: ByCSS},
	}

	submitCandidates = []Candidate{
		{Query: `input[type="submit"]`, By: ByCSS},
		{Query: `button[type="submit"]`, By: ByCSS},
		{Query: `//button[contains(., "Zaloguj")]`, By: ByXPath},
		{Query: `//input[contains(@value, "Zaloguj")]`, By: ByXPath},
		{Query: `//button[contains(., "Log in") or contains(., "Sign in")]`, By: ByXPath},
		{Query: `form button`, By: ByCSS},
	}
)

// firstMatch evaluates candidates in order and returns the first one
// present in the DOM, or nil when none match. A failed lookup moves on
// to the next candidate; it is logged so selector drift stays
// debuggable.
func firstMatch(ctx context.Context, candidates []Candidate, logger *zap.Logger) *Candidate {
	for i := range candidates {
		c := candidates[i]
		var present bool
		if err := chromedp.Run(ctx, chromedp.Evaluate(c.presenceScript(), &present)); err != nil {
			logger.Debug("Candidate lookup failed; trying next",
				zap.String("query", c.Query), zap.Error(err))
			continue
		}
		if present {
			logger.Debug("Candidate matched", zap.String("query", c.Query), zap.Int("rank", i))
			return &c
		}
	}
	return nil
}

// loginFormScript detects a login form structurally: a password-type
// input, or an input plausibly named for a username. This is the only
// session-validity signal the portal offers.
const loginFormScript = `(() => {
	if (document.querySelector('input[type="password"]')) return true;
	const u = document.querySelector(
		'input[name="username"], input[name="login"], input[id="username"], input[id="login"]');
	return u !== null;
})()`

// hasLoginForm reports whether the current DOM contains a login form.
func hasLoginForm(ctx context.Context) (bool, error) {
	var present bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(loginFormScript, &present)); err != nil {
		return false, fmt.Errorf("checking for login form: %w", err)
	}
	return present, nil
}
