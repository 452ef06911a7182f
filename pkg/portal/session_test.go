// pkg/portal/session_test.go
package portal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHarvestCookiesRequiresBrowserContext(t *testing.T) {
	// A context without a browser attached must surface a wrapped
	// error, never a panic or a hang.
	records, err := harvestCookies(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading browser cookies")
	assert.Nil(t, records)
}
