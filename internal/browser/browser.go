// Package browser opens the landing page once the server is listening.
package browser

import (
	"context"
	"time"

	"github.com/pkg/browser"
	"go.uber.org/zap"
)

// openURL is swapped in tests.
var openURL = browser.OpenURL

// OpenAfter opens url in the default browser after delay, unless ctx is
// cancelled first. Failures are logged; the server keeps running either way.
func OpenAfter(ctx context.Context, url string, delay time.Duration, logger *zap.Logger) {
	go func() {
		t := time.NewTimer(delay)
		defer t.Stop()

		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		if err := openURL(url); err != nil {
			logger.Warn("could not open browser", zap.String("url", url), zap.Error(err))
		}
	}()
}
