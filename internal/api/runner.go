// File: internal/api/runner.go
package api

import (
	"context"

	"go.uber.org/zap"

	"github.com/asolfandco/dispatcher/internal/browser"
	"github.com/asolfandco/dispatcher/internal/config"
	"github.com/asolfandco/dispatcher/internal/dispatch"
	"github.com/asolfandco/dispatcher/internal/whatsapp"
)

// sessionRunner adapts the browser session manager to the dispatcher's
// Runner contract: each exclusive section gets a whatsapp client bound to
// the live session of the moment.
type sessionRunner struct {
	manager *browser.Manager
	wa      config.WhatsAppConfig
	logger  *zap.Logger
}

var _ dispatch.Runner = (*sessionRunner)(nil)

func newSessionRunner(manager *browser.Manager, wa config.WhatsAppConfig, logger *zap.Logger) *sessionRunner {
	return &sessionRunner{manager: manager, wa: wa, logger: logger}
}

func (r *sessionRunner) Exclusive(ctx context.Context, fn func(dispatch.Messenger) error) error {
	return r.manager.Exclusive(ctx, func(s *browser.Session) error {
		return fn(whatsapp.NewClient(s, r.wa, r.logger))
	})
}

func (r *sessionRunner) Reset() {
	r.manager.Reset()
}
