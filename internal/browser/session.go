// File: internal/browser/session.go
package browser

import (
	"context"
	"strings"
	"sync"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asolfandco/dispatcher/internal/browser/locator"
)

// Fingerprint records the configuration a session was created with.
type Fingerprint struct {
	ProfileDir string
	Headless   bool
	UserAgent  string
}

// Session is the single live browser-driven connection to the messaging
// client. It owns a dedicated chromedp context and exposes the page
// primitives the interaction layer is built on.
type Session struct {
	id          string
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      *zap.Logger
	createdAt   time.Time
	fingerprint Fingerprint

	closeOnce sync.Once
}

// Session implements the locator wait primitive.
var _ locator.Waiter = (*Session)(nil)

func newSession(ctx context.Context, cancel, allocCancel context.CancelFunc, fp Fingerprint, logger *zap.Logger) *Session {
	id := uuid.New().String()
	return &Session{
		id:          id,
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		logger:      logger.With(zap.String("session_id", id)),
		createdAt:   time.Now(),
		fingerprint: fp,
	}
}

// ID returns the session ID.
func (s *Session) ID() string { return s.id }

// CreatedAt returns the session creation timestamp.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Fingerprint returns the configuration the session was launched with.
func (s *Session) Fingerprint() Fingerprint { return s.fingerprint }

// runActions executes chromedp actions, ensuring they respect both the
// session lifetime (s.ctx) and the incoming request context (ctx).
func (s *Session) runActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// Probe performs a trivial no-op CDP read to verify the session is live.
func (s *Session) Probe(ctx context.Context) error {
	return s.runActions(ctx, chromedp.ActionFunc(func(c context.Context) error {
		_, _, _, _, _, err := cdpbrowser.GetVersion().Do(c)
		return err
	}))
}

// Navigate loads the given URL and waits for the document body to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating.", zap.String("url", url))
	return s.runActions(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// WaitFor blocks until the XPath matches in the requested mode or ctx expires.
func (s *Session) WaitFor(ctx context.Context, xpath string, mode locator.Mode) error {
	if mode == locator.Interactable {
		return s.runActions(ctx,
			chromedp.WaitVisible(xpath, chromedp.BySearch),
			chromedp.WaitEnabled(xpath, chromedp.BySearch),
		)
	}
	return s.runActions(ctx, chromedp.WaitReady(xpath, chromedp.BySearch))
}

// Click clicks the element matching the XPath.
func (s *Session) Click(ctx context.Context, xpath string) error {
	return s.runActions(ctx, chromedp.Click(xpath, chromedp.BySearch))
}

// Focus focuses the element matching the XPath.
func (s *Session) Focus(ctx context.Context, xpath string) error {
	return s.runActions(ctx, chromedp.Focus(xpath, chromedp.BySearch))
}

// Text returns the visible text of the element matching the XPath.
func (s *Session) Text(ctx context.Context, xpath string) (string, error) {
	var text string
	if err := s.runActions(ctx, chromedp.Text(xpath, &text, chromedp.BySearch)); err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// SendKeys types text into the element matching the XPath.
func (s *Session) SendKeys(ctx context.Context, xpath, text string) error {
	return s.runActions(ctx, chromedp.SendKeys(xpath, text, chromedp.BySearch))
}

// PressEnter submits via an Enter keystroke on the element matching the XPath.
func (s *Session) PressEnter(ctx context.Context, xpath string) error {
	return s.runActions(ctx, chromedp.SendKeys(xpath, kb.Enter, chromedp.BySearch))
}

// SetUploadFiles hands the local paths to the file input matching the XPath
// in a single call.
func (s *Session) SetUploadFiles(ctx context.Context, xpath string, paths []string) error {
	return s.runActions(ctx, chromedp.SetUploadFiles(xpath, paths, chromedp.BySearch))
}

// Close tears the browser session down. Best effort: the browser process may
// already be gone when a liveness failure triggered the close.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.logger.Debug("Closing browser session.")
		if err := chromedp.Cancel(s.ctx); err != nil {
			s.logger.Debug("Graceful browser cancel failed.", zap.Error(err))
		}
		if s.cancel != nil {
			s.cancel()
		}
		if s.allocCancel != nil {
			s.allocCancel()
		}
	})
	return nil
}
