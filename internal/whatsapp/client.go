// File: internal/whatsapp/client.go

// Package whatsapp implements the UI interaction primitives against the
// WhatsApp Web client. The page is a single-page application that re-renders
// asynchronously after navigation and after each user action, so every
// primitive that touches a freshly rendered region tolerates transient
// absence with bounded retries.
package whatsapp

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/asolfandco/dispatcher/internal/browser/locator"
	"github.com/asolfandco/dispatcher/internal/config"
)

// Page is the minimal browser surface the client drives. The chromedp-backed
// browser session implements it; tests substitute a scripted fake.
type Page interface {
	locator.Waiter
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, xpath string) error
	Focus(ctx context.Context, xpath string) error
	Text(ctx context.Context, xpath string) (string, error)
	SendKeys(ctx context.Context, xpath, text string) error
	PressEnter(ctx context.Context, xpath string) error
	SetUploadFiles(ctx context.Context, xpath string, paths []string) error
}

const (
	// authProbeSlice bounds each per-strategy wait while polling for the
	// authenticated UI, so alternating probes stay within the login timeout.
	authProbeSlice = 2 * time.Second

	clickSendRounds  = 2
	clickSendBackoff = 500 * time.Millisecond

	attachRounds       = 3
	attachBackoff      = 1 * time.Second
	attachStepTimeout  = 12 * time.Second
	previewWaitTimeout = 20 * time.Second
	rawInputTimeout    = 3 * time.Second

	captionTimeout = 6 * time.Second
)

// Client composes the interaction primitives on top of the locator resolver.
type Client struct {
	page     Page
	resolver *locator.Resolver
	cfg      config.WhatsAppConfig
	logger   *zap.Logger
}

// NewClient builds a client bound to one live page.
func NewClient(page Page, cfg config.WhatsAppConfig, logger *zap.Logger) *Client {
	log := logger.Named("whatsapp")
	return &Client{
		page:     page,
		resolver: locator.NewResolver(page, log.Named("locator")),
		cfg:      cfg,
		logger:   log,
	}
}

// OpenHome navigates to the client's landing page.
func (c *Client) OpenHome(ctx context.Context) error {
	return c.page.Navigate(ctx, c.cfg.BaseURL)
}

// EnsureAuthenticated navigates to the landing page and waits, bounded by the
// login timeout, for either the conversation list or the search box to
// appear. A false result means the session is not logged in and the caller
// must not proceed to send.
func (c *Client) EnsureAuthenticated(ctx context.Context) (bool, error) {
	if err := c.OpenHome(ctx); err != nil {
		return false, fmt.Errorf("opening landing page: %w", err)
	}

	deadline := time.Now().Add(c.cfg.LoginTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			c.logger.Warn("Authenticated UI did not appear within the login timeout.")
			return false, nil
		}
		slice := authProbeSlice
		if slice > remaining {
			slice = remaining
		}
		if _, err := c.resolver.Resolve(ctx, locator.TargetAuthenticated, locator.Presence, slice); err == nil {
			return true, nil
		} else if ctx.Err() != nil {
			return false, ctx.Err()
		}
	}
}

// OpenChatFor navigates to the deep link for the destination phone with the
// message body pre-filled.
func (c *Client) OpenChatFor(ctx context.Context, phone, text string) error {
	deepLink := fmt.Sprintf("%s/send?phone=%s&text=%s&app_absent=0",
		c.cfg.BaseURL, url.QueryEscape(phone), url.QueryEscape(text))
	return c.page.Navigate(ctx, deepLink)
}

// WaitForComposeBox resolves the message-compose field and returns its XPath
// handle. Resolution failure is fatal for the current send.
func (c *Client) WaitForComposeBox(ctx context.Context, timeout time.Duration) (string, error) {
	st, err := c.resolver.Resolve(ctx, locator.TargetComposeBox, locator.Presence, timeout)
	if err != nil {
		return "", err
	}
	// Focus the chat by clicking the box; the click itself is best effort.
	if err := c.page.Click(ctx, st.XPath); err != nil {
		c.logger.Debug("Compose box click failed.", zap.Error(err))
	}
	return st.XPath, nil
}

// ClickSend resolves the send control as interactable and clicks it. The
// control can be transiently absent right after navigation, so two rounds are
// attempted with a short backoff in between.
func (c *Client) ClickSend(ctx context.Context, timeout time.Duration) bool {
	for round := 0; round < clickSendRounds; round++ {
		st, err := c.resolver.Resolve(ctx, locator.TargetSendButton, locator.Interactable, timeout)
		if err == nil {
			clickErr := c.page.Click(ctx, st.XPath)
			if clickErr == nil {
				return true
			}
			c.logger.Debug("Send control click failed.", zap.Error(clickErr))
		}
		if !sleepCtx(ctx, clickSendBackoff) {
			return false
		}
	}
	return false
}

// AttachFiles opens the attach control, submits all paths to the file input
// in one call, and confirms via the media preview or the send control
// reappearing. Up to three rounds; false when all fail.
func (c *Client) AttachFiles(ctx context.Context, paths []string) bool {
	if len(paths) == 0 {
		return false
	}
	for round := 0; round < attachRounds; round++ {
		if round > 0 && !sleepCtx(ctx, attachBackoff) {
			return false
		}

		attach, err := c.resolver.Resolve(ctx, locator.TargetAttachButton, locator.Interactable, attachStepTimeout)
		if err != nil {
			continue
		}
		if err := c.page.Click(ctx, attach.XPath); err != nil {
			c.logger.Debug("Attach control click failed.", zap.Error(err))
			if !sleepCtx(ctx, clickSendBackoff) {
				return false
			}
		}

		inputXPath := ""
		if st, err := c.resolver.Resolve(ctx, locator.TargetFileInput, locator.Presence, attachStepTimeout); err == nil {
			inputXPath = st.XPath
		} else {
			// Raw scan fallback: any file input that exists in the document.
			rawCtx, cancel := context.WithTimeout(ctx, rawInputTimeout)
			rawErr := c.page.WaitFor(rawCtx, locator.RawFileInputXPath, locator.Presence)
			cancel()
			if rawErr == nil {
				inputXPath = locator.RawFileInputXPath
			}
		}
		if inputXPath == "" {
			continue
		}

		if err := c.page.SetUploadFiles(ctx, inputXPath, paths); err != nil {
			c.logger.Debug("File upload submission failed.", zap.Error(err))
			continue
		}

		if _, err := c.resolver.Resolve(ctx, locator.TargetMediaPreview, locator.Presence, previewWaitTimeout); err == nil {
			return true
		}
		if _, err := c.resolver.Resolve(ctx, locator.TargetSendButton, locator.Interactable, c.cfg.SendTimeout); err == nil {
			return true
		}
	}
	return false
}

// SetCaption types the message into the media caption field when one exists
// for this attachment type. A false result is non-fatal.
func (c *Client) SetCaption(ctx context.Context, message string) bool {
	if message == "" {
		return false
	}
	st, err := c.resolver.Resolve(ctx, locator.TargetCaptionBox, locator.Interactable, captionTimeout)
	if err != nil {
		return false
	}
	if err := c.page.Click(ctx, st.XPath); err != nil {
		return false
	}
	if err := c.page.SendKeys(ctx, st.XPath, message); err != nil {
		return false
	}
	return true
}

// ConfirmMessageSent defensively re-asserts the outgoing message: focus the
// compose field, type the message if the field is still empty, then click
// send, falling back to an Enter keystroke. False only when both the click
// and the fallback fail.
func (c *Client) ConfirmMessageSent(ctx context.Context, composeXPath, message string) bool {
	if message == "" {
		return true
	}
	if err := c.page.Focus(ctx, composeXPath); err != nil {
		c.logger.Debug("Compose focus failed.", zap.Error(err))
	}
	existing, err := c.page.Text(ctx, composeXPath)
	if err != nil {
		existing = ""
	}
	if existing == "" {
		if err := c.page.SendKeys(ctx, composeXPath, message); err != nil {
			c.logger.Debug("Typing message into compose box failed.", zap.Error(err))
		}
	}
	if c.ClickSend(ctx, c.cfg.SendTimeout) {
		return true
	}
	return c.page.PressEnter(ctx, composeXPath) == nil
}

// sleepCtx pauses for d, returning false when ctx expires first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
