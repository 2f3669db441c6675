// File: internal/dispatch/dispatcher.go

// Package dispatch owns the send pipeline: template rendering, phone
// normalization, the single-send orchestration, and the paced batch loop.
// All browser work runs through the Runner's exclusive section, so only one
// send is in flight at any time.
package dispatch

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/asolfandco/dispatcher/internal/config"
)

const notAuthenticatedDetail = "WhatsApp session is not authenticated. Open WhatsApp Web on the server and scan the QR code."

// settleDelay is the short pause after a send action before trusting the UI
// state it produced.
const settleDelay = 200 * time.Millisecond

// Dispatcher orchestrates single and batch sends against a Messenger.
type Dispatcher struct {
	cfg     config.DispatchConfig
	wa      config.WhatsAppConfig
	runner  Runner
	fetcher AttachmentFetcher
	logger  *zap.Logger

	// Seams for deterministic tests.
	sleep     func(ctx context.Context, d time.Duration) bool
	randFloat func() float64
}

// NewDispatcher wires a dispatcher with real pacing and randomness.
func NewDispatcher(cfg config.DispatchConfig, wa config.WhatsAppConfig, runner Runner, fetcher AttachmentFetcher, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:       cfg,
		wa:        wa,
		runner:    runner,
		fetcher:   fetcher,
		logger:    logger.Named("dispatch"),
		sleep:     sleepCtx,
		randFloat: rand.Float64,
	}
}

// Send delivers one message. uploads are caller-owned local attachment paths;
// remote links are fetched only when no uploads were provided. The result is
// always well formed; business failures land in its error fields rather than
// an error return.
func (d *Dispatcher) Send(ctx context.Context, req SendRequest, uploads []string) SendResult {
	result := SendResult{RowIndex: req.RowIndex}

	message := Render(req.Message, req.Name)
	if req.Phone == "" || message == "" {
		result.Status = StatusError
		result.Error = "Phone and message required"
		result.ErrorCode = CodePhoneMessageRequired
		return result
	}
	phone := NormalizePhone(req.Phone, req.CountryCode, d.cfg.DefaultCountryCode)

	err := d.runner.Exclusive(ctx, func(m Messenger) error {
		ok, authErr := m.EnsureAuthenticated(ctx)
		if authErr != nil {
			return authErr
		}
		if !ok {
			return NewError(CodeNotAuthenticated, notAuthenticatedDetail)
		}
		return d.deliver(ctx, m, phone, message, uploads, req.FileLinks)
	})
	if err != nil {
		result.Status = StatusError
		if code, ok := CodeOf(err); ok {
			result.ErrorCode = code
		}
		result.Error = err.Error()
		d.logger.Warn("Send failed.",
			zap.String("phone", phone), zap.Error(err))
		return result
	}

	result.Status = StatusSent
	return result
}

// deliver runs the in-chat send sequence. local paths win over links; links
// are fetched here only when local is empty, and anything fetched here is
// removed before returning.
func (d *Dispatcher) deliver(ctx context.Context, m Messenger, phone, message string, local, links []string) error {
	if err := m.OpenChatFor(ctx, phone, message); err != nil {
		return err
	}
	composeXPath, err := m.WaitForComposeBox(ctx, d.wa.ComposeTimeout)
	if err != nil {
		return err
	}

	paths := append([]string(nil), local...)
	var fetched []string
	if len(links) > 0 && len(paths) == 0 {
		for _, link := range links {
			path, fetchErr := d.fetcher.FetchLink(ctx, link)
			if fetchErr != nil {
				d.logger.Warn("Attachment link skipped.",
					zap.String("url", link), zap.Error(fetchErr))
				continue
			}
			paths = append(paths, path)
			fetched = append(fetched, path)
		}
		defer d.fetcher.Cleanup(fetched)
	}

	if len(paths) > 0 {
		if !m.AttachFiles(ctx, paths) {
			return NewError(CodeAttachFiles, "")
		}
		captionSet := m.SetCaption(ctx, message)
		if !m.ClickSend(ctx, d.wa.AttachSendTimeout) {
			return NewError(CodeSendAttachments, "")
		}
		d.sleep(ctx, settleDelay)
		if !captionSet {
			// The caption box never took the text, so the message still has
			// to go out through the compose field.
			composeXPath, err = m.WaitForComposeBox(ctx, d.wa.SendTimeout)
			if err != nil {
				return NewError(CodeSendMessage, "")
			}
			if !m.ConfirmMessageSent(ctx, composeXPath, message) {
				return NewError(CodeSendMessage, "")
			}
		}
	} else {
		if !m.ConfirmMessageSent(ctx, composeXPath, message) {
			return NewError(CodeSendMessage, "")
		}
	}
	d.sleep(ctx, settleDelay)
	return nil
}

// SendAll delivers a batch under one exclusive session hold. The returned
// error is batch-level only (authentication, missing message, session
// acquisition); per-entry failures are isolated into their results. Results
// are ordered one per entry; entries with no phone or no resolved message are
// skipped without pacing.
func (d *Dispatcher) SendAll(ctx context.Context, req BatchRequest, uploads []string) ([]SendResult, error) {
	minInterval, maxInterval := d.resolveIntervals(req.MinInterval, req.MaxInterval)

	var results []SendResult
	err := d.runner.Exclusive(ctx, func(m Messenger) error {
		ok, authErr := m.EnsureAuthenticated(ctx)
		if authErr != nil {
			return authErr
		}
		if !ok {
			return NewError(CodeNotAuthenticated, notAuthenticatedDetail)
		}

		if req.Message == "" && !anyEntryMessage(req.Entries) {
			return NewError(CodeMessageRequired, "Message required")
		}

		shared := append([]string(nil), uploads...)
		var fetchedShared []string
		if len(req.FileLinks) > 0 && len(shared) == 0 {
			for _, link := range req.FileLinks {
				path, fetchErr := d.fetcher.FetchLink(ctx, link)
				if fetchErr != nil {
					d.logger.Warn("Shared attachment link skipped.",
						zap.String("url", link), zap.Error(fetchErr))
					continue
				}
				shared = append(shared, path)
				fetchedShared = append(fetchedShared, path)
			}
		}
		defer d.fetcher.Cleanup(fetchedShared)

		for _, entry := range req.Entries {
			template := req.Message
			if template == "" {
				template = entry.Message
			}
			message := Render(template, entry.Name)
			links := req.FileLinks
			if len(links) == 0 {
				links = entry.FileLinks
			}

			if entry.Phone == "" || message == "" {
				results = append(results, SendResult{RowIndex: entry.RowIndex, Status: StatusSkipped})
				continue
			}
			phone := NormalizePhone(entry.Phone, entry.CountryCode, d.cfg.DefaultCountryCode)

			if sendErr := d.deliver(ctx, m, phone, message, shared, links); sendErr != nil {
				result := SendResult{RowIndex: entry.RowIndex, Status: StatusError, Error: sendErr.Error()}
				if code, ok := CodeOf(sendErr); ok {
					result.ErrorCode = code
				}
				results = append(results, result)
				d.logger.Warn("Batch entry failed.",
					zap.String("phone", phone), zap.Error(sendErr))
			} else {
				results = append(results, SendResult{RowIndex: entry.RowIndex, Status: StatusSent})
			}

			interval := uniformInterval(minInterval, maxInterval, d.randFloat())
			if !d.sleep(ctx, interval) {
				return ctx.Err()
			}
		}
		return nil
	})
	if err != nil {
		return results, err
	}
	return results, nil
}

// Open navigates the session to the landing page. On failure the session is
// torn down and the navigation retried once against a fresh one.
func (d *Dispatcher) Open(ctx context.Context) error {
	open := func() error {
		return d.runner.Exclusive(ctx, func(m Messenger) error {
			return m.OpenHome(ctx)
		})
	}
	if err := open(); err != nil {
		d.logger.Warn("Opening the session failed, recreating it.", zap.Error(err))
		d.runner.Reset()
		if err := open(); err != nil {
			return NewError(CodeOpenFailed, "Could not open WhatsApp session")
		}
	}
	return nil
}

// resolveIntervals applies defaults for absent bounds and clamps the pair:
// an inverted range collapses to [min,min], then both ends are floored.
func (d *Dispatcher) resolveIntervals(minReq, maxReq *time.Duration) (time.Duration, time.Duration) {
	minInterval := d.cfg.MinInterval
	maxInterval := d.cfg.MaxInterval
	if minReq != nil {
		minInterval = *minReq
	}
	if maxReq != nil {
		maxInterval = *maxReq
	}
	return clampIntervals(minInterval, maxInterval, d.cfg.IntervalFloor)
}

func clampIntervals(minInterval, maxInterval, floor time.Duration) (time.Duration, time.Duration) {
	if maxInterval < minInterval {
		maxInterval = minInterval
	}
	if minInterval < floor {
		minInterval = floor
	}
	if maxInterval < floor {
		maxInterval = floor
	}
	return minInterval, maxInterval
}

// uniformInterval maps a [0,1) sample onto [minInterval, maxInterval].
func uniformInterval(minInterval, maxInterval time.Duration, sample float64) time.Duration {
	if maxInterval <= minInterval {
		return minInterval
	}
	return minInterval + time.Duration(sample*float64(maxInterval-minInterval))
}

func anyEntryMessage(entries []BatchEntry) bool {
	for _, e := range entries {
		if e.Message != "" {
			return true
		}
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
