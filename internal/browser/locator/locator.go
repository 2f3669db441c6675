// File: internal/browser/locator/locator.go

// Package locator resolves logical UI targets against the live page by trying
// an ordered list of locating strategies. The target web client renames
// attributes and restructures its DOM over time and across locales, so a
// single selector is brittle; resolution degrades through redundant
// strategies instead of failing outright.
package locator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Mode selects how strictly a strategy must match.
type Mode int

const (
	// Presence requires the element to exist in the document.
	Presence Mode = iota
	// Interactable requires the element to exist and accept a click or input.
	Interactable
)

func (m Mode) String() string {
	if m == Interactable {
		return "interactable"
	}
	return "presence"
}

// Target identifies a logical UI element the resolver can locate.
type Target string

const (
	TargetAuthenticated Target = "authenticated"
	TargetComposeBox    Target = "compose_box"
	TargetSendButton    Target = "send_button"
	TargetAttachButton  Target = "attach_button"
	TargetFileInput     Target = "file_input"
	TargetCaptionBox    Target = "caption_box"
	TargetMediaPreview  Target = "media_preview"
)

// Strategy is one named way of finding a target.
type Strategy struct {
	Name  string
	XPath string
}

// NotFoundError reports that every strategy for a target was exhausted.
type NotFoundError struct {
	Target Target
	Mode   Mode
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s strategy matched target %q", e.Mode, e.Target)
}

// Waiter is the page-side wait primitive the resolver is built on.
// Implementations block until the XPath matches in the requested mode or the
// context expires.
type Waiter interface {
	WaitFor(ctx context.Context, xpath string, mode Mode) error
}

// Resolver tries each registered strategy for a target in priority order.
type Resolver struct {
	waiter Waiter
	logger *zap.Logger
}

// NewResolver creates a Resolver over the given page waiter.
func NewResolver(waiter Waiter, logger *zap.Logger) *Resolver {
	return &Resolver{waiter: waiter, logger: logger}
}

// Resolve attempts each strategy registered for target, waiting up to timeout
// for each before moving to the next. It returns the first strategy that
// matched a live element, or a NotFoundError once all are exhausted.
func (r *Resolver) Resolve(ctx context.Context, target Target, mode Mode, timeout time.Duration) (Strategy, error) {
	for _, st := range Strategies(target) {
		waitCtx, cancel := context.WithTimeout(ctx, timeout)
		err := r.waiter.WaitFor(waitCtx, st.XPath, mode)
		cancel()
		if err == nil {
			r.logger.Debug("Target resolved.",
				zap.String("target", string(target)),
				zap.String("strategy", st.Name),
				zap.String("mode", mode.String()))
			return st, nil
		}
		// Abort immediately when the caller's context is gone; otherwise the
		// strategy simply timed out and the next one gets its turn.
		if ctx.Err() != nil {
			return Strategy{}, ctx.Err()
		}
		r.logger.Debug("Strategy exhausted, trying next.",
			zap.String("target", string(target)),
			zap.String("strategy", st.Name),
			zap.Error(err))
	}
	return Strategy{}, &NotFoundError{Target: target, Mode: mode}
}
