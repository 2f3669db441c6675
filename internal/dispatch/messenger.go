// File: internal/dispatch/messenger.go
package dispatch

import (
	"context"
	"time"
)

// Messenger is the interaction surface the dispatcher drives. The whatsapp
// client implements it against a live browser session; tests script a fake.
type Messenger interface {
	EnsureAuthenticated(ctx context.Context) (bool, error)
	OpenHome(ctx context.Context) error
	OpenChatFor(ctx context.Context, phone, text string) error
	WaitForComposeBox(ctx context.Context, timeout time.Duration) (string, error)
	ClickSend(ctx context.Context, timeout time.Duration) bool
	AttachFiles(ctx context.Context, paths []string) bool
	SetCaption(ctx context.Context, message string) bool
	ConfirmMessageSent(ctx context.Context, composeXPath, message string) bool
}

// Runner grants exclusive access to a messenger bound to the live browser
// session. Exclusive holds the process-wide session lock for the duration of
// fn; Reset tears the session down so the next call recreates it.
type Runner interface {
	Exclusive(ctx context.Context, fn func(Messenger) error) error
	Reset()
}

// AttachmentFetcher resolves remote links to local temp files and owns their
// removal.
type AttachmentFetcher interface {
	FetchLink(ctx context.Context, url string) (string, error)
	Cleanup(paths []string)
}
