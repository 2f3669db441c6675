// File: internal/dispatch/errors.go
package dispatch

import "errors"

// Code identifies a known dispatch failure on the wire. The zero value means
// an uncategorized failure whose raw text is surfaced instead.
type Code string

const (
	CodePhoneMessageRequired Code = "error_phone_message_required"
	CodeNotAuthenticated     Code = "error_whatsapp_not_authenticated"
	CodeAttachFiles          Code = "error_attach_files"
	CodeSendAttachments      Code = "error_send_attachments"
	CodeSendMessage          Code = "error_send_message"
	CodeMessageRequired      Code = "error_message_required"
	CodeOpenFailed           Code = "error_whatsapp_open_failed"
)

// Error is a coded dispatch failure. Detail carries the human-readable text
// when one exists; otherwise the code itself is the message, matching the
// caller contract.
type Error struct {
	Code   Code
	Detail string
}

func (e *Error) Error() string {
	return e.Message()
}

// Message returns the wire-facing error text.
func (e *Error) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return string(e.Code)
}

// NewError builds a coded error with an optional detail message.
func NewError(code Code, detail string) *Error {
	return &Error{Code: code, Detail: detail}
}

// CodeOf extracts the dispatch code from err, if it carries one.
func CodeOf(err error) (Code, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Code, true
	}
	return "", false
}
