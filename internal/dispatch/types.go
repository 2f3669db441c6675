// File: internal/dispatch/types.go
package dispatch

import "time"

// Status is the terminal outcome of one recipient message.
type Status string

const (
	StatusSent    Status = "sent"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// SendResult is produced exactly once per recipient message. RowIndex echoes
// the caller's correlation index and stays null when none was supplied.
type SendResult struct {
	RowIndex  *int   `json:"row_index"`
	Status    Status `json:"status,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode Code   `json:"error_code,omitempty"`
}

// SendRequest is one single-send invocation, pre-normalization.
type SendRequest struct {
	Phone       string
	Message     string
	Name        string
	CountryCode string
	FileLinks   []string
	RowIndex    *int
}

// BatchEntry is one recipient row in a batch request.
type BatchEntry struct {
	Phone       string
	Message     string
	Name        string
	CountryCode string
	FileLinks   []string
	RowIndex    *int
}

// BatchRequest is a batch-send invocation. A nil interval leaves the
// configured default in effect; supplied values are clamped before use.
type BatchRequest struct {
	Entries     []BatchEntry
	Message     string
	FileLinks   []string
	MinInterval *time.Duration
	MaxInterval *time.Duration
}
