// File: internal/api/payload.go
package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/asolfandco/dispatcher/internal/dispatch"
)

// sendPayload is the /send request body. Attachment links come as either a
// single fileLink or a fileLinks list.
type sendPayload struct {
	Phone       string   `json:"phone"`
	Message     string   `json:"message"`
	Name        string   `json:"name"`
	CountryCode string   `json:"country_code"`
	FileLink    string   `json:"fileLink"`
	FileLinks   []string `json:"fileLinks"`
	RowIndex    *int     `json:"row_index"`
}

func (p *sendPayload) fileLinkList() []string {
	return normalizeFileLinks(p.FileLinks, p.FileLink)
}

// entryPayload is one recipient row inside a /send_all body.
type entryPayload struct {
	Phone       string   `json:"phone"`
	Message     string   `json:"message"`
	Name        string   `json:"name"`
	CountryCode string   `json:"country_code"`
	FileLink    string   `json:"fileLink"`
	FileLinks   []string `json:"fileLinks"`
	RowIndex    *int     `json:"row_index"`
}

// batchPayload is the /send_all request body. The recipient list may arrive
// under either key; contacts wins when both are present. Intervals are
// seconds and tolerate numeric strings; anything unparsable falls back to
// the configured default.
type batchPayload struct {
	Contacts    []entryPayload  `json:"contacts"`
	Messages    []entryPayload  `json:"messages"`
	Message     string          `json:"message"`
	MinInterval json.RawMessage `json:"min_interval"`
	MaxInterval json.RawMessage `json:"max_interval"`
	FileLink    string          `json:"fileLink"`
	FileLinks   []string        `json:"fileLinks"`
}

func (p *batchPayload) fileLinkList() []string {
	return normalizeFileLinks(p.FileLinks, p.FileLink)
}

func normalizeFileLinks(links []string, single string) []string {
	if links != nil {
		out := make([]string, 0, len(links))
		for _, l := range links {
			if l != "" {
				out = append(out, l)
			}
		}
		return out
	}
	if single != "" {
		return []string{single}
	}
	return nil
}

func toBatchEntries(entries []entryPayload) []dispatch.BatchEntry {
	out := make([]dispatch.BatchEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, dispatch.BatchEntry{
			Phone:       e.Phone,
			Message:     e.Message,
			Name:        e.Name,
			CountryCode: e.CountryCode,
			FileLinks:   normalizeFileLinks(e.FileLinks, e.FileLink),
			RowIndex:    e.RowIndex,
		})
	}
	return out
}

// parseSeconds accepts a JSON number or a numeric string; nil means absent
// or unparsable.
func parseSeconds(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return &n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, convErr := strconv.ParseFloat(s, 64); convErr == nil {
			return &v
		}
	}
	return nil
}

func secondsToDuration(raw json.RawMessage) *time.Duration {
	secs := parseSeconds(raw)
	if secs == nil {
		return nil
	}
	d := time.Duration(*secs * float64(time.Second))
	return &d
}

func summaryLine(count int) string {
	return fmt.Sprintf("Sent %d messages with random intervals", count)
}
