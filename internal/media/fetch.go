// File: internal/media/fetch.go

// Package media turns attachment sources into local temp files: multipart
// uploads are spooled to disk, remote links are downloaded with a bounded
// timeout, and Drive share links are rewritten to the direct-download form.
// Whoever triggers the creation of a temp file owns its removal via Cleanup.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"regexp"
	"time"

	"go.uber.org/zap"
)

var (
	drivePathID  = regexp.MustCompile(`/d/([a-zA-Z0-9_-]+)`)
	driveQueryID = regexp.MustCompile(`[?&]id=([a-zA-Z0-9_-]+)`)
)

// ExtractDriveID pulls the file ID out of a Google Drive share link, or
// returns "" when the URL does not match either share form.
func ExtractDriveID(link string) string {
	if m := drivePathID.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	if m := driveQueryID.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	return ""
}

// Fetcher downloads remote attachments and spools uploads to temp files.
type Fetcher struct {
	client *http.Client
	logger *zap.Logger
}

// NewFetcher builds a fetcher whose downloads are bounded by timeout.
func NewFetcher(timeout time.Duration, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		logger: logger.Named("media"),
	}
}

// FetchLink downloads one attachment link to a temp file and returns its
// path. Drive share links are rewritten to the uc?export=download endpoint
// first. An empty body or non-200 status is a failure.
func (f *Fetcher) FetchLink(ctx context.Context, link string) (string, error) {
	if link == "" {
		return "", fmt.Errorf("empty attachment link")
	}
	target := link
	if id := ExtractDriveID(link); id != "" {
		target = "https://drive.google.com/uc?export=download&id=" + id
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("building download request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading attachment: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading attachment: status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "attachment-*"+linkExtension(link))
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	n, err := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if err != nil || closeErr != nil || n == 0 {
		os.Remove(tmp.Name())
		if err != nil {
			return "", fmt.Errorf("writing attachment: %w", err)
		}
		if closeErr != nil {
			return "", fmt.Errorf("writing attachment: %w", closeErr)
		}
		return "", fmt.Errorf("downloaded attachment is empty")
	}
	f.logger.Debug("Attachment downloaded.",
		zap.String("url", link), zap.String("path", tmp.Name()), zap.Int64("bytes", n))
	return tmp.Name(), nil
}

// SaveUpload spools one uploaded part to a temp file, preserving the original
// filename's extension so the UI recognizes the media type.
func (f *Fetcher) SaveUpload(filename string, r io.Reader) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("upload has no filename")
	}
	tmp, err := os.CreateTemp("", "upload-*"+path.Ext(filename))
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("writing upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("writing upload: %w", err)
	}
	return tmp.Name(), nil
}

// Cleanup removes the given temp files, best effort.
func (f *Fetcher) Cleanup(paths []string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			f.logger.Debug("Temp file removal failed.",
				zap.String("path", p), zap.Error(err))
		}
	}
}

// linkExtension guesses a file extension from the link's URL path.
func linkExtension(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return path.Ext(u.Path)
}
