// File: internal/browser/binary.go
package browser

import (
	"os/exec"
	"strings"
)

// browserCandidates are probed on PATH, in order, when no explicit binary is
// configured.
var browserCandidates = []string{"google-chrome", "chromium", "chromium-browser"}

// locateBinary resolves the browser executable to launch. An explicit
// override wins; otherwise the first candidate found on PATH is used. An
// empty result defers resolution to the allocator's own default lookup.
func locateBinary(override string) string {
	if override != "" {
		return override
	}
	for _, candidate := range browserCandidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path
		}
	}
	return ""
}

// parseExtraFlag splits a raw "--name=value" (or "--name") launch flag into
// its name and value parts. Flags without a value are treated as boolean
// switches.
func parseExtraFlag(raw string) (name string, value any, ok bool) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "--")
	if raw == "" {
		return "", nil, false
	}
	if idx := strings.IndexByte(raw, '='); idx >= 0 {
		return raw[:idx], raw[idx+1:], true
	}
	return raw, true, true
}
