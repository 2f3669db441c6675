// File: internal/browser/manager.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/asolfandco/dispatcher/internal/config"
)

// ErrBrowserUnavailable signals that every browser acquisition path was
// exhausted. Callers are expected to surface the remediation guidance.
var ErrBrowserUnavailable = errors.New(
	"Chrome/Chromium not available. Install Google Chrome or Chromium on the server, " +
		"set browser.binary to an explicit executable, or make sure a compatible browser is on PATH. " +
		"If the browser exits right after starting, re-run with logger.level=debug and check the session log")

const teardownGracePeriod = 10 * time.Second

// Manager owns the single browser session. It enforces one live session per
// process, verifies liveness on every acquisition, and lazily recreates the
// session after a failed check.
type Manager struct {
	cfg    *config.Config
	logger *zap.Logger

	// gate serializes all browser activity system-wide; one profile can only
	// be in one navigation state at a time.
	gate sync.Mutex

	mu      sync.Mutex
	session *Session

	// Seams for tests; production uses the chromedp-backed defaults.
	create func(ctx context.Context) (*Session, error)
	probe  func(ctx context.Context, s *Session) error
}

// NewManager creates the session manager. No browser is launched until the
// first acquisition.
func NewManager(cfg *config.Config, logger *zap.Logger) *Manager {
	m := &Manager{
		cfg:    cfg,
		logger: logger.Named("session_manager"),
	}
	m.create = m.createSession
	m.probe = func(ctx context.Context, s *Session) error { return s.Probe(ctx) }
	return m
}

// Acquire returns a ready-to-use session. An existing session is
// liveness-checked first; on failure it is torn down (best effort) and a new
// one is created. Repeated calls while a session is live return the same
// session without side effects.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		probeCtx, cancel := context.WithTimeout(ctx, m.cfg.Browser.LivenessTimeout)
		err := m.probe(probeCtx, m.session)
		cancel()
		if err == nil {
			return m.session, nil
		}
		m.logger.Warn("Session liveness check failed, recreating.",
			zap.String("session_id", m.session.ID()), zap.Error(err))
		m.teardownLocked()
	}

	session, err := m.create(ctx)
	if err != nil {
		return nil, err
	}
	m.session = session
	m.logger.Info("Browser session created.",
		zap.String("session_id", session.ID()),
		zap.Bool("headless", session.Fingerprint().Headless),
		zap.String("profile_dir", session.Fingerprint().ProfileDir))
	return session, nil
}

// Exclusive runs fn with the live session while holding the process-wide
// session lock. All sends and batches go through here.
func (m *Manager) Exclusive(ctx context.Context, fn func(s *Session) error) error {
	m.gate.Lock()
	defer m.gate.Unlock()

	session, err := m.Acquire(ctx)
	if err != nil {
		return err
	}
	return fn(session)
}

// Reset discards the current session so the next acquisition starts fresh.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked()
}

// Shutdown closes the session on process exit.
func (m *Manager) Shutdown() {
	m.logger.Info("Shutting down session manager.")
	m.Reset()
}

func (m *Manager) teardownLocked() {
	if m.session == nil {
		return
	}
	closeCtx, cancel := context.WithTimeout(context.Background(), teardownGracePeriod)
	defer cancel()
	_ = m.session.Close(closeCtx)
	m.session = nil
}

// createSession launches the browser with the configured profile and flags
// and connects to it.
func (m *Manager) createSession(ctx context.Context) (*Session, error) {
	profileDir, err := m.cfg.Browser.ResolveProfileDir()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserUnavailable, err)
	}

	headless := m.cfg.Browser.HeadlessDecision()
	opts := m.allocatorOptions(profileDir, headless)

	// The allocator hangs off the background context: the session outlives
	// the request that triggered its creation.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	sugar := m.logger.Named("chromedp").Sugar()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Warnf),
	)

	startCtx, startCancel := context.WithTimeout(browserCtx, m.cfg.Browser.StartupTimeout)
	defer startCancel()
	if err := chromedp.Run(startCtx); err != nil {
		browserCancel()
		allocCancel()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrBrowserUnavailable, err)
	}

	fp := Fingerprint{
		ProfileDir: profileDir,
		Headless:   headless,
		UserAgent:  m.cfg.Browser.UserAgent,
	}
	return newSession(browserCtx, browserCancel, allocCancel, fp, m.logger), nil
}

// allocatorOptions mirrors the launch flag set the client has proven stable
// with, including automation-fingerprint suppression.
func (m *Manager) allocatorOptions(profileDir string, headless bool) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-software-rasterizer", true),
		chromedp.Flag("disable-features", "VizDisplayCompositor"),
		chromedp.Flag("remote-allow-origins", "*"),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1280, 900),
		chromedp.UserDataDir(profileDir),
	}
	if headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}
	if m.cfg.Browser.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(m.cfg.Browser.UserAgent))
	}
	if binary := locateBinary(m.cfg.Browser.Binary); binary != "" {
		opts = append(opts, chromedp.ExecPath(binary))
	}
	for _, raw := range m.cfg.Browser.ExtraFlags {
		if name, value, ok := parseExtraFlag(raw); ok {
			opts = append(opts, chromedp.Flag(name, value))
		}
	}
	return opts
}
