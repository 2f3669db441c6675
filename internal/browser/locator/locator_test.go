// File: internal/browser/locator/locator_test.go
package locator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeWaiter scripts which XPaths are considered present on the page and
// records the order in which they were tried.
type fakeWaiter struct {
	matching map[string]bool
	tried    []string
}

func (f *fakeWaiter) WaitFor(ctx context.Context, xpath string, mode Mode) error {
	f.tried = append(f.tried, xpath)
	if f.matching[xpath] {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestResolveReturnsFirstMatch(t *testing.T) {
	strategies := Strategies(TargetComposeBox)
	require.NotEmpty(t, strategies)

	w := &fakeWaiter{matching: map[string]bool{strategies[0].XPath: true}}
	r := NewResolver(w, zap.NewNop())

	st, err := r.Resolve(context.Background(), TargetComposeBox, Presence, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, strategies[0].Name, st.Name)
	assert.Equal(t, []string{strategies[0].XPath}, w.tried)
}

func TestResolveFallsThroughInOrder(t *testing.T) {
	strategies := Strategies(TargetSendButton)
	require.GreaterOrEqual(t, len(strategies), 3)

	w := &fakeWaiter{matching: map[string]bool{strategies[2].XPath: true}}
	r := NewResolver(w, zap.NewNop())

	st, err := r.Resolve(context.Background(), TargetSendButton, Interactable, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, strategies[2].Name, st.Name)
	assert.Equal(t, []string{strategies[0].XPath, strategies[1].XPath, strategies[2].XPath}, w.tried)
}

func TestResolveExhaustionReturnsNotFound(t *testing.T) {
	w := &fakeWaiter{}
	r := NewResolver(w, zap.NewNop())

	_, err := r.Resolve(context.Background(), TargetMediaPreview, Presence, 5*time.Millisecond)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, TargetMediaPreview, nf.Target)
	assert.Len(t, w.tried, len(Strategies(TargetMediaPreview)))
}

func TestResolveAbortsOnCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := &fakeWaiter{}
	r := NewResolver(w, zap.NewNop())

	_, err := r.Resolve(ctx, TargetSendButton, Presence, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, w.tried, 1, "no further strategies after the caller gave up")
}

func TestStrategyTableShape(t *testing.T) {
	targets := []Target{
		TargetAuthenticated, TargetComposeBox, TargetSendButton,
		TargetAttachButton, TargetFileInput, TargetCaptionBox, TargetMediaPreview,
	}
	seen := map[string]bool{}
	for _, target := range targets {
		strategies := Strategies(target)
		assert.NotEmpty(t, strategies, "target %s has no strategies", target)
		for _, st := range strategies {
			assert.NotEmpty(t, st.Name)
			assert.NotEmpty(t, st.XPath)
			key := string(target) + "/" + st.Name
			assert.False(t, seen[key], "duplicate strategy name %s", key)
			seen[key] = true
		}
	}
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "presence", Presence.String())
	assert.Equal(t, "interactable", Interactable.String())
}

func TestNotFoundErrorIsErrorsAsCompatible(t *testing.T) {
	err := error(&NotFoundError{Target: TargetComposeBox, Mode: Presence})
	wrapped := errors.Join(err, errors.New("other"))
	var nf *NotFoundError
	assert.True(t, errors.As(wrapped, &nf))
}
