// File: internal/browser/context.go
package browser

import "context"

// CombineContext creates a new context that is canceled when either parentCtx
// or secondaryCtx is canceled. Browser operations must respect both the
// session lifecycle and the per-request deadline.
func CombineContext(parentCtx, secondaryCtx context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(parentCtx)

	go func() {
		select {
		case <-secondaryCtx.Done():
			cancel()
		case <-combinedCtx.Done():
			// Already canceled (likely from the parent), nothing to do.
		}
	}()

	return combinedCtx, cancel
}
