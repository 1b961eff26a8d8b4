package service

import (
	"context"
	"sync"
)

// runningGuard keeps at most one attempt per run ID in flight, and lets
// shutdown wait for attempts that are still running.
type runningGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

// TryLock marks runID as in flight. It returns false when the run is
// already executing; the caller must not proceed.
func (g *runningGuard) TryLock(runID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	if _, ok := g.running[runID]; ok {
		return false
	}
	g.running[runID] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock releases runID. Call only after a successful TryLock.
func (g *runningGuard) Unlock(runID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, runID)
	g.wg.Done()
}

// WaitAll blocks until every in-flight attempt finishes or ctx fires.
func (g *runningGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
