package bridge

import (
	"context"
	"os/exec"
	"sync"

	"github.com/google/uuid"
)

// Local dispatches jobscripts by executing them directly with
// os/exec, honoring hold dependencies by waiting for them to finish
// first (no external scheduler needed — suitable for a single
// workstation or a shared node without a batch scheduler).
type Local struct {
	shell string

	mu      sync.Mutex
	done    map[Handle]chan struct{}
	cancels map[Handle]context.CancelFunc
}

// NewLocal constructs a Local bridge. shell defaults to "sh" if empty.
func NewLocal(shell string) *Local {
	if shell == "" {
		shell = "sh"
	}
	return &Local{
		shell:   shell,
		done:    make(map[Handle]chan struct{}),
		cancels: make(map[Handle]context.CancelFunc),
	}
}

// Dispatch runs scriptText via "<shell> -c", after waiting for every
// handle in holdOn to complete.
func (l *Local) Dispatch(ctx context.Context, scriptText string, holdOn []Handle) (Handle, error) {
	for _, h := range holdOn {
		l.mu.Lock()
		done, ok := l.done[h]
		l.mu.Unlock()
		if ok {
			select {
			case <-done:
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	h := Handle(uuid.NewString())
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	l.mu.Lock()
	l.done[h] = done
	l.cancels[h] = cancel
	l.mu.Unlock()

	go func() {
		defer close(done)
		cmd := exec.CommandContext(runCtx, l.shell, "-c", scriptText)
		_ = cmd.Run() // exit status is discarded; neither this bridge nor write_cmd records it
	}()

	return h, nil
}

// Cancel cancels a running local dispatch. Idempotent: an unknown or
// already-finished handle is not an error.
func (l *Local) Cancel(ctx context.Context, h Handle) error {
	l.mu.Lock()
	cancel, ok := l.cancels[h]
	l.mu.Unlock()
	if !ok {
		return nil
	}
	cancel()
	return nil
}

var _ Bridge = (*Local)(nil)
