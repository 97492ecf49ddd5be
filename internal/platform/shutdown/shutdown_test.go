package shutdown

import (
	"context"
	"testing"
	"time"

	"github.com/SlpAus/omikuji-record-backend/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSnapshotter struct {
	calls int
}

func (f *fakeSnapshotter) Snapshot(ctx context.Context) (int, error) {
	f.calls++
	return 1, nil
}

func TestShutdown_StopsWorkersThenSnapshots(t *testing.T) {
	graceful := lifecycle.NewManager("graceful")
	forceful := lifecycle.NewManager("forceful")

	h, err := graceful.NewServiceHandle("worker")
	require.NoError(t, err)
	stopped := make(chan struct{})
	go func() {
		defer h.Close()
		<-h.Done()
		close(stopped)
	}()

	snap := &fakeSnapshotter{}
	NewCoordinator(graceful, forceful, snap).Shutdown(nil)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, 1, snap.calls)
}

func TestShutdown_WithoutSnapshot(t *testing.T) {
	c := NewCoordinator(lifecycle.NewManager("graceful"), lifecycle.NewManager("forceful"), nil)
	assert.NotPanics(t, func() { c.Shutdown(nil) })
}
