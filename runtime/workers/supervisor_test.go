package workers

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// blockingWorker runs until its context is cancelled.
type blockingWorker struct {
	started chan struct{}
	once    sync.Once
}

func (w *blockingWorker) Run(ctx context.Context) error {
	w.once.Do(func() { close(w.started) })
	<-ctx.Done()
	return nil
}

func TestSupervisor_Stop_From_Another_Goroutine_Unblocks_Run(t *testing.T) {
	supervisor := NewSupervisor(slog.Default())
	worker := &blockingWorker{started: make(chan struct{})}

	done := make(chan struct{})
	go func() {
		supervisor.Add(worker).Run(context.Background())
		close(done)
	}()

	select {
	case <-worker.started:
	case <-time.After(time.Second):
		t.Fatal("worker never started")
	}

	supervisor.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestSupervisor_Stop_Before_Run_Is_A_No_Op(t *testing.T) {
	supervisor := NewSupervisor(slog.Default())
	supervisor.Stop()
}
