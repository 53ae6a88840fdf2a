package workers

import (
	"context"
	"log/slog"
)

// Task is one unit of fire-and-forget work (presence writes, delivered-at
// stamps). The enqueuing session never waits on it.
type Task struct {
	Name string
	Fn   func(ctx context.Context) error
}

// BackgroundWorker consumes the task queue under supervision. Task failures
// are logged and swallowed; they must never reach or crash a session.
type BackgroundWorker struct {
	log   *slog.Logger
	tasks chan Task
}

func NewBackgroundWorker(log *slog.Logger, bufferSize int) *BackgroundWorker {
	return &BackgroundWorker{log: log, tasks: make(chan Task, bufferSize)}
}

// Enqueue never blocks the caller. A full queue drops the task with a log
// line: losing a background update is acceptable, stalling a session is not.
func (w *BackgroundWorker) Enqueue(name string, fn func(ctx context.Context) error) {
	select {
	case w.tasks <- Task{Name: name, Fn: fn}:
	default:
		w.log.Warn("Background queue full, task dropped", "task", name)
	}
}

func (w *BackgroundWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return nil
		case task := <-w.tasks:
			w.execute(ctx, task)
		}
	}
}

// drain runs the tasks already queued at shutdown so accepted work is not
// lost silently. New enqueues may still race in; they are dropped with the
// channel once the process exits.
func (w *BackgroundWorker) drain() {
	for {
		select {
		case task := <-w.tasks:
			w.execute(context.Background(), task)
		default:
			return
		}
	}
}

func (w *BackgroundWorker) execute(ctx context.Context, task Task) {
	if err := task.Fn(ctx); err != nil {
		w.log.Warn("Background task failed", "task", task.Name, "error", err)
	}
}
