// Package janitor runs periodic sweep tasks in the background.
//
// Each task owns its own ticker, so a slow sweep of one store never delays
// another. Tasks never run concurrently with themselves.
package janitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Task is one periodic sweep.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (int, error)
	// Observe, when set, receives the outcome of every run.
	Observe func(name string, removed int, err error)
}

// Janitor owns the goroutines running its tasks.
type Janitor struct {
	tasks  []Task
	logger *slog.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

func New(logger *slog.Logger, tasks ...Task) (*Janitor, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	for _, task := range tasks {
		if task.Run == nil {
			return nil, errors.New("janitor task " + task.Name + " has no run function")
		}
		if task.Interval <= 0 {
			return nil, errors.New("janitor task " + task.Name + " interval must be > 0")
		}
	}
	return &Janitor{tasks: tasks, logger: logger}, nil
}

// Start launches one goroutine per task. Calling Start more than once is a no-op.
func (j *Janitor) Start() {
	if j == nil {
		return
	}
	j.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		j.cancel = cancel
		for _, task := range j.tasks {
			j.wg.Add(1)
			go j.loop(ctx, task)
		}
	})
}

// Stop cancels every task and waits for in-flight sweeps to return.
func (j *Janitor) Stop() {
	if j == nil {
		return
	}
	j.stopOnce.Do(func() {
		if j.cancel != nil {
			j.cancel()
		}
		j.wg.Wait()
	})
}

func (j *Janitor) loop(ctx context.Context, task Task) {
	defer j.wg.Done()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runOnce(ctx, task)
		}
	}
}

func (j *Janitor) runOnce(ctx context.Context, task Task) {
	removed, err := task.Run(ctx)
	if task.Observe != nil {
		task.Observe(task.Name, removed, err)
	}
	switch {
	case err != nil && errors.Is(err, context.Canceled):
	case err != nil:
		j.logger.Error("janitor sweep failed", "task", task.Name, "error", err)
	case removed > 0:
		j.logger.Debug("janitor sweep removed records", "task", task.Name, "removed", removed)
	}
}
