package janitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestJanitorRunsTasksUntilStopped(t *testing.T) {
	var entries, attempts atomic.Int64

	j, err := New(nil,
		Task{Name: "entries", Interval: 5 * time.Millisecond, Run: func(context.Context) (int, error) {
			entries.Add(1)
			return 1, nil
		}},
		Task{Name: "attempts", Interval: 7 * time.Millisecond, Run: func(context.Context) (int, error) {
			attempts.Add(1)
			return 0, nil
		}},
	)
	if err != nil {
		t.Fatalf("new janitor: %v", err)
	}

	j.Start()
	j.Start()

	deadline := time.Now().Add(2 * time.Second)
	for (entries.Load() < 2 || attempts.Load() < 2) && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	j.Stop()
	j.Stop()

	if entries.Load() < 2 || attempts.Load() < 2 {
		t.Fatalf("expected both tasks to run repeatedly, got entries=%d attempts=%d", entries.Load(), attempts.Load())
	}

	after := entries.Load()
	time.Sleep(20 * time.Millisecond)
	if entries.Load() != after {
		t.Fatal("task kept running after Stop")
	}
}

func TestJanitorObserveReceivesErrors(t *testing.T) {
	boom := errors.New("boom")
	observed := make(chan error, 8)

	j, err := New(nil, Task{
		Name:     "entries",
		Interval: 5 * time.Millisecond,
		Run:      func(context.Context) (int, error) { return 0, boom },
		Observe: func(_ string, _ int, err error) {
			select {
			case observed <- err:
			default:
			}
		},
	})
	if err != nil {
		t.Fatalf("new janitor: %v", err)
	}
	j.Start()
	defer j.Stop()

	select {
	case got := <-observed:
		if !errors.Is(got, boom) {
			t.Fatalf("expected boom, got %v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("observe was never called")
	}
}

func TestJanitorRejectsInvalidTasks(t *testing.T) {
	if _, err := New(nil, Task{Name: "x", Interval: time.Second}); err == nil {
		t.Fatal("expected error for missing run function")
	}
	if _, err := New(nil, Task{Name: "x", Run: func(context.Context) (int, error) { return 0, nil }}); err == nil {
		t.Fatal("expected error for zero interval")
	}
}

func TestNilJanitorIsSafe(t *testing.T) {
	var j *Janitor
	j.Start()
	j.Stop()
}
