package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/harborline/freight-notifier/pkg/observability"
)

func testLogger() *observability.Logger {
	return observability.NewLogger("scheduler-test", "test", "error")
}

type recordingJob struct {
	name string
	log  *[]string
	mu   *sync.Mutex
	fn   func(ctx context.Context) error
}

func (j recordingJob) Name() string { return j.name }

func (j recordingJob) Run(ctx context.Context) error {
	j.mu.Lock()
	*j.log = append(*j.log, j.name)
	j.mu.Unlock()
	if j.fn != nil {
		return j.fn(ctx)
	}
	return nil
}

func TestRunAllPreservesRegistrationOrder(t *testing.T) {
	var (
		mu  sync.Mutex
		log []string
	)
	s := New(time.Hour, testLogger())
	for _, name := range []string{"reminders", "pending-si-report", "vessel-watch"} {
		s.Register(recordingJob{name: name, log: &log, mu: &mu})
	}

	s.runAll(context.Background())
	s.runAll(context.Background())

	want := []string{"reminders", "pending-si-report", "vessel-watch", "reminders", "pending-si-report", "vessel-watch"}
	if len(log) != len(want) {
		t.Fatalf("run log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("run log = %v, want %v", log, want)
		}
	}
}

func TestFailingJobDoesNotStopLaterJobs(t *testing.T) {
	var (
		mu  sync.Mutex
		log []string
	)
	s := New(time.Hour, testLogger())
	s.Register(recordingJob{name: "broken", log: &log, mu: &mu, fn: func(context.Context) error {
		return errors.New("smtp unreachable")
	}})
	s.Register(recordingJob{name: "after", log: &log, mu: &mu})

	s.runAll(context.Background())

	if len(log) != 2 || log[1] != "after" {
		t.Fatalf("run log = %v, want both jobs to run", log)
	}
}

func TestPanickingJobIsIsolated(t *testing.T) {
	var (
		mu  sync.Mutex
		log []string
	)
	s := New(time.Hour, testLogger())
	s.Register(recordingJob{name: "panics", log: &log, mu: &mu, fn: func(context.Context) error {
		panic("template blew up")
	}})
	s.Register(recordingJob{name: "after", log: &log, mu: &mu})

	s.runAll(context.Background())

	if len(log) != 2 || log[1] != "after" {
		t.Fatalf("run log = %v, want the panic contained to its job", log)
	}
}

func TestSafeRunReportsPanicAsError(t *testing.T) {
	s := New(time.Hour, testLogger())
	err := s.safeRun(context.Background(), JobFunc{JobName: "boom", Fn: func(context.Context) error {
		panic("nil deref")
	}})
	if err == nil {
		t.Fatal("expected an error from a panicking job")
	}
}

func TestStartStopsOnContextCancel(t *testing.T) {
	var (
		mu  sync.Mutex
		log []string
	)
	s := New(10 * time.Millisecond, testLogger())
	s.Register(recordingJob{name: "tick", log: &log, mu: &mu})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after context cancel")
	}

	mu.Lock()
	runs := len(log)
	mu.Unlock()
	if runs < 2 {
		t.Fatalf("expected the immediate run plus at least one ticked run, got %d", runs)
	}
}
