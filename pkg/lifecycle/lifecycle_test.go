package lifecycle_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JaimeStill/camxfer/pkg/lifecycle"
)

func TestNotReadyBeforeStartup(t *testing.T) {
	lc := lifecycle.New()
	if lc.Ready() {
		t.Error("should not be ready before WaitForStartup")
	}
}

func TestStartupHooksExecute(t *testing.T) {
	lc := lifecycle.New()

	var count atomic.Int32
	for range 3 {
		lc.OnStartup(func() error {
			count.Add(1)
			return nil
		})
	}

	if err := lc.WaitForStartup(); err != nil {
		t.Fatalf("startup: %v", err)
	}

	if got := count.Load(); got != 3 {
		t.Errorf("startup hooks: got %d, want 3", got)
	}
	if !lc.Ready() {
		t.Error("should be ready after successful startup")
	}
}

func TestStartupErrorsJoined(t *testing.T) {
	lc := lifecycle.New()
	errA := errors.New("source unreachable")
	errB := errors.New("journal unreachable")

	lc.OnStartup(func() error { return errA })
	lc.OnStartup(func() error { return errB })
	lc.OnStartup(func() error { return nil })

	err := lc.WaitForStartup()
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("startup error: got %v, want both hook errors", err)
	}
	if lc.Ready() {
		t.Error("should not be ready after failed startup")
	}
}

func TestShutdownHooksExecute(t *testing.T) {
	lc := lifecycle.New()

	var cleaned atomic.Bool
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		cleaned.Store(true)
	})

	if err := lc.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	if !cleaned.Load() {
		t.Error("shutdown hook did not execute")
	}
}

func TestShutdownTimeout(t *testing.T) {
	lc := lifecycle.New()

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		time.Sleep(500 * time.Millisecond)
	})

	if err := lc.Shutdown(50 * time.Millisecond); err == nil {
		t.Error("expected timeout error, got nil")
	}
}

func TestParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	lc := lifecycle.NewWithContext(parent)

	cancel()

	select {
	case <-lc.Context().Done():
	case <-time.After(time.Second):
		t.Error("context should be cancelled with its parent")
	}
}
