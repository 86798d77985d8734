package worker_test

import (
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/kiln/internal/adapters/worker"
)

func TestLifecycle_IdleShutdownAfterDelay(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		lc := worker.NewLifecycle(100 * time.Millisecond)

		select {
		case <-lc.ShutdownChan():
		case <-time.After(200 * time.Millisecond):
			t.Fatal("expected idle shutdown")
		}
		synctest.Wait()
	})
}

func TestLifecycle_ActivityPostponesShutdown(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		lc := worker.NewLifecycle(100 * time.Millisecond)

		time.Sleep(50 * time.Millisecond)
		lc.ResetTimer()

		select {
		case <-lc.ShutdownChan():
			t.Fatal("shutdown should have been postponed")
		case <-time.After(60 * time.Millisecond):
		}
		lc.Shutdown()
		synctest.Wait()
	})
}

func TestLifecycle_BusyWorkerDoesNotIdleOut(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		lc := worker.NewLifecycle(100 * time.Millisecond)

		lc.Begin()
		assert.Equal(t, 1, lc.Busy())
		lc.ResetTimer()

		select {
		case <-lc.ShutdownChan():
			t.Fatal("busy worker must not shut down")
		case <-time.After(time.Second):
		}
		assert.Equal(t, 100*time.Millisecond, lc.IdleRemaining())

		lc.End()
		assert.Equal(t, 0, lc.Busy())

		select {
		case <-lc.ShutdownChan():
		case <-time.After(200 * time.Millisecond):
			t.Fatal("expected idle shutdown after the compilation ended")
		}
		synctest.Wait()
	})
}

func TestLifecycle_IdleRemainingDecreases(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		lc := worker.NewLifecycle(100 * time.Millisecond)

		remaining := lc.IdleRemaining()
		assert.LessOrEqual(t, remaining, 100*time.Millisecond)

		time.Sleep(50 * time.Millisecond)
		assert.Less(t, lc.IdleRemaining(), remaining)

		time.Sleep(100 * time.Millisecond)
		assert.Equal(t, time.Duration(0), lc.IdleRemaining())
		synctest.Wait()
	})
}

func TestLifecycle_UptimeAndLastActivity(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		lc := worker.NewLifecycle(time.Hour)
		initial := lc.LastActivity()
		assert.False(t, initial.IsZero())

		time.Sleep(10 * time.Millisecond)
		lc.ResetTimer()

		assert.GreaterOrEqual(t, lc.Uptime(), 10*time.Millisecond)
		assert.True(t, lc.LastActivity().After(initial))
		lc.Shutdown()
		synctest.Wait()
	})
}

func TestLifecycle_ShutdownIsIdempotent(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		lc := worker.NewLifecycle(time.Hour)

		select {
		case <-lc.ShutdownChan():
			t.Fatal("should not have shut down yet")
		case <-time.After(10 * time.Millisecond):
		}

		lc.Shutdown()
		lc.Shutdown()

		select {
		case <-lc.ShutdownChan():
		case <-time.After(10 * time.Millisecond):
			t.Fatal("expected shutdown")
		}
		synctest.Wait()
	})
}
