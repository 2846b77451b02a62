// Package host assembles the pieces of a driver host: the lifecycle context,
// the coordinator connection, the work queue with its control loop, and the
// optional monitoring and recording services.
package host

import (
	"sync"

	"github.com/hostlab/devhost/dev"
	"github.com/hostlab/devhost/hostrecording"
	"github.com/hostlab/devhost/monitoring"
)

// A Host owns a device tree and drains its deferred lifecycle work.
type Host struct {
	id string

	ctx         *dev.Context
	workQueue   *dev.WorkQueue
	coordinator dev.Coordinator

	monitor  *monitoring.Monitor
	recorder hostrecording.Recorder

	pauseLock     sync.Mutex
	singleRunLock sync.Mutex
	isPausedLock  sync.Mutex
	isPaused      bool

	stopOnce sync.Once
	stop     chan struct{}
}

// ID returns the unique identifier of the host.
func (h *Host) ID() string {
	return h.id
}

// Context returns the lifecycle context of the host.
func (h *Host) Context() *dev.Context {
	return h.ctx
}

// Coordinator returns the coordinator connection of the host.
func (h *Host) Coordinator() dev.Coordinator {
	return h.coordinator
}

// GetMonitor returns the monitor used by the host, nil if monitoring is
// disabled.
func (h *Host) GetMonitor() *monitoring.Monitor {
	return h.monitor
}

// GetRecorder returns the lifecycle recorder used by the host, nil if
// recording is disabled.
func (h *Host) GetRecorder() hostrecording.Recorder {
	return h.recorder
}

// Run drains deferred lifecycle work until Stop is called. It blocks the
// calling goroutine and runs every deferred callback on it, so callbacks
// never race each other.
func (h *Host) Run() error {
	h.singleRunLock.Lock()
	defer h.singleRunLock.Unlock()

	for {
		select {
		case <-h.stop:
			h.drain()
			return nil
		case <-h.workQueue.Signal():
		}

		h.pauseLock.Lock()
		h.workQueue.RunPending(0)
		h.pauseLock.Unlock()
	}
}

// RunUntilIdle drains deferred lifecycle work until the queue stays empty,
// then returns. It is meant for tests and batch-style hosts that do not run
// a long-lived control loop.
func (h *Host) RunUntilIdle() {
	h.pauseLock.Lock()
	defer h.pauseLock.Unlock()

	for h.workQueue.Len() > 0 {
		h.workQueue.RunPending(0)
	}
}

// SystemSuspend fans a system power state transition out to every device
// whose mapping covers state, children before parents. The per-device
// suspends complete on the control loop; done, if not nil, runs after the
// last of them with the first error observed. The monitor, when one is
// attached, shows the fan-out as a progress bar. It returns the number of
// devices targeted.
func (h *Host) SystemSuspend(state dev.SystemPowerStateID, done func(error)) int {
	targets := h.ctx.SystemPowerTargets(state)

	var bar *monitoring.ProgressBar
	if h.monitor != nil {
		bar = h.monitor.CreateProgressBar(
			"system suspend", uint64(len(targets)))
	}

	if len(targets) == 0 {
		if bar != nil {
			h.monitor.CompleteProgressBar(bar)
		}
		if done != nil {
			h.workQueue.Push(nil, func() { done(nil) })
		}
		return 0
	}

	var mu sync.Mutex
	var firstErr error
	remaining := len(targets)

	finishOne := func(err error) {
		if bar != nil {
			bar.MoveInProgressToFinished(1)
		}

		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		remaining--
		last := remaining == 0
		result := firstErr
		mu.Unlock()

		if !last {
			return
		}

		if bar != nil {
			h.monitor.CompleteProgressBar(bar)
		}
		if done != nil {
			done(result)
		}
	}

	for _, d := range targets {
		if bar != nil {
			bar.IncrementInProgress(1)
		}
		if err := h.ctx.DeviceSystemSuspend(d, state, finishOne); err != nil {
			finishOne(err)
		}
	}

	return len(targets)
}

// Pause prevents the control loop from running more deferred callbacks.
func (h *Host) Pause() {
	h.isPausedLock.Lock()
	defer h.isPausedLock.Unlock()

	if h.isPaused {
		return
	}

	h.pauseLock.Lock()
	h.isPaused = true
}

// Continue allows the control loop to run deferred callbacks again.
func (h *Host) Continue() {
	h.isPausedLock.Lock()
	defer h.isPausedLock.Unlock()

	if !h.isPaused {
		return
	}

	h.pauseLock.Unlock()
	h.isPaused = false
}

// Stop makes Run drain the remaining work and return.
func (h *Host) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}

// Terminate closes the services owned by the host.
func (h *Host) Terminate() {
	if h.recorder != nil {
		h.recorder.Close()
	}
}

func (h *Host) drain() {
	h.pauseLock.Lock()
	defer h.pauseLock.Unlock()

	for h.workQueue.Len() > 0 {
		h.workQueue.RunPending(0)
	}
}
