package monitoring

import (
	"sync"
	"time"
)

// A ProgressBar tracks one lifecycle fan-out, such as a tree-wide suspend,
// as its per-device operations start and complete. The dashboard polls the
// bars through the progress API.
type ProgressBar struct {
	sync.Mutex
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

// IncrementInProgress records that amount more operations of the fan-out
// have been issued to devices.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress += amount
}

// IncrementFinished records amount operations that completed without going
// through the in-progress state, such as devices skipped by the fan-out.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished += amount
}

// MoveInProgressToFinished records that amount issued operations have
// completed.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress -= amount
	b.Finished += amount
}
