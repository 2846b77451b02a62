// Package coordinator provides an in-process implementation of the
// coordinator channel the lifecycle engine consumes. It assigns local ids
// and echoes scheduled removal and unbind requests back into the host
// through the work queue, the way the external coordinator process would
// over its channel.
package coordinator

import (
	"fmt"
	"log"
	"sync"

	"github.com/hostlab/devhost/dev"
)

// A Loopback is an in-process Coordinator. It backs the demo host and the
// tests; a real deployment replaces it with a channel client.
//
// Closing a Loopback makes every subsequent call fail with ErrIoRefused,
// simulating a terminated coordinator process.
type Loopback struct {
	mu sync.Mutex

	ctx *dev.Context

	nextID   uint64
	closed   bool
	bound    []uint64
	removed  []uint64
	metadata map[uint64]map[uint32][]byte
}

// NewLoopback creates a Loopback. Attach must be called before the loopback
// can echo requests back into a host.
func NewLoopback() *Loopback {
	lb := new(Loopback)
	lb.nextID = dev.RootLocalID
	lb.metadata = make(map[uint64]map[uint32][]byte)
	return lb
}

// Attach connects the loopback to the context it coordinates.
func (lb *Loopback) Attach(ctx *dev.Context) {
	lb.mu.Lock()
	lb.ctx = ctx
	lb.mu.Unlock()
}

// Close simulates the coordinator process terminating.
func (lb *Loopback) Close() {
	lb.mu.Lock()
	lb.closed = true
	lb.mu.Unlock()
}

// AddDevice assigns the next local id.
func (lb *Loopback) AddDevice(
	parentID uint64,
	name string,
	driver string,
	props []dev.Property,
	proxyArgs string,
) (uint64, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if lb.closed {
		return 0, dev.ErrIoRefused
	}

	lb.nextID++

	return lb.nextID, nil
}

// ScheduleRemove echoes the removal back into the host: an unbind first if
// requested, the terminal removal otherwise.
func (lb *Loopback) ScheduleRemove(localID uint64, unbindSelf bool) error {
	ctx, err := lb.live()
	if err != nil {
		return err
	}

	d, ok := ctx.Registry().Find(localID)
	if !ok {
		return fmt.Errorf("%w: no device with local id %d",
			dev.ErrNotFound, localID)
	}

	if unbindSelf {
		ctx.WorkQueue().Push(d, func() {
			_ = ctx.DeviceUnbind(d)
		})
		return nil
	}

	ctx.WorkQueue().Push(d, func() {
		if err := ctx.DeviceCompleteRemoval(d); err != nil {
			log.Printf("completing removal of %s: %v", d.Name(), err)
		}
	})

	return nil
}

// ScheduleUnbindChildren echoes the unbind of every child back into the
// host.
func (lb *Loopback) ScheduleUnbindChildren(localID uint64) error {
	ctx, err := lb.live()
	if err != nil {
		return err
	}

	d, ok := ctx.Registry().Find(localID)
	if !ok {
		return fmt.Errorf("%w: no device with local id %d",
			dev.ErrNotFound, localID)
	}

	ctx.WorkQueue().Push(d, func() {
		_ = ctx.UnbindChildren(d, nil)
	})

	return nil
}

// RemoveDone records the completed removal.
func (lb *Loopback) RemoveDone(localID uint64) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if lb.closed {
		return dev.ErrIoRefused
	}

	lb.removed = append(lb.removed, localID)

	return nil
}

// BindDevice records the bind request. The loopback loads no drivers, so the
// request is acknowledged without further effect.
func (lb *Loopback) BindDevice(localID uint64) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if lb.closed {
		return dev.ErrIoRefused
	}

	lb.bound = append(lb.bound, localID)

	return nil
}

// AddMetadata publishes a metadata blob.
func (lb *Loopback) AddMetadata(localID uint64, key uint32, data []byte) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if lb.closed {
		return dev.ErrIoRefused
	}

	m, ok := lb.metadata[localID]
	if !ok {
		m = make(map[uint32][]byte)
		lb.metadata[localID] = m
	}

	m[key] = append([]byte(nil), data...)

	return nil
}

// GetMetadata fetches a metadata blob.
func (lb *Loopback) GetMetadata(localID uint64, key uint32) ([]byte, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if lb.closed {
		return nil, dev.ErrIoRefused
	}

	data, ok := lb.metadata[localID][key]
	if !ok {
		return nil, fmt.Errorf("%w: no metadata %d on local id %d",
			dev.ErrNotFound, key, localID)
	}

	return append([]byte(nil), data...), nil
}

// BoundDevices returns the local ids bind was requested for.
func (lb *Loopback) BoundDevices() []uint64 {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	return append([]uint64(nil), lb.bound...)
}

// RemovedDevices returns the local ids whose removal completed.
func (lb *Loopback) RemovedDevices() []uint64 {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	return append([]uint64(nil), lb.removed...)
}

func (lb *Loopback) live() (*dev.Context, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if lb.closed {
		return nil, dev.ErrIoRefused
	}

	if lb.ctx == nil {
		return nil, fmt.Errorf("%w: loopback not attached", dev.ErrBadState)
	}

	return lb.ctx, nil
}
