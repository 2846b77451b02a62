package dev

import "sync"

// A Registry is the process-wide map from coordinator-assigned local ids to
// devices. It carries its own lock, distinct from the tree lock, because it
// is consulted from hook-invocation contexts where the tree lock may be held
// by another party.
type Registry struct {
	mu      sync.RWMutex
	devices map[uint64]*Device
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	r := new(Registry)
	r.devices = make(map[uint64]*Device)
	return r
}

// Find resolves a local id to a device. A miss is reported with ok == false,
// never treated as fatal; the id may come from an external request.
func (r *Registry) Find(id uint64) (*Device, bool) {
	r.mu.RLock()
	d, ok := r.devices[id]
	r.mu.RUnlock()

	return d, ok
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	l := len(r.devices)
	r.mu.RUnlock()

	return l
}

// replace erases the device's old entry, if any, and inserts the new one.
// Both steps happen under one critical section, so a concurrent Find never
// observes a half-applied change. An id of 0 only erases.
func (r *Registry) replace(d *Device, id uint64) {
	r.mu.Lock()

	if d.localID != 0 {
		delete(r.devices, d.localID)
	}

	d.localID = id

	if id != 0 {
		r.devices[id] = d
	}

	r.mu.Unlock()
}
