package dev

import "log"

// Ops is the capability table a driver supplies for a device. Every entry is
// optional. A nil entry falls back to a defined default: a success no-op for
// the lifecycle hooks (Unbind, Release, Suspend, Resume) and ErrNotSupported
// for the data-path hooks (Read, Write, Message).
//
// Hooks are always invoked with the tree lock released. A hook may therefore
// re-enter the Context, e.g. an Open hook adding an instance device.
type Ops struct {
	// Init runs after DeviceInit. The driver must follow with exactly one
	// DeviceInitReply.
	Init func(d *Device)

	// Open runs on DeviceOpen. It may return an instance device that the
	// connection should talk to instead of d.
	Open func(d *Device, flags uint32) (*Device, error)

	// Close runs when an open connection to the device closes.
	Close func(d *Device, flags uint32) error

	// Unbind runs after DeviceUnbind. The driver must follow with exactly
	// one DeviceUnbindReply.
	Unbind func(d *Device)

	// Release runs during finalization, after the device has been detached
	// from the tree. The device must not be used afterwards.
	Release func(d *Device)

	Read    func(d *Device, p []byte, off int64) (int, error)
	Write   func(d *Device, p []byte, off int64) (int, error)
	GetSize func(d *Device) int64

	// Suspend runs after DeviceSuspend validated the requested power state.
	// The driver must follow with exactly one DeviceSuspendReply.
	Suspend func(d *Device, state PowerStateID)

	// Resume runs after DeviceResume validated the requested power state.
	// The driver must follow with exactly one DeviceResumeReply.
	Resume func(d *Device, state PowerStateID)

	// SetPerformanceState returns the performance state the device settled
	// in, which may differ from the requested one.
	SetPerformanceState func(d *Device, state PerformanceStateID) (PerformanceStateID, error)

	Message func(d *Device, msg []byte) error

	// ChildPreRelease runs on the parent's table right before a child is
	// finalized.
	ChildPreRelease func(parent, child *Device)
}

// poisonedOps replaces a dead device's capability table. Every entry is
// fatal, so a use-after-destroy crashes deterministically instead of
// corrupting state.
var poisonedOps = &Ops{
	Init:   func(d *Device) { poisoned(d, "init") },
	Unbind: func(d *Device) { poisoned(d, "unbind") },
	Release: func(d *Device) {
		poisoned(d, "release")
	},
	Open: func(d *Device, flags uint32) (*Device, error) {
		poisoned(d, "open")
		return nil, nil
	},
	Close: func(d *Device, flags uint32) error {
		poisoned(d, "close")
		return nil
	},
	Read: func(d *Device, p []byte, off int64) (int, error) {
		poisoned(d, "read")
		return 0, nil
	},
	Write: func(d *Device, p []byte, off int64) (int, error) {
		poisoned(d, "write")
		return 0, nil
	},
	GetSize: func(d *Device) int64 {
		poisoned(d, "get_size")
		return 0
	},
	Suspend: func(d *Device, state PowerStateID) { poisoned(d, "suspend") },
	Resume:  func(d *Device, state PowerStateID) { poisoned(d, "resume") },
	SetPerformanceState: func(
		d *Device,
		state PerformanceStateID,
	) (PerformanceStateID, error) {
		poisoned(d, "set_performance_state")
		return 0, nil
	},
	Message: func(d *Device, msg []byte) error {
		poisoned(d, "message")
		return nil
	},
	ChildPreRelease: func(parent, child *Device) {
		poisoned(parent, "child_pre_release")
	},
}

func poisoned(d *Device, hook string) {
	log.Panicf("hook %s invoked on dead device %s", hook, d.name)
}
