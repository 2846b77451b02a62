package dev

// A Property is one key-value pair attached to a device at registration, used
// by the coordinator for bind matching.
type Property struct {
	ID    uint32
	Value uint32
}

// A Coordinator is the external process that owns global device topology and
// policy. The engine consumes this interface and never implements it.
//
// Every call is a request to the coordinator channel. A closed channel is
// reported as ErrIoRefused; the engine treats it as "coordinator terminated"
// and degrades to local teardown instead of crashing.
type Coordinator interface {
	// AddDevice registers a new device and returns its assigned local id.
	AddDevice(
		parentID uint64,
		name string,
		driver string,
		props []Property,
		proxyArgs string,
	) (uint64, error)

	// ScheduleRemove asks the coordinator to drive the removal of the
	// device, optionally unbinding it first.
	ScheduleRemove(localID uint64, unbindSelf bool) error

	// ScheduleUnbindChildren asks the coordinator to drive the unbind of
	// every child of the device.
	ScheduleUnbindChildren(localID uint64) error

	// RemoveDone reports that the device completed removal.
	RemoveDone(localID uint64) error

	// BindDevice requests that a driver be bound to the device.
	BindDevice(localID uint64) error

	// AddMetadata publishes a metadata blob for the device.
	AddMetadata(localID uint64, key uint32, data []byte) error

	// GetMetadata fetches a metadata blob for the device. A missing key is
	// ErrNotFound.
	GetMetadata(localID uint64, key uint32) ([]byte, error)
}
