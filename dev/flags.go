package dev

import "strings"

// A Flag is one bit of a device's lifecycle flag set.
type Flag uint32

const (
	// FlagDead marks a device that has completed removal. Once set, it is
	// permanent.
	FlagDead Flag = 1 << iota

	// FlagInitializing is set between DeviceInit and DeviceInitReply.
	FlagInitializing

	// FlagUnbindable marks a device that the coordinator must not bind
	// drivers to.
	FlagUnbindable

	// FlagBusy is set only while the tree mutation that creates the device
	// is in flight.
	FlagBusy

	// FlagInstance marks an ephemeral per-open device that skips
	// coordinator registration.
	FlagInstance

	// FlagMultiBind marks a device that multiple drivers may bind to. Such
	// devices cannot be removed through DeviceRemove.
	FlagMultiBind

	// FlagAdded is set once the device is attached to the tree and
	// registered with the coordinator.
	FlagAdded

	// FlagInvisible is set while a device with an init hook waits for its
	// DeviceInitReply.
	FlagInvisible

	// FlagUnbound is set by DeviceUnbind. Unbind is idempotent on it.
	FlagUnbound

	// FlagWantsRebind defers a rebind until the device's last child
	// finalizes.
	FlagWantsRebind

	// FlagAllowMultiComposite permits the device to serve as a fragment of
	// more than one composite.
	FlagAllowMultiComposite
)

var flagNames = map[Flag]string{
	FlagDead:                "Dead",
	FlagInitializing:        "Initializing",
	FlagUnbindable:          "Unbindable",
	FlagBusy:                "Busy",
	FlagInstance:            "Instance",
	FlagMultiBind:           "MultiBind",
	FlagAdded:               "Added",
	FlagInvisible:           "Invisible",
	FlagUnbound:             "Unbound",
	FlagWantsRebind:         "WantsRebind",
	FlagAllowMultiComposite: "AllowMultiComposite",
}

// Has returns true if every bit of f2 is set in f.
func (f Flag) Has(f2 Flag) bool {
	return f&f2 == f2
}

func (f Flag) String() string {
	if f == 0 {
		return "None"
	}

	names := make([]string, 0, 4)
	for bit := FlagDead; bit <= FlagAllowMultiComposite; bit <<= 1 {
		if f.Has(bit) {
			names = append(names, flagNames[bit])
		}
	}

	return strings.Join(names, "|")
}
