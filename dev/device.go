package dev

import "log"

// A Device is one node in the driver-host device tree. It wraps a
// driver-supplied capability table and tracks lifecycle flags, pending
// asynchronous operations, and power/performance state.
//
// Devices are created by the Context, never self-constructed. All fields
// except the local id are guarded by the Context's tree lock; the local id is
// guarded by the Registry's lock.
type Device struct {
	name          string
	nameTruncated bool
	driver        *Driver
	opTable       *Ops

	flags         Flag
	localID       uint64
	parentLocalID uint64

	refCount        int
	openConnections int

	parent   *Device
	children []*Device
	proxy    *Device

	// composites this device serves as a fragment of. More than one entry
	// requires FlagAllowMultiComposite.
	fragmentOf []*CompositeDevice

	// composite this device is the synthesized front for, if any.
	composite *CompositeDevice

	pending [numOpKinds]*pendingOp

	powerStates        []PowerState
	perfStates         []PerformanceState
	currentPerfState   PerformanceStateID
	systemPowerMapping []SystemPowerMapping

	freed bool
}

// Name returns the process-local name of the device.
func (d *Device) Name() string {
	return d.name
}

// NameTruncated tells if the device's name was longer than MaxNameLength at
// creation.
func (d *Device) NameTruncated() bool {
	return d.nameTruncated
}

// Driver returns the driver that created the device.
func (d *Device) Driver() *Driver {
	return d.driver
}

// Flags returns the device's lifecycle flag set.
func (d *Device) Flags() Flag {
	return d.flags
}

// LocalID returns the coordinator-assigned id, 0 if unassigned.
func (d *Device) LocalID() uint64 {
	return d.localID
}

// ParentLocalID returns the cached local id of the parent, kept for display.
func (d *Device) ParentLocalID() uint64 {
	return d.parentLocalID
}

// Parent returns the device's parent, nil for the root and for detached
// devices.
func (d *Device) Parent() *Device {
	return d.parent
}

// Composite returns the composite this device fronts, nil for ordinary
// devices.
func (d *Device) Composite() *CompositeDevice {
	return d.composite
}

// ops returns the table to dispatch to. Dead devices always dispatch to the
// poisoned table.
func (d *Device) ops() *Ops {
	if d.flags.Has(FlagDead) {
		return poisonedOps
	}

	return d.opTable
}

// addChild appends child to the device's children list. The caller must hold
// the tree lock.
func (d *Device) addChild(child *Device) {
	d.children = append(d.children, child)
	child.parent = d
	child.parentLocalID = d.localID
}

// removeChild detaches child from the device's children list. The caller
// must hold the tree lock. Detaching an unknown child is fatal.
func (d *Device) removeChild(child *Device) {
	for i, c := range d.children {
		if c == child {
			d.children = append(d.children[:i], d.children[i+1:]...)
			child.parent = nil
			return
		}
	}

	log.Panicf("device %s is not a child of %s", child.name, d.name)
}

// SetLocalID mutates the registry and the device atomically with respect to
// the registry lock, then propagates the id to the children's cached parent
// ids. The caller must hold the tree lock.
func (d *Device) SetLocalID(reg *Registry, id uint64) {
	reg.replace(d, id)

	for _, c := range d.children {
		c.parentLocalID = id
	}
}

// hasInvisibleChild tells if any child still waits for its init reply. The
// caller must hold the tree lock.
func (d *Device) hasInvisibleChild() bool {
	for _, c := range d.children {
		if c.flags.Has(FlagInvisible) {
			return true
		}
	}

	return false
}

// isFragment tells if the device serves as a fragment of any composite.
func (d *Device) isFragment() bool {
	return len(d.fragmentOf) > 0
}

// dropFragmentRef clears the back-reference to one composite.
func (d *Device) dropFragmentRef(c *CompositeDevice) {
	for i, cc := range d.fragmentOf {
		if cc == c {
			d.fragmentOf = append(d.fragmentOf[:i], d.fragmentOf[i+1:]...)
			return
		}
	}
}
