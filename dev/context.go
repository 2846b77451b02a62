package dev

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// RootLocalID is the local id the root device registers under. Coordinators
// assign ids above it.
const RootLocalID = 1

// DeadRingCapacity is the number of recently-finalized devices kept with a
// poisoned capability table before their memory is actually released.
const DeadRingCapacity = 7

// A Context is the lifecycle orchestrator of one driver host. It owns the
// serialization lock, the device tree, the deferred-destruction list, and
// every lifecycle operation.
//
// The tree lock guards the bookkeeping portion of every operation. It is
// always released before a driver capability-table hook is invoked and
// re-acquired afterwards, so hooks can re-enter the Context without
// deadlocking.
type Context struct {
	HookableBase

	mu sync.Mutex

	coordinator Coordinator
	registry    *Registry
	workQueue   *WorkQueue

	root *Device

	enumerators int
	dying       []*Device
	deadRing    []*Device

	liveDevices atomic.Int64
}

// NewContext creates a Context talking to the given coordinator, deferring
// control-loop work to the given queue. The root device is created
// immediately and registered under RootLocalID.
func NewContext(coordinator Coordinator, workQueue *WorkQueue) *Context {
	c := new(Context)
	c.coordinator = coordinator
	c.registry = NewRegistry()
	c.workQueue = workQueue

	root := &Device{
		name:     "root",
		driver:   NewDriver("root"),
		opTable:  &Ops{},
		flags:    FlagAdded | FlagUnbindable,
		refCount: 1,
	}
	root.SetLocalID(c.registry, RootLocalID)
	c.root = root
	c.liveDevices.Add(1)

	return c
}

// Root returns the root of the device tree.
func (c *Context) Root() *Device {
	return c.root
}

// Registry returns the local-id registry.
func (c *Context) Registry() *Registry {
	return c.registry
}

// WorkQueue returns the deferred-callback queue of the host.
func (c *Context) WorkQueue() *WorkQueue {
	return c.workQueue
}

// LiveDeviceCount returns the number of devices whose memory has not been
// released yet, including the recently-finalized ones in the dead ring.
func (c *Context) LiveDeviceCount() int64 {
	return c.liveDevices.Load()
}

// DeviceCreate allocates a device for the given driver. The device starts
// detached, with every lifecycle flag clear and no local id. Names longer
// than MaxNameLength are truncated and the truncation is remembered.
func (c *Context) DeviceCreate(
	drv *Driver,
	name string,
	ops *Ops,
) (*Device, error) {
	if drv == nil {
		return nil, fmt.Errorf("%w: nil driver", ErrInvalidArgs)
	}

	if ops == nil {
		return nil, fmt.Errorf("%w: nil capability table", ErrInvalidArgs)
	}

	if name == "" {
		return nil, fmt.Errorf("%w: empty device name", ErrInvalidArgs)
	}

	bounded, truncated := TruncateName(name)

	d := &Device{
		name:          bounded,
		nameTruncated: truncated,
		driver:        drv,
		opTable:       ops,
		refCount:      1,
	}

	c.liveDevices.Add(1)

	c.InvokeHook(HookCtx{
		Domain: c,
		Pos:    HookPosDeviceChange,
		Item:   d,
		Detail: "created",
	})

	return d, nil
}

// DeviceDestroy releases a device that was created but never attached to
// the tree, such as one whose DeviceAdd failed. The device goes through the
// normal deferred finalization; an added device must be taken down through
// DeviceRemove instead.
func (c *Context) DeviceDestroy(d *Device) error {
	c.mu.Lock()

	switch {
	case d == nil:
		c.mu.Unlock()
		return fmt.Errorf("%w: nil device", ErrInvalidArgs)
	case d.flags.Has(FlagDead):
		c.mu.Unlock()
		return fmt.Errorf("%w: device %s is already dead",
			ErrBadState, d.name)
	case d.flags.Has(FlagBusy):
		c.mu.Unlock()
		return fmt.Errorf("%w: device %s has an add in flight",
			ErrBadState, d.name)
	case d.flags.Has(FlagAdded):
		c.mu.Unlock()
		return fmt.Errorf("%w: device %s is added, remove it instead",
			ErrBadState, d.name)
	}

	c.downRefLocked(d)
	c.mu.Unlock()

	return nil
}

// AddOptions carries the optional arguments of DeviceAdd.
type AddOptions struct {
	Props     []Property
	ProxyArgs string

	// Instance adds an ephemeral per-open device that skips coordinator
	// registration.
	Instance bool

	NonBindable         bool
	MultiBind           bool
	AllowMultiComposite bool
}

// DeviceAdd attaches a created device to the tree under parent and registers
// it with the coordinator. The device must not be added or busy, and the
// parent must not be dead. On failure the device is detached again and stays
// usable for a retry or for destruction by the caller.
//
// A device whose table declares an Init hook is added invisible; it stays so
// until its DeviceInitReply arrives.
func (c *Context) DeviceAdd(d, parent *Device, opts AddOptions) error {
	c.mu.Lock()

	if err := c.addPreconditionsLocked(d, parent); err != nil {
		c.mu.Unlock()
		return err
	}

	c.setFlagsLocked(d, FlagBusy)

	if opts.NonBindable {
		c.setFlagsLocked(d, FlagUnbindable)
	}
	if opts.MultiBind {
		c.setFlagsLocked(d, FlagMultiBind)
	}
	if opts.AllowMultiComposite {
		c.setFlagsLocked(d, FlagAllowMultiComposite)
	}

	parent.addChild(d)
	parent.refCount++

	if opts.Instance {
		c.setFlagsLocked(d, FlagInstance|FlagAdded)
		c.clearFlagsLocked(d, FlagBusy)
		c.mu.Unlock()
		return nil
	}

	hasInit := d.opTable.Init != nil
	if hasInit {
		c.setFlagsLocked(d, FlagInvisible)
	}

	parentID := parent.localID
	name := d.name
	driverName := d.driver.Name()

	c.mu.Unlock()

	id, err := c.coordinator.AddDevice(
		parentID, name, driverName, opts.Props, opts.ProxyArgs)

	c.mu.Lock()
	if err != nil {
		parent.removeChild(d)
		c.clearFlagsLocked(d, FlagBusy|FlagInvisible)
		c.downRefLocked(parent)
		c.mu.Unlock()
		return fmt.Errorf("adding device %s: %w", name, err)
	}

	d.SetLocalID(c.registry, id)
	c.setFlagsLocked(d, FlagAdded)
	c.clearFlagsLocked(d, FlagBusy)
	c.mu.Unlock()

	if hasInit {
		c.workQueue.Push(d, func() {
			_ = c.DeviceInit(d)
		})
	}

	return nil
}

func (c *Context) addPreconditionsLocked(d, parent *Device) error {
	switch {
	case d == nil || parent == nil:
		return fmt.Errorf("%w: nil device or parent", ErrInvalidArgs)
	case d.flags.Has(FlagAdded):
		return fmt.Errorf("%w: device %s is already added",
			ErrBadState, d.name)
	case d.flags.Has(FlagBusy):
		return fmt.Errorf("%w: device %s has an add in flight",
			ErrBadState, d.name)
	case d.flags.Has(FlagDead):
		return fmt.Errorf("%w: device %s is dead", ErrBadState, d.name)
	case parent.flags.Has(FlagDead):
		return fmt.Errorf("%w: parent %s is dead",
			ErrBadState, parent.name)
	}

	return nil
}

// ChildrenOf returns a snapshot of a device's children.
func (c *Context) ChildrenOf(d *Device) []*Device {
	c.mu.Lock()
	children := append([]*Device(nil), d.children...)
	c.mu.Unlock()

	return children
}

// Devices returns a snapshot of every device attached to the tree, in
// depth-first order starting at the root.
func (c *Context) Devices() []*Device {
	c.mu.Lock()
	defer c.mu.Unlock()

	var devices []*Device
	var walk func(d *Device)
	walk = func(d *Device) {
		devices = append(devices, d)
		for _, child := range d.children {
			walk(child)
		}
	}
	walk(c.root)

	return devices
}

// DeviceByName resolves a device by its process-local name, walking the tree.
func (c *Context) DeviceByName(name string) (*Device, bool) {
	for _, d := range c.Devices() {
		if d.name == name {
			return d, true
		}
	}

	return nil, false
}

// EachChild iterates over a snapshot of d's children, invoking fn with the
// tree lock released. While any enumeration is in flight, finalization of
// dead devices is deferred, so the iteration never observes a half-torn-down
// sibling list.
func (c *Context) EachChild(d *Device, fn func(child *Device)) {
	c.mu.Lock()
	c.enumerators++
	children := append([]*Device(nil), d.children...)
	c.mu.Unlock()

	for _, child := range children {
		fn(child)
	}

	c.mu.Lock()
	c.enumerators--
	needFinalize := c.enumerators == 0 && len(c.dying) > 0
	c.mu.Unlock()

	if needFinalize {
		c.FinalizeDyingDevices()
	}
}

// DeviceAddMetadata publishes a metadata blob for the device through the
// coordinator.
func (c *Context) DeviceAddMetadata(d *Device, key uint32, data []byte) error {
	c.mu.Lock()
	if !d.flags.Has(FlagAdded) {
		c.mu.Unlock()
		return fmt.Errorf("%w: device %s is not added", ErrBadState, d.name)
	}
	localID := d.localID
	c.mu.Unlock()

	return c.coordinator.AddMetadata(localID, key, data)
}

// DeviceGetMetadata fetches a metadata blob for the device through the
// coordinator. A missing key is ErrNotFound.
func (c *Context) DeviceGetMetadata(d *Device, key uint32) ([]byte, error) {
	c.mu.Lock()
	if !d.flags.Has(FlagAdded) {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: device %s is not added",
			ErrBadState, d.name)
	}
	localID := d.localID
	c.mu.Unlock()

	return c.coordinator.GetMetadata(localID, key)
}

// setFlagsLocked sets flag bits and reports the transition to the
// observation hooks. The caller must hold the tree lock.
func (c *Context) setFlagsLocked(d *Device, f Flag) {
	if d.flags.Has(f) {
		return
	}

	d.flags |= f

	c.InvokeHook(HookCtx{
		Domain: c,
		Pos:    HookPosDeviceChange,
		Item:   d,
		Detail: "set " + f.String(),
	})
}

// clearFlagsLocked clears flag bits and reports the transition to the
// observation hooks. The caller must hold the tree lock.
func (c *Context) clearFlagsLocked(d *Device, f Flag) {
	if d.flags&f == 0 {
		return
	}

	d.flags &^= f

	c.InvokeHook(HookCtx{
		Domain: c,
		Pos:    HookPosDeviceChange,
		Item:   d,
		Detail: "clear " + f.String(),
	})
}

// invokeDriverHook runs one capability-table hook with the observation hooks
// fired around it. The caller must not hold the tree lock.
func (c *Context) invokeDriverHook(d *Device, name string, body func()) {
	hookCtx := HookCtx{
		Domain: c,
		Pos:    HookPosBeforeDriverHook,
		Item:   d,
		Detail: name,
	}
	c.InvokeHook(hookCtx)

	body()

	hookCtx.Pos = HookPosAfterDriverHook
	c.InvokeHook(hookCtx)
}
