package dev

import "log"

// downRefLocked drops one reference. At zero the device is queued for
// finalization; an instance device self-marks dead here instead of going
// through removal. The caller must hold the tree lock.
func (c *Context) downRefLocked(d *Device) {
	if d.freed {
		log.Panicf("reference drop on freed device %s", d.name)
	}

	d.refCount--
	if d.refCount > 0 {
		return
	}
	if d.refCount < 0 {
		log.Panicf("reference count underflow on device %s", d.name)
	}

	if !d.flags.Has(FlagDead) {
		c.setFlagsLocked(d, FlagDead)
	}

	c.dying = append(c.dying, d)
	c.workQueue.Push(d, func() {
		c.FinalizeDyingDevices()
	})
}

// FinalizeDyingDevices runs the deferred destruction of every device whose
// last reference dropped. It runs only while no enumeration is in flight;
// EachChild re-triggers it when the outermost iteration completes.
//
// Finalizing a device detaches it from its parent, runs its Release hook if
// it was added, evaluates the parent's unbind-children join and deferred
// rebind, and moves the device into the bounded dead ring with the poisoned
// capability table installed. Only when the ring overflows is the oldest
// entry actually released.
func (c *Context) FinalizeDyingDevices() {
	c.mu.Lock()

	for c.enumerators == 0 && len(c.dying) > 0 {
		d := c.dying[0]
		c.dying = c.dying[1:]

		c.finalizeLocked(d)
	}

	c.mu.Unlock()
}

// finalizeLocked destroys one device. It is entered and left with the tree
// lock held but releases it around the driver hooks.
func (c *Context) finalizeLocked(d *Device) {
	parent := d.parent

	var preRelease func(parent, child *Device)
	if parent != nil {
		if !parent.flags.Has(FlagDead) {
			preRelease = parent.opTable.ChildPreRelease
		}
		parent.removeChild(d)
	}

	// The release hook dispatches through the original table: poisoning
	// happens after release, when the device enters the dead ring.
	var release func(*Device)
	if d.flags.Has(FlagAdded) {
		release = d.opTable.Release
	}

	c.mu.Unlock()

	if preRelease != nil {
		c.invokeDriverHook(parent, "child_pre_release", func() {
			preRelease(parent, d)
		})
	}

	if release != nil {
		c.invokeDriverHook(d, "release", func() {
			release(d)
		})
	}

	c.mu.Lock()

	if parent != nil {
		c.finishParentLocked(parent)
		c.downRefLocked(parent)
	}

	d.opTable = poisonedOps
	d.proxy = nil
	d.fragmentOf = nil

	c.InvokeHook(HookCtx{
		Domain: c,
		Pos:    HookPosDeviceFinal,
		Item:   d,
	})

	c.deadRing = append(c.deadRing, d)
	if len(c.deadRing) > DeadRingCapacity {
		oldest := c.deadRing[0]
		c.deadRing = c.deadRing[1:]
		c.freeLocked(oldest)
	}
}

// finishParentLocked evaluates the follow-up conditions a child's
// finalization can satisfy on its parent: the pending unbind-children join
// and a deferred rebind. Both fire only at a child count of zero.
func (c *Context) finishParentLocked(parent *Device) {
	if len(parent.children) != 0 {
		return
	}

	if callback, firstErr, ok := parent.takePending(OpUnbindChildren); ok &&
		callback != nil {
		result := firstErr
		c.workQueue.Push(parent, func() { callback(result) })
	}

	if !parent.flags.Has(FlagWantsRebind) || parent.flags.Has(FlagDead) {
		return
	}

	c.clearFlagsLocked(parent, FlagWantsRebind)

	localID := parent.localID
	c.mu.Unlock()
	err := c.coordinator.BindDevice(localID)
	c.mu.Lock()

	if err != nil {
		if callback, _, ok := parent.takePending(OpRebind); ok &&
			callback != nil {
			result := err
			c.workQueue.Push(parent, func() { callback(result) })
		}
		log.Printf("rebinding device %s: %v", parent.Name(), err)
	}
}

// freeLocked actually releases a device evicted from the dead ring. The
// caller must hold the tree lock.
func (c *Context) freeLocked(d *Device) {
	d.freed = true
	d.parent = nil
	d.children = nil
	d.powerStates = nil
	d.perfStates = nil
	d.systemPowerMapping = nil
	for i := range d.pending {
		d.pending[i] = nil
	}

	c.liveDevices.Add(-1)
}
