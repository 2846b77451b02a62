package dev

import (
	"errors"
	"fmt"
	"log"
)

// DeviceInit starts the device's init sequence. Exactly one DeviceInitReply
// must follow. If the table declares no Init hook, the reply is synthesized
// with success immediately.
func (c *Context) DeviceInit(d *Device) error {
	c.mu.Lock()

	if d.flags.Has(FlagDead) {
		c.mu.Unlock()
		return fmt.Errorf("%w: device %s is dead", ErrBadState, d.name)
	}

	c.setFlagsLocked(d, FlagInitializing)
	d.setPending(OpInit, nil)

	hasHook := d.opTable.Init != nil

	c.mu.Unlock()

	if hasHook {
		c.invokeDriverHook(d, "init", func() {
			d.ops().Init(d)
		})
		return nil
	}

	c.DeviceInitReply(d, nil, nil, nil)

	return nil
}

// DeviceInitReply completes the init sequence. The supplied power and
// performance tables are installed before the device becomes visible. A
// non-nil status schedules the device's removal and the parent's pending
// bind or rebind join resolves with that error instead of hanging.
//
// Calling DeviceInitReply without a pending init is fatal.
func (c *Context) DeviceInitReply(
	d *Device,
	status error,
	powerStates []PowerState,
	perfStates []PerformanceState,
) {
	c.mu.Lock()

	callback, firstErr, ok := d.takePending(OpInit)
	if !ok {
		log.Panicf("init reply without a pending init on device %s", d.name)
	}
	if status == nil {
		status = firstErr
	}

	if status == nil {
		status = d.installPowerStates(powerStates, perfStates)
	}

	c.clearFlagsLocked(d, FlagInitializing|FlagInvisible)

	if status != nil {
		failure := status
		c.workQueue.Push(d, func() {
			c.scheduleRemove(d, true, failure)
		})
	}

	if d.parent != nil {
		c.checkParentJoinLocked(d.parent, status)
	}

	if callback != nil {
		result := status
		c.workQueue.Push(d, func() { callback(result) })
	}

	c.mu.Unlock()
}

// DeviceBind installs the pending bind join on the device. The join fires,
// through the work queue, once every child the bind produced has finished
// initializing; a child that fails init or is removed while invisible
// resolves it with an error.
func (c *Context) DeviceBind(d *Device, done func(error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d.flags.Has(FlagDead) {
		return fmt.Errorf("%w: device %s is dead", ErrBadState, d.name)
	}

	if d.hasPending(OpBind) {
		return fmt.Errorf("%w: device %s already has a bind in flight",
			ErrBadState, d.name)
	}

	d.setPending(OpBind, done)

	return nil
}

// checkParentJoinLocked resolves the parent's pending bind or rebind join if
// no child is invisible anymore. A non-nil err is recorded as the join's
// first-observed error either way. The caller must hold the tree lock.
func (c *Context) checkParentJoinLocked(parent *Device, err error) {
	if err != nil {
		parent.recordPendingError(OpBind, err)
		parent.recordPendingError(OpRebind, err)
	}

	if parent.hasInvisibleChild() {
		return
	}

	for _, kind := range []OpKind{OpBind, OpRebind} {
		callback, firstErr, ok := parent.takePending(kind)
		if !ok || callback == nil {
			continue
		}

		result := firstErr
		c.workQueue.Push(parent, func() { callback(result) })
	}
}

// DeviceUnbind starts the device's unbind sequence. It is idempotent: a
// device already unbound is left alone. Exactly one DeviceUnbindReply must
// follow a started sequence; if the table declares no Unbind hook, the reply
// is synthesized with success.
func (c *Context) DeviceUnbind(d *Device) error {
	c.mu.Lock()

	if d.flags.Has(FlagDead) {
		c.mu.Unlock()
		return fmt.Errorf("%w: device %s is dead", ErrBadState, d.name)
	}

	if !d.flags.Has(FlagAdded) {
		c.mu.Unlock()
		return fmt.Errorf("%w: device %s is not added", ErrBadState, d.name)
	}

	if d.flags.Has(FlagUnbound) {
		c.mu.Unlock()
		return nil
	}

	c.setFlagsLocked(d, FlagUnbound)
	d.setPending(OpUnbind, nil)

	hasHook := d.opTable.Unbind != nil

	c.mu.Unlock()

	if hasHook {
		c.invokeDriverHook(d, "unbind", func() {
			d.ops().Unbind(d)
		})
		return nil
	}

	c.DeviceUnbindReply(d)

	return nil
}

// DeviceUnbindReply completes the unbind sequence and schedules the removal
// that follows it. Unbind must first have closed every downstream connection
// to the device; replying with connections still open is fatal, as is
// replying without a pending unbind.
func (c *Context) DeviceUnbindReply(d *Device) {
	c.mu.Lock()

	if d.openConnections > 0 {
		log.Panicf(
			"unbind reply on device %s with %d open connections",
			d.name, d.openConnections)
	}

	callback, firstErr, ok := d.takePending(OpUnbind)
	if !ok {
		log.Panicf("unbind reply without a pending unbind on device %s",
			d.name)
	}

	if callback != nil {
		result := firstErr
		c.workQueue.Push(d, func() { callback(result) })
	}

	dead := d.flags.Has(FlagDead)
	instance := d.flags.Has(FlagInstance)

	c.mu.Unlock()

	if !dead && !instance {
		c.workQueue.Push(d, func() {
			c.scheduleRemove(d, false, nil)
		})
	}
}

// UnbindChildren requests the unbind of every child of d and installs the
// pending unbind-children join, which fires once the child count reaches
// zero during finalization. With no children the join fires immediately.
func (c *Context) UnbindChildren(d *Device, done func(error)) error {
	c.mu.Lock()

	if d.flags.Has(FlagDead) {
		c.mu.Unlock()
		return fmt.Errorf("%w: device %s is dead", ErrBadState, d.name)
	}

	if d.hasPending(OpUnbindChildren) {
		c.mu.Unlock()
		return fmt.Errorf(
			"%w: device %s already has an unbind-children in flight",
			ErrBadState, d.name)
	}

	if len(d.children) == 0 {
		c.mu.Unlock()
		if done != nil {
			c.workQueue.Push(d, func() { done(nil) })
		}
		return nil
	}

	d.setPending(OpUnbindChildren, done)

	c.mu.Unlock()

	c.EachChild(d, func(child *Device) {
		if err := c.DeviceUnbind(child); err != nil &&
			!errors.Is(err, ErrBadState) {
			log.Printf("unbinding child %s of %s: %v",
				child.Name(), d.Name(), err)
		}
	})

	return nil
}

// DeviceRemove schedules the asynchronous removal of the device, delegated
// to the coordinator. Dead, busy, instance and multi-bind devices cannot be
// removed this way, nor can a device that was never added. done, if not
// nil, is delivered through the work queue once DeviceCompleteRemoval runs.
func (c *Context) DeviceRemove(d *Device, unbindSelf bool, done func(error)) error {
	c.mu.Lock()

	var reason string
	switch {
	case d == nil:
		reason = "nil device"
	case d.flags.Has(FlagDead):
		reason = "device is dead"
	case d.flags.Has(FlagBusy):
		reason = "device has an add in flight"
	case !d.flags.Has(FlagAdded):
		reason = "device was never added"
	case d.flags.Has(FlagInstance):
		reason = "device is an instance"
	case d.flags.Has(FlagMultiBind):
		reason = "device is multi-bind"
	}

	if reason != "" {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrInvalidArgs, reason)
	}

	if d.hasPending(OpRemoval) {
		c.mu.Unlock()
		return fmt.Errorf("%w: device %s already has a removal in flight",
			ErrBadState, d.name)
	}

	d.setPending(OpRemoval, done)

	c.mu.Unlock()

	c.scheduleRemove(d, unbindSelf, nil)

	return nil
}

// scheduleRemove delegates removal to the coordinator. When the coordinator
// channel is gone the host is on its own: it logs and continues the teardown
// locally instead of crashing.
func (c *Context) scheduleRemove(d *Device, unbindSelf bool, cause error) {
	c.mu.Lock()
	if d.flags.Has(FlagDead) {
		c.mu.Unlock()
		return
	}
	localID := d.localID
	unbound := d.flags.Has(FlagUnbound)
	c.mu.Unlock()

	if cause != nil {
		log.Printf("removing device %s: %v", d.Name(), cause)
	}

	err := c.coordinator.ScheduleRemove(localID, unbindSelf)
	if err == nil {
		return
	}

	if !errors.Is(err, ErrIoRefused) {
		log.Printf("scheduling removal of %s: %v", d.Name(), err)
		return
	}

	log.Printf("coordinator unavailable, removing %s locally", d.Name())

	if unbindSelf && !unbound {
		c.workQueue.Push(d, func() {
			_ = c.DeviceUnbind(d)
		})
		return
	}

	c.workQueue.Push(d, func() {
		_ = c.DeviceCompleteRemoval(d)
	})
}

// DeviceCompleteRemoval is the terminal step of removal: it marks the device
// dead, releases its coordinator registration and its registry entry, and
// drops the reference the tree held. A device removed while still invisible
// resolves its parent's pending bind or rebind join with an error rather
// than leaving it hanging.
func (c *Context) DeviceCompleteRemoval(d *Device) error {
	c.mu.Lock()

	if d.flags.Has(FlagDead) {
		c.mu.Unlock()
		return fmt.Errorf("%w: device %s is already dead",
			ErrBadState, d.name)
	}

	if d.flags.Has(FlagInstance) {
		c.mu.Unlock()
		return fmt.Errorf("%w: device %s is an instance",
			ErrBadState, d.name)
	}

	if !d.flags.Has(FlagAdded) {
		c.mu.Unlock()
		return fmt.Errorf("%w: device %s was never added",
			ErrBadState, d.name)
	}

	removedInvisible := d.flags.Has(FlagInvisible)

	if removedInvisible {
		c.clearFlagsLocked(d, FlagInvisible|FlagInitializing)

		failure := fmt.Errorf(
			"%w: device %s removed before init completed",
			ErrBadState, d.name)

		if callback, _, ok := d.takePending(OpInit); ok && callback != nil {
			c.workQueue.Push(d, func() { callback(failure) })
		}

		if d.parent != nil {
			c.checkParentJoinLocked(d.parent, failure)
		}
	}

	if callback, firstErr, ok := d.takePending(OpRemoval); ok &&
		callback != nil {
		result := firstErr
		c.workQueue.Push(d, func() { callback(result) })
	}

	c.setFlagsLocked(d, FlagDead)

	oldID := d.localID
	d.SetLocalID(c.registry, 0)

	c.mu.Unlock()

	if err := c.coordinator.RemoveDone(oldID); err != nil &&
		!errors.Is(err, ErrIoRefused) {
		log.Printf("reporting removal of %s: %v", d.Name(), err)
	}

	c.mu.Lock()
	c.downRefLocked(d)
	c.mu.Unlock()

	return nil
}

// DeviceRebind requests that the device's driver be torn down and bound
// again. A composite front drops its fragment associations first. With
// children present the rebind is deferred: the children are unbound and the
// bind is issued once the last of them finalizes. Otherwise the bind is
// issued immediately.
func (c *Context) DeviceRebind(d *Device) error {
	c.mu.Lock()

	if d.flags.Has(FlagDead) {
		c.mu.Unlock()
		return fmt.Errorf("%w: device %s is dead", ErrBadState, d.name)
	}

	if d.hasPending(OpRebind) {
		c.mu.Unlock()
		return fmt.Errorf("%w: device %s already has a rebind in flight",
			ErrBadState, d.name)
	}

	d.setPending(OpRebind, nil)

	if d.composite != nil {
		d.composite.detachFragments()
	}

	if len(d.children) > 0 {
		c.setFlagsLocked(d, FlagWantsRebind)
		c.mu.Unlock()

		return c.UnbindChildren(d, nil)
	}

	localID := d.localID
	c.mu.Unlock()

	if err := c.coordinator.BindDevice(localID); err != nil {
		c.mu.Lock()
		d.takePending(OpRebind)
		c.mu.Unlock()
		return fmt.Errorf("rebinding device %s: %w", d.Name(), err)
	}

	return nil
}

// DeviceSuspend validates the requested power state against the device's
// table, then starts the suspend sequence. Exactly one DeviceSuspendReply
// must follow; done is delivered, through the work queue, with the reply's
// status.
func (c *Context) DeviceSuspend(
	d *Device,
	state PowerStateID,
	done func(error),
) error {
	return c.startPowerOp(d, OpSuspend, state, done)
}

// DeviceSuspendReply completes the suspend sequence. Replying without a
// pending suspend is fatal.
func (c *Context) DeviceSuspendReply(d *Device, status error) {
	c.finishPowerOp(d, OpSuspend, status)
}

// DeviceResume validates the requested power state against the device's
// table, then starts the resume sequence. Exactly one DeviceResumeReply must
// follow.
func (c *Context) DeviceResume(
	d *Device,
	state PowerStateID,
	done func(error),
) error {
	return c.startPowerOp(d, OpResume, state, done)
}

// DeviceResumeReply completes the resume sequence. Replying without a
// pending resume is fatal.
func (c *Context) DeviceResumeReply(d *Device, status error) {
	c.finishPowerOp(d, OpResume, status)
}

func (c *Context) startPowerOp(
	d *Device,
	kind OpKind,
	state PowerStateID,
	done func(error),
) error {
	c.mu.Lock()

	if d.flags.Has(FlagDead) {
		c.mu.Unlock()
		return fmt.Errorf("%w: device %s is dead", ErrBadState, d.name)
	}

	if !d.flags.Has(FlagAdded) {
		c.mu.Unlock()
		return fmt.Errorf("%w: device %s is not added", ErrBadState, d.name)
	}

	if !d.SupportsPowerState(state) {
		c.mu.Unlock()
		return fmt.Errorf("%w: device %s does not support power state %d",
			ErrInvalidArgs, d.name, state)
	}

	if d.hasPending(kind) {
		c.mu.Unlock()
		return fmt.Errorf("%w: device %s already has a %s in flight",
			ErrBadState, d.name, kind)
	}

	d.setPending(kind, done)

	var hook func(*Device, PowerStateID)
	if kind == OpSuspend {
		hook = d.opTable.Suspend
	} else {
		hook = d.opTable.Resume
	}

	c.mu.Unlock()

	if hook == nil {
		c.finishPowerOp(d, kind, nil)
		return nil
	}

	c.invokeDriverHook(d, kind.String(), func() {
		if kind == OpSuspend {
			d.ops().Suspend(d, state)
		} else {
			d.ops().Resume(d, state)
		}
	})

	return nil
}

func (c *Context) finishPowerOp(d *Device, kind OpKind, status error) {
	c.mu.Lock()

	callback, firstErr, ok := d.takePending(kind)
	if !ok {
		log.Panicf("%s reply without a pending %s on device %s",
			kind, kind, d.name)
	}

	if status == nil {
		status = firstErr
	}

	if callback != nil {
		result := status
		c.workQueue.Push(d, func() { callback(result) })
	}

	c.mu.Unlock()
}

// DeviceSystemSuspend suspends the device to the device power state its
// system power mapping assigns to sysState.
func (c *Context) DeviceSystemSuspend(
	d *Device,
	sysState SystemPowerStateID,
	done func(error),
) error {
	c.mu.Lock()
	state, ok := d.resolveSystemPowerState(sysState)
	c.mu.Unlock()

	if !ok {
		return fmt.Errorf(
			"%w: device %s has no mapping for system power state %d",
			ErrInvalidArgs, d.Name(), sysState)
	}

	return c.DeviceSuspend(d, state, done)
}

// DeviceSetPerformanceState validates the requested performance state, asks
// the driver to transition, and records the state the device settled in.
// Without a hook the requested state is accepted as-is.
func (c *Context) DeviceSetPerformanceState(
	d *Device,
	state PerformanceStateID,
) (PerformanceStateID, error) {
	c.mu.Lock()

	if d.flags.Has(FlagDead) {
		c.mu.Unlock()
		return 0, fmt.Errorf("%w: device %s is dead", ErrBadState, d.name)
	}

	if !d.flags.Has(FlagAdded) {
		c.mu.Unlock()
		return 0, fmt.Errorf("%w: device %s is not added",
			ErrBadState, d.name)
	}

	if !d.SupportsPerformanceState(state) {
		c.mu.Unlock()
		return 0, fmt.Errorf(
			"%w: device %s does not support performance state %d",
			ErrInvalidArgs, d.name, state)
	}

	hook := d.opTable.SetPerformanceState

	c.mu.Unlock()

	settled := state
	var err error

	if hook != nil {
		c.invokeDriverHook(d, "set_performance_state", func() {
			settled, err = d.ops().SetPerformanceState(d, state)
		})
		if err != nil {
			return 0, err
		}
	}

	c.mu.Lock()
	d.currentPerfState = settled
	c.mu.Unlock()

	return settled, nil
}
