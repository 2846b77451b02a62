package dev

import "log"

// An OpKind names one asynchronous lifecycle operation. A device may have at
// most one outstanding callback per kind.
type OpKind int

// The operation kinds that own pending-callback slots.
const (
	OpInit OpKind = iota
	OpUnbind
	OpSuspend
	OpResume
	OpRemoval
	OpBind
	OpRebind
	OpUnbindChildren

	numOpKinds
)

var opKindNames = [numOpKinds]string{
	"init",
	"unbind",
	"suspend",
	"resume",
	"removal",
	"bind",
	"rebind",
	"unbind_children",
}

func (k OpKind) String() string {
	return opKindNames[k]
}

// A pendingOp is a single-use callback slot plus the first error observed
// while the operation was outstanding.
type pendingOp struct {
	callback func(error)
	err      error
}

// setPending occupies a slot. Re-entry before the slot is drained is a
// protocol violation by a trusted caller, so it is fatal.
func (d *Device) setPending(kind OpKind, callback func(error)) {
	if d.pending[kind] != nil {
		log.Panicf("device %s already has a pending %s operation",
			d.name, kind)
	}

	d.pending[kind] = &pendingOp{callback: callback}
}

// takePending drains a slot, returning the callback and the first observed
// error. It returns ok == false if the slot is empty.
func (d *Device) takePending(kind OpKind) (func(error), error, bool) {
	op := d.pending[kind]
	if op == nil {
		return nil, nil, false
	}

	d.pending[kind] = nil

	return op.callback, op.err, true
}

// hasPending tells if a slot is occupied.
func (d *Device) hasPending(kind OpKind) bool {
	return d.pending[kind] != nil
}

// recordPendingError stores err in the slot if the slot is occupied and has
// not observed an error yet.
func (d *Device) recordPendingError(kind OpKind, err error) {
	op := d.pending[kind]
	if op == nil || op.err != nil || err == nil {
		return
	}

	op.err = err
}
