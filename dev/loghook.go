package dev

import "log"

// A LogHook is a hook that is responsible for recording information from the
// lifecycle engine.
type LogHook interface {
	Hook
}

// LogHookBase provides the common logic for all LogHooks
type LogHookBase struct {
	*log.Logger
}

// LifecycleLogger is a hook that prints every device state transition and
// driver hook dispatch.
type LifecycleLogger struct {
	LogHookBase
}

// NewLifecycleLogger returns a LifecycleLogger which will write into the
// logger.
func NewLifecycleLogger(logger *log.Logger) *LifecycleLogger {
	h := new(LifecycleLogger)
	h.Logger = logger
	return h
}

// Func writes the transition information into the logger
func (h *LifecycleLogger) Func(ctx HookCtx) {
	d, ok := ctx.Item.(*Device)
	if !ok {
		return
	}

	switch ctx.Pos {
	case HookPosDeviceChange:
		h.Printf("%s: %v", d.Name(), ctx.Detail)
	case HookPosBeforeDriverHook:
		h.Printf("%s: -> %v hook", d.Name(), ctx.Detail)
	case HookPosAfterDriverHook:
		h.Printf("%s: <- %v hook", d.Name(), ctx.Detail)
	case HookPosDeviceFinal:
		h.Printf("%s: finalized", d.Name())
	}
}
