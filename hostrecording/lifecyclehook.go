package hostrecording

import (
	"fmt"
	"time"

	"github.com/hostlab/devhost/dev"
)

// A TransitionEntry is one recorded device state transition or driver hook
// dispatch.
type TransitionEntry struct {
	Time    int64
	Device  string
	LocalID uint64
	Kind    string
	Detail  string
}

// A LifecycleHook records every lifecycle transition it observes into a
// Recorder. Attach it to a Context with AcceptHook.
type LifecycleHook struct {
	recorder  Recorder
	tableName string
}

// NewLifecycleHook creates a LifecycleHook writing into recorder.
func NewLifecycleHook(recorder Recorder) *LifecycleHook {
	h := new(LifecycleHook)
	h.recorder = recorder
	h.tableName = "lifecycle"

	recorder.CreateTable(h.tableName, TransitionEntry{})

	return h
}

// Func records the transition.
func (h *LifecycleHook) Func(ctx dev.HookCtx) {
	d, ok := ctx.Item.(*dev.Device)
	if !ok {
		return
	}

	h.recorder.InsertData(h.tableName, TransitionEntry{
		Time:    time.Now().UnixNano(),
		Device:  d.Name(),
		LocalID: d.LocalID(),
		Kind:    ctx.Pos.Name,
		Detail:  fmt.Sprintf("%v", ctx.Detail),
	})
}
