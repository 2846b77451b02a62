package dev

import "fmt"

// PowerStateID identifies one device power state.
type PowerStateID uint32

// PerformanceStateID identifies one device performance state.
type PerformanceStateID uint32

// SystemPowerStateID identifies one system-wide power state.
type SystemPowerStateID uint32

// MaxPowerStates bounds the power state table a device may install.
const MaxPowerStates = 8

// MaxPerformanceStates bounds the performance state table a device may
// install.
const MaxPerformanceStates = 16

// A PowerState describes one power state a device supports.
type PowerState struct {
	ID              PowerStateID
	IsSupported     bool
	RestoreLatency  int64
	WakeupCapable   bool
	SystemWakeState SystemPowerStateID
}

// A PerformanceState describes one performance state a device supports.
type PerformanceState struct {
	ID             PerformanceStateID
	IsSupported    bool
	RestoreLatency int64
}

// A SystemPowerMapping maps one system power state to the device power state
// the device should enter when the system transitions.
type SystemPowerMapping struct {
	SystemState SystemPowerStateID
	DeviceState PowerStateID
	Wakeup      bool
}

// installPowerStates validates and installs the supplied tables on the
// device. A nil slice leaves the corresponding table unchanged. The caller
// must hold the tree lock.
func (d *Device) installPowerStates(
	powerStates []PowerState,
	perfStates []PerformanceState,
) error {
	if len(powerStates) > MaxPowerStates {
		return fmt.Errorf("%w: %d power states exceed the limit of %d",
			ErrInvalidArgs, len(powerStates), MaxPowerStates)
	}

	if len(perfStates) > MaxPerformanceStates {
		return fmt.Errorf("%w: %d performance states exceed the limit of %d",
			ErrInvalidArgs, len(perfStates), MaxPerformanceStates)
	}

	if powerStates != nil {
		d.powerStates = append(d.powerStates[:0], powerStates...)
	}

	if perfStates != nil {
		d.perfStates = append(d.perfStates[:0], perfStates...)
	}

	return nil
}

// SupportsPowerState tells if the device declared the given power state as
// supported.
func (d *Device) SupportsPowerState(id PowerStateID) bool {
	for _, s := range d.powerStates {
		if s.ID == id && s.IsSupported {
			return true
		}
	}

	return false
}

// SupportsPerformanceState tells if the device declared the given performance
// state as supported.
func (d *Device) SupportsPerformanceState(id PerformanceStateID) bool {
	for _, s := range d.perfStates {
		if s.ID == id && s.IsSupported {
			return true
		}
	}

	return false
}

// CurrentPerformanceState returns the performance state the device settled in
// most recently.
func (d *Device) CurrentPerformanceState() PerformanceStateID {
	return d.currentPerfState
}

// SetSystemPowerMapping installs the system-power-state to device-power-state
// mapping. Every mapped device state must be in the device's power state
// table.
func (d *Device) SetSystemPowerMapping(mapping []SystemPowerMapping) error {
	for _, m := range mapping {
		if !d.SupportsPowerState(m.DeviceState) {
			return fmt.Errorf(
				"%w: system state %d maps to unsupported device state %d",
				ErrInvalidArgs, m.SystemState, m.DeviceState)
		}
	}

	d.systemPowerMapping = append(d.systemPowerMapping[:0], mapping...)

	return nil
}

// SystemPowerTargets returns the live devices whose system power mapping
// covers sysState, children before parents, so a tree-wide transition can
// suspend leaves first.
func (c *Context) SystemPowerTargets(
	sysState SystemPowerStateID,
) []*Device {
	devices := c.Devices()

	targets := make([]*Device, 0, len(devices))
	for i := len(devices) - 1; i >= 0; i-- {
		d := devices[i]

		c.mu.Lock()
		_, mapped := d.resolveSystemPowerState(sysState)
		dead := d.flags.Has(FlagDead)
		c.mu.Unlock()

		if mapped && !dead {
			targets = append(targets, d)
		}
	}

	return targets
}

// resolveSystemPowerState looks up the device power state mapped to a system
// power state.
func (d *Device) resolveSystemPowerState(
	sysState SystemPowerStateID,
) (PowerStateID, bool) {
	for _, m := range d.systemPowerMapping {
		if m.SystemState == sysState {
			return m.DeviceState, true
		}
	}

	return 0, false
}
