package dev

import "fmt"

// Proxy returns the device's proxy association, nil if none.
func (d *Device) Proxy() *Device {
	return d.proxy
}

// DeviceSetProxy installs or clears (with nil) the device's proxy
// association. The proxy reference is dropped automatically when either side
// is finalized.
func (c *Context) DeviceSetProxy(d, proxy *Device) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d.flags.Has(FlagDead) {
		return fmt.Errorf("%w: device %s is dead", ErrBadState, d.name)
	}

	if proxy != nil && proxy.flags.Has(FlagDead) {
		return fmt.Errorf("%w: proxy %s is dead", ErrBadState, proxy.name)
	}

	d.proxy = proxy

	return nil
}
