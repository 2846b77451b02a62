package dev

import "fmt"

// DeviceOpen opens a downstream connection to the device. If the driver's
// Open hook returns an instance device, the connection talks to that
// instance instead; the returned device is the one the connection must close
// later.
func (c *Context) DeviceOpen(d *Device, flags uint32) (*Device, error) {
	c.mu.Lock()

	if d.flags.Has(FlagDead) {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: device %s is dead", ErrBadState, d.name)
	}

	if !d.flags.Has(FlagAdded) {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: device %s is not added",
			ErrBadState, d.name)
	}

	hook := d.opTable.Open

	c.mu.Unlock()

	target := d

	if hook != nil {
		var redirect *Device
		var err error

		c.invokeDriverHook(d, "open", func() {
			redirect, err = d.ops().Open(d, flags)
		})

		if err != nil {
			return nil, err
		}

		if redirect != nil {
			target = redirect
		}
	}

	c.mu.Lock()

	if target != d && !target.flags.Has(FlagInstance) {
		c.mu.Unlock()
		return nil, fmt.Errorf(
			"%w: open hook of %s redirected to non-instance device %s",
			ErrBadState, d.name, target.name)
	}

	target.openConnections++

	c.mu.Unlock()

	return target, nil
}

// DeviceClose closes one downstream connection. An instance device whose
// last connection closes marks itself dead and is queued for finalization.
func (c *Context) DeviceClose(d *Device, flags uint32) error {
	c.mu.Lock()

	if d.openConnections == 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: device %s has no open connections",
			ErrBadState, d.name)
	}

	hook := d.opTable.Close

	c.mu.Unlock()

	var err error

	if hook != nil {
		c.invokeDriverHook(d, "close", func() {
			err = d.ops().Close(d, flags)
		})
	}

	c.mu.Lock()

	d.openConnections--

	if d.flags.Has(FlagInstance) && d.openConnections == 0 {
		c.downRefLocked(d)
	}

	c.mu.Unlock()

	return err
}

// DeviceRead dispatches to the driver's Read hook, ErrNotSupported without
// one.
func (c *Context) DeviceRead(
	d *Device,
	p []byte,
	off int64,
) (int, error) {
	t := d.ops()
	if t.Read == nil {
		return 0, ErrNotSupported
	}

	var n int
	var err error

	c.invokeDriverHook(d, "read", func() {
		n, err = t.Read(d, p, off)
	})

	return n, err
}

// DeviceWrite dispatches to the driver's Write hook, ErrNotSupported without
// one.
func (c *Context) DeviceWrite(
	d *Device,
	p []byte,
	off int64,
) (int, error) {
	t := d.ops()
	if t.Write == nil {
		return 0, ErrNotSupported
	}

	var n int
	var err error

	c.invokeDriverHook(d, "write", func() {
		n, err = t.Write(d, p, off)
	})

	return n, err
}

// DeviceGetSize dispatches to the driver's GetSize hook, 0 without one.
func (c *Context) DeviceGetSize(d *Device) int64 {
	t := d.ops()
	if t.GetSize == nil {
		return 0
	}

	var size int64

	c.invokeDriverHook(d, "get_size", func() {
		size = t.GetSize(d)
	})

	return size
}

// DeviceMessage dispatches to the driver's Message hook, ErrNotSupported
// without one.
func (c *Context) DeviceMessage(d *Device, msg []byte) error {
	t := d.ops()
	if t.Message == nil {
		return ErrNotSupported
	}

	var err error

	c.invokeDriverHook(d, "message", func() {
		err = t.Message(d, msg)
	})

	return err
}
