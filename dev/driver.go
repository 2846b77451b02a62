package dev

// A Driver is a loaded code module that supplies capability tables to one or
// more devices. The engine never dereferences driver internals; it only needs
// a stable identity for diagnostics and coordinator registration.
type Driver struct {
	name string
}

// NewDriver creates a Driver with the given name.
func NewDriver(name string) *Driver {
	d := new(Driver)
	d.name = name
	return d
}

// Name returns the name of the driver.
func (d *Driver) Name() string {
	return d.name
}
