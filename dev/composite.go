package dev

// A Fragment names one constituent device of a composite.
type Fragment struct {
	Name   string
	Device *Device
}

// A CompositeDevice groups a set of existing devices behind one synthesized
// device. The fragment list owns the relationship, not the fragment devices'
// lifetimes; those remain owned by the tree.
type CompositeDevice struct {
	device    *Device
	fragments []Fragment
}

// Device returns the synthesized device fronting the composite, nil after the
// composite released.
func (c *CompositeDevice) Device() *Device {
	return c.device
}

// FragmentCount returns the number of fragments.
func (c *CompositeDevice) FragmentCount() int {
	return len(c.fragments)
}

// Fragments returns a copy of the fragment list in creation order.
func (c *CompositeDevice) Fragments() []Fragment {
	fragments := make([]Fragment, len(c.fragments))
	copy(fragments, c.fragments)
	return fragments
}

// Fragment resolves a fragment by name.
func (c *CompositeDevice) Fragment(name string) (*Device, bool) {
	for _, f := range c.fragments {
		if f.Name == name {
			return f.Device, true
		}
	}

	return nil, false
}

// detachFragments clears every fragment's back-reference. The caller must
// hold the tree lock. The fragment list itself stays intact until release so
// that queries keep returning stable results.
func (c *CompositeDevice) detachFragments() {
	for _, f := range c.fragments {
		f.Device.dropFragmentRef(c)
	}
}

// release frees the aggregate bookkeeping. The caller must hold the tree
// lock.
func (c *CompositeDevice) release() {
	c.detachFragments()
	c.fragments = nil
	c.device = nil
}
