package dev

import "fmt"

// compositeDriver is the synthetic driver composite front devices are
// created under.
var compositeDriver = NewDriver("composite")

// A FragmentRef names a composite fragment by the local id of an existing
// device, the way an external composition request refers to devices.
type FragmentRef struct {
	Name    string
	LocalID uint64
}

// CreateComposite groups the given fragments behind one new synthesized
// device. Fragment names must be unique, every fragment device must be
// alive, and a device already serving as a fragment is rejected unless it
// allows multi-composite membership. Nothing is mutated on failure.
//
// The synthesized device carries a capability table whose Unbind clears
// every fragment's back-reference before completing, and whose Release frees
// the aggregate bookkeeping. The caller attaches the device to the tree with
// DeviceAdd like any other.
func (c *Context) CreateComposite(
	name string,
	fragments []Fragment,
) (*CompositeDevice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.createCompositeLocked(name, fragments)
}

// CreateCompositeFromIDs resolves fragment references through the local-id
// registry, then builds the composite. An id that resolves to nothing fails
// the creation with ErrNotFound; it is not fatal, the request may come from
// a coordinator racing a removal.
func (c *Context) CreateCompositeFromIDs(
	name string,
	refs []FragmentRef,
) (*CompositeDevice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fragments := make([]Fragment, 0, len(refs))
	for _, ref := range refs {
		d, ok := c.registry.Find(ref.LocalID)
		if !ok {
			return nil, fmt.Errorf(
				"%w: fragment %q refers to unknown local id %d",
				ErrNotFound, ref.Name, ref.LocalID)
		}

		fragments = append(fragments, Fragment{Name: ref.Name, Device: d})
	}

	return c.createCompositeLocked(name, fragments)
}

func (c *Context) createCompositeLocked(
	name string,
	fragments []Fragment,
) (*CompositeDevice, error) {
	if err := validateFragments(fragments); err != nil {
		return nil, err
	}

	comp := &CompositeDevice{
		fragments: append([]Fragment(nil), fragments...),
	}

	ops := &Ops{
		Unbind: func(front *Device) {
			c.mu.Lock()
			comp.detachFragments()
			c.mu.Unlock()

			c.DeviceUnbindReply(front)
		},
		Release: func(front *Device) {
			c.mu.Lock()
			comp.release()
			front.composite = nil
			c.mu.Unlock()
		},
	}

	front, err := c.DeviceCreate(compositeDriver, name, ops)
	if err != nil {
		return nil, err
	}

	front.composite = comp
	comp.device = front

	for _, f := range fragments {
		f.Device.fragmentOf = append(f.Device.fragmentOf, comp)
	}

	return comp, nil
}

func validateFragments(fragments []Fragment) error {
	if len(fragments) == 0 {
		return fmt.Errorf("%w: composite needs at least one fragment",
			ErrInvalidArgs)
	}

	seen := make(map[string]bool, len(fragments))
	for _, f := range fragments {
		switch {
		case f.Name == "":
			return fmt.Errorf("%w: empty fragment name", ErrInvalidArgs)
		case seen[f.Name]:
			return fmt.Errorf("%w: duplicate fragment name %q",
				ErrInvalidArgs, f.Name)
		case f.Device == nil:
			return fmt.Errorf("%w: fragment %q has no device",
				ErrInvalidArgs, f.Name)
		case f.Device.flags.Has(FlagDead):
			return fmt.Errorf("%w: fragment %q device %s is dead",
				ErrInvalidArgs, f.Name, f.Device.name)
		case f.Device.isFragment() &&
			!f.Device.flags.Has(FlagAllowMultiComposite):
			return fmt.Errorf(
				"%w: fragment %q device %s already belongs to a composite",
				ErrInvalidArgs, f.Name, f.Device.name)
		}

		seen[f.Name] = true
	}

	return nil
}
