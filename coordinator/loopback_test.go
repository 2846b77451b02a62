package coordinator_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hostlab/devhost/coordinator"
	"github.com/hostlab/devhost/dev"
)

var _ = Describe("Loopback", func() {
	var (
		lb    *coordinator.Loopback
		queue *dev.WorkQueue
		ctx   *dev.Context
		drv   *dev.Driver
	)

	drainAll := func() {
		for queue.Len() > 0 {
			queue.RunPending(0)
		}
	}

	addDevice := func(name string, parent *dev.Device) *dev.Device {
		d, err := ctx.DeviceCreate(drv, name, &dev.Ops{})
		Expect(err).To(BeNil())
		Expect(ctx.DeviceAdd(d, parent, dev.AddOptions{})).To(Succeed())
		return d
	}

	BeforeEach(func() {
		lb = coordinator.NewLoopback()
		queue = dev.NewWorkQueue()
		ctx = dev.NewContext(lb, queue)
		lb.Attach(ctx)
		drv = dev.NewDriver("sample-driver")
	})

	It("should assign ids above the root id", func() {
		d1 := addDevice("d1", ctx.Root())
		d2 := addDevice("d2", d1)

		Expect(d1.LocalID()).To(Equal(uint64(dev.RootLocalID + 1)))
		Expect(d2.LocalID()).To(Equal(uint64(dev.RootLocalID + 2)))
	})

	It("should drive a scheduled removal to completion", func() {
		d := addDevice("d1", ctx.Root())
		id := d.LocalID()

		Expect(ctx.DeviceRemove(d, false, nil)).To(Succeed())
		drainAll()

		Expect(d.Flags().Has(dev.FlagDead)).To(BeTrue())
		Expect(lb.RemovedDevices()).To(ConsistOf(id))
	})

	It("should drive an unbind-first removal to completion", func() {
		d := addDevice("d1", ctx.Root())
		id := d.LocalID()

		Expect(ctx.DeviceRemove(d, true, nil)).To(Succeed())
		drainAll()

		Expect(d.Flags().Has(dev.FlagDead)).To(BeTrue())
		Expect(lb.RemovedDevices()).To(ConsistOf(id))
	})

	It("should report unknown local ids", func() {
		err := lb.ScheduleRemove(99, false)
		Expect(errors.Is(err, dev.ErrNotFound)).To(BeTrue())
	})

	It("should unbind children on request", func() {
		parent := addDevice("parent", ctx.Root())
		c1 := addDevice("c1", parent)
		c2 := addDevice("c2", parent)

		Expect(lb.ScheduleUnbindChildren(parent.LocalID())).To(Succeed())
		drainAll()

		Expect(c1.Flags().Has(dev.FlagDead)).To(BeTrue())
		Expect(c2.Flags().Has(dev.FlagDead)).To(BeTrue())
		Expect(ctx.ChildrenOf(parent)).To(BeEmpty())
	})

	It("should record bind requests", func() {
		d := addDevice("d1", ctx.Root())

		Expect(ctx.DeviceRebind(d)).To(Succeed())

		Expect(lb.BoundDevices()).To(ConsistOf(d.LocalID()))
	})

	It("should store and fetch metadata", func() {
		d := addDevice("d1", ctx.Root())

		Expect(ctx.DeviceAddMetadata(d, 7, []byte("blob"))).To(Succeed())

		data, err := ctx.DeviceGetMetadata(d, 7)
		Expect(err).To(BeNil())
		Expect(data).To(Equal([]byte("blob")))

		_, err = ctx.DeviceGetMetadata(d, 8)
		Expect(errors.Is(err, dev.ErrNotFound)).To(BeTrue())
	})

	It("should refuse everything after Close", func() {
		d := addDevice("d1", ctx.Root())

		lb.Close()

		_, err := lb.AddDevice(1, "x", "drv", nil, "")
		Expect(errors.Is(err, dev.ErrIoRefused)).To(BeTrue())

		Expect(errors.Is(lb.ScheduleRemove(d.LocalID(), false),
			dev.ErrIoRefused)).To(BeTrue())
		Expect(errors.Is(lb.BindDevice(d.LocalID()),
			dev.ErrIoRefused)).To(BeTrue())
		Expect(errors.Is(lb.RemoveDone(d.LocalID()),
			dev.ErrIoRefused)).To(BeTrue())
	})

	It("should let the host tear down locally after Close", func() {
		d := addDevice("d1", ctx.Root())

		lb.Close()

		Expect(ctx.DeviceRemove(d, false, nil)).To(Succeed())
		drainAll()

		Expect(d.Flags().Has(dev.FlagDead)).To(BeTrue())
		Expect(ctx.ChildrenOf(ctx.Root())).To(BeEmpty())
	})
})
