package dev

import (
	"fmt"

	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"
)

var _ = ginkgo.Describe("Finalization", func() {
	var (
		mockCtrl *gomock.Controller
		coord    *MockCoordinator
		queue    *WorkQueue
		ctx      *Context
		drv      *Driver
	)

	ginkgo.BeforeEach(func() {
		mockCtrl = gomock.NewController(ginkgo.GinkgoT())
		coord = NewMockCoordinator(mockCtrl)
		queue = NewWorkQueue()
		ctx = NewContext(coord, queue)
		drv = NewDriver("sample-driver")
	})

	ginkgo.AfterEach(func() {
		mockCtrl.Finish()
	})

	addDevice := func(name string, ops *Ops, parent *Device, id uint64) *Device {
		coord.EXPECT().
			AddDevice(gomock.Any(), name, gomock.Any(),
				gomock.Any(), gomock.Any()).
			Return(id, nil)

		d, err := ctx.DeviceCreate(drv, name, ops)
		Expect(err).To(BeNil())
		Expect(ctx.DeviceAdd(d, parent, AddOptions{})).To(Succeed())

		return d
	}

	removeDevice := func(d *Device) {
		id := d.LocalID()
		coord.EXPECT().
			ScheduleRemove(id, false).
			DoAndReturn(func(uint64, bool) error {
				queue.Push(d, func() { _ = ctx.DeviceCompleteRemoval(d) })
				return nil
			})
		coord.EXPECT().RemoveDone(id).Return(nil)

		Expect(ctx.DeviceRemove(d, false, nil)).To(Succeed())
		drain(queue)
	}

	ginkgo.It("should run child_pre_release before release", func() {
		var order []string

		parent := addDevice("parent", &Ops{
			ChildPreRelease: func(parent, child *Device) {
				order = append(order, "child_pre_release")
			},
		}, ctx.Root(), 2)

		child := addDevice("child", &Ops{
			Release: func(d *Device) {
				order = append(order, "release")
			},
		}, parent, 3)

		removeDevice(child)

		Expect(order).To(Equal([]string{"child_pre_release", "release"}))
	})

	ginkgo.It("should poison the capability table after finalization", func() {
		d := addDevice("d1", &Ops{
			Read: func(d *Device, p []byte, off int64) (int, error) {
				return len(p), nil
			},
		}, ctx.Root(), 2)

		n, err := ctx.DeviceRead(d, make([]byte, 4), 0)
		Expect(err).To(BeNil())
		Expect(n).To(Equal(4))

		removeDevice(d)

		Expect(func() {
			_, _ = ctx.DeviceRead(d, make([]byte, 4), 0)
		}).To(Panic())
	})

	ginkgo.It("should keep dead devices in a bounded ring", func() {
		count := DeadRingCapacity + 2

		devices := make([]*Device, 0, count)
		for i := 0; i < count; i++ {
			d := addDevice(fmt.Sprintf("d%d", i), &Ops{},
				ctx.Root(), uint64(i+2))
			devices = append(devices, d)
		}

		Expect(ctx.LiveDeviceCount()).To(Equal(int64(count + 1)))

		for _, d := range devices {
			removeDevice(d)
		}

		// The ring holds the newest dead devices; the overflow is freed.
		Expect(ctx.LiveDeviceCount()).
			To(Equal(int64(DeadRingCapacity + 1)))
		Expect(devices[0].freed).To(BeTrue())
		Expect(devices[1].freed).To(BeTrue())
		Expect(devices[count-1].freed).To(BeFalse())
	})

	ginkgo.It("should panic on a reference drop of a freed device", func() {
		d := addDevice("d1", &Ops{}, ctx.Root(), 2)
		removeDevice(d)

		ctx.mu.Lock()
		d.freed = true
		ctx.mu.Unlock()

		Expect(func() {
			ctx.mu.Lock()
			defer ctx.mu.Unlock()
			ctx.downRefLocked(d)
		}).To(Panic())
	})

	ginkgo.It("should drop the tree reference on the parent", func() {
		parent := addDevice("parent", &Ops{}, ctx.Root(), 2)
		child := addDevice("child", &Ops{}, parent, 3)

		Expect(parent.refCount).To(Equal(2))

		removeDevice(child)

		Expect(parent.refCount).To(Equal(1))
		Expect(ctx.ChildrenOf(parent)).To(BeEmpty())
	})
})
