package dev

import (
	"errors"

	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"
)

var _ = ginkgo.Describe("IO", func() {
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

	addDevice := func(name string, ops *Ops, id uint64) *Device {
		coord.EXPECT().
			AddDevice(gomock.Any(), name, gomock.Any(),
				gomock.Any(), gomock.Any()).
			Return(id, nil)

		d, err := ctx.DeviceCreate(drv, name, ops)
		Expect(err).To(BeNil())
		Expect(ctx.DeviceAdd(d, ctx.Root(), AddOptions{})).To(Succeed())

		return d
	}

	ginkgo.It("should refuse opening a device that is not added", func() {
		d, _ := ctx.DeviceCreate(drv, "d1", &Ops{})

		_, err := ctx.DeviceOpen(d, 0)
		Expect(errors.Is(err, ErrBadState)).To(BeTrue())
	})

	ginkgo.It("should open and close plain devices", func() {
		d := addDevice("d1", &Ops{}, 2)

		target, err := ctx.DeviceOpen(d, 0)
		Expect(err).To(BeNil())
		Expect(target).To(BeIdenticalTo(d))
		Expect(d.openConnections).To(Equal(1))

		Expect(ctx.DeviceClose(d, 0)).To(Succeed())
		Expect(d.openConnections).To(Equal(0))
	})

	ginkgo.It("should refuse closing without an open connection", func() {
		d := addDevice("d1", &Ops{}, 2)

		err := ctx.DeviceClose(d, 0)
		Expect(errors.Is(err, ErrBadState)).To(BeTrue())
	})

	ginkgo.It("should redirect opens to an instance device", func() {
		var inst *Device

		parent := addDevice("parent", &Ops{
			Open: func(d *Device, flags uint32) (*Device, error) {
				created, err := ctx.DeviceCreate(drv, "parent-inst", &Ops{})
				if err != nil {
					return nil, err
				}
				if err := ctx.DeviceAdd(created, d,
					AddOptions{Instance: true}); err != nil {
					return nil, err
				}
				inst = created
				return created, nil
			},
		}, 2)

		target, err := ctx.DeviceOpen(parent, 0)
		Expect(err).To(BeNil())
		Expect(target).To(BeIdenticalTo(inst))
		Expect(parent.openConnections).To(Equal(0))
		Expect(inst.openConnections).To(Equal(1))
	})

	ginkgo.It("should finalize an instance when its last connection closes", func() {
		parent := addDevice("parent", &Ops{}, 2)

		inst, _ := ctx.DeviceCreate(drv, "inst", &Ops{})
		Expect(ctx.DeviceAdd(inst, parent,
			AddOptions{Instance: true})).To(Succeed())

		target, err := ctx.DeviceOpen(inst, 0)
		Expect(err).To(BeNil())
		Expect(target).To(BeIdenticalTo(inst))

		Expect(ctx.DeviceClose(inst, 0)).To(Succeed())
		drain(queue)

		Expect(inst.Flags().Has(FlagDead)).To(BeTrue())
		Expect(ctx.ChildrenOf(parent)).To(BeEmpty())
	})

	ginkgo.It("should refuse redirects to non-instance devices", func() {
		other := addDevice("other", &Ops{}, 3)

		parent := addDevice("parent", &Ops{
			Open: func(d *Device, flags uint32) (*Device, error) {
				return other, nil
			},
		}, 2)

		_, err := ctx.DeviceOpen(parent, 0)
		Expect(errors.Is(err, ErrBadState)).To(BeTrue())
	})

	ginkgo.It("should dispatch reads and writes", func() {
		d := addDevice("d1", &Ops{
			Read: func(d *Device, p []byte, off int64) (int, error) {
				for i := range p {
					p[i] = byte(off)
				}
				return len(p), nil
			},
			Write: func(d *Device, p []byte, off int64) (int, error) {
				return len(p), nil
			},
			GetSize: func(d *Device) int64 { return 512 },
		}, 2)

		p := make([]byte, 4)
		n, err := ctx.DeviceRead(d, p, 7)
		Expect(err).To(BeNil())
		Expect(n).To(Equal(4))
		Expect(p[0]).To(Equal(byte(7)))

		n, err = ctx.DeviceWrite(d, p, 0)
		Expect(err).To(BeNil())
		Expect(n).To(Equal(4))

		Expect(ctx.DeviceGetSize(d)).To(Equal(int64(512)))
	})

	ginkgo.It("should report unsupported data paths", func() {
		d := addDevice("d1", &Ops{}, 2)

		_, err := ctx.DeviceRead(d, make([]byte, 4), 0)
		Expect(errors.Is(err, ErrNotSupported)).To(BeTrue())

		_, err = ctx.DeviceWrite(d, make([]byte, 4), 0)
		Expect(errors.Is(err, ErrNotSupported)).To(BeTrue())

		err = ctx.DeviceMessage(d, []byte("ping"))
		Expect(errors.Is(err, ErrNotSupported)).To(BeTrue())

		Expect(ctx.DeviceGetSize(d)).To(Equal(int64(0)))
	})

	ginkgo.It("should dispatch messages", func() {
		var got []byte
		d := addDevice("d1", &Ops{
			Message: func(d *Device, msg []byte) error {
				got = msg
				return nil
			},
		}, 2)

		Expect(ctx.DeviceMessage(d, []byte("ping"))).To(Succeed())
		Expect(got).To(Equal([]byte("ping")))
	})
})
