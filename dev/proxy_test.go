package dev

import (
	"errors"

	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"
)

var _ = ginkgo.Describe("Proxy", func() {
	var (
		mockCtrl *gomock.Controller
		coord    *MockCoordinator
		queue    *WorkQueue
		ctx      *Context
		drv      *Driver
		d, proxy *Device
	)

	ginkgo.BeforeEach(func() {
		mockCtrl = gomock.NewController(ginkgo.GinkgoT())
		coord = NewMockCoordinator(mockCtrl)
		queue = NewWorkQueue()
		ctx = NewContext(coord, queue)
		drv = NewDriver("sample-driver")

		d, _ = ctx.DeviceCreate(drv, "d1", &Ops{})
		proxy, _ = ctx.DeviceCreate(drv, "d1-proxy", &Ops{})
	})

	ginkgo.AfterEach(func() {
		mockCtrl.Finish()
	})

	ginkgo.It("should install and clear the association", func() {
		Expect(ctx.DeviceSetProxy(d, proxy)).To(Succeed())
		Expect(d.Proxy()).To(BeIdenticalTo(proxy))

		Expect(ctx.DeviceSetProxy(d, nil)).To(Succeed())
		Expect(d.Proxy()).To(BeNil())
	})

	ginkgo.It("should reject dead participants", func() {
		d.flags = FlagDead
		err := ctx.DeviceSetProxy(d, proxy)
		Expect(errors.Is(err, ErrBadState)).To(BeTrue())

		d.flags = 0
		proxy.flags = FlagDead
		err = ctx.DeviceSetProxy(d, proxy)
		Expect(errors.Is(err, ErrBadState)).To(BeTrue())
	})

	ginkgo.It("should drop the association at finalization", func() {
		coord.EXPECT().
			AddDevice(gomock.Any(), "d1", gomock.Any(),
				gomock.Any(), gomock.Any()).
			Return(uint64(2), nil)
		Expect(ctx.DeviceAdd(d, ctx.Root(), AddOptions{})).To(Succeed())
		Expect(ctx.DeviceSetProxy(d, proxy)).To(Succeed())

		coord.EXPECT().
			ScheduleRemove(uint64(2), false).
			DoAndReturn(func(uint64, bool) error {
				queue.Push(d, func() { _ = ctx.DeviceCompleteRemoval(d) })
				return nil
			})
		coord.EXPECT().RemoveDone(uint64(2)).Return(nil)

		Expect(ctx.DeviceRemove(d, false, nil)).To(Succeed())
		drain(queue)

		Expect(d.Proxy()).To(BeNil())
	})
})
