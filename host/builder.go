package host

import (
	"github.com/rs/xid"

	"github.com/hostlab/devhost/coordinator"
	"github.com/hostlab/devhost/dev"
	"github.com/hostlab/devhost/hostrecording"
	"github.com/hostlab/devhost/monitoring"
)

// Builder can be used to build a driver host.
type Builder struct {
	coordinator    dev.Coordinator
	monitorOn      bool
	monitorPort    int
	recordingOn    bool
	outputFileName string
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		monitorOn:   true,
		recordingOn: true,
	}
}

// WithCoordinator sets the coordinator connection of the host. Without one
// an in-process loopback coordinator is used.
func (b Builder) WithCoordinator(c dev.Coordinator) Builder {
	b.coordinator = c
	return b
}

// WithoutMonitoring sets the host to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithoutRecording sets the host to not record lifecycle transitions.
func (b Builder) WithoutRecording() Builder {
	b.recordingOn = false
	return b
}

// WithOutputFileName sets the custom output file name for the lifecycle
// recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.recordingOn && b.outputFileName != "" {
		panic("output file name cannot be set when recording is disabled")
	}
}

// Build builds the host.
func (b Builder) Build() *Host {
	b.parametersMustBeValid()

	h := &Host{
		stop: make(chan struct{}),
	}

	h.id = xid.New().String()

	h.workQueue = dev.NewWorkQueue()

	h.coordinator = b.coordinator
	if h.coordinator == nil {
		h.coordinator = coordinator.NewLoopback()
	}

	h.ctx = dev.NewContext(h.coordinator, h.workQueue)

	if lb, ok := h.coordinator.(*coordinator.Loopback); ok {
		lb.Attach(h.ctx)
	}

	if b.recordingOn {
		outputPath := b.outputFileName
		if outputPath == "" {
			outputPath = "devhost_" + h.id
		}

		h.recorder = hostrecording.NewRecorder(outputPath)
		h.ctx.AcceptHook(hostrecording.NewLifecycleHook(h.recorder))
	}

	if b.monitorOn {
		h.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			h.monitor.WithPortNumber(b.monitorPort)
		}
		h.monitor.RegisterContext(h.ctx)
		h.monitor.RegisterLoop(h)
		h.monitor.StartServer()
	}

	return h
}
