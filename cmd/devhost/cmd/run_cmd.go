package cmd

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hostlab/devhost/dev"
	"github.com/hostlab/devhost/host"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a driver host with a sample device tree",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.SilenceUsage = true
		runHost(cmd)
	},
}

func init() {
	runCmd.Flags().Int("port", 0,
		"port for the monitoring server, 0 picks a random port")
	runCmd.Flags().Bool("no-monitor", false,
		"disable the monitoring server")
	runCmd.Flags().Bool("no-record", false,
		"disable lifecycle recording")
	runCmd.Flags().String("output", "",
		"output file name for the lifecycle recorder")
	runCmd.Flags().Bool("verbose", false,
		"log every lifecycle transition to stderr")

	rootCmd.AddCommand(runCmd)
}

func runHost(cmd *cobra.Command) {
	// A .env file can carry the same settings as the flags.
	_ = godotenv.Load()

	builder := host.MakeBuilder()

	if mustBoolFlag(cmd, "no-monitor") {
		builder = builder.WithoutMonitoring()
	} else if port := monitorPort(cmd); port > 0 {
		builder = builder.WithMonitorPort(port)
	}

	if mustBoolFlag(cmd, "no-record") {
		builder = builder.WithoutRecording()
	} else if output := outputFileName(cmd); output != "" {
		builder = builder.WithOutputFileName(output)
	}

	h := builder.Build()
	defer h.Terminate()

	if mustBoolFlag(cmd, "verbose") {
		h.Context().AcceptHook(dev.NewLifecycleLogger(log.Default()))
	}

	if err := buildSampleTree(h.Context()); err != nil {
		log.Fatalf("cannot build sample tree: %v", err)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		// Suspend the disks before stopping the control loop.
		h.SystemSuspend(systemStateShutdown, func(err error) {
			if err != nil {
				log.Printf("system suspend: %v", err)
			}
			h.Stop()
		})
	}()

	if err := h.Run(); err != nil {
		log.Fatalf("host stopped with error: %v", err)
	}

	fmt.Fprintf(os.Stderr, "Host %s stopped with %d live devices\n",
		h.ID(), h.Context().LiveDeviceCount())
}

func monitorPort(cmd *cobra.Command) int {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		log.Fatalf("cannot read port flag: %v", err)
	}

	if port == 0 {
		if ev := os.Getenv("DEVHOST_MONITOR_PORT"); ev != "" {
			port, err = strconv.Atoi(ev)
			if err != nil {
				log.Fatalf("invalid DEVHOST_MONITOR_PORT %q: %v", ev, err)
			}
		}
	}

	return port
}

func outputFileName(cmd *cobra.Command) string {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		log.Fatalf("cannot read output flag: %v", err)
	}

	if output == "" {
		output = os.Getenv("DEVHOST_OUTPUT")
	}

	return output
}

func mustBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		log.Fatalf("cannot read %s flag: %v", name, err)
	}

	return v
}

// buildSampleTree adds a bus whose init hook spawns two disks, then groups
// the disks behind a composite once both finish initializing.
func buildSampleTree(ctx *dev.Context) error {
	busDriver := dev.NewDriver("demo-bus")
	diskDriver := dev.NewDriver("demo-disk")

	busOps := &dev.Ops{
		Init: func(bus *dev.Device) {
			for _, name := range []string{"disk-0", "disk-1"} {
				disk, err := ctx.DeviceCreate(diskDriver, name, diskOps(ctx))
				if err != nil {
					ctx.DeviceInitReply(bus, err, nil, nil)
					return
				}

				if err := ctx.DeviceAdd(disk, bus, dev.AddOptions{}); err != nil {
					ctx.DeviceInitReply(bus, err, nil, nil)
					return
				}
			}

			ctx.DeviceInitReply(bus, nil, nil, nil)
		},
	}

	bus, err := ctx.DeviceCreate(busDriver, "bus", busOps)
	if err != nil {
		return err
	}

	if err := ctx.DeviceAdd(bus, ctx.Root(), dev.AddOptions{}); err != nil {
		return err
	}

	// The join fires once both disks have completed their init sequences.
	return ctx.DeviceBind(bus, func(err error) {
		if err != nil {
			log.Printf("bus bind failed: %v", err)
			return
		}

		addDiskComposite(ctx, bus)
	})
}

func addDiskComposite(ctx *dev.Context, bus *dev.Device) {
	refs := make([]dev.FragmentRef, 0, len(ctx.ChildrenOf(bus)))
	for _, disk := range ctx.ChildrenOf(bus) {
		refs = append(refs, dev.FragmentRef{
			Name:    disk.Name(),
			LocalID: disk.LocalID(),
		})
	}

	comp, err := ctx.CreateCompositeFromIDs("raid", refs)
	if err != nil {
		log.Printf("cannot create composite: %v", err)
		return
	}

	if err := ctx.DeviceAdd(comp.Device(), bus, dev.AddOptions{}); err != nil {
		log.Printf("cannot add composite: %v", err)
	}
}

// systemStateShutdown is the system power state the host enters on SIGINT
// and SIGTERM.
const systemStateShutdown dev.SystemPowerStateID = 5

func diskOps(ctx *dev.Context) *dev.Ops {
	powerStates := []dev.PowerState{
		{ID: 0, IsSupported: true},
		{ID: 3, IsSupported: true, RestoreLatency: 100},
	}

	return &dev.Ops{
		Init: func(d *dev.Device) {
			ctx.DeviceInitReply(d, nil, powerStates, nil)

			if err := d.SetSystemPowerMapping([]dev.SystemPowerMapping{
				{SystemState: systemStateShutdown, DeviceState: 3},
			}); err != nil {
				log.Printf("cannot map system power state: %v", err)
			}
		},
		GetSize: func(d *dev.Device) int64 {
			return 1 << 30
		},
		Read: func(d *dev.Device, p []byte, off int64) (int, error) {
			for i := range p {
				p[i] = 0
			}
			return len(p), nil
		},
		Suspend: func(d *dev.Device, state dev.PowerStateID) {
			ctx.DeviceSuspendReply(d, nil)
		},
	}
}
