// ccrf-regs: Inspect and program the radio register file
//
// Usage:
//
//	ccrf-regs list
//	ccrf-regs dump    [-o file] [--stdout]
//	ccrf-regs load    -i file
//	ccrf-regs program [--band 868] [--power -5]
//	ccrf-regs status
//	ccrf-regs amp     on|off|get
//	ccrf-regs reset
//
// Register dumps are YAML and can be loaded back onto any dongle.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/google/gousb"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/herlein/ccrf/pkg/board"
	"github.com/herlein/ccrf/pkg/config"
	"github.com/herlein/ccrf/pkg/profiles"
	"github.com/herlein/ccrf/pkg/registers"
	"github.com/herlein/ccrf/pkg/yardstick"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "ccrf-regs"})

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s <list|dump|load|program|status|amp|reset> [flags]\n", os.Args[0])
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	cmd, args := os.Args[1], os.Args[2:]

	fs := pflag.NewFlagSet(cmd, pflag.ExitOnError)
	backend := fs.String("backend", board.KindYardstick, "Radio backend: yardstick or sim")
	device := fs.StringP("device", "d", "", yardstick.DeviceFlagUsage())
	verbose := fs.BoolP("verbose", "v", false, "Debug logging")

	var err error
	switch cmd {
	case "list":
		fs.Parse(args)
		err = list()

	case "dump":
		output := fs.StringP("output", "o", "", "Output file (default: etc/ccrf/<serial>.yaml)")
		stdout := fs.Bool("stdout", false, "Write the dump to stdout instead of a file")
		fs.Parse(args)
		setVerbose(*verbose)
		err = withBoard(*backend, *device, func(b *board.Board) error {
			return dump(b, *output, *stdout)
		})

	case "load":
		input := fs.StringP("input", "i", "", "Register dump to apply")
		fs.Parse(args)
		setVerbose(*verbose)
		if *input == "" {
			logger.Fatal("load needs --input")
		}
		err = withBoard(*backend, *device, func(b *board.Board) error {
			return load(b, *input)
		})

	case "program":
		band := fs.StringP("band", "b", profiles.Band868, "Band profile (868 or 915)")
		power := fs.IntP("power", "p", -5, fmt.Sprintf("TX power in dBm %v", profiles.PowerLevels()))
		fs.Parse(args)
		setVerbose(*verbose)
		err = withBoard(*backend, *device, func(b *board.Board) error {
			return program(b, *band, *power)
		})

	case "status":
		fs.Parse(args)
		setVerbose(*verbose)
		err = withBoard(*backend, *device, status)

	case "amp":
		fs.Parse(args)
		setVerbose(*verbose)
		if fs.NArg() != 1 {
			usage()
		}
		err = withBoard(board.KindYardstick, *device, func(b *board.Board) error {
			return amp(b.Device(), fs.Arg(0))
		})

	case "reset":
		fs.Parse(args)
		err = reset()

	default:
		usage()
	}

	if err != nil {
		logger.Fatal(cmd, "err", err)
	}
}

func setVerbose(v bool) {
	if v {
		logger.SetLevel(log.DebugLevel)
	}
}

func withBoard(kind, device string, fn func(*board.Board) error) error {
	b, err := board.Open(kind, yardstick.DeviceSelector(device))
	if err != nil {
		return err
	}
	defer b.Close()

	if d := b.Device(); d != nil {
		logger.Debug("connected", "device", d.String())
		if err := d.Ping([]byte("PING")); err != nil {
			return err
		}
	}
	return fn(b)
}

func source(b *board.Board) string {
	if d := b.Device(); d != nil {
		return d.Serial
	}
	return b.Kind
}

func list() error {
	context := gousb.NewContext()
	defer context.Close()

	devices, err := yardstick.FindAllDevices(context)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("No YardStick One devices found")
		return nil
	}

	fmt.Printf("Found %d device(s):\n\n", len(devices))
	for i, device := range devices {
		fmt.Printf("Device #%d:\n", i)
		fmt.Printf("  Serial:       %s\n", device.Serial)
		fmt.Printf("  Bus:Address:  %d:%d\n", device.Bus, device.Address)
		fmt.Printf("  Product:      %s %s\n", device.Manufacturer, device.Product)
		if buildType, err := device.GetBuildType(); err == nil {
			fmt.Printf("  Firmware:     %s\n", buildType)
		}
		if partNum, err := device.GetPartNum(); err == nil {
			fmt.Printf("  Chip:         %s (0x%02X)\n", registers.PartName(partNum), partNum)
		}
		fmt.Println()
		device.Close()
	}
	return nil
}

func dump(b *board.Board, output string, stdout bool) error {
	d, err := config.DumpFromBus(b.Hardware(), source(b))
	if err != nil {
		return err
	}

	if stdout {
		data, err := yaml.Marshal(d)
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
		return nil
	}

	path := output
	if path == "" {
		path = config.GetDumpPath(d.Source)
	}
	if err := config.SaveToFile(d, path); err != nil {
		return err
	}
	fmt.Printf("Registers saved to: %s\n", path)
	printSummary(d)
	return nil
}

func load(b *board.Board, path string) error {
	d, err := config.LoadFromFile(path)
	if err != nil {
		return err
	}
	logger.Info("applying", "file", path, "source", d.Source, "taken", d.Timestamp)
	if err := config.ApplyToBus(b.Hardware(), d); err != nil {
		return err
	}

	// Read back to confirm
	check, err := config.DumpFromBus(b.Hardware(), source(b))
	if err != nil {
		return err
	}
	if check.Registers.MDMCFG2 != d.Registers.MDMCFG2 || check.GetSyncWord() != d.GetSyncWord() {
		return fmt.Errorf("read back does not match %s", path)
	}
	printSummary(check)
	return nil
}

func program(b *board.Board, band string, power int) error {
	p, err := profiles.ForBand(band)
	if err != nil {
		return err
	}
	if p, err = p.WithPower(power); err != nil {
		return err
	}

	regs := p.ToRegisters()
	d := &config.RegisterDump{Source: p.Name, Registers: *regs}
	if err := config.ApplyToBus(b.Hardware(), d); err != nil {
		return err
	}
	logger.Info("programmed", "profile", p.Name, "power_dbm", power)
	return nil
}

func status(b *board.Board) error {
	bus := b.Hardware()
	state, err := registers.GetRadioState(bus)
	if err != nil {
		return err
	}
	pkt, err := bus.ReadRegister(registers.RegPKTSTATUS)
	if err != nil {
		return err
	}
	part, err := bus.ReadRegister(registers.RegPARTNUM)
	if err != nil {
		return err
	}
	armed, err := bus.ReadRegister(registers.RegDMAARM)
	if err != nil {
		return err
	}

	fmt.Printf("Chip:         %s (0x%02X)\n", registers.PartName(part), part)
	fmt.Printf("Radio State:  %s\n", state)
	fmt.Printf("Channel:      %s\n", map[bool]string{true: "clear", false: "busy"}[pkt&registers.PktStatusCCA != 0])
	fmt.Printf("Sync Found:   %v\n", pkt&registers.PktStatusSFD != 0)
	fmt.Printf("DMA0 Armed:   %v\n", armed&0x01 != 0)
	return nil
}

func amp(d *yardstick.Device, arg string) error {
	switch arg {
	case "on":
		return d.EnableAmplifier()
	case "off":
		return d.DisableAmplifier()
	case "get":
		mode, err := d.GetAmpMode()
		if err != nil {
			return err
		}
		fmt.Printf("Amplifier: %v\n", mode == yardstick.AmpModeOn)
		return nil
	}
	return fmt.Errorf("unknown amp mode %q (on, off, get)", arg)
}

func reset() error {
	context := gousb.NewContext()
	defer context.Close()

	devices, err := yardstick.FindAllDevices(context)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return fmt.Errorf("no YardStick One devices found")
	}
	for _, d := range devices {
		if err := d.Reset(); err != nil {
			logger.Warn("reset failed", "serial", d.Serial, "err", err)
		} else {
			logger.Info("reset", "serial", d.Serial)
		}
		d.Close()
	}
	return nil
}

func printSummary(d *config.RegisterDump) {
	fmt.Println("\nRegister Summary:")
	fmt.Printf("  Chip:         %s\n", registers.PartName(d.PartNum))
	fmt.Printf("  Frequency:    %.6f MHz\n", d.GetFrequencyMHz())
	fmt.Printf("  Sync Word:    0x%04X\n", d.GetSyncWord())
	fmt.Printf("  Modulation:   %s\n", d.GetModulationString())
	fmt.Printf("  Radio State:  %s\n", d.GetRadioStateString())
	fmt.Printf("  Packet Len:   %d\n", d.Registers.PKTLEN)
}
