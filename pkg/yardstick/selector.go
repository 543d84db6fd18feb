package yardstick

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/gousb"
)

// DeviceSelector specifies how to identify a dongle
// Supported formats:
//   - ""           : Use first available device
//   - "serial"     : Match by serial number (e.g., "009a")
//   - "bus:addr"   : Match by USB bus and address (e.g., "1:10")
//   - "#N"         : Use Nth device, 0-indexed (e.g., "#0", "#1")
type DeviceSelector string

// SelectDevice opens the dongle matching the selector
func SelectDevice(context *gousb.Context, selector DeviceSelector) (*Device, error) {
	devices, err := FindAllDevices(context)
	if err != nil {
		return nil, err
	}
	return pick(devices, selector)
}

// pick keeps the device matching selector and closes the others
func pick(devices []*Device, selector DeviceSelector) (*Device, error) {
	if len(devices) == 0 {
		return nil, fmt.Errorf("no YardStick One devices found")
	}

	match, err := matcher(string(selector), len(devices))
	if err != nil {
		closeAll(devices)
		return nil, err
	}

	var matches []*Device
	for i, d := range devices {
		if match(i, d) {
			matches = append(matches, d)
		} else {
			d.Close()
		}
	}

	switch {
	case len(matches) == 0:
		return nil, fmt.Errorf("no YardStick One matches %q", string(selector))
	case len(matches) > 1:
		// Several dongles share a serial
		closeAll(matches)
		return nil, fmt.Errorf("multiple devices (%d) match %q; use bus:addr format (e.g., 1:10) or index format (e.g., #0)", len(matches), string(selector))
	}
	return matches[0], nil
}

func matcher(sel string, count int) (func(int, *Device) bool, error) {
	switch {
	case sel == "":
		return func(i int, _ *Device) bool { return i == 0 }, nil

	case strings.HasPrefix(sel, "#"):
		index, err := strconv.Atoi(sel[1:])
		if err != nil {
			return nil, fmt.Errorf("invalid device index: %s", sel)
		}
		if index < 0 || index >= count {
			return nil, fmt.Errorf("device index %d out of range (found %d devices)", index, count)
		}
		return func(i int, _ *Device) bool { return i == index }, nil

	case strings.Contains(sel, ":"):
		parts := strings.SplitN(sel, ":", 2)
		bus, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid bus number: %s", parts[0])
		}
		addr, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid address number: %s", parts[1])
		}
		return func(_ int, d *Device) bool { return d.Bus == bus && d.Address == addr }, nil
	}

	return func(_ int, d *Device) bool { return d.Serial == sel }, nil
}

func closeAll(devices []*Device) {
	for _, d := range devices {
		d.Close()
	}
}

// DeviceFlagUsage returns the usage string for a device selector flag
func DeviceFlagUsage() string {
	return `Device selector. Formats:
    ""        - Use first available device
    "serial"  - Match by serial number (e.g., "009a")
    "bus:addr"- Match by USB location (e.g., "1:10")
    "#N"      - Use Nth device, 0-indexed (e.g., "#0", "#1")`
}
