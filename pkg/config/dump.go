package config

import (
	"fmt"
	"time"

	"github.com/herlein/ccrf/pkg/registers"
)

// RegisterDump is a snapshot of a chip's radio register file
type RegisterDump struct {
	Source    string                `yaml:"source"`
	PartNum   uint8                 `yaml:"part_num,omitempty"`
	Timestamp time.Time             `yaml:"timestamp"`
	Registers registers.RegisterMap `yaml:"registers"`
}

// idleWait bounds how long a dump or apply waits for the radio to reach IDLE
const idleWait = 100 * time.Millisecond

// DumpFromBus reads all radio registers, parking the radio in IDLE for the
// read and restoring RX afterwards.
func DumpFromBus(bus registers.Bus, source string) (*RegisterDump, error) {
	originalState, err := toIdle(bus)
	if err != nil {
		return nil, err
	}

	registerMap, err := registers.ReadAllRegisters(bus)
	if err != nil {
		return nil, fmt.Errorf("failed to read registers: %w", err)
	}
	// The snapshot reports the state the radio was in, not the parked one
	registerMap.MARCSTATE = uint8(originalState)

	if err := restore(bus, originalState); err != nil {
		return nil, err
	}

	return &RegisterDump{
		Source:    source,
		PartNum:   registerMap.PARTNUM,
		Timestamp: time.Now(),
		Registers: *registerMap,
	}, nil
}

// ApplyToBus writes the writable registers of a dump back to a chip
func ApplyToBus(bus registers.Bus, dump *RegisterDump) error {
	originalState, err := toIdle(bus)
	if err != nil {
		return err
	}

	if err := registers.WriteAllRegisters(bus, &dump.Registers); err != nil {
		return fmt.Errorf("failed to write registers: %w", err)
	}

	return restore(bus, originalState)
}

func toIdle(bus registers.Bus) (registers.RadioState, error) {
	originalState, err := registers.GetRadioState(bus)
	if err != nil {
		return 0, fmt.Errorf("failed to get radio state: %w", err)
	}
	if originalState == registers.StateIDLE {
		return originalState, nil
	}

	if err := registers.Strobe(bus, registers.StrobeSIDLE); err != nil {
		return 0, fmt.Errorf("failed to set IDLE state: %w", err)
	}
	deadline := time.Now().Add(idleWait)
	for {
		state, err := registers.GetRadioState(bus)
		if err != nil {
			return 0, fmt.Errorf("failed to get radio state: %w", err)
		}
		if state == registers.StateIDLE {
			return originalState, nil
		}
		if time.Now().After(deadline) {
			return 0, fmt.Errorf("radio stuck in %s", state)
		}
		time.Sleep(time.Millisecond)
	}
}

func restore(bus registers.Bus, state registers.RadioState) error {
	switch state {
	case registers.StateRX:
		return registers.Strobe(bus, registers.StrobeSRX)
	case registers.StateTX:
		return registers.Strobe(bus, registers.StrobeSTX)
	}
	return nil
}

// GetCrystalFrequency returns the crystal frequency in MHz based on part number
func GetCrystalFrequency(partNum uint8) float64 {
	switch partNum {
	case registers.PartNumCC1111, registers.PartNumCC2511:
		return 24.0
	default:
		return 26.0
	}
}

// GetFrequencyMHz returns the configured frequency in MHz
func (d *RegisterDump) GetFrequencyMHz() float64 {
	return registers.GetFrequency(&d.Registers, GetCrystalFrequency(d.PartNum)) / 1e6
}

// GetSyncWord returns the 16-bit sync word
func (d *RegisterDump) GetSyncWord() uint16 {
	return registers.GetSyncWord(&d.Registers)
}

// GetModulationString returns a human-readable modulation format
func (d *RegisterDump) GetModulationString() string {
	return registers.ModulationString(registers.GetModulation(&d.Registers))
}

// GetRadioStateString returns a human-readable radio state
func (d *RegisterDump) GetRadioStateString() string {
	return registers.RadioState(d.Registers.MARCSTATE & 0x1F).String()
}
