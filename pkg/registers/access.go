package registers

import (
	"fmt"
)

// Bus is byte-level access to the chip's XDATA-mapped register file.
// A YARD Stick One over USB and the simulator both provide one.
type Bus interface {
	ReadRegister(addr uint16) (uint8, error)
	WriteRegister(addr uint16, value uint8) error
	ReadBlock(addr uint16, length int) ([]byte, error)
	WriteBlock(addr uint16, data []byte) error
}

// Strobe sends a radio strobe command
func Strobe(bus Bus, command uint8) error {
	return bus.WriteRegister(RegRFST, command)
}

// GetRadioState reads the current radio state
func GetRadioState(bus Bus) (RadioState, error) {
	state, err := bus.ReadRegister(RegMARCSTATE)
	if err != nil {
		return 0, fmt.Errorf("failed to read radio state: %w", err)
	}
	return RadioState(state & 0x1F), nil // MARCSTATE is only 5 bits
}

// SetBits read-modify-writes a register, setting mask
func SetBits(bus Bus, addr uint16, mask uint8) error {
	v, err := bus.ReadRegister(addr)
	if err != nil {
		return err
	}
	return bus.WriteRegister(addr, v|mask)
}

// ClearBits read-modify-writes a register, clearing mask
func ClearBits(bus Bus, addr uint16, mask uint8) error {
	v, err := bus.ReadRegister(addr)
	if err != nil {
		return err
	}
	return bus.WriteRegister(addr, v&^mask)
}

// ReadAllRegisters reads all radio configuration registers into a RegisterMap
func ReadAllRegisters(bus Bus) (*RegisterMap, error) {
	reg := &RegisterMap{}

	// 0xDF00 - 0xDF1F is continuous
	block1, err := bus.ReadBlock(RegSYNC1, 32)
	if err != nil {
		return nil, fmt.Errorf("failed to read register block 1: %w", err)
	}

	reg.SYNC1 = block1[0]
	reg.SYNC0 = block1[1]
	reg.PKTLEN = block1[2]
	reg.PKTCTRL1 = block1[3]
	reg.PKTCTRL0 = block1[4]
	reg.ADDR = block1[5]
	reg.CHANNR = block1[6]
	reg.FSCTRL1 = block1[7]
	reg.FSCTRL0 = block1[8]
	reg.FREQ2 = block1[9]
	reg.FREQ1 = block1[10]
	reg.FREQ0 = block1[11]
	reg.MDMCFG4 = block1[12]
	reg.MDMCFG3 = block1[13]
	reg.MDMCFG2 = block1[14]
	reg.MDMCFG1 = block1[15]
	reg.MDMCFG0 = block1[16]
	reg.DEVIATN = block1[17]
	reg.MCSM2 = block1[18]
	reg.MCSM1 = block1[19]
	reg.MCSM0 = block1[20]
	reg.FOCCFG = block1[21]
	reg.BSCFG = block1[22]
	reg.AGCCTRL2 = block1[23]
	reg.AGCCTRL1 = block1[24]
	reg.AGCCTRL0 = block1[25]
	reg.FREND1 = block1[26]
	reg.FREND0 = block1[27]
	reg.FSCAL3 = block1[28]
	reg.FSCAL2 = block1[29]
	reg.FSCAL1 = block1[30]
	reg.FSCAL0 = block1[31]

	block2, err := bus.ReadBlock(RegTEST2, 3)
	if err != nil {
		return nil, fmt.Errorf("failed to read TEST registers: %w", err)
	}
	reg.TEST2 = block2[0]
	reg.TEST1 = block2[1]
	reg.TEST0 = block2[2]

	block3, err := bus.ReadBlock(RegPA_TABLE7, 11)
	if err != nil {
		return nil, fmt.Errorf("failed to read PA_TABLE/IOCFG: %w", err)
	}
	for i := 0; i < 8; i++ {
		reg.PA_TABLE[7-i] = block3[i]
	}
	reg.IOCFG2 = block3[8]
	reg.IOCFG1 = block3[9]
	reg.IOCFG0 = block3[10]

	block4, err := bus.ReadBlock(RegPARTNUM, 8)
	if err != nil {
		return nil, fmt.Errorf("failed to read status registers: %w", err)
	}
	reg.PARTNUM = block4[0]
	reg.VERSION = block4[1]
	reg.FREQEST = block4[2]
	reg.LQI = block4[3]
	reg.RSSI = block4[4]
	reg.MARCSTATE = block4[5]
	reg.PKTSTATUS = block4[6]
	reg.VCO_VC_DAC = block4[7]

	return reg, nil
}

// WriteAllRegisters writes all writable radio configuration registers from a RegisterMap
func WriteAllRegisters(bus Bus, reg *RegisterMap) error {
	block1 := []byte{
		reg.SYNC1, reg.SYNC0,
		reg.PKTLEN, reg.PKTCTRL1, reg.PKTCTRL0, reg.ADDR, reg.CHANNR,
		reg.FSCTRL1, reg.FSCTRL0,
		reg.FREQ2, reg.FREQ1, reg.FREQ0,
		reg.MDMCFG4, reg.MDMCFG3, reg.MDMCFG2, reg.MDMCFG1, reg.MDMCFG0,
		reg.DEVIATN,
		reg.MCSM2, reg.MCSM1, reg.MCSM0,
		reg.FOCCFG, reg.BSCFG,
		reg.AGCCTRL2, reg.AGCCTRL1, reg.AGCCTRL0,
		reg.FREND1, reg.FREND0,
		reg.FSCAL3, reg.FSCAL2, reg.FSCAL1, reg.FSCAL0,
	}
	if err := bus.WriteBlock(RegSYNC1, block1); err != nil {
		return fmt.Errorf("failed to write register block 1: %w", err)
	}

	block2 := []byte{reg.TEST2, reg.TEST1, reg.TEST0}
	if err := bus.WriteBlock(RegTEST2, block2); err != nil {
		return fmt.Errorf("failed to write TEST registers: %w", err)
	}

	block3 := make([]byte, 0, 11)
	for i := 7; i >= 0; i-- {
		block3 = append(block3, reg.PA_TABLE[i])
	}
	block3 = append(block3, reg.IOCFG2, reg.IOCFG1, reg.IOCFG0)
	if err := bus.WriteBlock(RegPA_TABLE7, block3); err != nil {
		return fmt.Errorf("failed to write PA_TABLE/IOCFG: %w", err)
	}

	// Status registers (0xDF36 - 0xDF3D) are read-only
	return nil
}

// GetFrequency calculates the carrier frequency in Hz from the register values
func GetFrequency(reg *RegisterMap, crystalMHz float64) float64 {
	freq := uint32(reg.FREQ2)<<16 | uint32(reg.FREQ1)<<8 | uint32(reg.FREQ0)
	return float64(freq) * (crystalMHz * 1e6 / 65536.0)
}

// SetFrequency calculates and sets the FREQ registers for a given frequency
func SetFrequency(reg *RegisterMap, frequencyHz float64, crystalMHz float64) {
	freq := uint32(frequencyHz*65536.0/(crystalMHz*1e6) + 0.5)
	reg.FREQ2 = uint8((freq >> 16) & 0xFF)
	reg.FREQ1 = uint8((freq >> 8) & 0xFF)
	reg.FREQ0 = uint8(freq & 0xFF)
}

// GetSyncWord returns the 16-bit sync word from the register map
func GetSyncWord(reg *RegisterMap) uint16 {
	return uint16(reg.SYNC1)<<8 | uint16(reg.SYNC0)
}

// SetSyncWord sets the 16-bit sync word in the register map
func SetSyncWord(reg *RegisterMap, syncWord uint16) {
	reg.SYNC1 = uint8((syncWord >> 8) & 0xFF)
	reg.SYNC0 = uint8(syncWord & 0xFF)
}

// GetModulation returns the modulation format from MDMCFG2
func GetModulation(reg *RegisterMap) uint8 {
	return reg.MDMCFG2 & 0x70
}

// GetSyncMode returns the sync mode from MDMCFG2
func GetSyncMode(reg *RegisterMap) uint8 {
	return reg.MDMCFG2 & 0x07
}

// ModulationString returns a human-readable modulation format
func ModulationString(mod uint8) string {
	switch mod {
	case Mod2FSK:
		return "2-FSK"
	case ModGFSK:
		return "GFSK"
	case ModASKOOK:
		return "ASK/OOK"
	case ModMSK:
		return "MSK"
	default:
		return fmt.Sprintf("Unknown (0x%02X)", mod)
	}
}
