// Package profiles holds the radio configurations the driver programs at
// startup. Each profile pins the carrier frequency, modulation, data rate,
// sync word, packet format and output power for one sub-GHz band; the band
// is chosen at runtime from configuration.
package profiles

import (
	"fmt"
	"math"
	"sort"

	"github.com/herlein/ccrf/pkg/registers"
)

// CrystalHz is the crystal frequency of a CC1110 board
const CrystalHz = 26000000.0

// Band names
const (
	Band868 = "868"
	Band915 = "915"
)

// Profile represents a complete radio configuration profile
type Profile struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Band        string  `yaml:"band"`
	CrystalHz   float64 `yaml:"crystal_hz"`
	FrequencyHz float64 `yaml:"frequency_hz"`

	Modulation   uint8   `yaml:"modulation"`
	DataRateBaud float64 `yaml:"data_rate_baud"`
	DeviationHz  float64 `yaml:"deviation_hz"`
	ChannelBWHz  float64 `yaml:"channel_bandwidth_hz"`

	SyncWord uint16 `yaml:"sync_word"`
	SyncMode uint8  `yaml:"sync_mode"`

	PktLenMode   uint8 `yaml:"packet_length_mode"`
	PktLen       uint8 `yaml:"packet_length"`
	CRCEn        bool  `yaml:"crc_enabled"`
	AppendStatus bool  `yaml:"append_status"`

	TXPowerDBm int   `yaml:"tx_power_dbm"`
	PATable0   uint8 `yaml:"pa_table0"`
}

// powerTable maps output power in dBm to a PA_TABLE setting
var powerTable = map[int]uint8{
	-5: 0x8F,
	7:  0xCB,
	10: 0xC2,
}

// PowerLevels returns the supported output powers in ascending order
func PowerLevels() []int {
	levels := make([]int, 0, len(powerTable))
	for dbm := range powerTable {
		levels = append(levels, dbm)
	}
	sort.Ints(levels)
	return levels
}

// ForBand returns the profile for a band name
func ForBand(band string) (*Profile, error) {
	switch band {
	case Band868:
		return New868(), nil
	case Band915:
		return New915(), nil
	default:
		return nil, fmt.Errorf("unknown band %q (supported: %s, %s)", band, Band868, Band915)
	}
}

// WithPower returns a copy of the profile transmitting at dBm
func (p *Profile) WithPower(dBm int) (*Profile, error) {
	pa, ok := powerTable[dBm]
	if !ok {
		return nil, fmt.Errorf("unsupported TX power %d dBm (supported: %v)", dBm, PowerLevels())
	}
	c := *p
	c.TXPowerDBm = dBm
	c.PATable0 = pa
	return &c, nil
}

// CalcFreqRegs calculates FREQ2/1/0 register values for a given frequency
func CalcFreqRegs(freqHz, crystalHz float64) (freq2, freq1, freq0 uint8) {
	num := uint32(freqHz*65536.0/crystalHz + 0.5)
	freq2 = uint8((num >> 16) & 0xFF)
	freq1 = uint8((num >> 8) & 0xFF)
	freq0 = uint8(num & 0xFF)
	return
}

// CalcDataRateRegs calculates MDMCFG4[3:0] (DRATE_E) and MDMCFG3 (DRATE_M) for a given data rate
func CalcDataRateRegs(drateBaud, crystalHz float64) (drateE, drateM uint8) {
	for e := uint8(0); e < 16; e++ {
		m := int((drateBaud*math.Pow(2, 28)/(math.Pow(2, float64(e))*crystalHz) - 256) + 0.5)
		if m >= 0 && m < 256 {
			drateE = e
			drateM = uint8(m)
			return
		}
	}
	return 15, 255
}

// CalcChannelBWRegs calculates MDMCFG4[7:4] for channel bandwidth
func CalcChannelBWRegs(bwHz, crystalHz float64) (chanbwE, chanbwM uint8) {
	for e := uint8(0); e < 4; e++ {
		m := int((crystalHz/(bwHz*math.Pow(2, float64(e))*8.0) - 4) + 0.5)
		if m >= 0 && m < 4 {
			chanbwE = e
			chanbwM = uint8(m)
			return
		}
	}
	return 0, 0
}

// CalcDeviationRegs calculates DEVIATN register for FSK deviation
func CalcDeviationRegs(devHz, crystalHz float64) uint8 {
	for e := uint8(0); e < 8; e++ {
		m := int((devHz*math.Pow(2, 17)/(math.Pow(2, float64(e))*crystalHz) - 8) + 0.5)
		if m >= 0 && m < 8 {
			return (e << 4) | uint8(m)
		}
	}
	return 0x47
}

// GetVCOSelection returns FSCAL2 value based on frequency
func GetVCOSelection(freqHz float64) uint8 {
	if freqHz < 318000000 || (freqHz >= 391000000 && freqHz < 424000000) || (freqHz >= 782000000 && freqHz < 848000000) {
		return 0x0A // Low VCO
	}
	return 0x2A // High VCO
}

// ToRegisters converts a Profile to a RegisterMap, starting from the
// chip's reset values so that one block write leaves nothing stale.
func (p *Profile) ToRegisters() *registers.RegisterMap {
	reg := registers.ResetDefaults()

	reg.FREQ2, reg.FREQ1, reg.FREQ0 = CalcFreqRegs(p.FrequencyHz, p.CrystalHz)
	reg.FSCAL2 = GetVCOSelection(p.FrequencyHz)

	drateE, drateM := CalcDataRateRegs(p.DataRateBaud, p.CrystalHz)
	chanbwE, chanbwM := CalcChannelBWRegs(p.ChannelBWHz, p.CrystalHz)
	reg.MDMCFG4 = (chanbwE << 6) | (chanbwM << 4) | drateE
	reg.MDMCFG3 = drateM
	reg.MDMCFG2 = p.Modulation | p.SyncMode
	if p.DeviationHz > 0 {
		reg.DEVIATN = CalcDeviationRegs(p.DeviationHz, p.CrystalHz)
	}

	registers.SetSyncWord(&reg, p.SyncWord)

	reg.PKTLEN = p.PktLen
	reg.PKTCTRL0 = p.PktLenMode
	if p.CRCEn {
		reg.PKTCTRL0 |= registers.CRCEnabled
	}
	reg.PKTCTRL1 = 0x00
	if p.AppendStatus {
		reg.PKTCTRL1 |= registers.AppendStatus
	}

	reg.PA_TABLE[0] = p.PATable0

	// SmartRF Studio values for 38.4 kBaud GFSK, high sensitivity
	reg.FSCTRL1 = 0x06
	reg.MCSM0 = 0x18
	reg.FOCCFG = 0x16
	reg.AGCCTRL2 = 0x43
	reg.FSCAL3 = 0xE9
	reg.FSCAL1 = 0x00
	reg.FSCAL0 = 0x1F
	// TEST1 must be 0x31 while in TX
	reg.TEST1 = 0x31
	reg.TEST0 = 0x09

	// CCA: RSSI below threshold unless receiving; stay in RX after RX; RX after TX
	reg.MCSM1 = registers.CCAModeRSSIUnlessRX | registers.RXOffStayRX | registers.TXOffRX

	return &reg
}
