package registers_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herlein/ccrf/pkg/registers"
	"github.com/herlein/ccrf/pkg/sim"
)

func TestWriteReadAllRegisters(t *testing.T) {
	chip := sim.NewChip()

	reg := registers.ResetDefaults()
	reg.PKTLEN = 0x7F
	reg.PA_TABLE[0] = 0x8F
	reg.PA_TABLE[7] = 0x01
	reg.IOCFG0 = 0x06
	reg.TEST0 = 0x09
	require.NoError(t, registers.WriteAllRegisters(chip, &reg))

	got, err := registers.ReadAllRegisters(chip)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x7F), got.PKTLEN)
	assert.Equal(t, uint8(0x8F), got.PA_TABLE[0])
	assert.Equal(t, uint8(0x01), got.PA_TABLE[7])
	assert.Equal(t, uint8(0x06), got.IOCFG0)
	assert.Equal(t, uint8(0x09), got.TEST0)

	// PA_TABLE0 sits at the top of the PA table block
	pa0, err := chip.ReadRegister(registers.RegPA_TABLE0)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x8F), pa0)
}

func TestStrobeAndState(t *testing.T) {
	chip := sim.NewChip()
	require.NoError(t, registers.Strobe(chip, registers.StrobeSRX))
	state, err := registers.GetRadioState(chip)
	require.NoError(t, err)
	assert.Equal(t, registers.StateRX, state)
	assert.Equal(t, "RX", state.String())
	assert.Equal(t, "UNKNOWN", registers.RadioState(0x1F).String())
}

func TestSetClearBits(t *testing.T) {
	chip := sim.NewChip()
	require.NoError(t, chip.WriteRegister(registers.RegIEN1, 0x40))
	require.NoError(t, registers.SetBits(chip, registers.RegIEN1, registers.IEN1DMAIE))

	v, _ := chip.ReadRegister(registers.RegIEN1)
	assert.Equal(t, uint8(0x41), v)

	require.NoError(t, registers.ClearBits(chip, registers.RegIEN1, 0x40))
	v, _ = chip.ReadRegister(registers.RegIEN1)
	assert.Equal(t, uint8(0x01), v)
}

func TestFrequencyAndSyncWord(t *testing.T) {
	var reg registers.RegisterMap
	registers.SetFrequency(&reg, 868e6, 26)
	assert.InDelta(t, 868e6, registers.GetFrequency(&reg, 26), 400)

	registers.SetSyncWord(&reg, 0xB547)
	assert.Equal(t, uint8(0xB5), reg.SYNC1)
	assert.Equal(t, uint16(0xB547), registers.GetSyncWord(&reg))

	reg.MDMCFG2 = registers.ModGFSK | registers.Sync30of32
	assert.Equal(t, uint8(registers.ModGFSK), registers.GetModulation(&reg))
	assert.Equal(t, uint8(registers.Sync30of32), registers.GetSyncMode(&reg))
	assert.Equal(t, "GFSK", registers.ModulationString(registers.GetModulation(&reg)))
}

func TestPartName(t *testing.T) {
	assert.Equal(t, "CC1110", registers.PartName(registers.PartNumCC1110))
	assert.Equal(t, "CC2511", registers.PartName(registers.PartNumCC2511))
	assert.Equal(t, "Unknown", registers.PartName(0x42))
}
