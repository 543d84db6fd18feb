package yardstick

import "fmt"

// SetAmpMode enables or disables the YardStick One front-end amplifiers.
// The board has separate TX and RX amplifiers outside the CC1111, so the
// radio driver's PA table setting is boosted on top of this.
func (d *Device) SetAmpMode(mode uint8) error {
	_, err := d.Send(AppNIC, NICSetAmpMode, []byte{mode}, USBDefaultTimeout)
	if err != nil {
		return fmt.Errorf("failed to set amplifier mode: %w", err)
	}
	return nil
}

// GetAmpMode returns the current amplifier mode (0=bypassed, 1=enabled)
func (d *Device) GetAmpMode() (uint8, error) {
	response, err := d.Send(AppNIC, NICGetAmpMode, nil, USBDefaultTimeout)
	if err != nil {
		return 0, fmt.Errorf("failed to get amplifier mode: %w", err)
	}
	if len(response) < 1 {
		return 0, fmt.Errorf("empty amplifier mode response")
	}
	return response[0], nil
}

// EnableAmplifier enables the external TX/RX amplifier
func (d *Device) EnableAmplifier() error {
	return d.SetAmpMode(AmpModeOn)
}

// DisableAmplifier disables the external amplifier
func (d *Device) DisableAmplifier() error {
	return d.SetAmpMode(AmpModeOff)
}
