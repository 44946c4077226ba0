package box

import "fccore/internal/capability"

// Bit 15 of the sensor status word flags a hardware fault somewhere in the
// sensor suite. Bits 8-14 are reserved.
const sensorStatusFailureBit = 1 << 15

// SensorStatusWord packs sensor presence into the 16-bit status word sent
// in MSP status replies: bits 0-7 mirror the Sensor enum order, bit 15 is
// the global hardware-health alarm.
func SensorStatusWord(sensors capability.SensorMask, hardwareHealthy bool) uint16 {
	word := uint16(sensors) & 0x00FF
	if !hardwareHealthy {
		word |= sensorStatusFailureBit
	}
	return word
}
