package settings

// SerialFunction is a bit in a port's function mask.
type SerialFunction uint16

const (
	FunctionNone               SerialFunction = 0
	FunctionMSP                SerialFunction = 1 << 0
	FunctionGPS                SerialFunction = 1 << 1
	FunctionTelemetryFrsky     SerialFunction = 1 << 2
	FunctionTelemetryLTM       SerialFunction = 1 << 4
	FunctionTelemetrySmartport SerialFunction = 1 << 5
	FunctionRxSerial           SerialFunction = 1 << 6
	FunctionBlackbox           SerialFunction = 1 << 7
	FunctionTelemetryMavlink   SerialFunction = 1 << 8
)

// PortIdentifier names a physical serial port. Values are stable; the VCP
// and soft-serial ranges are offset so hardware UARTs can grow.
type PortIdentifier uint8

const (
	IdentifierUSART1 PortIdentifier = iota
	IdentifierUSART2
	IdentifierUSART3
	IdentifierUSART4

	IdentifierUSBVCP      PortIdentifier = 20
	IdentifierSoftSerial1 PortIdentifier = 30
	IdentifierSoftSerial2 PortIdentifier = 31
)

func validPortIdentifier(id PortIdentifier) bool {
	switch id {
	case IdentifierUSART1, IdentifierUSART2, IdentifierUSART3, IdentifierUSART4,
		IdentifierUSBVCP, IdentifierSoftSerial1, IdentifierSoftSerial2:
		return true
	}
	return false
}

// BaudRates is the index-to-rate table shared by all four per-function
// baud selectors. Index 0 means auto.
var BaudRates = [12]uint32{
	0, 1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200, 230400, 460800, 921600,
}

// DefaultMSPBaudIndex selects 115200.
const DefaultMSPBaudIndex = 8

// SerialPortSettings configures one port: which functions it serves and
// the baud rate per function class.
type SerialPortSettings struct {
	Identifier          PortIdentifier
	FunctionMask        SerialFunction
	MSPBaudIndex        uint8
	GPSBaudIndex        uint8
	TelemetryBaudIndex  uint8
	PeripheralBaudIndex uint8
}

// SerialSettings is the full port table.
type SerialSettings struct {
	Ports [SerialPortCount]SerialPortSettings
}

// Valid checks the port table for combinations the scheduler cannot
// serve. An invalid table is replaced whole-sale with defaults rather
// than repaired field by field.
func (s *SerialSettings) Valid() bool {
	var gpsPorts, rxPorts int
	var seen [SerialPortCount]PortIdentifier

	for i := range s.Ports {
		p := &s.Ports[i]
		if !validPortIdentifier(p.Identifier) {
			return false
		}
		for j := 0; j < i; j++ {
			if seen[j] == p.Identifier {
				return false
			}
		}
		seen[i] = p.Identifier

		for _, idx := range [4]uint8{p.MSPBaudIndex, p.GPSBaudIndex, p.TelemetryBaudIndex, p.PeripheralBaudIndex} {
			if int(idx) >= len(BaudRates) {
				return false
			}
		}

		if p.FunctionMask&FunctionGPS != 0 {
			gpsPorts++
			// GPS owns its port exclusively.
			if p.FunctionMask != FunctionGPS {
				return false
			}
		}
		if p.FunctionMask&FunctionRxSerial != 0 {
			rxPorts++
			if p.FunctionMask != FunctionRxSerial {
				return false
			}
		}
	}
	return gpsPorts <= 1 && rxPorts <= 1
}

func defaultSerialSettings() SerialSettings {
	return SerialSettings{
		Ports: [SerialPortCount]SerialPortSettings{
			{Identifier: IdentifierUSBVCP, FunctionMask: FunctionMSP, MSPBaudIndex: DefaultMSPBaudIndex},
			{Identifier: IdentifierUSART1, MSPBaudIndex: DefaultMSPBaudIndex},
			{Identifier: IdentifierUSART2, MSPBaudIndex: DefaultMSPBaudIndex},
			{Identifier: IdentifierUSART3, MSPBaudIndex: DefaultMSPBaudIndex},
		},
	}
}
