package settings

// ControlRateProfile shapes stick response. One profile is active at a
// time and switches together with the tuning profile.
type ControlRateProfile struct {
	RCExpo8    uint8
	RCYawExpo8 uint8
	ThrMid8    uint8
	ThrExpo8   uint8
	// Rates are roll, pitch, yaw in tens of degrees per second.
	Rates         [3]uint8
	DynThrPID     uint8
	TPABreakpoint uint16
}

func defaultControlRateProfile() ControlRateProfile {
	return ControlRateProfile{
		RCExpo8:       70,
		RCYawExpo8:    20,
		ThrMid8:       50,
		Rates:         [3]uint8{20, 20, 20},
		TPABreakpoint: 1500,
	}
}

// AxisPID is one axis' PID gains plus feed-forward.
type AxisPID struct {
	P, I, D, FF uint8
}

// TuningProfile is the per-profile PID bank, axes ordered roll, pitch, yaw.
type TuningProfile struct {
	PID [3]AxisPID
}

func defaultTuningProfile() TuningProfile {
	return TuningProfile{
		PID: [3]AxisPID{
			{P: 40, I: 30, D: 23},
			{P: 40, I: 30, D: 23},
			{P: 85, I: 45},
		},
	}
}

// BatteryProfile describes one battery chemistry/size preset. Voltages are
// in 10 mV units.
type BatteryProfile struct {
	// Cells is the cell count, 0 for auto detection.
	Cells              uint8
	CapacityMah        uint32
	CellMaxVoltage     uint16
	CellMinVoltage     uint16
	CellWarningVoltage uint16
}

func defaultBatteryProfile() BatteryProfile {
	return BatteryProfile{
		CellMaxVoltage:     424,
		CellMinVoltage:     330,
		CellWarningVoltage: 350,
	}
}
