package fc

// ArmingFlag is one bit of the arming status word. Bit positions are
// wire-visible through status replies and must stay put.
type ArmingFlag uint32

const (
	ArmingArmed        ArmingFlag = 1 << 2
	ArmingWasEverArmed ArmingFlag = 1 << 3

	ArmingDisabledFailsafe       ArmingFlag = 1 << 7
	ArmingDisabledNotLevel       ArmingFlag = 1 << 8
	ArmingDisabledCalibrating    ArmingFlag = 1 << 9
	ArmingDisabledOverload       ArmingFlag = 1 << 10
	ArmingDisabledNavUnsafe      ArmingFlag = 1 << 11
	ArmingDisabledCompassCal     ArmingFlag = 1 << 12
	ArmingDisabledAccCal         ArmingFlag = 1 << 13
	ArmingDisabledArmSwitch      ArmingFlag = 1 << 14
	ArmingDisabledHardware       ArmingFlag = 1 << 15
	ArmingDisabledBoxFailsafe    ArmingFlag = 1 << 16
	ArmingDisabledBoxKillswitch  ArmingFlag = 1 << 17
	ArmingDisabledRCLink         ArmingFlag = 1 << 18
	ArmingDisabledThrottle       ArmingFlag = 1 << 19
	ArmingDisabledCLI            ArmingFlag = 1 << 20
	ArmingDisabledCMSMenu        ArmingFlag = 1 << 21
	ArmingDisabledOSDMenu        ArmingFlag = 1 << 22
	ArmingDisabledRollPitch      ArmingFlag = 1 << 23
	ArmingDisabledServoAutotrim  ArmingFlag = 1 << 24
	ArmingDisabledOOM            ArmingFlag = 1 << 25
	ArmingDisabledInvalidSetting ArmingFlag = 1 << 26
	ArmingDisabledPWMOutput      ArmingFlag = 1 << 27
	ArmingDisabledNoPrearm       ArmingFlag = 1 << 28
	ArmingDisabledDshotBeeper    ArmingFlag = 1 << 29
	ArmingDisabledOther          ArmingFlag = 1 << 30
)

// ArmingDisabledMask covers every bit that blocks arming (7 through 30).
const ArmingDisabledMask ArmingFlag = 1<<31 - 1<<7

var armingFlagNames = [32]string{
	2: "Armed", 3: "Was ever armed",
	7: "Failsafe", 8: "Not level", 9: "Calibrating", 10: "Overload",
	11: "Navigation unsafe", 12: "Compass cal", 13: "Acc cal", 14: "Arm switch",
	15: "Hardware failure", 16: "Box failsafe", 17: "Box killswitch", 18: "RC Link",
	19: "Throttle", 20: "CLI", 21: "CMS Menu", 22: "OSD Menu", 23: "Roll/Pitch",
	24: "Servo Autotrim", 25: "Out of memory", 26: "Settings", 27: "PWM Output",
	28: "PreArm", 29: "DSHOTBeeper", 30: "Other",
}

// DescribeArmingFlags names every set bit of an arming word in ascending
// bit order. Reserved bits are omitted.
func DescribeArmingFlags(word uint32) []string {
	var names []string
	for i := 0; i < 32; i++ {
		if word&(1<<i) != 0 && armingFlagNames[i] != "" {
			names = append(names, armingFlagNames[i])
		}
	}
	return names
}
