package msp

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	"fccore/internal/app"
	"fccore/internal/box"
	"fccore/internal/capability"
	"fccore/internal/fc"
	"fccore/internal/settings"
)

// Command IDs. Values are wire protocol contract.
const (
	cmdAPIVersion    uint16 = 1
	cmdFCVariant     uint16 = 2
	cmdFCVersion     uint16 = 3
	cmdBoardInfo     uint16 = 4
	cmdBuildInfo     uint16 = 5
	cmdName          uint16 = 10
	cmdSetName       uint16 = 11
	cmdModeRanges    uint16 = 34
	cmdSetModeRange  uint16 = 35
	cmdFeature       uint16 = 36
	cmdSetFeature    uint16 = 37
	cmdStatus        uint16 = 101
	cmdBoxNames      uint16 = 116
	cmdBoxIDs        uint16 = 119
	cmdStatusEx      uint16 = 150
	cmdSensorStatus  uint16 = 151
	cmdSetRawRC      uint16 = 200
	cmdResetConf     uint16 = 208
	cmdSelectSetting uint16 = 210
	cmdEEPROMWrite   uint16 = 250

	cmdINAVStatus           uint16 = 0x2000
	cmdSelectBatteryProfile uint16 = 0x2061
)

// Protocol identity reported by API_VERSION.
const (
	mspProtocolVersion = 0
	apiVersionMajor    = 2
	apiVersionMinor    = 5
)

// replyBufferSize bounds every reply payload. The box name listing is the
// largest reply and stays well under this.
const replyBufferSize = 512

// maxRCChannels bounds a SET_RAW_RC frame.
const maxRCChannels = 18

var errWhileArmed = errors.New("msp: rejected while armed")

// Dispatcher answers MSP requests against the flight core. It is safe for
// concurrent use; the core serializes its own state.
type Dispatcher struct {
	core *fc.Controller
	gate *RCGate
	log  *slog.Logger
}

func NewDispatcher(core *fc.Controller, gate *RCGate, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{core: core, gate: gate, log: logger.With("component", "msp")}
}

// Handle processes one frame. Non-request frames produce no reply. A
// handler failure produces an error frame carrying the same command, never
// a broken connection.
func (d *Dispatcher) Handle(ctx context.Context, req Frame) (Frame, bool) {
	if req.Direction != DirectionRequest {
		return Frame{}, false
	}

	payload, err := d.process(ctx, req)
	if err != nil {
		d.log.Warn("request failed", "cmd", req.Cmd, "error", err)

		return Frame{Version: req.Version, Direction: DirectionError, Cmd: req.Cmd}, true
	}

	reply := Frame{Version: req.Version, Direction: DirectionReply, Cmd: req.Cmd, Payload: payload}
	if reply.Version == V1 && len(payload) > MaxV1Payload {
		// Both protocol generations share the stream; a client that
		// asks for more than a v1 frame carries gets the v2 encoding.
		reply.Version = V2
	}

	return reply, true
}

func (d *Dispatcher) process(ctx context.Context, req Frame) ([]byte, error) {
	switch req.Cmd {
	case cmdAPIVersion:
		return []byte{mspProtocolVersion, apiVersionMajor, apiVersionMinor}, nil

	case cmdFCVariant:
		return []byte(app.FCVariant), nil

	case cmdFCVersion:
		major, minor, patch := app.VersionTriplet()
		return []byte{major, minor, patch}, nil

	case cmdBoardInfo:
		return d.boardInfo(), nil

	case cmdBuildInfo:
		return buildInfo(), nil

	case cmdName:
		return []byte(d.core.CraftName()), nil

	case cmdSetName:
		d.core.SetCraftName(string(req.Payload))
		return nil, nil

	case cmdModeRanges:
		return modeRanges(d.core.ModeRanges()), nil

	case cmdSetModeRange:
		return nil, d.setModeRange(req.Payload)

	case cmdFeature:
		buf := NewBuffer(4)
		buf.WriteU32(uint32(d.core.Features()))
		return buf.Bytes(), nil

	case cmdSetFeature:
		if len(req.Payload) < 4 {
			return nil, fmt.Errorf("set feature: short payload %d", len(req.Payload))
		}
		d.core.SetFeatures(capability.FeatureMask(binary.LittleEndian.Uint32(req.Payload)))
		return nil, nil

	case cmdStatus:
		return d.status(false), nil

	case cmdStatusEx:
		return d.status(true), nil

	case cmdINAVStatus:
		return d.inavStatus(), nil

	case cmdSensorStatus:
		return d.sensorStatusDetail(), nil

	case cmdBoxNames:
		buf := NewBuffer(replyBufferSize)
		if !SerializeBoxNames(buf, d.core.ActiveBoxes()) {
			return nil, fmt.Errorf("box names exceed reply buffer")
		}
		return buf.Bytes(), nil

	case cmdBoxIDs:
		buf := NewBuffer(replyBufferSize)
		if !SerializeBoxIDs(buf, d.core.ActiveBoxes()) {
			return nil, fmt.Errorf("box ids exceed reply buffer")
		}
		return buf.Bytes(), nil

	case cmdSetRawRC:
		return nil, d.setRawRC(req.Payload)

	case cmdSelectSetting:
		if d.core.Armed() {
			return nil, errWhileArmed
		}
		if len(req.Payload) < 1 {
			return nil, fmt.Errorf("select setting: short payload")
		}
		return nil, d.core.SetProfileAndPersist(ctx, req.Payload[0])

	case cmdSelectBatteryProfile:
		if d.core.Armed() {
			return nil, errWhileArmed
		}
		if len(req.Payload) < 1 {
			return nil, fmt.Errorf("select battery profile: short payload")
		}
		return nil, d.core.SetBatteryProfileAndPersist(ctx, req.Payload[0])

	case cmdEEPROMWrite:
		if d.core.Armed() {
			return nil, errWhileArmed
		}
		if err := d.core.Persist(ctx); err != nil {
			return nil, err
		}
		return nil, d.core.Load(ctx)

	case cmdResetConf:
		if d.core.Armed() {
			return nil, errWhileArmed
		}
		if err := d.core.ResetStorage(ctx, "msp reset request"); err != nil {
			return nil, err
		}
		return nil, d.core.Load(ctx)

	default:
		return nil, fmt.Errorf("unknown command %d", req.Cmd)
	}
}

// status builds the STATUS reply; extended adds the STATUS_EX tail.
func (d *Dispatcher) status(extended bool) []byte {
	cycle, i2cErrors, load := d.core.RuntimeStats()

	buf := NewBuffer(replyBufferSize)
	buf.WriteU16(cycle)
	buf.WriteU16(i2cErrors)
	buf.WriteU16(d.core.SensorStatus())
	buf.WriteU32(d.core.PackBoxFlags().Word())
	buf.WriteU8(d.core.ProfileIndex())
	if extended {
		buf.WriteU16(load)
		// Only the low half of the arming word fits this legacy reply.
		buf.WriteU16(uint16(d.core.ArmingFlags()))
		buf.WriteU8(0) // acc calibration axis flags
	}

	return buf.Bytes()
}

// inavStatus builds the v2 status reply: full arming word and the box
// flag bitmask at its native width.
func (d *Dispatcher) inavStatus() []byte {
	cycle, i2cErrors, load := d.core.RuntimeStats()

	buf := NewBuffer(replyBufferSize)
	buf.WriteU16(cycle)
	buf.WriteU16(i2cErrors)
	buf.WriteU16(d.core.SensorStatus())
	buf.WriteU16(load)
	buf.WriteU8(d.core.BatteryProfileIndex()<<4 | d.core.ProfileIndex())
	buf.WriteU32(d.core.ArmingFlags())
	buf.WriteData(d.core.PackBoxFlags())

	return buf.Bytes()
}

// sensorStatusDetail reports overall health plus one presence byte per
// sensor slot, in sensor-word bit order.
func (d *Dispatcher) sensorStatusDetail() []byte {
	word := d.core.SensorStatus()

	buf := NewBuffer(9)
	healthy := uint8(1)
	if word&0x8000 != 0 {
		healthy = 0
	}
	buf.WriteU8(healthy)
	for bit := 0; bit < 8; bit++ {
		present := uint8(0)
		if word&(1<<bit) != 0 {
			present = 1
		}
		buf.WriteU8(present)
	}

	return buf.Bytes()
}

func (d *Dispatcher) boardInfo() []byte {
	board := d.core.Board()

	ident := []byte("    ")
	copy(ident, board)

	osd := uint8(0)
	if d.core.Target().Build.UseOSD {
		osd = 2
	}

	buf := NewBuffer(replyBufferSize)
	buf.WriteData(ident)
	buf.WriteU16(0) // hardware revision
	buf.WriteU8(osd)
	buf.WriteU8(0) // comm capabilities
	buf.WriteU8(uint8(len(board)))
	buf.WriteData([]byte(board))

	return buf.Bytes()
}

func buildInfo() []byte {
	buf := NewBuffer(replyBufferSize)
	buf.WriteData(fixedWidth(app.BuildDateYMD(), 11))
	buf.WriteData(fixedWidth("", 8)) // build time, not carried by ldflags
	buf.WriteData(fixedWidth(app.BuildVersion(), 8))

	return buf.Bytes()
}

// fixedWidth pads with spaces or truncates to exactly n bytes.
func fixedWidth(s string, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = ' '
	}
	copy(out, s)

	return out
}

func modeRanges(conditions [settings.MaxModeActivationConditions]settings.ModeActivationCondition) []byte {
	buf := NewBuffer(settings.MaxModeActivationConditions * 4)
	for i := range conditions {
		c := &conditions[i]
		buf.WriteU8(uint8(c.PermanentID))
		buf.WriteU8(c.AuxChannelIndex)
		buf.WriteU8(c.RangeStartStep)
		buf.WriteU8(c.RangeEndStep)
	}

	return buf.Bytes()
}

func (d *Dispatcher) setModeRange(payload []byte) error {
	if len(payload) < 5 {
		return fmt.Errorf("set mode range: short payload %d", len(payload))
	}

	return d.core.SetModeRange(int(payload[0]), box.PermanentID(payload[1]), payload[2], payload[3], payload[4])
}

func (d *Dispatcher) setRawRC(payload []byte) error {
	if d.gate == nil {
		return fmt.Errorf("rc override not wired")
	}
	if len(payload) == 0 || len(payload)%2 != 0 {
		return fmt.Errorf("set raw rc: bad payload length %d", len(payload))
	}
	count := len(payload) / 2
	if count > maxRCChannels {
		return fmt.Errorf("set raw rc: %d channels above limit", count)
	}

	channels := make([]uint16, count)
	for i := range channels {
		channels[i] = binary.LittleEndian.Uint16(payload[2*i:])
	}
	// Deliveries dropped during a storage write are still acknowledged;
	// the override link keeps streaming regardless.
	d.gate.Deliver(channels)

	return nil
}
