// Package telemetry exports vehicle status over MAVLink so ground stations
// that do not speak MSP can still observe arming state and sensor health.
// Output only; commands received on the link are ignored.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"

	"fccore/internal/box"
	"fccore/internal/capability"
)

// Source is the slice of the flight core the exporter reads.
type Source interface {
	Armed() bool
	ArmingDisabled() bool
	SensorStatus() uint16
	RuntimeStats() (cycleUs, i2cErrors, loadPercent uint16)
	Platform() capability.PlatformType
	FlightModes() box.FlightModeMask
}

const (
	defaultInterval = 1 * time.Second
	systemID        = 1
)

// Exporter owns the MAVLink node and the send loop.
type Exporter struct {
	node     *gomavlib.Node
	src      Source
	log      *slog.Logger
	interval time.Duration
}

func NewExporter(udpAddress string, src Source, logger *slog.Logger) (*Exporter, error) {
	if logger == nil {
		logger = slog.Default()
	}

	node, err := gomavlib.NewNode(gomavlib.NodeConf{
		Endpoints: []gomavlib.EndpointConf{
			gomavlib.EndpointUDPServer{Address: udpAddress},
		},
		Dialect:     common.Dialect,
		OutVersion:  gomavlib.V2,
		OutSystemID: systemID,
	})
	if err != nil {
		return nil, fmt.Errorf("create mavlink node: %w", err)
	}

	return &Exporter{
		node:     node,
		src:      src,
		log:      logger.With("component", "telemetry", "addr", udpAddress),
		interval: defaultInterval,
	}, nil
}

func (e *Exporter) Close() {
	e.node.Close()
}

// Run sends heartbeat and system-status pairs until ctx is done. Incoming
// events are drained so the node's channel never backs up.
func (e *Exporter) Run(ctx context.Context) error {
	go func() {
		for range e.node.Events() {
		}
	}()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.log.Info("telemetry exporter running")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := e.sendOnce(); err != nil {
				e.log.Warn("telemetry send failed", "error", err)
			}
		}
	}
}

func (e *Exporter) sendOnce() error {
	_, _, load := e.src.RuntimeStats()

	hb := buildHeartbeat(e.src.Platform(), e.src.FlightModes(), e.src.Armed(), e.src.ArmingDisabled())
	if err := e.node.WriteMessageAll(hb); err != nil {
		return fmt.Errorf("write heartbeat: %w", err)
	}

	status := buildSysStatus(e.src.SensorStatus(), load)
	if err := e.node.WriteMessageAll(status); err != nil {
		return fmt.Errorf("write sys status: %w", err)
	}

	return nil
}

func buildHeartbeat(platform capability.PlatformType, modes box.FlightModeMask, armed, disabled bool) *common.MessageHeartbeat {
	state := common.MAV_STATE_STANDBY
	baseMode := common.MAV_MODE_FLAG_CUSTOM_MODE_ENABLED
	switch {
	case armed:
		state = common.MAV_STATE_ACTIVE
		baseMode |= common.MAV_MODE_FLAG_SAFETY_ARMED
	case disabled:
		state = common.MAV_STATE_CRITICAL
	}

	return &common.MessageHeartbeat{
		Type:           mavType(platform),
		Autopilot:      common.MAV_AUTOPILOT_GENERIC,
		BaseMode:       baseMode,
		CustomMode:     uint32(modes),
		SystemStatus:   state,
		MavlinkVersion: 3,
	}
}

func mavType(platform capability.PlatformType) common.MAV_TYPE {
	switch platform {
	case capability.PlatformAirplane:
		return common.MAV_TYPE_FIXED_WING
	case capability.PlatformHelicopter:
		return common.MAV_TYPE_HELICOPTER
	case capability.PlatformTricopter:
		return common.MAV_TYPE_TRICOPTER
	case capability.PlatformRover:
		return common.MAV_TYPE_GROUND_ROVER
	case capability.PlatformBoat:
		return common.MAV_TYPE_SURFACE_BOAT
	default:
		return common.MAV_TYPE_QUADROTOR
	}
}

// sensorBits maps the MSP sensor word bit positions onto MAVLink sensor
// flags. Slots without a MAVLink counterpart stay zero.
var sensorBits = [8]common.MAV_SYS_STATUS_SENSOR{
	common.MAV_SYS_STATUS_SENSOR_3D_ACCEL,
	common.MAV_SYS_STATUS_SENSOR_ABSOLUTE_PRESSURE,
	common.MAV_SYS_STATUS_SENSOR_3D_MAG,
	common.MAV_SYS_STATUS_SENSOR_GPS,
	common.MAV_SYS_STATUS_SENSOR_LASER_POSITION,
	common.MAV_SYS_STATUS_SENSOR_OPTICAL_FLOW,
	common.MAV_SYS_STATUS_SENSOR_DIFFERENTIAL_PRESSURE,
	0,
}

func buildSysStatus(sensorWord uint16, loadPercent uint16) *common.MessageSysStatus {
	var present common.MAV_SYS_STATUS_SENSOR
	for bit, flag := range sensorBits {
		if sensorWord&(1<<bit) != 0 {
			present |= flag
		}
	}

	health := present
	if sensorWord&0x8000 != 0 {
		health = 0
	}

	return &common.MessageSysStatus{
		OnboardControlSensorsPresent: present,
		OnboardControlSensorsEnabled: present,
		OnboardControlSensorsHealth:  health,
		Load:                         loadPercent * 10,
		BatteryRemaining:             -1,
		CurrentBattery:               -1,
	}
}
