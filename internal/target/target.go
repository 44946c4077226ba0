// Package target describes the board the firmware is built for: which
// sensors are fitted and which optional subsystems the build carries.
// On a real board this is decided by the compiler; here it is data, read
// from a YAML definition file so one binary can stand in for any target.
package target

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"fccore/internal/capability"
)

// Definition is one board target. The zero value is unusable; start from
// Default or Load.
type Definition struct {
	Board   string                  `yaml:"board"`
	Name    string                  `yaml:"name"`
	Sensors []string                `yaml:"sensors"`
	Build   capability.BuildOptions `yaml:"build"`
}

// Default is the simulator reference target: every sensor fitted, every
// optional subsystem compiled in.
func Default() Definition {
	return Definition{
		Board: "SITL",
		Name:  "Simulator reference target",
		Sensors: []string{
			"acc", "baro", "mag", "gps",
			"rangefinder", "opflow", "pitot", "temp",
		},
		Build: capability.BuildOptions{
			UseGPS:               true,
			UseDshot:             true,
			UseBrakingMode:       true,
			UseFixedWingAutotune: true,
			UseLights:            true,
			UseLEDStrip:          true,
			UseTelemetry:         true,
			UseBlackbox:          true,
			UseRCDevice:          true,
			UsePinioBox:          true,
			UseOSD:               true,
			UseRxMSP:             true,
			UseMSPRCOverride:     true,
			UseMag:               true,
			UseSoftSerial:        true,
			UseServoSBus:         true,
			OSDLayoutCount:       3,
		},
	}
}

// Load reads a board definition. A missing file is not an error; the
// default target is returned so a bare install flies the simulator board.
func Load(path string) (Definition, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}

	cleanPath := filepath.Clean(path)
	// #nosec G304 -- path comes from the daemon's own configuration.
	raw, err := os.ReadFile(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}

		return Definition{}, fmt.Errorf("read target definition: %w", err)
	}

	var def Definition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return Definition{}, fmt.Errorf("decode target definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}

	return def, nil
}

// Validate checks the definition without mutating it.
func (d Definition) Validate() error {
	board := strings.TrimSpace(d.Board)
	if board == "" {
		return fmt.Errorf("target definition: board identifier is required")
	}
	if len(board) > 4 {
		return fmt.Errorf("target definition: board identifier %q exceeds 4 characters", board)
	}
	for _, name := range d.Sensors {
		if _, err := capability.ParseSensor(name); err != nil {
			return fmt.Errorf("target definition: %w", err)
		}
	}
	if d.Build.OSDLayoutCount < 0 || d.Build.OSDLayoutCount > 3 {
		return fmt.Errorf("target definition: osd_layout_count %d out of range", d.Build.OSDLayoutCount)
	}

	return nil
}

// SensorMask resolves the fitted-sensor list into the presence word.
// Unknown names were rejected by Validate; here they are skipped.
func (d Definition) SensorMask() capability.SensorMask {
	var mask capability.SensorMask
	for _, name := range d.Sensors {
		s, err := capability.ParseSensor(name)
		if err != nil {
			continue
		}
		mask |= capability.Sensors(s)
	}

	return mask
}
