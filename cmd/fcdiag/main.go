// fcdiag is the field diagnostics tool for the flight-core daemon: it
// decodes arming words, inspects the live mode set over MSP and reads the
// local diagnostics journal.
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"fccore/internal/app"
	"fccore/internal/box"
	"fccore/internal/capability"
	"fccore/internal/fc"
	"fccore/internal/journal"
	"fccore/internal/settings"
	"fccore/internal/target"
)

const defaultHost = "127.0.0.1:5760"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "fcdiag:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		usage()
		return fmt.Errorf("a subcommand is required")
	}

	switch args[0] {
	case "armflags":
		return runArmflags(args[1:])
	case "status":
		return runStatus(args[1:])
	case "boxes":
		return runBoxes(args[1:])
	case "eeprom":
		return runEEPROM(args[1:])
	case "journal":
		return runJournal(args[1:])
	case "version":
		fmt.Println(app.BuildVersionWithDate())
		return nil
	default:
		usage()
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: fcdiag <command> [flags]

commands:
  armflags <hexword>   decode an arming status word
  status   [--host]    show live controller status
  boxes    [--host | --target]  list the active mode boxes
  eeprom   <file>      inspect a settings blob record by record
  journal  [--limit]   show recent diagnostics journal entries
  version              print the build version`)
}

func runArmflags(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("armflags requires exactly one hexadecimal word")
	}

	raw := strings.TrimPrefix(strings.ToLower(args[0]), "0x")
	word, err := strconv.ParseUint(raw, 16, 32)
	if err != nil {
		return fmt.Errorf("parse %q as a hexadecimal arming word: %w", args[0], err)
	}

	names := fc.DescribeArmingFlags(uint32(word))
	if len(names) == 0 {
		fmt.Printf("%08x => no flags set\n", word)
		return nil
	}
	for i := 0; i < 32; i++ {
		if word&(1<<i) == 0 {
			continue
		}
		flagNames := fc.DescribeArmingFlags(1 << i)
		if len(flagNames) == 0 {
			continue
		}
		fmt.Printf("%08x => %s\n", uint64(1)<<i, flagNames[0])
	}

	return nil
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	host := fs.String("host", defaultHost, "daemon msp tcp address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := dial(*host)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	payload, err := c.request(cmdINAVStatus)
	if err != nil {
		return err
	}
	if len(payload) < 13 {
		return fmt.Errorf("status reply too short: %d bytes", len(payload))
	}

	cycle := binary.LittleEndian.Uint16(payload[0:])
	i2cErrors := binary.LittleEndian.Uint16(payload[2:])
	sensorWord := binary.LittleEndian.Uint16(payload[4:])
	load := binary.LittleEndian.Uint16(payload[6:])
	profiles := payload[8]
	armingWord := binary.LittleEndian.Uint32(payload[9:])
	boxFlags := payload[13:]

	fmt.Printf("cycle time:      %d us\n", cycle)
	fmt.Printf("i2c errors:      %d\n", i2cErrors)
	fmt.Printf("system load:     %d%%\n", load)
	fmt.Printf("tuning profile:  %d\n", profiles&0x0F)
	fmt.Printf("battery profile: %d\n", profiles>>4)
	fmt.Printf("sensors:         %s\n", describeSensors(sensorWord))

	fmt.Printf("arming word:     %08x\n", armingWord)
	for _, name := range fc.DescribeArmingFlags(armingWord) {
		fmt.Printf("  %s\n", name)
	}

	engaged, err := engagedBoxes(c, boxFlags)
	if err != nil {
		return err
	}
	fmt.Printf("engaged boxes:   %s\n", strings.Join(engaged, ", "))

	return nil
}

func describeSensors(word uint16) string {
	var names []string
	for bit := 0; bit < 8; bit++ {
		if word&(1<<bit) != 0 {
			names = append(names, capability.Sensor(bit).String())
		}
	}
	if word&0x8000 != 0 {
		names = append(names, "HARDWARE FAILURE")
	}
	if len(names) == 0 {
		return "none"
	}

	return strings.Join(names, ", ")
}

// engagedBoxes maps set bits of the live bitmask back to names through
// the name listing, which shares the bitmask's ordering.
func engagedBoxes(c *client, flags []byte) ([]string, error) {
	payload, err := c.request(cmdBoxNames)
	if err != nil {
		return nil, err
	}
	names := splitBoxNames(payload)

	var engaged []string
	for i, name := range names {
		if i/8 >= len(flags) {
			break
		}
		if flags[i/8]&(1<<(i%8)) != 0 {
			engaged = append(engaged, name)
		}
	}
	if len(engaged) == 0 {
		return []string{"none"}, nil
	}

	return engaged, nil
}

func splitBoxNames(payload []byte) []string {
	parts := strings.Split(string(payload), ";")
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}

	return parts
}

func runBoxes(args []string) error {
	fs := flag.NewFlagSet("boxes", flag.ContinueOnError)
	host := fs.String("host", defaultHost, "daemon msp tcp address")
	targetPath := fs.String("target", "", "resolve offline for a board definition instead of asking the daemon")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *targetPath != "" {
		return resolveOffline(*targetPath)
	}

	c, err := dial(*host)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	namesPayload, err := c.request(cmdBoxNames)
	if err != nil {
		return err
	}
	idsPayload, err := c.request(cmdBoxIDs)
	if err != nil {
		return err
	}

	names := splitBoxNames(namesPayload)
	if len(names) != len(idsPayload) {
		return fmt.Errorf("box listing mismatch: %d names, %d ids", len(names), len(idsPayload))
	}

	fmt.Printf("%-4s %-4s %s\n", "BIT", "PERM", "NAME")
	for i, name := range names {
		pid := box.PermanentID(idsPayload[i])
		marker := ""
		if _, ok := box.LookupPermanent(pid); !ok {
			marker = " (unknown to this tool)"
		}
		fmt.Printf("%-4d %-4d %s%s\n", i, pid, name, marker)
	}

	return nil
}

// resolveOffline computes the active box set a board would offer with
// factory-default settings, without talking to a daemon.
func resolveOffline(targetPath string) error {
	tgt, err := target.Load(targetPath)
	if err != nil {
		return err
	}

	st := settings.Defaults()
	mask := tgt.SensorMask()
	set := box.Resolve(capability.Snapshot{
		Sensors:            mask,
		Features:           st.Features.Enabled,
		State:              capability.DeriveStateFlags(st.Mixer.PlatformType, st.Mixer.HasFlaperonServo),
		Platform:           st.Mixer.PlatformType,
		Build:              tgt.Build,
		CompassWorking:     mask.Has(capability.SensorMag),
		UseGPSNoBaro:       st.PosEstimation.UseGPSNoBaro,
		AllowDeadReckoning: st.PosEstimation.AllowDeadReckoning,
		TelemetrySwitch:    st.Telemetry.Switch,
		DshotMotors:        st.Motor.Protocol.IsDshot(),
	})

	fmt.Printf("target %s: %d boxes with default settings\n", tgt.Board, set.Len())
	fmt.Printf("%-4s %-4s %s\n", "BIT", "PERM", "NAME")
	for i, id := range set.IDs() {
		b, ok := box.Lookup(id)
		if !ok {
			continue
		}
		fmt.Printf("%-4d %-4d %s\n", i, b.PermanentID, b.Name)
	}

	return nil
}

func runEEPROM(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("eeprom requires exactly one blob file")
	}

	// #nosec G304 -- operator-supplied diagnostics input.
	blob, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read blob: %w", err)
	}

	report, err := settings.Inspect(blob)
	if err != nil {
		return fmt.Errorf("blob is structurally unreadable: %w", err)
	}

	fmt.Printf("format version: %d\n", report.FormatVersion)
	fmt.Printf("checksum:       %s\n", okString(report.ChecksumOK))
	fmt.Printf("%-6s %-16s %-3s %-4s %-5s %s\n", "PGN", "GROUP", "VER", "SLOT", "SIZE", "APPLIED")
	for _, rec := range report.Records {
		fmt.Printf("%-6d %-16s %-3d %-4d %-5d %s\n",
			rec.PGN, rec.Name, rec.Version, rec.Slot, rec.Size, okString(rec.Applied))
	}

	if _, err := settings.Decode(blob); err != nil {
		fmt.Printf("decode:         FAIL (%v); the daemon would fall back to defaults\n", err)
		return nil
	}
	fmt.Println("decode:         ok")

	return nil
}

func okString(ok bool) string {
	if ok {
		return "ok"
	}
	return "FAIL"
}

func runJournal(args []string) error {
	fs := flag.NewFlagSet("journal", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "number of entries to show")
	path := fs.String("path", "", "journal database path (default: the daemon's)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dbPath := *path
	if dbPath == "" {
		paths, err := app.ResolvePaths()
		if err != nil {
			return fmt.Errorf("resolve paths: %w", err)
		}
		dbPath = paths.JournalFile
	}

	ctx := context.Background()
	db, err := journal.Open(ctx, dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	entries, err := journal.NewEventRepo(db).ListRecent(ctx, *limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("journal is empty")
		return nil
	}

	for _, e := range entries {
		line := fmt.Sprintf("%s  %-18s %s", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Topic, e.Summary)
		if e.Detail != "" {
			line += " [" + e.Detail + "]"
		}
		fmt.Println(line)
	}

	return nil
}
