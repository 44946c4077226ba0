package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// Version is filled by ldflags in release builds.
	Version = "dev"
	// BuildDate is filled by ldflags in release builds.
	BuildDate = ""
)

func BuildVersion() string {
	version := strings.TrimSpace(Version)
	if version == "" {
		return "dev"
	}

	return version
}

func BuildDateYMD() string {
	raw := strings.TrimSpace(BuildDate)
	if raw == "" {
		return ""
	}

	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed.Format("2006-01-02")
	}

	if len(raw) >= len("2006-01-02") {
		date := raw[:len("2006-01-02")]
		if _, err := time.Parse("2006-01-02", date); err == nil {
			return date
		}
	}

	return raw
}

func BuildVersionWithDate() string {
	version := BuildVersion()
	if buildDate := BuildDateYMD(); buildDate != "" {
		return fmt.Sprintf("%s (%s)", version, buildDate)
	}

	return version
}

// VersionTriplet splits the build version into the major/minor/patch bytes
// reported over the wire. Non-release builds report 0.1.0.
func VersionTriplet() (major, minor, patch uint8) {
	raw := strings.TrimPrefix(BuildVersion(), "v")
	parts := strings.SplitN(raw, ".", 3)
	if len(parts) != 3 {
		return 0, 1, 0
	}

	nums := make([]uint8, 3)
	for i, part := range parts {
		if dash := strings.IndexAny(part, "-+"); dash >= 0 {
			part = part[:dash]
		}
		n, err := strconv.ParseUint(part, 10, 8)
		if err != nil {
			return 0, 1, 0
		}
		nums[i] = uint8(n)
	}

	return nums[0], nums[1], nums[2]
}
