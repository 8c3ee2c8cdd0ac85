package config

import (
	"fmt"
	"runtime"
)

// Build information, set at build time using ldflags:
//
//	-X defectlens/pkg/config.BuildVersion=... -X defectlens/pkg/config.BuildTimestamp=...
var (
	BuildVersion   = "unknown"
	BuildTimestamp = "unknown"
)

// GetBuildInfo returns a formatted string with build details.
func GetBuildInfo() string {
	return fmt.Sprintf("defectlens %s (%s) %s/%s", BuildVersion, BuildTimestamp, runtime.GOOS, runtime.GOARCH)
}
