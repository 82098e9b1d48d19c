/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version provides build version information.
package version

import (
	"fmt"
	"runtime"
)

// Version is the current version of Skald Relay.
// This is set at build time via ldflags:
//
//	-X github.com/friendsincode/skald_relay/internal/version.Version=X.Y.Z
var Version = "0.3.0"

// String returns the version with runtime details.
func String() string {
	return fmt.Sprintf("skaldrelay %s (%s, %s/%s)", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
