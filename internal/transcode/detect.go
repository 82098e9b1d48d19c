/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package transcode

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// DetectFFmpeg locates the ffmpeg binary: an explicitly configured path wins,
// then a bundled binaries/ directory next to the executable, then PATH.
func DetectFFmpeg(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	name := "ffmpeg"
	if runtime.GOOS == "windows" {
		name = "ffmpeg.exe"
	}

	if exe, err := os.Executable(); err == nil {
		bundled := filepath.Join(filepath.Dir(exe), "binaries", name)
		if _, err := os.Stat(bundled); err == nil {
			return bundled, nil
		}
	}

	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("ffmpeg not found: install it or set SKALD_FFMPEG_BIN")
}

// Version returns the first line of `ffmpeg -version` output.
func Version(bin string) (string, error) {
	out, err := exec.Command(bin, "-version").Output()
	if err != nil {
		return "", fmt.Errorf("probe ffmpeg version: %w", err)
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line), nil
}
