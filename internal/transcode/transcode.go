/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package transcode owns the external encoder subprocesses. One process per
// active stream, re-encoding an upstream URL to CBR MP3 on stdout.
package transcode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// ErrEncoderUnavailable indicates the encoder binary could not be launched.
var ErrEncoderUnavailable = errors.New("encoder unavailable")

// SpawnOptions carries transport headers some upstreams require. They apply
// to the encoder's outbound request, never to the relay's inbound handling.
type SpawnOptions struct {
	UserAgent string
	Referer   string
	Headers   map[string]string
}

// Runner spawns encoder processes for a configured ffmpeg binary.
type Runner struct {
	bin    string
	logger zerolog.Logger
}

// NewRunner creates a runner. An empty bin falls back to "ffmpeg" on PATH.
func NewRunner(bin string, logger zerolog.Logger) *Runner {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &Runner{
		bin:    bin,
		logger: logger.With().Str("component", "transcode").Logger(),
	}
}

// buildArgs assembles the encoder invocation: reconnect on transient network
// failure, drop video, CBR MP3 at 44.1kHz stereo, flush aggressively so the
// first byte reaches the client fast, write to stdout.
func buildArgs(inputURL string, opts SpawnOptions) []string {
	var args []string

	if opts.UserAgent != "" {
		args = append(args, "-user_agent", opts.UserAgent)
	}

	var headers strings.Builder
	if opts.Referer != "" {
		headers.WriteString("Referer: " + opts.Referer + "\r\n")
	}
	for _, k := range sortedKeys(opts.Headers) {
		headers.WriteString(k + ": " + opts.Headers[k] + "\r\n")
	}
	if headers.Len() > 0 {
		args = append(args, "-headers", headers.String())
	}

	args = append(args,
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-i", inputURL,
		"-vn",
		"-acodec", "libmp3lame",
		"-ab", "128k",
		"-ar", "44100",
		"-ac", "2",
		"-f", "mp3",
		"-fflags", "+nobuffer+discardcorrupt",
		"-flags", "low_delay",
		"-flush_packets", "1",
		"pipe:1",
	)
	return args
}

// sortedKeys keeps the header order stable across spawns.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Spawn launches an encoder for inputURL. The returned process is killed when
// ctx is cancelled even if the caller never reaches Kill.
func (r *Runner) Spawn(ctx context.Context, inputURL string, opts SpawnOptions) (*Process, error) {
	cmd := exec.CommandContext(ctx, r.bin, buildArgs(inputURL, opts)...)
	// stdin and stderr stay connected to the null device: the encoder must
	// not block on input and its diagnostics must never reach the client.

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoderUnavailable, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoderUnavailable, err)
	}

	r.logger.Debug().Int("pid", cmd.Process.Pid).Msg("encoder started")

	return &Process{cmd: cmd, stdout: stdout}, nil
}

// Process is a single running encoder.
type Process struct {
	cmd      *exec.Cmd
	stdout   io.ReadCloser
	killOnce sync.Once
}

// Output returns the encoder's stdout pipe.
func (p *Process) Output() io.ReadCloser {
	return p.stdout
}

// PID returns the encoder's OS process id.
func (p *Process) PID() int {
	return p.cmd.Process.Pid
}

// Kill terminates the encoder. Safe to call multiple times and required on
// every exit path; the process is reaped asynchronously.
func (p *Process) Kill() {
	p.killOnce.Do(func() {
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
		go func() { _ = p.cmd.Wait() }()
	})
}
