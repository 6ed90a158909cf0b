// Package bridge runs the openclaw CLI and turns its stdout into a
// snapshot. Every failure mode (spawn error, timeout, non-zero exit,
// missing or malformed payload) collapses to a nil snapshot.
package bridge

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stellarlinkco/clawdash/internal/logger"
	"github.com/stellarlinkco/clawdash/internal/snapshot"
)

// Runner executes name with args and returns captured stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner is the default Runner. Stderr is discarded; the process is
// killed when ctx expires.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = nil
	cmd.WaitDelay = time.Second
	err := cmd.Run()
	return stdout.Bytes(), err
}

type Bridge struct {
	command string
	run     Runner
	log     zerolog.Logger
}

type Option func(*Bridge)

func WithRunner(r Runner) Option {
	return func(b *Bridge) {
		if r != nil {
			b.run = r
		}
	}
}

func New(command string, opts ...Option) *Bridge {
	b := &Bridge{
		command: command,
		run:     ExecRunner,
		log:     logger.WithComponent("bridge"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bridge) Command() string {
	return b.command
}

// Invoke runs the command with a hard timeout and returns the parsed
// payload, or nil.
func (b *Bridge) Invoke(ctx context.Context, timeout time.Duration, args ...string) *snapshot.Raw {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := b.run(ctx, b.command, args...)
	elapsed := time.Since(start)
	argv := strings.Join(args, " ")

	if err != nil {
		ev := b.log.Warn()
		if ctx.Err() != nil {
			ev = ev.Bool("timeout", true)
		}
		ev.Err(err).Str("args", argv).Dur("elapsed", elapsed).Msg("command failed")
		return nil
	}

	snap := Extract(out)
	if snap == nil {
		b.log.Warn().Str("args", argv).Int("bytes", len(out)).Msg("no structured payload in output")
		return nil
	}

	b.log.Debug().Str("args", argv).Dur("elapsed", elapsed).Msg("command ok")
	return snap
}

// Extract skips any diagnostic preamble before the first '{' and parses
// the remainder as one JSON document.
func Extract(out []byte) *snapshot.Raw {
	idx := bytes.IndexByte(out, '{')
	if idx < 0 {
		return nil
	}
	return snapshot.Parse(bytes.TrimSpace(out[idx:]))
}
