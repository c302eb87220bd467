package deepgram

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// CommandSource returns an [AudioSource] that runs an external recorder
// process (e.g. arecord or ffmpeg) and streams raw PCM from its stdout. The
// process is killed when the returned reader is closed or ctx is cancelled.
//
// Example: CommandSource("arecord", "-f", "S16_LE", "-r", "16000", "-c",
// "1", "-t", "raw", "-").
func CommandSource(name string, args ...string) AudioSource {
	return func(ctx context.Context) (io.ReadCloser, error) {
		cmd := exec.CommandContext(ctx, name, args...)
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("deepgram: recorder pipe: %w", err)
		}
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("deepgram: start recorder %q: %w", name, err)
		}
		return &commandReader{ReadCloser: stdout, cmd: cmd}, nil
	}
}

// ParseCommandSource builds a CommandSource from a single shell-like command
// line split on whitespace. Returns an error for an empty line.
func ParseCommandSource(line string) (AudioSource, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("deepgram: empty recorder command")
	}
	return CommandSource(fields[0], fields[1:]...), nil
}

// commandReader couples the recorder's stdout to its process lifetime.
type commandReader struct {
	io.ReadCloser
	cmd *exec.Cmd
}

func (r *commandReader) Close() error {
	r.ReadCloser.Close()
	if r.cmd.Process != nil {
		r.cmd.Process.Kill()
	}
	// Wait reaps the process; the error is expected after Kill.
	r.cmd.Wait()
	return nil
}
