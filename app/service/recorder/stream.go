package recorder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
)

// Format describes the container a clip is recorded into.
type Format struct {
	Container string
	MIMEType  string
	Extension string
}

var (
	formatWebm = Format{Container: "webm", MIMEType: "audio/webm", Extension: ".webm"}
	formatOgg  = Format{Container: "ogg", MIMEType: "audio/ogg", Extension: ".ogg"}
)

func formatFor(container string) Format {
	if container == formatOgg.Container {
		return formatOgg
	}

	return formatWebm
}

// CaptureStream records microphone input through an ffmpeg subprocess,
// encoding it to opus in the requested container on stdout.
type CaptureStream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser
	mu     sync.Mutex
}

func NewCaptureStream(ctx context.Context, device string, format Format) (*CaptureStream, error) {
	args := []string{
		"-loglevel", "warning",
		"-f", "pulse",
		"-i", device,
		"-vn",
		"-ac", "1",
		"-ar", "48000",
		"-c:a", "libopus",
		"-f", format.Container,
		"-",
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	slog.Info("Running ffmpeg", "cmd", "ffmpeg "+strings.Join(args, " "))

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	return &CaptureStream{
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
	}, nil
}

func (c *CaptureStream) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	go c.logStderr()

	return nil
}

func (c *CaptureStream) Audio() io.Reader {
	return c.stdout
}

func (c *CaptureStream) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmd.Process != nil {
		err := c.cmd.Process.Kill()
		go func() {
			_ = c.cmd.Wait()
		}()

		return err
	}

	return nil
}

func (c *CaptureStream) logStderr() {
	scanner := bufio.NewScanner(c.stderr)
	for scanner.Scan() {
		slog.Debug("ffmpeg", "stderr", scanner.Text())
	}
}

var (
	muxersOnce   sync.Once
	muxersOutput string
)

// muxerSupported reports whether the local ffmpeg can write the container.
// Mirrors the primary-then-fallback encoding pick of the recording surface.
func muxerSupported(container string) bool {
	muxersOnce.Do(func() {
		out, err := exec.Command("ffmpeg", "-hide_banner", "-muxers").Output()
		if err != nil {
			slog.Warn("could not list ffmpeg muxers", "error", err)
			return
		}

		muxersOutput = string(out)
	})

	if muxersOutput == "" {
		return true
	}

	for _, line := range strings.Split(muxersOutput, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == "E" && fields[1] == container {
			return true
		}
	}

	return false
}
