// Package recorder owns the microphone. At most one recording session is
// active at a time; Stop releases the capture device on every exit path,
// whether or not any audio was captured or the downstream hand-off succeeds.
package recorder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/do"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/config"
	"golang.org/x/sync/errgroup"
)

// ErrPermissionDenied signals that the capture device could not be opened.
var ErrPermissionDenied = errors.New("microphone unavailable")

const readBufferSize = 4096

// Clip is an assembled recording tagged with its encoding.
type Clip struct {
	SessionID string
	Data      []byte
	MIMEType  string
	Filename  string
}

// Sink receives finished clips. Wired to the conversation orchestrator's
// voice-turn entry point at startup.
type Sink func(Clip)

type captureSource interface {
	Audio() io.Reader
	Stop() error
}

type sourceFactory func(ctx context.Context, device string, format Format) (captureSource, error)

type Service struct {
	cfg       *config.Config
	newSource sourceFactory
	supported func(container string) bool

	mu   sync.Mutex
	sess *session
	sink Sink
}

type session struct {
	id     string
	format Format
	src    captureSource
	cancel context.CancelFunc
	group  *errgroup.Group

	mu      sync.Mutex
	pending bytes.Buffer
	chunks  [][]byte
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Service{
		cfg:       cfg,
		newSource: newFFmpegSource,
		supported: muxerSupported,
	}, nil
}

func newFFmpegSource(ctx context.Context, device string, format Format) (captureSource, error) {
	stream, err := NewCaptureStream(ctx, device, format)
	if err != nil {
		return nil, err
	}

	if err = stream.Start(); err != nil {
		return nil, err
	}

	return stream, nil
}

func (s *Service) SetSink(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sink = sink
}

func (s *Service) IsRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sess != nil
}

// Start opens the capture device and begins buffering audio fragments.
// A second Start while recording is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess != nil {
		slog.Debug("recording already in progress")
		return nil
	}

	format := s.chooseFormat()

	sessCtx, cancel := context.WithCancel(ctx)

	src, err := s.newSource(sessCtx, s.cfg.Audio.Device, format)
	if err != nil {
		cancel()
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	}

	sess := &session{
		id:     uuid.NewString(),
		format: format,
		src:    src,
		cancel: cancel,
	}

	group, groupCtx := errgroup.WithContext(sessCtx)
	sess.group = group

	group.Go(func() error {
		return sess.readAudio()
	})
	group.Go(func() error {
		return sess.flushLoop(groupCtx, time.Duration(s.cfg.Audio.FlushIntervalMs)*time.Millisecond)
	})

	s.sess = sess

	slog.Info("Recording started", "session", sess.id, "format", format.Container)

	return nil
}

// Stop ends the session, releases the device and, if any audio was
// captured, assembles the fragments into a clip and forwards it to the sink.
// A Stop while idle is a no-op.
func (s *Service) Stop() {
	s.mu.Lock()
	sess := s.sess
	sink := s.sink
	s.sess = nil
	s.mu.Unlock()

	if sess == nil {
		return
	}

	sess.cancel()
	if err := sess.src.Stop(); err != nil {
		slog.Warn("failed to stop capture source", "error", err)
	}
	_ = sess.group.Wait()

	sess.flush()

	sess.mu.Lock()
	chunks := sess.chunks
	sess.mu.Unlock()

	if len(chunks) == 0 {
		slog.Debug("discarding recording with no captured audio", "session", sess.id)
		return
	}

	clip := Clip{
		SessionID: sess.id,
		Data:      bytes.Join(chunks, nil),
		MIMEType:  sess.format.MIMEType,
		Filename:  "voice" + sess.format.Extension,
	}

	slog.Info("Recording finished", "session", sess.id, "bytes", len(clip.Data))

	if sink != nil {
		sink(clip)
	}
}

func (s *Service) chooseFormat() Format {
	primary := formatFor(s.cfg.Audio.PrimaryFormat)
	if s.supported(primary.Container) {
		return primary
	}

	return formatFor(s.cfg.Audio.FallbackFormat)
}

func (sess *session) readAudio() error {
	buffer := make([]byte, readBufferSize)

	for {
		n, err := sess.src.Audio().Read(buffer)
		if n > 0 {
			sess.mu.Lock()
			sess.pending.Write(buffer[:n])
			sess.mu.Unlock()
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("failed to read audio: %w", err)
		}
	}
}

func (sess *session) flushLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			sess.flush()
		}
	}
}

// flush moves accumulated audio into a finished fragment.
func (sess *session) flush() {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.pending.Len() == 0 {
		return
	}

	fragment := make([]byte, sess.pending.Len())
	copy(fragment, sess.pending.Bytes())
	sess.pending.Reset()

	sess.chunks = append(sess.chunks, fragment)
}
