// Package assistant drives the conversation with the remote clinic backend:
// one linear turn protocol for typed, quick-book and voice input, plus the
// confirm/cancel state machine for proposed bookings.
package assistant

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samber/do"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/client/backend"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/config"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/service/chatlog"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/service/recorder"
)

// Recorder is the slice of the audio pipeline the orchestrator needs.
type Recorder interface {
	IsRecording() bool
	Start(ctx context.Context) error
	Stop()
}

// Prompter asks the user a yes/no question without blocking event intake;
// the answer arrives whenever the presentation layer reports it.
type Prompter interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

type Service struct {
	cfg     *config.Config
	backend *backend.Client
	log     *chatlog.Log
	rec     Recorder
	appCtx  context.Context

	mu       sync.Mutex
	busy     bool
	prompter Prompter

	changes chan struct{}
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		cfg:     do.MustInvoke[*config.Config](di),
		backend: do.MustInvoke[*backend.Client](di),
		log:     do.MustInvoke[*chatlog.Log](di),
		rec:     do.MustInvoke[*recorder.Service](di),
		appCtx:  do.MustInvoke[context.Context](di),
		changes: make(chan struct{}, 1),
	}, nil
}

func (s *Service) SetPrompter(p Prompter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompter = p
}

// Changes signals that the conversation or one of the flags changed and the
// rendering surface should refresh. Notifications coalesce.
func (s *Service) Changes() <-chan struct{} {
	return s.changes
}

func (s *Service) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.busy
}

func (s *Service) Recording() bool {
	return s.rec.IsRecording()
}

func (s *Service) Snapshot() []chatlog.Message {
	return s.log.Snapshot()
}

// SendText runs one typed conversational turn. Dropped while another turn
// is in flight or a recording is active.
func (s *Service) SendText(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	if !s.beginTurn() {
		slog.Debug("dropping message, turn already in flight", "text", text)
		return
	}

	history := s.log.History()
	s.log.AppendUser(text)
	s.notify()

	go s.runChatTurn(ctx, text, history)
}

// SelectSlot is quick-book sugar: it synthesizes a natural-language user
// message for the chosen slot and feeds it through the same turn protocol.
func (s *Service) SelectSlot(ctx context.Context, slot chatlog.Slot) {
	s.SendText(ctx, quickBookMessage(slot))
}

// ToggleRecording starts the microphone, or stops it and hands the clip to
// the voice turn. Starting is refused while a turn is in flight.
func (s *Service) ToggleRecording(ctx context.Context) error {
	if s.rec.IsRecording() {
		s.rec.Stop()
		s.notify()
		return nil
	}

	if s.Busy() {
		slog.Debug("voice input disabled while a turn is in flight")
		return nil
	}

	if err := s.rec.Start(ctx); err != nil {
		return err
	}

	s.notify()

	return nil
}

// HandleClip is the recorder sink: it opens a voice turn with a processing
// placeholder, transcribes the clip and continues as a regular chat turn.
func (s *Service) HandleClip(clip recorder.Clip) {
	if !s.beginTurn() {
		slog.Warn("dropping voice clip, turn already in flight", "session", clip.SessionID)
		return
	}

	history := s.log.History()
	s.log.AppendUser(voicePlaceholder)
	s.notify()

	go s.runVoiceTurn(s.appCtx, clip, history)
}

// Reset replaces the conversation with a fresh greeting after the user
// confirms. Not gated by the busy flag.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	prompter := s.prompter
	s.mu.Unlock()

	if prompter != nil {
		ok, err := prompter.Confirm(ctx, resetQuestion)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	s.log.Reset()
	s.notify()

	return nil
}

// ConfirmBooking resolves a pending booking optimistically: the proposal is
// marked confirmed on the message before the booking call settles, and is
// not rolled back if the call fails. Unknown or already-resolved messages
// are a no-op.
func (s *Service) ConfirmBooking(ctx context.Context, messageID int64) {
	var details chatlog.PendingBooking

	patched := s.log.PatchByID(messageID, func(m *chatlog.Message) bool {
		if m.Booking == nil {
			return false
		}

		details = *m.Booking
		m.Booking = nil
		m.Kind = chatlog.KindPlain
		m.Text += confirmedSuffix

		return true
	})
	if !patched {
		slog.Debug("confirm on unknown or resolved booking", "message_id", messageID)
		return
	}

	s.setBusy(true)
	s.notify()

	go s.runBooking(ctx, details)
}

// CancelBooking resolves a pending booking locally; no network call is made.
func (s *Service) CancelBooking(messageID int64) {
	patched := s.log.PatchByID(messageID, func(m *chatlog.Message) bool {
		if m.Booking == nil {
			return false
		}

		m.Booking = nil
		m.Kind = chatlog.KindPlain
		m.Text = cancelledText

		return true
	})
	if !patched {
		slog.Debug("cancel on unknown or resolved booking", "message_id", messageID)
		return
	}

	s.log.AppendBot(cancelFollowUpMsg)
	s.notify()
}

func (s *Service) runChatTurn(ctx context.Context, text string, history []chatlog.HistoryEntry) {
	defer func() {
		s.setBusy(false)
		s.notify()
	}()

	s.chatPhase(ctx, text, history)
}

func (s *Service) runVoiceTurn(ctx context.Context, clip recorder.Clip, history []chatlog.HistoryEntry) {
	defer func() {
		s.setBusy(false)
		s.notify()
	}()

	callCtx, cancel := s.callContext(ctx)
	resp, err := s.backend.Transcribe(callCtx, toBackendClip(clip))
	cancel()

	if err != nil || resp.Status != backend.StatusSuccess {
		slog.Warn("transcription failed",
			"session", clip.SessionID,
			"error", err,
		)
		s.log.PatchLast(isVoicePlaceholder, func(m *chatlog.Message) {
			m.Text = voiceFailureNotice
		})
		return
	}

	s.log.PatchLast(isVoicePlaceholder, func(m *chatlog.Message) {
		m.Text = `🎤 "` + resp.Text + `"`
	})
	s.notify()

	s.chatPhase(ctx, resp.Text, history)
}

// chatPhase performs the network half of a turn and folds the response back
// into the conversation as exactly one bot message.
func (s *Service) chatPhase(ctx context.Context, text string, history []chatlog.HistoryEntry) {
	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	resp, err := s.backend.Chat(callCtx, text, toBackendHistory(history))
	if err != nil {
		if errors.Is(err, backend.ErrNetwork) {
			slog.Warn("chat turn failed", "error", err)
		} else {
			slog.Error("chat turn failed", "error", err)
		}

		s.log.AppendBot(connectionErrorMsg)
		return
	}

	if resp.Status == backend.StatusRequiresConfirmation && resp.BookingDetails != nil {
		s.log.AppendPendingBooking(resp.Message, toChatlogBooking(*resp.BookingDetails))
		return
	}

	s.log.AppendSlotOffer(resp.Message, toChatlogSlots(resp.Slots))
}

func (s *Service) runBooking(ctx context.Context, details chatlog.PendingBooking) {
	defer func() {
		s.setBusy(false)
		s.notify()
	}()

	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	resp, err := s.backend.Book(callCtx, toBackendBooking(details))
	if err != nil {
		slog.Warn("booking call failed", "slot_id", details.SlotID, "error", err)
		s.log.AppendBot(bookingFailedMsg)
		return
	}

	s.log.AppendBot(resp.Message)
}

func (s *Service) beginTurn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy || s.rec.IsRecording() {
		return false
	}

	s.busy = true

	return true
}

func (s *Service) setBusy(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.busy = v
}

func (s *Service) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(s.cfg.Backend.TimeoutSeconds)*time.Second)
}

func (s *Service) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}
