package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/client/backend"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/config"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/service/chatlog"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/service/recorder"
)

const (
	waitFor = 3 * time.Second
	tick    = 5 * time.Millisecond
)

type fakeRecorder struct {
	recording bool
	started   int
	stopped   int
	startErr  error
}

func (f *fakeRecorder) IsRecording() bool { return f.recording }

func (f *fakeRecorder) Start(_ context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}

	f.started++
	f.recording = true

	return nil
}

func (f *fakeRecorder) Stop() {
	f.stopped++
	f.recording = false
}

type fakePrompter struct {
	answer bool
	asked  []string
}

func (f *fakePrompter) Confirm(_ context.Context, question string) (bool, error) {
	f.asked = append(f.asked, question)
	return f.answer, nil
}

func newTestService(t *testing.T, baseURL string) *Service {
	t.Helper()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Backend.BaseURL = baseURL
	cfg.Backend.TimeoutSeconds = 2

	return &Service{
		cfg:     cfg,
		backend: backend.NewClient(baseURL),
		log:     chatlog.NewLog(cfg.Chat.Greeting),
		rec:     &fakeRecorder{},
		appCtx:  context.Background(),
		changes: make(chan struct{}, 1),
	}
}

func waitIdle(t *testing.T, svc *Service) {
	t.Helper()

	require.Eventually(t, func() bool { return !svc.Busy() }, waitFor, tick)
}

func TestQuickBookSynthesizesExactMessage(t *testing.T) {
	var chatCalls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatCalls.Add(1)
		json.NewEncoder(w).Encode(backend.ChatResponse{Status: "ok", Message: "Noted."})
	}))
	defer server.Close()

	svc := newTestService(t, server.URL)

	svc.SelectSlot(context.Background(), chatlog.Slot{StartTime: "10:00", Day: "Monday", SlotID: "S1"})

	require.Eventually(t, func() bool { return svc.log.Len() == 3 }, waitFor, tick)
	waitIdle(t, svc)

	msgs := svc.Snapshot()
	assert.Equal(t, chatlog.SenderUser, msgs[1].Sender)
	assert.Equal(t, "I want to book the 10:00 slot on Monday.", msgs[1].Text)
	assert.Equal(t, int32(1), chatCalls.Load())
}

func TestChatNetworkErrorAppendsNoticeAndClearsBusy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	svc := newTestService(t, server.URL)

	svc.SendText(context.Background(), "hi there")

	require.Eventually(t, func() bool { return svc.log.Len() == 3 }, waitFor, tick)
	waitIdle(t, svc)

	msgs := svc.Snapshot()
	assert.Equal(t, chatlog.SenderBot, msgs[2].Sender)
	assert.Equal(t, "Connection error.", msgs[2].Text)
	assert.Equal(t, chatlog.KindPlain, msgs[2].Kind)
}

func TestChatFoldsSlotOffer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(backend.ChatResponse{
			Status:  "ok",
			Message: "Available times:",
			Slots:   []backend.Slot{{StartTime: "10:00", Day: "Monday", SlotID: "S1"}},
		})
	}))
	defer server.Close()

	svc := newTestService(t, server.URL)

	svc.SendText(context.Background(), "when can I come?")

	require.Eventually(t, func() bool { return svc.log.Len() == 3 }, waitFor, tick)
	waitIdle(t, svc)

	msgs := svc.Snapshot()
	assert.Equal(t, chatlog.KindSlotOffer, msgs[2].Kind)
	require.Len(t, msgs[2].Slots, 1)
	assert.Equal(t, "S1", msgs[2].Slots[0].SlotID)
	assert.Nil(t, msgs[2].Booking)
}

func TestChatFoldsBookingProposal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(backend.ChatResponse{
			Status:  "requires_confirmation",
			Message: "Shall I book it?",
			BookingDetails: &backend.BookingDetails{
				SlotID: "S1", Time: "10:00", Day: "Monday",
				ClinicName: "Central Clinic", PatientName: "Jo", PhoneNumber: "555",
			},
		})
	}))
	defer server.Close()

	svc := newTestService(t, server.URL)

	svc.SendText(context.Background(), "book the 10:00 one")

	require.Eventually(t, func() bool { return svc.log.Len() == 3 }, waitFor, tick)
	waitIdle(t, svc)

	msgs := svc.Snapshot()
	assert.Equal(t, chatlog.KindPendingConfirmation, msgs[2].Kind)
	require.NotNil(t, msgs[2].Booking)
	assert.Equal(t, "Jo", msgs[2].Booking.PatientName)
	assert.Empty(t, msgs[2].Slots)
}

func TestConfirmBookingIsOptimistic(t *testing.T) {
	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		json.NewEncoder(w).Encode(backend.BookResponse{Message: "Booked! See you Monday."})
	}))
	defer server.Close()

	svc := newTestService(t, server.URL)
	pending := svc.log.AppendPendingBooking("Shall I book it?", chatlog.PendingBooking{
		SlotID: "S1", Time: "10:00", Day: "Monday", PatientName: "Jo", PhoneNumber: "555",
	})

	svc.ConfirmBooking(context.Background(), pending.ID)

	// The optimistic patch lands before the booking call resolves.
	msgs := svc.Snapshot()
	assert.Nil(t, msgs[1].Booking)
	assert.Equal(t, chatlog.KindPlain, msgs[1].Kind)
	assert.Equal(t, "Shall I book it? ✅ (Confirmed)", msgs[1].Text)
	assert.True(t, svc.Busy())

	close(release)

	require.Eventually(t, func() bool { return svc.log.Len() == 3 }, waitFor, tick)
	waitIdle(t, svc)

	msgs = svc.Snapshot()
	assert.Equal(t, "Booked! See you Monday.", msgs[2].Text)
}

func TestConfirmBookingFailureKeepsResolution(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	svc := newTestService(t, server.URL)
	pending := svc.log.AppendPendingBooking("Shall I book it?", chatlog.PendingBooking{SlotID: "S1"})

	svc.ConfirmBooking(context.Background(), pending.ID)

	require.Eventually(t, func() bool { return svc.log.Len() == 3 }, waitFor, tick)
	waitIdle(t, svc)

	msgs := svc.Snapshot()
	assert.Equal(t, "Shall I book it? ✅ (Confirmed)", msgs[1].Text, "no rollback on failure")
	assert.Nil(t, msgs[1].Booking)
	assert.Equal(t, "Booking failed.", msgs[2].Text)
}

func TestConfirmBookingOnStaleMessageIsNoop(t *testing.T) {
	var bookCalls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bookCalls.Add(1)
	}))
	defer server.Close()

	svc := newTestService(t, server.URL)

	svc.ConfirmBooking(context.Background(), 424242)

	assert.False(t, svc.Busy())
	assert.Equal(t, 1, svc.log.Len())
	assert.Equal(t, int32(0), bookCalls.Load())
}

func TestCancelBookingIsLocal(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	svc := newTestService(t, server.URL)
	pending := svc.log.AppendPendingBooking("Shall I book it?", chatlog.PendingBooking{SlotID: "S1"})

	svc.CancelBooking(pending.ID)

	msgs := svc.Snapshot()
	require.Len(t, msgs, 3)
	assert.Equal(t, "❌ Booking Cancelled.", msgs[1].Text)
	assert.Nil(t, msgs[1].Booking)
	assert.Equal(t, "No problem! Let me know if you want to look at other times.", msgs[2].Text)
	assert.False(t, svc.Busy())
	assert.Equal(t, int32(0), calls.Load())

	// Cancelling again is a no-op.
	svc.CancelBooking(pending.ID)
	assert.Equal(t, 3, svc.log.Len())
}

func TestBusyFlagGatesNewTurns(t *testing.T) {
	release := make(chan struct{})
	var chatCalls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatCalls.Add(1)
		<-release
		json.NewEncoder(w).Encode(backend.ChatResponse{Status: "ok", Message: "Noted."})
	}))
	defer server.Close()

	svc := newTestService(t, server.URL)

	svc.SendText(context.Background(), "first")
	require.True(t, svc.Busy())

	svc.SendText(context.Background(), "second")
	assert.Equal(t, 2, svc.log.Len(), "second message must be dropped while busy")

	close(release)
	waitIdle(t, svc)

	assert.Equal(t, int32(1), chatCalls.Load())
	assert.Equal(t, 3, svc.log.Len())
}

func TestSendTextDroppedWhileRecording(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:0")
	svc.rec = &fakeRecorder{recording: true}

	svc.SendText(context.Background(), "hello")

	assert.Equal(t, 1, svc.log.Len())
	assert.False(t, svc.Busy())
}

func TestVoiceTurn(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/transcribe":
			json.NewEncoder(w).Encode(backend.TranscribeResponse{Status: "success", Text: "I need a doctor"})

		case "/api/chat":
			var req backend.ChatRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.Message != "I need a doctor" {
				t.Errorf("expected transcribed text, got %q", req.Message)
			}
			if len(req.History) != 0 {
				t.Errorf("voice turn history must not include the placeholder, got %+v", req.History)
			}

			json.NewEncoder(w).Encode(backend.ChatResponse{Status: "ok", Message: "Where are you located?"})
		}
	}))
	defer server.Close()

	svc := newTestService(t, server.URL)

	svc.HandleClip(recorder.Clip{SessionID: "sess", Data: []byte("opus"), MIMEType: "audio/webm", Filename: "voice.webm"})

	require.Eventually(t, func() bool { return svc.log.Len() == 3 }, waitFor, tick)
	waitIdle(t, svc)

	msgs := svc.Snapshot()
	assert.Equal(t, `🎤 "I need a doctor"`, msgs[1].Text)
	assert.Equal(t, "Where are you located?", msgs[2].Text)
}

func TestVoiceTurnTranscriptionFailure(t *testing.T) {
	var chatCalls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/transcribe":
			json.NewEncoder(w).Encode(backend.TranscribeResponse{Status: "error"})

		case "/api/chat":
			chatCalls.Add(1)
		}
	}))
	defer server.Close()

	svc := newTestService(t, server.URL)

	svc.HandleClip(recorder.Clip{SessionID: "sess", Data: []byte("opus"), Filename: "voice.webm"})

	waitIdle(t, svc)

	msgs := svc.Snapshot()
	require.Len(t, msgs, 2, "no bot reply after a failed transcription")
	assert.Equal(t, "🎤 Voice message could not be transcribed.", msgs[1].Text)
	assert.Equal(t, int32(0), chatCalls.Load())
}

func TestToggleRecording(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:0")
	rec := &fakeRecorder{}
	svc.rec = rec

	require.NoError(t, svc.ToggleRecording(context.Background()))
	assert.Equal(t, 1, rec.started)
	assert.True(t, svc.Recording())

	require.NoError(t, svc.ToggleRecording(context.Background()))
	assert.Equal(t, 1, rec.stopped)
	assert.False(t, svc.Recording())
}

func TestToggleRecordingRefusedWhileBusy(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:0")
	rec := &fakeRecorder{}
	svc.rec = rec
	svc.setBusy(true)

	require.NoError(t, svc.ToggleRecording(context.Background()))
	assert.Equal(t, 0, rec.started)
}

func TestResetAsksForConfirmation(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:0")
	svc.log.AppendUser("hi")
	svc.log.AppendBot("hello")

	declined := &fakePrompter{answer: false}
	svc.SetPrompter(declined)
	require.NoError(t, svc.Reset(context.Background()))
	assert.Equal(t, 3, svc.log.Len(), "declined reset must keep the conversation")
	assert.Equal(t, []string{"Start a new conversation?"}, declined.asked)

	svc.SetPrompter(&fakePrompter{answer: true})
	require.NoError(t, svc.Reset(context.Background()))
	assert.Equal(t, 1, svc.log.Len())
}
