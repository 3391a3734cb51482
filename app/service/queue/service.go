// Package queue carries user-initiated events from the input surface to the
// engine, one buffered channel, processed strictly in order.
package queue

import (
	"log/slog"

	"github.com/samber/do"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/service/chatlog"
)

const bufferSize = 64

var _ do.Shutdownable = (*Service)(nil)

type Kind int

const (
	KindSubmitText Kind = iota
	KindToggleRecording
	KindSelectSlot
	KindConfirmBooking
	KindCancelBooking
	KindReset
	KindAdminSync
)

type Event struct {
	Kind Kind

	// Text is set for KindSubmitText.
	Text string
	// Slot is set for KindSelectSlot.
	Slot chatlog.Slot
	// MessageID is set for KindConfirmBooking and KindCancelBooking.
	MessageID int64
	// Path is set for KindAdminSync.
	Path string
}

type Service struct {
	queue chan Event
}

func New(_ *do.Injector) (*Service, error) {
	return &Service{
		queue: make(chan Event, bufferSize),
	}, nil
}

func (s *Service) Add(ev Event) {
	defer func() {
		if r := recover(); r != nil {

		}
	}()

	select {
	case s.queue <- ev:
	default:
		slog.Warn("event queue is full")
	}
}

func (s *Service) Channel() <-chan Event {
	return s.queue
}

func (s *Service) Shutdown() error {
	close(s.queue)

	return nil
}
