// Package engine is the event loop: it takes user events off the queue one
// at a time, dispatches them to the orchestrator, and re-renders the
// conversation after every state change.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/do"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/client/console"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/service/admin"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/service/assistant"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/service/queue"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/service/recorder"
)

type Service struct {
	assistantSvc *assistant.Service
	adminSvc     *admin.Service
	queueSvc     *queue.Service
	ui           *console.Client
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		assistantSvc: do.MustInvoke[*assistant.Service](di),
		adminSvc:     do.MustInvoke[*admin.Service](di),
		queueSvc:     do.MustInvoke[*queue.Service](di),
		ui:           do.MustInvoke[*console.Client](di),
	}, nil
}

func (s *Service) Run(ctx context.Context) {
	s.render()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-s.queueSvc.Channel():
			if !ok {
				return
			}

			start := time.Now()
			s.handleEvent(ctx, ev)
			s.render()

			slog.Debug("Processed event",
				"kind", ev.Kind,
				"duration", time.Since(start))

		case <-s.assistantSvc.Changes():
			s.render()
		}
	}
}

func (s *Service) handleEvent(ctx context.Context, ev queue.Event) {
	switch ev.Kind {
	case queue.KindSubmitText:
		s.assistantSvc.SendText(ctx, ev.Text)

	case queue.KindToggleRecording:
		if err := s.assistantSvc.ToggleRecording(ctx); err != nil {
			if errors.Is(err, recorder.ErrPermissionDenied) {
				s.ui.Notice("Microphone access is required.")
			} else {
				s.ui.Notice("Could not start recording.")
			}

			slog.Warn("recording toggle failed", "error", err)
		}

	case queue.KindSelectSlot:
		s.assistantSvc.SelectSlot(ctx, ev.Slot)

	case queue.KindConfirmBooking:
		s.assistantSvc.ConfirmBooking(ctx, ev.MessageID)

	case queue.KindCancelBooking:
		s.assistantSvc.CancelBooking(ev.MessageID)

	case queue.KindReset:
		if err := s.assistantSvc.Reset(ctx); err != nil {
			slog.Warn("reset aborted", "error", err)
		}

	case queue.KindAdminSync:
		s.syncAdminData(ctx, ev.Path)
	}
}

func (s *Service) syncAdminData(ctx context.Context, path string) {
	doc, err := s.adminSvc.LoadFile(path)
	if err != nil {
		if errors.Is(err, admin.ErrMalformedInput) {
			s.ui.Notice("Invalid JSON format.")
		} else {
			s.ui.Notice("Could not read file: " + path)
		}

		slog.Warn("admin document load failed", "path", path, "error", err)
		return
	}

	message, err := s.adminSvc.Sync(ctx, doc)
	if err != nil {
		s.ui.Notice("Sync failed.")
		slog.Warn("admin sync failed", "path", path, "error", err)
		return
	}

	s.ui.Notice(message)
}

func (s *Service) render() {
	s.ui.Render(s.assistantSvc.Snapshot(), s.assistantSvc.Busy(), s.assistantSvc.Recording())
}
