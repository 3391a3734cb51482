package assistant

import (
	"github.com/elliotchance/pie/v2"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/client/backend"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/service/chatlog"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/service/recorder"
)

func toBackendHistory(history []chatlog.HistoryEntry) []backend.HistoryEntry {
	return pie.Map(history, func(e chatlog.HistoryEntry) backend.HistoryEntry {
		return backend.HistoryEntry{Sender: e.Sender, Text: e.Text}
	})
}

func toChatlogSlots(slots []backend.Slot) []chatlog.Slot {
	return pie.Map(slots, func(s backend.Slot) chatlog.Slot {
		return chatlog.Slot{StartTime: s.StartTime, Day: s.Day, SlotID: s.SlotID}
	})
}

func toChatlogBooking(d backend.BookingDetails) chatlog.PendingBooking {
	return chatlog.PendingBooking{
		SlotID:      d.SlotID,
		Time:        d.Time,
		Day:         d.Day,
		ClinicName:  d.ClinicName,
		PatientName: d.PatientName,
		PhoneNumber: d.PhoneNumber,
	}
}

func toBackendBooking(b chatlog.PendingBooking) backend.BookingDetails {
	return backend.BookingDetails{
		SlotID:      b.SlotID,
		Time:        b.Time,
		Day:         b.Day,
		ClinicName:  b.ClinicName,
		PatientName: b.PatientName,
		PhoneNumber: b.PhoneNumber,
	}
}

func toBackendClip(c recorder.Clip) backend.Clip {
	return backend.Clip{Data: c.Data, MIMEType: c.MIMEType, Filename: c.Filename}
}
