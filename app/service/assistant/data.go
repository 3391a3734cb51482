package assistant

import (
	"fmt"

	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/service/chatlog"
)

const (
	voicePlaceholder   = "🎤 Processing voice..."
	voiceFailureNotice = "🎤 Voice message could not be transcribed."
	connectionErrorMsg = "Connection error."
	bookingFailedMsg   = "Booking failed."
	confirmedSuffix    = " ✅ (Confirmed)"
	cancelledText      = "❌ Booking Cancelled."
	cancelFollowUpMsg  = "No problem! Let me know if you want to look at other times."
	resetQuestion      = "Start a new conversation?"
)

func quickBookMessage(slot chatlog.Slot) string {
	return fmt.Sprintf("I want to book the %s slot on %s.", slot.StartTime, slot.Day)
}

func isVoicePlaceholder(m chatlog.Message) bool {
	return m.Sender == chatlog.SenderUser && m.Text == voicePlaceholder
}
