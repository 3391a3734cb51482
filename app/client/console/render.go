package console

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/service/chatlog"
)

var boldMarkup = regexp.MustCompile(`\*\*(.*?)\*\*`)

const (
	ansiBold  = "\x1b[1m"
	ansiDim   = "\x1b[2m"
	ansiReset = "\x1b[0m"
)

// Render prints the full conversation plus the busy/recording indicators,
// and refreshes the slot and pending-booking shortcuts for slash-commands.
func (c *Client) Render(msgs []chatlog.Message, busy, recording bool) {
	var b strings.Builder

	b.WriteString("\n" + ansiDim + strings.Repeat("─", 60) + ansiReset + "\n")

	var (
		slots   []chatlog.Slot
		pending *pendingRef
	)

	for _, m := range msgs {
		c.renderMessage(&b, m)

		if m.Kind == chatlog.KindSlotOffer {
			slots = m.Slots
		}
		if m.Kind == chatlog.KindPendingConfirmation && m.Booking != nil {
			pending = &pendingRef{messageID: m.ID}
		}
	}

	switch {
	case recording:
		b.WriteString(ansiDim + "● recording... type /record to stop\n" + ansiReset)
	case busy:
		b.WriteString(ansiDim + "assistant is typing...\n" + ansiReset)
	}

	fmt.Fprint(c.out, b.String())

	c.mutex.Lock()
	c.lastSlots = slots
	c.lastPending = pending
	c.mutex.Unlock()
}

func (c *Client) renderMessage(b *strings.Builder, m chatlog.Message) {
	text := boldMarkup.ReplaceAllString(m.Text, ansiBold+"$1"+ansiReset)

	if m.Sender == chatlog.SenderUser {
		fmt.Fprintf(b, "%syou%s  %s\n", ansiBold, ansiReset, text)
	} else {
		fmt.Fprintf(b, "%sbot%s  %s\n", ansiBold, ansiReset, text)
	}

	if m.Kind == chatlog.KindSlotOffer {
		for i, slot := range m.Slots {
			fmt.Fprintf(b, "     [/%d] %s (%s)\n", i+1, slot.StartTime, slot.Day)
		}
	}

	if m.Kind == chatlog.KindPendingConfirmation && m.Booking != nil {
		d := m.Booking
		fmt.Fprintf(b, "     ┌─ appointment ticket ─────────────\n")
		fmt.Fprintf(b, "     │ patient: %s (%s)\n", d.PatientName, d.PhoneNumber)
		fmt.Fprintf(b, "     │ when:    %s, %s\n", d.Day, d.Time)
		fmt.Fprintf(b, "     │ where:   %s\n", d.ClinicName)
		fmt.Fprintf(b, "     └─ /yes to confirm, /no to cancel ─\n")
	}
}

// Notice prints an out-of-conversation system message.
func (c *Client) Notice(text string) {
	fmt.Fprintf(c.out, "%s* %s%s\n", ansiDim, text, ansiReset)
}
