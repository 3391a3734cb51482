package chatlog

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Kind tags what a bot message carries besides text. A message is never
// simultaneously a slot offer and a pending confirmation.
type Kind int

const (
	KindPlain Kind = iota
	KindSlotOffer
	KindPendingConfirmation
)

// Slot is a candidate appointment time offered by the assistant.
type Slot struct {
	StartTime string `json:"start_time"`
	Day       string `json:"day"`
	SlotID    string `json:"slot_id"`
}

// PendingBooking is an assistant-proposed appointment awaiting explicit
// user confirmation. It is owned by the message it is attached to.
type PendingBooking struct {
	SlotID      string `json:"slot_id"`
	Time        string `json:"time"`
	Day         string `json:"day"`
	ClinicName  string `json:"clinic_name"`
	PatientName string `json:"patient_name"`
	PhoneNumber string `json:"phone_number"`
}

type Message struct {
	ID     int64
	Sender Sender
	Text   string
	Kind   Kind

	// Slots is set only when Kind == KindSlotOffer.
	Slots []Slot
	// Booking is set only when Kind == KindPendingConfirmation and is
	// cleared once the user confirms or cancels.
	Booking *PendingBooking
}

// HistoryEntry is the reduced form of a message sent to the chat endpoint.
type HistoryEntry struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

func (m *Message) clone() Message {
	out := *m

	if m.Slots != nil {
		out.Slots = make([]Slot, len(m.Slots))
		copy(out.Slots, m.Slots)
	}

	if m.Booking != nil {
		booking := *m.Booking
		out.Booking = &booking
	}

	return out
}
