package chatlog

import (
	"sync"
	"time"

	"github.com/samber/do"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/config"
)

// Log is the ordered, append-only conversation record. It is always seeded
// with a single bot greeting and never becomes empty; Reset replaces the
// contents with a fresh greeting. Interior messages are never removed, and
// the only in-place edits go through PatchLast and PatchByID.
type Log struct {
	greeting string

	mu     sync.RWMutex
	msgs   []Message
	lastID int64
}

func New(di *do.Injector) (*Log, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewLog(cfg.Chat.Greeting), nil
}

func NewLog(greeting string) *Log {
	l := &Log{greeting: greeting}
	l.msgs = []Message{l.seed()}
	l.lastID = l.msgs[0].ID

	return l
}

func (l *Log) seed() Message {
	return Message{
		ID:     time.Now().UnixMilli(),
		Sender: SenderBot,
		Text:   l.greeting,
		Kind:   KindPlain,
	}
}

// nextID allocates a creation-time identifier, bumped past the previous one
// so that messages created within the same turn never collide.
func (l *Log) nextID() int64 {
	id := time.Now().UnixMilli()
	if id <= l.lastID {
		id = l.lastID + 1
	}
	l.lastID = id

	return id
}

func (l *Log) AppendUser(text string) Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.append(Message{Sender: SenderUser, Text: text, Kind: KindPlain})
}

func (l *Log) AppendBot(text string) Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.append(Message{Sender: SenderBot, Text: text, Kind: KindPlain})
}

// AppendSlotOffer appends a bot message carrying bookable slots. An empty
// slot list degrades to a plain message.
func (l *Log) AppendSlotOffer(text string, slots []Slot) Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(slots) == 0 {
		return l.append(Message{Sender: SenderBot, Text: text, Kind: KindPlain})
	}

	copied := make([]Slot, len(slots))
	copy(copied, slots)

	return l.append(Message{Sender: SenderBot, Text: text, Kind: KindSlotOffer, Slots: copied})
}

// AppendPendingBooking appends a bot message awaiting user confirmation.
func (l *Log) AppendPendingBooking(text string, booking PendingBooking) Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.append(Message{
		Sender:  SenderBot,
		Text:    text,
		Kind:    KindPendingConfirmation,
		Booking: &booking,
	})
}

func (l *Log) append(m Message) Message {
	m.ID = l.nextID()
	l.msgs = append(l.msgs, m)

	return m.clone()
}

// PatchLast applies mut to the most recent message satisfying pred.
// Returns false if no message matches.
func (l *Log) PatchLast(pred func(Message) bool, mut func(*Message)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := len(l.msgs) - 1; i >= 0; i-- {
		if pred(l.msgs[i]) {
			mut(&l.msgs[i])
			return true
		}
	}

	return false
}

// PatchByID applies mut to the message with the given identifier. mut
// reports whether it actually mutated the message; PatchByID returns false
// when the message is missing or mut declined to apply.
func (l *Log) PatchByID(id int64, mut func(*Message) bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.msgs {
		if l.msgs[i].ID == id {
			return mut(&l.msgs[i])
		}
	}

	return false
}

// Reset restores the single-greeting initial state.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.msgs = []Message{l.seed()}
	if l.msgs[0].ID <= l.lastID {
		l.msgs[0].ID = l.lastID + 1
	}
	l.lastID = l.msgs[0].ID
}

// Snapshot returns a deep copy of the conversation for rendering.
func (l *Log) Snapshot() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Message, len(l.msgs))
	for i := range l.msgs {
		out[i] = l.msgs[i].clone()
	}

	return out
}

// History returns the conversation reduced to sender/text pairs, excluding
// the seed greeting. This is the shape the chat endpoint expects.
func (l *Log) History() []HistoryEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]HistoryEntry, 0, len(l.msgs)-1)
	for _, m := range l.msgs[1:] {
		out = append(out, HistoryEntry{Sender: string(m.Sender), Text: m.Text})
	}

	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.msgs)
}
