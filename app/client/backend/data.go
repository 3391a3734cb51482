package backend

type HistoryEntry struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

type ChatRequest struct {
	Message string         `json:"message"`
	History []HistoryEntry `json:"history"`
}

type Slot struct {
	StartTime string `json:"start_time"`
	Day       string `json:"day"`
	SlotID    string `json:"slot_id"`
}

type BookingDetails struct {
	SlotID      string `json:"slot_id"`
	Time        string `json:"time"`
	Day         string `json:"day"`
	ClinicName  string `json:"clinic_name"`
	PatientName string `json:"patient_name"`
	PhoneNumber string `json:"phone_number"`
}

type ChatResponse struct {
	Status         string          `json:"status"`
	Message        string          `json:"message"`
	Slots          []Slot          `json:"slots,omitempty"`
	BookingDetails *BookingDetails `json:"booking_details,omitempty"`
}

// Clip is a finished voice recording handed off for transcription.
type Clip struct {
	Data     []byte
	MIMEType string
	Filename string
}

type TranscribeResponse struct {
	Status string `json:"status"`
	Text   string `json:"text"`
}

type BookRequest struct {
	SlotID      string `json:"slot_id"`
	Time        string `json:"time"`
	PatientName string `json:"patient_name"`
	PhoneNumber string `json:"phone_number"`
}

type BookResponse struct {
	Message string `json:"message"`
}

type SyncResponse struct {
	Message string `json:"message"`
}
