package models

import "encoding/json"

// CapacityQuote is the normalized answer of the capacity endpoint for one
// file revision.
type CapacityQuote struct {
	MaxBytes     int64
	FileType     string
	Message      string
	FileRevision uint64
	Raw          json.RawMessage
}

// CapacityStatus is the lifecycle of the current quote.
type CapacityStatus int

const (
	CapacityIdle CapacityStatus = iota
	CapacityLoading
	CapacityReady
	CapacityFailed
)

func (s CapacityStatus) String() string {
	switch s {
	case CapacityLoading:
		return "loading"
	case CapacityReady:
		return "ready"
	case CapacityFailed:
		return "failed"
	}
	return "idle"
}

// Meter compares the payload size with the quote. Percent is clamped to
// [0, 100]; Ratio is not. Unknown capacity always reads as saturated.
type Meter struct {
	PayloadBytes int
	MaxBytes     int64
	Known        bool
	Ratio        float64
	Percent      float64
	Over         bool
}

// CapacitySnapshot is the negotiator's observable state. Quote is nil unless
// Status is CapacityReady.
type CapacitySnapshot struct {
	Status CapacityStatus
	Quote  *CapacityQuote
	Error  string
}
