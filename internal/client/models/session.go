package models

// FileSummary describes the selected file without its bytes.
type FileSummary struct {
	Name        string
	Size        int
	Kind        MediaKind
	Revision    uint64
	Fingerprint string
	ContentType string
	// Media is the sniffed type with dimensions or audio format, e.g.
	// "image/png 640x480".
	Media string
}

// AttemptView is the decode retry budget as shown to the operator.
type AttemptView struct {
	Phase     string
	Remaining int
	Corrupted bool
	Warning   string
}

// SessionState is everything an observer of a session can see. It is a
// copy; changing it has no effect on the session.
type SessionState struct {
	ID        string
	Epoch     uint64
	MediaKind MediaKind
	Direction Direction

	File         *FileSummary
	MediaWarning string

	KeyMode   KeyInputMode
	KeyName   string
	KeyOrigin KeyOrigin

	PayloadBytes int
	PayloadChars int

	Capacity CapacitySnapshot
	Meter    Meter
	Attempts AttemptView

	Busy        bool
	LastOutcome *OperationOutcome
	Status      Status
}

// CanSubmit reports whether the session would dispatch a submission. It
// mirrors the local checks; the remote service may still refuse.
func (s SessionState) CanSubmit() bool {
	if s.Busy || s.Attempts.Corrupted || s.File == nil || s.KeyName == "" {
		return false
	}
	return s.Direction != DirectionEncode || s.PayloadBytes > 0
}
