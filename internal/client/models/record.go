package models

import (
	"encoding/json"
	"sort"
	"time"
)

// Outcome is the audit-trail vocabulary for how an operation ended.
type Outcome string

const (
	OutcomeRecordSuccess   Outcome = "success"
	OutcomeRecordFailed    Outcome = "failed"
	OutcomeRecordDestroyed Outcome = "destroyed"
	OutcomeRecordError     Outcome = "error"
)

// OperationRecord is one immutable audit entry. Digest chains the record to
// the owner's previous record (PrevDigest); see CanonicalPayload.
type OperationRecord struct {
	ID         string
	OwnerID    string
	Timestamp  time.Time
	MediaKind  MediaKind
	Direction  Direction
	FileName   string
	Outcome    Outcome
	Detail     string
	PrevDigest []byte
	Digest     []byte
}

type canonicalRecord struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Timestamp int64     `json:"ts_us"`
	MediaKind MediaKind `json:"media_kind"`
	Direction Direction `json:"direction"`
	FileName  string    `json:"file_name"`
	Outcome   Outcome   `json:"outcome"`
	Detail    string    `json:"detail"`
}

// CanonicalPayload is the byte string the digest chain covers. Timestamps
// are taken at microsecond precision so the value survives a round trip
// through any of the supported databases.
func (r OperationRecord) CanonicalPayload() []byte {
	b, _ := json.Marshal(canonicalRecord{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		Timestamp: r.Timestamp.UnixMicro(),
		MediaKind: r.MediaKind,
		Direction: r.Direction,
		FileName:  r.FileName,
		Outcome:   r.Outcome,
		Detail:    r.Detail,
	})
	return b
}

// SortHistory orders records newest first. Equal timestamps fall back to
// the ID, which is time-ordered as well.
func SortHistory(records []OperationRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		ti, tj := records[i].Timestamp, records[j].Timestamp
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return records[i].ID > records[j].ID
	})
}
