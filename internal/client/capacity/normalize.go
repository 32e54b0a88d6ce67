// Package capacity asks the remote service how many payload bytes a cover
// file can carry and turns the answer into a payload meter.
package capacity

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/stegkeeper/internal/client/models"
)

var ErrInvalidQuote = errors.New("capacity response is not a JSON object")

// FieldPriority is the order in which capacity field names are tried. The
// first field holding a usable number wins.
var FieldPriority = []string{"max_bytes", "maxBytes", "capacity", "max_chars"}

// Normalize extracts MaxBytes from a capacity response. Numbers and numeric
// strings are accepted; negative values become 0, and a response without
// any usable field yields 0.
func Normalize(raw json.RawMessage) (models.CapacityQuote, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return models.CapacityQuote{}, ErrInvalidQuote
	}

	q := models.CapacityQuote{Raw: append(json.RawMessage(nil), raw...)}
	for _, name := range FieldPriority {
		v, ok := fields[name]
		if !ok {
			continue
		}
		if n, ok := parseCount(v); ok {
			q.MaxBytes = n
			break
		}
	}

	_ = json.Unmarshal(fields["message"], &q.Message)
	_ = json.Unmarshal(fields["file_type"], &q.FileType)
	return q, nil
}

func parseCount(v json.RawMessage) (int64, bool) {
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return 0, false
		}
		f, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f <= 0 {
		return 0, true
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64, true
	}
	return int64(f), true
}

// MeterFor compares payloadBytes with a known quote. A nil quote means the
// capacity is unknown or still loading, which reads as saturated.
func MeterFor(payloadBytes int, quote *models.CapacityQuote) models.Meter {
	m := models.Meter{PayloadBytes: payloadBytes, Percent: 100, Ratio: 1}
	if quote == nil {
		return m
	}

	m.Known = true
	m.MaxBytes = quote.MaxBytes
	m.Over = int64(payloadBytes) > quote.MaxBytes
	switch {
	case quote.MaxBytes > 0:
		m.Ratio = float64(payloadBytes) / float64(quote.MaxBytes)
		m.Percent = math.Min(m.Ratio*100, 100)
	case payloadBytes > 0:
		m.Ratio = math.Inf(1)
	}
	return m
}
