package capacity

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dmitrijs2005/stegkeeper/internal/client/client"
	"github.com/dmitrijs2005/stegkeeper/internal/client/models"
	"github.com/dmitrijs2005/stegkeeper/internal/logging"
)

// Checker is the subset of client.Client the negotiator needs.
type Checker interface {
	CheckCapacity(ctx context.Context, file client.Upload) (json.RawMessage, error)
}

// Negotiator holds the capacity quote of the current cover file. Every
// Invalidate or Negotiate call starts a new generation; a response that
// arrives for an older generation is dropped.
type Negotiator struct {
	checker Checker
	log     logging.Logger

	mu         sync.Mutex
	generation uint64
	status     models.CapacityStatus
	quote      *models.CapacityQuote
	lastErr    error
}

func NewNegotiator(checker Checker, log logging.Logger) *Negotiator {
	return &Negotiator{checker: checker, log: log}
}

// Invalidate forgets the current quote and orphans any request in flight.
func (n *Negotiator) Invalidate() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.generation++
	n.status = models.CapacityIdle
	n.quote = nil
	n.lastErr = nil
}

// Negotiate queries the capacity of file. It does nothing in the decode
// direction. The returned quote is the service's answer even if a newer
// generation has started meanwhile; only the negotiator's own state
// ignores superseded answers.
func (n *Negotiator) Negotiate(ctx context.Context, direction models.Direction, file models.FileArtifact) (models.CapacityQuote, error) {
	if direction != models.DirectionEncode {
		return models.CapacityQuote{}, nil
	}
	return n.finish(ctx, n.begin(), file)
}

// Start is Negotiate in the background. The generation is taken before
// Start returns, so of two back-to-back calls the later one always wins.
// The returned channel is closed once the answer has been handled.
func (n *Negotiator) Start(ctx context.Context, direction models.Direction, file models.FileArtifact) <-chan struct{} {
	done := make(chan struct{})
	if direction != models.DirectionEncode {
		close(done)
		return done
	}
	gen := n.begin()
	go func() {
		defer close(done)
		_, _ = n.finish(ctx, gen, file)
	}()
	return done
}

func (n *Negotiator) begin() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.generation++
	n.status = models.CapacityLoading
	n.quote = nil
	n.lastErr = nil
	return n.generation
}

func (n *Negotiator) finish(ctx context.Context, gen uint64, file models.FileArtifact) (models.CapacityQuote, error) {
	quote, err := n.query(ctx, file)

	n.mu.Lock()
	defer n.mu.Unlock()
	if gen != n.generation {
		n.log.Debug(ctx, "capacity answer superseded", "file", file.Name, "revision", file.Revision)
		return quote, err
	}
	if err != nil {
		n.status = models.CapacityFailed
		n.lastErr = err
		n.log.Warn(ctx, "capacity check failed", "file", file.Name, "error", err)
		return quote, err
	}
	n.status = models.CapacityReady
	n.quote = &quote
	n.log.Info(ctx, "capacity negotiated", "file", file.Name, "max_bytes", quote.MaxBytes)
	return quote, nil
}

func (n *Negotiator) query(ctx context.Context, file models.FileArtifact) (models.CapacityQuote, error) {
	raw, err := n.checker.CheckCapacity(ctx, client.Upload{Name: file.Name, Data: file.Data})
	if err != nil {
		return models.CapacityQuote{}, err
	}
	quote, err := Normalize(raw)
	if err != nil {
		return models.CapacityQuote{}, err
	}
	quote.FileRevision = file.Revision
	return quote, nil
}

// Quote returns the quote for fileRevision, if one is ready. A quote taken
// for another revision of the file is never returned.
func (n *Negotiator) Quote(fileRevision uint64) (models.CapacityQuote, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.quote == nil || n.quote.FileRevision != fileRevision {
		return models.CapacityQuote{}, false
	}
	return *n.quote, true
}

func (n *Negotiator) Snapshot() models.CapacitySnapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	s := models.CapacitySnapshot{Status: n.status}
	if n.quote != nil {
		q := *n.quote
		s.Quote = &q
	}
	if n.lastErr != nil {
		s.Error = n.lastErr.Error()
	}
	return s
}

// Meter reports payloadBytes against the quote of fileRevision.
func (n *Negotiator) Meter(fileRevision uint64, payloadBytes int) models.Meter {
	if q, ok := n.Quote(fileRevision); ok {
		return MeterFor(payloadBytes, &q)
	}
	return MeterFor(payloadBytes, nil)
}
