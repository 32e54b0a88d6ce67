// Package session composes the artifact store, capacity negotiator, attempt
// governor and executor into one operation session per media tab.
//
// A session has an epoch that changes on every tab switch, direction switch
// and reset, and every submission takes a ticket. Selecting a new file also
// takes a ticket, so an answer about a replaced file is never applied to its
// successor. An answer is applied only if its ticket is the newest one of
// the current epoch; anything else is reported back as stale and leaves the
// session untouched.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/stegkeeper/internal/client/artifacts"
	"github.com/dmitrijs2005/stegkeeper/internal/client/attempts"
	"github.com/dmitrijs2005/stegkeeper/internal/client/capacity"
	"github.com/dmitrijs2005/stegkeeper/internal/client/models"
	"github.com/dmitrijs2005/stegkeeper/internal/client/storage"
	"github.com/dmitrijs2005/stegkeeper/internal/logging"
	"github.com/dmitrijs2005/stegkeeper/internal/mediax"
	"github.com/google/uuid"
)

// Executor runs one submission; see services.Executor.
type Executor interface {
	Execute(ctx context.Context, direction models.Direction, kind models.MediaKind, a models.Artifacts) models.OperationOutcome
}

// Deps are the collaborators of a session. Results may be nil, in which
// case encode results are kept in the outcome only.
type Deps struct {
	Executor Executor
	Checker  capacity.Checker
	Results  storage.ResultStore
	Log      logging.Logger
}

type Session struct {
	exec    Executor
	results storage.ResultStore
	log     logging.Logger

	negotiator *capacity.Negotiator
	governor   *attempts.Governor

	mu        sync.Mutex
	id        string
	epoch     uint64
	ticket    uint64
	busy      bool
	kind      models.MediaKind
	direction models.Direction
	store     *artifacts.Store
	capDone   <-chan struct{}
	probe     *mediax.Info
	last      *models.OperationOutcome
	status    models.Status
}

// New starts a session on the given tab and direction.
func New(kind models.MediaKind, direction models.Direction, deps Deps) (*Session, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown media kind %q", kind)
	}
	if _, err := models.ParseDirection(string(direction)); err != nil {
		return nil, err
	}
	log := deps.Log
	if log == nil {
		log = logging.Discard()
	}
	s := &Session{
		exec:       deps.Executor,
		results:    deps.Results,
		log:        log,
		negotiator: capacity.NewNegotiator(deps.Checker, log),
		governor:   attempts.NewGovernor(),
		kind:       kind,
		direction:  direction,
	}
	s.restart()
	return s, nil
}

// restart begins a new epoch with empty artifacts. Callers hold mu.
func (s *Session) restart() {
	if s.store != nil {
		s.store.Reset()
	}
	s.epoch++
	s.id = uuid.NewString()
	s.busy = false
	s.store = artifacts.NewStore(s.direction)
	s.capDone = nil
	s.probe = nil
	s.last = nil
	s.status = models.Status{}
	s.governor.Reset()
	s.negotiator.Invalidate()
}

// SelectTab switches the media kind. The session restarts even when the
// tab is unchanged, like clicking the active tab.
func (s *Session) SelectTab(ctx context.Context, kind models.MediaKind) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown media kind %q", kind)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kind = kind
	s.restart()
	s.log.Info(ctx, "tab selected", "kind", kind, "session", s.id)
	return nil
}

// SetDirection switches between encode and decode, restarting the session.
func (s *Session) SetDirection(ctx context.Context, direction models.Direction) error {
	if _, err := models.ParseDirection(string(direction)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.direction = direction
	s.restart()
	s.log.Info(ctx, "direction selected", "direction", direction, "session", s.id)
	return nil
}

// Reset returns the session to its initial state on the same tab and
// direction. A submission still in flight becomes stale.
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restart()
	s.log.Info(ctx, "session reset", "session", s.id)
}

// SetFile selects the cover file (encode) or encoded file (decode). A new
// file gets a fresh attempt budget and, when encoding, a new capacity
// negotiation that runs in the background. A submission still in flight
// for the previous file becomes stale.
func (s *Session) SetFile(ctx context.Context, name string, data []byte) models.FileArtifact {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := mediax.Probe(data)
	s.probe = &info
	if info.Family != "" && !info.Matches(string(s.kind)) {
		s.log.Warn(ctx, "file does not look like the selected media", "file", name, "sniffed", info.MIME, "kind", s.kind)
	}

	file := s.store.SetFile(name, data, s.kind, info.MIME)
	s.ticket++
	s.busy = false
	s.governor.Reset()
	s.negotiator.Invalidate()
	s.status = models.Status{}
	s.capDone = s.negotiator.Start(context.WithoutCancel(ctx), s.direction, file)

	s.log.Debug(ctx, "file selected", "file", name, "size", len(data), "revision", file.Revision)
	return file
}

func (s *Session) SetKeyBlob(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.SetKeyBlob(name, data)
}

func (s *Session) SetKeyText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.SetKeyText(text)
}

func (s *Session) SetKeyMode(mode models.KeyInputMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.SetKeyMode(mode)
}

func (s *Session) SetPayload(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.SetPayload(text)
}

// AwaitCapacity blocks until the capacity negotiation started by the last
// SetFile has finished, or ctx is done, and returns the capacity state.
func (s *Session) AwaitCapacity(ctx context.Context) models.CapacitySnapshot {
	s.mu.Lock()
	done := s.capDone
	s.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
	return s.negotiator.Snapshot()
}

// Submit sends the current artifacts to the service and applies the
// outcome, unless the session moved on while the call was in flight. A
// corrupted session refuses locally without contacting the service.
func (s *Session) Submit(ctx context.Context) models.OperationOutcome {
	s.mu.Lock()
	if !s.governor.Allow() {
		out := models.OperationOutcome{
			Kind:      models.OutcomeLocalValidation,
			Direction: s.direction,
			MediaKind: s.kind,
			Message:   models.MsgFileDestroyed,
		}
		s.finish(out)
		s.mu.Unlock()
		return out
	}

	s.ticket++
	ticket, epoch := s.ticket, s.epoch
	direction, kind := s.direction, s.kind
	a := s.store.Snapshot()
	s.busy = true
	s.status = models.Status{Level: models.StatusInfo, Message: models.MsgProcessing}
	s.mu.Unlock()

	out := s.exec.Execute(ctx, direction, kind, a)

	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch || ticket != s.ticket {
		out.Stale = true
		s.log.Info(ctx, "stale answer dropped", "outcome", out.Kind, "epoch", epoch, "current_epoch", s.epoch)
		return out
	}

	s.busy = false
	state := s.governor.Apply(direction, out.Kind)

	switch {
	case out.Kind == models.OutcomeDestroyed:
		s.store.ClearFile()
		s.negotiator.Invalidate()
		s.probe = nil
		s.log.Warn(ctx, "file destroyed by the service", "file", out.FileName)
	case out.Kind == models.OutcomeAuthFailure && direction == models.DirectionDecode:
		s.log.Info(ctx, "decode attempt failed", "attempts", state.String())
	case out.Succeeded() && direction == models.DirectionDecode:
		s.store.SetPayload(out.Secret)
	case out.Succeeded() && direction == models.DirectionEncode && s.results != nil:
		saved, err := s.results.Save(ctx, out.ResultName, out.Result, out.ResultType)
		if err != nil {
			s.log.Error(ctx, "saving encoded result failed", "error", err)
			out.Message = models.MsgSaveFailed
		} else {
			out.SavedTo = saved
		}
	}

	s.finish(out)
	return out
}

// finish records out as the last outcome. Callers hold mu.
func (s *Session) finish(out models.OperationOutcome) {
	o := out
	s.last = &o
	s.status = statusFor(out)
}

func statusFor(out models.OperationOutcome) models.Status {
	level := models.StatusError
	switch out.Kind {
	case models.OutcomeSuccess:
		level = models.StatusSuccess
		if out.Message == models.MsgSaveFailed {
			level = models.StatusWarning
		}
	case models.OutcomeAuthFailure:
		level = models.StatusWarning
	case models.OutcomeDestroyed:
		level = models.StatusDestruction
	}
	return models.Status{Level: level, Message: out.Message}
}

// Snapshot copies the observable state of the session.
func (s *Session) Snapshot() models.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := models.SessionState{
		ID:           s.id,
		Epoch:        s.epoch,
		MediaKind:    s.kind,
		Direction:    s.direction,
		KeyMode:      s.store.KeyMode(),
		PayloadBytes: s.store.PayloadBytes(),
		PayloadChars: s.store.PayloadChars(),
		Capacity:     s.negotiator.Snapshot(),
		Busy:         s.busy,
		Status:       s.status,
	}

	var revision uint64
	if f, ok := s.store.File(); ok {
		revision = f.Revision
		st.File = &models.FileSummary{
			Name:        f.Name,
			Size:        f.Size(),
			Kind:        f.Kind,
			Revision:    f.Revision,
			Fingerprint: f.Fingerprint,
			ContentType: f.ContentType,
		}
		if s.probe != nil {
			st.File.Media = s.probe.String()
		}
		if s.probe != nil && s.probe.Family != "" && !s.probe.Matches(string(s.kind)) {
			st.MediaWarning = fmt.Sprintf("%s does not look like %s (%s).", f.Name, s.kind, s.probe.MIME)
		}
	}
	if k, ok := s.store.Key(); ok {
		st.KeyName = k.Name
		st.KeyOrigin = k.Origin
	}

	if s.direction == models.DirectionEncode && st.File != nil {
		st.Meter = s.negotiator.Meter(revision, st.PayloadBytes)
	} else {
		st.Meter = capacity.MeterFor(st.PayloadBytes, nil)
	}

	gs := s.governor.State()
	st.Attempts = models.AttemptView{
		Phase:     gs.Phase().String(),
		Remaining: gs.Remaining(),
		Corrupted: gs.Corrupted(),
		Warning:   gs.Warning(),
	}

	if s.last != nil {
		o := *s.last
		st.LastOutcome = &o
	}
	return st
}
