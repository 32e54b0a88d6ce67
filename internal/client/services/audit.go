package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/stegkeeper/internal/client/client"
	"github.com/dmitrijs2005/stegkeeper/internal/client/models"
	"github.com/dmitrijs2005/stegkeeper/internal/client/repositories/records"
	"github.com/dmitrijs2005/stegkeeper/internal/common"
	"github.com/dmitrijs2005/stegkeeper/internal/cryptox"
	"github.com/dmitrijs2005/stegkeeper/internal/dbx"
	"github.com/dmitrijs2005/stegkeeper/internal/logging"
	"github.com/oklog/ulid/v2"
)

// Recorder appends audit records. An empty owner means an anonymous
// session, which is not tracked.
type Recorder interface {
	Record(ctx context.Context, owner string, rec models.OperationRecord) (models.OperationRecord, error)
}

// AuditDB is what the recorder needs from *sql.DB.
type AuditDB interface {
	dbx.DBTX
	dbx.TxBeginner
}

// AuditRecorder keeps a per-owner, append-only trail of operation outcomes.
// Each record carries the digest of the owner's previous record, so a
// removed or altered row is detected by Verify.
type AuditRecorder struct {
	db      AuditDB
	newRepo func(dbx.DBTX) records.Repository
	txOpts  *sql.TxOptions
	poll    time.Duration
	log     logging.Logger

	now func() time.Time

	// serializes appends made by this process; the transaction covers the rest
	mu      sync.Mutex
	entropy io.Reader

	subMu sync.Mutex
	subs  map[string]map[chan struct{}]struct{}
}

// NewAuditRecorder builds a recorder over db, which must already be
// migrated for driver (client.DriverSQLite or client.DriverPostgres).
// pollInterval bounds how stale a history stream can be when another
// process appends to a shared sink.
func NewAuditRecorder(db AuditDB, driver string, pollInterval time.Duration, log logging.Logger) (*AuditRecorder, error) {
	r := &AuditRecorder{
		db:      db,
		poll:    pollInterval,
		log:     log,
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
		subs:    make(map[string]map[chan struct{}]struct{}),
	}
	switch driver {
	case client.DriverSQLite:
		r.newRepo = func(tx dbx.DBTX) records.Repository { return records.NewSQLiteRepository(tx) }
	case client.DriverPostgres:
		r.newRepo = func(tx dbx.DBTX) records.Repository { return records.NewPostgresRepository(tx) }
		r.txOpts = &sql.TxOptions{Isolation: sql.LevelSerializable}
	default:
		return nil, fmt.Errorf("unsupported audit driver %q", driver)
	}
	if r.poll <= 0 {
		r.poll = 3 * time.Second
	}
	return r, nil
}

// Record links rec to the owner's chain and stores it. ID, OwnerID,
// Timestamp and the digests are assigned here. For an anonymous owner it
// does nothing and returns the zero record.
func (r *AuditRecorder) Record(ctx context.Context, owner string, rec models.OperationRecord) (models.OperationRecord, error) {
	if owner == "" {
		return models.OperationRecord{}, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err := dbx.WithTx(ctx, r.db, r.txOpts, func(ctx context.Context, tx dbx.DBTX) error {
		repo := r.newRepo(tx)

		ts := r.now().UTC().Truncate(time.Microsecond)
		var prev []byte
		last, err := repo.Last(ctx, owner)
		switch {
		case errors.Is(err, common.ErrorNotFound):
		case err != nil:
			return err
		default:
			prev = last.Digest
			// keep the chain order and the timestamp order identical
			if !ts.After(last.Timestamp) {
				ts = last.Timestamp.Add(time.Microsecond)
			}
		}

		id, err := ulid.New(ulid.Timestamp(ts), r.entropy)
		if err != nil {
			return fmt.Errorf("record id: %w", err)
		}

		rec.ID = id.String()
		rec.OwnerID = owner
		rec.Timestamp = ts
		rec.PrevDigest = prev
		rec.Digest = cryptox.ChainDigest(prev, rec.CanonicalPayload())
		return repo.Append(ctx, rec)
	})
	if err != nil {
		r.log.Error(ctx, "audit append failed", "owner", owner, "error", err)
		return models.OperationRecord{}, err
	}

	r.log.Debug(ctx, "audit record appended", "owner", owner, "id", rec.ID, "outcome", rec.Outcome)
	r.notify(owner)
	return rec, nil
}

// History returns the owner's records, newest first.
func (r *AuditRecorder) History(ctx context.Context, owner string) ([]models.OperationRecord, error) {
	if owner == "" {
		return nil, common.ErrAnonymous
	}
	recs, err := r.newRepo(r.db).ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	models.SortHistory(recs)
	return recs, nil
}

// StreamHistory emits the owner's full history, newest first, right away
// and again whenever it grows. Appends made through this recorder are
// delivered immediately; appends by other processes are picked up by
// polling. The channel is closed when ctx is done.
func (r *AuditRecorder) StreamHistory(ctx context.Context, owner string) (<-chan []models.OperationRecord, error) {
	if owner == "" {
		return nil, common.ErrAnonymous
	}

	initial, err := r.History(ctx, owner)
	if err != nil {
		return nil, err
	}

	wake := r.subscribe(owner)
	out := make(chan []models.OperationRecord, 1)
	out <- initial

	go func() {
		defer close(out)
		defer r.unsubscribe(owner, wake)

		ticker := time.NewTicker(r.poll)
		defer ticker.Stop()

		seen := len(initial)
		for {
			select {
			case <-ctx.Done():
				return
			case <-wake:
			case <-ticker.C:
			}

			recs, err := r.History(ctx, owner)
			if err != nil {
				if ctx.Err() == nil {
					r.log.Warn(ctx, "history refresh failed", "owner", owner, "error", err)
				}
				continue
			}
			// the trail is append-only, so a different length means new records
			if len(recs) == seen {
				continue
			}
			seen = len(recs)

			select {
			case out <- recs:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Verify recomputes every digest of the owner's chain and checks that the
// records form a single unbroken sequence. It returns the number of
// records checked; a failure wraps common.ErrChainBroken.
func (r *AuditRecorder) Verify(ctx context.Context, owner string) (int, error) {
	if owner == "" {
		return 0, common.ErrAnonymous
	}
	recs, err := r.newRepo(r.db).ListByOwner(ctx, owner)
	if err != nil {
		return 0, err
	}
	if len(recs) == 0 {
		return 0, nil
	}

	next := make(map[string]models.OperationRecord, len(recs))
	var head *models.OperationRecord
	for i := range recs {
		rec := recs[i]
		if !cryptox.VerifyLink(rec.PrevDigest, rec.CanonicalPayload(), rec.Digest) {
			return 0, fmt.Errorf("%w: record %s does not match its digest", common.ErrChainBroken, rec.ID)
		}
		if len(rec.PrevDigest) == 0 {
			if head != nil {
				return 0, fmt.Errorf("%w: records %s and %s both start the chain", common.ErrChainBroken, head.ID, rec.ID)
			}
			head = &recs[i]
			continue
		}
		key := string(rec.PrevDigest)
		if other, dup := next[key]; dup {
			return 0, fmt.Errorf("%w: records %s and %s follow the same record", common.ErrChainBroken, other.ID, rec.ID)
		}
		next[key] = rec
	}
	if head == nil {
		return 0, fmt.Errorf("%w: first record is missing", common.ErrChainBroken)
	}

	n := 1
	cur := *head
	for {
		rec, ok := next[string(cur.Digest)]
		if !ok {
			break
		}
		cur = rec
		n++
	}
	if n != len(recs) {
		return n, fmt.Errorf("%w: chain ends at record %s, %d record(s) unreachable", common.ErrChainBroken, cur.ID, len(recs)-n)
	}
	return n, nil
}

func (r *AuditRecorder) subscribe(owner string) chan struct{} {
	ch := make(chan struct{}, 1)
	r.subMu.Lock()
	defer r.subMu.Unlock()
	if r.subs[owner] == nil {
		r.subs[owner] = make(map[chan struct{}]struct{})
	}
	r.subs[owner][ch] = struct{}{}
	return ch
}

func (r *AuditRecorder) unsubscribe(owner string, ch chan struct{}) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	delete(r.subs[owner], ch)
	if len(r.subs[owner]) == 0 {
		delete(r.subs, owner)
	}
}

func (r *AuditRecorder) notify(owner string) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for ch := range r.subs[owner] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
