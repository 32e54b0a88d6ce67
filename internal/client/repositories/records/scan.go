package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/stegkeeper/internal/client/models"
	"github.com/dmitrijs2005/stegkeeper/internal/common"
	"github.com/dmitrijs2005/stegkeeper/internal/dbx"
)

const recordColumns = `id, owner_id, created_at, media_kind, direction, file_name, outcome, detail, prev_digest, digest`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (models.OperationRecord, error) {
	var (
		rec       models.OperationRecord
		createdAt int64
		kind      string
		dir       string
		outcome   string
	)
	err := s.Scan(&rec.ID, &rec.OwnerID, &createdAt, &kind, &dir, &rec.FileName,
		&outcome, &rec.Detail, &rec.PrevDigest, &rec.Digest)
	if err != nil {
		return models.OperationRecord{}, err
	}
	rec.Timestamp = time.UnixMicro(createdAt).UTC()
	rec.MediaKind = models.MediaKind(kind)
	rec.Direction = models.Direction(dir)
	rec.Outcome = models.Outcome(outcome)
	if len(rec.PrevDigest) == 0 {
		rec.PrevDigest = nil
	}
	return rec, nil
}

func recordArgs(rec models.OperationRecord) []any {
	var prev any
	if len(rec.PrevDigest) > 0 {
		prev = rec.PrevDigest
	}
	return []any{
		rec.ID, rec.OwnerID, rec.Timestamp.UnixMicro(), string(rec.MediaKind),
		string(rec.Direction), rec.FileName, string(rec.Outcome), rec.Detail,
		prev, rec.Digest,
	}
}

// sqlRepository holds the query logic shared by both dialects; only the
// statements differ.
type sqlRepository struct {
	db         dbx.DBTX
	insertStmt string
	lastStmt   string
	listStmt   string
}

func (r *sqlRepository) Append(ctx context.Context, rec models.OperationRecord) error {
	if _, err := r.db.ExecContext(ctx, r.insertStmt, recordArgs(rec)...); err != nil {
		return fmt.Errorf("failed to append record %s: %w", rec.ID, err)
	}
	return nil
}

func (r *sqlRepository) Last(ctx context.Context, owner string) (models.OperationRecord, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, r.lastStmt, owner))
	if errors.Is(err, sql.ErrNoRows) {
		return models.OperationRecord{}, common.ErrorNotFound
	}
	if err != nil {
		return models.OperationRecord{}, fmt.Errorf("failed to get last record of %s: %w", owner, err)
	}
	return rec, nil
}

func (r *sqlRepository) ListByOwner(ctx context.Context, owner string) ([]models.OperationRecord, error) {
	rows, err := r.db.QueryContext(ctx, r.listStmt, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list records of %s: %w", owner, err)
	}
	defer rows.Close()

	var out []models.OperationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list records of %s: %w", owner, err)
	}
	return out, nil
}
