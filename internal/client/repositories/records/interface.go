// Package records persists the append-only operation audit trail.
package records

import (
	"context"

	"github.com/dmitrijs2005/stegkeeper/internal/client/models"
)

// Repository stores OperationRecords. Records are never updated or removed.
type Repository interface {
	// Append inserts rec as-is; the caller computes its digests.
	Append(ctx context.Context, rec models.OperationRecord) error

	// Last returns the newest record of owner, or common.ErrorNotFound.
	Last(ctx context.Context, owner string) (models.OperationRecord, error)

	// ListByOwner returns every record of owner, oldest first.
	ListByOwner(ctx context.Context, owner string) ([]models.OperationRecord, error)
}
