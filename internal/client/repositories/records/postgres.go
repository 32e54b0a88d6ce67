package records

import "github.com/dmitrijs2005/stegkeeper/internal/dbx"

type PostgresRepository struct {
	sqlRepository
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{sqlRepository{
		db:         db,
		insertStmt: `INSERT INTO operation_records (` + recordColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		lastStmt: `SELECT ` + recordColumns + ` FROM operation_records
			WHERE owner_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`,
		listStmt: `SELECT ` + recordColumns + ` FROM operation_records
			WHERE owner_id = $1 ORDER BY created_at, id`,
	}}
}
