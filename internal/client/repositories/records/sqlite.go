package records

import "github.com/dmitrijs2005/stegkeeper/internal/dbx"

type SQLiteRepository struct {
	sqlRepository
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{sqlRepository{
		db:         db,
		insertStmt: `INSERT INTO operation_records (` + recordColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lastStmt: `SELECT ` + recordColumns + ` FROM operation_records
			WHERE owner_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		listStmt: `SELECT ` + recordColumns + ` FROM operation_records
			WHERE owner_id = ? ORDER BY created_at, id`,
	}}
}
