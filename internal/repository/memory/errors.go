package memory

import (
	"github.com/jackc/pgx/v5/pgconn"
)

// errDuplicate mimics the unique_violation Postgres returns for the same constraint.
func errDuplicate(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint, Message: "duplicate key value violates unique constraint"}
}
