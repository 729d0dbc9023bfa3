package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Errors maps database failures onto domain errors. A nil field leaves the
// matching failure unchanged.
type Errors struct {
	NotFound   error
	Duplicate  error
	ForeignKey error
}

// Map translates err. sql.ErrNoRows becomes NotFound, a PostgreSQL unique
// violation becomes Duplicate, and a foreign key violation becomes ForeignKey.
// The original error stays in the chain.
func (m Errors) Map(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) && m.NotFound != nil {
		return errors.Join(m.NotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgUniqueViolation && m.Duplicate != nil:
			return errors.Join(m.Duplicate, err)
		case pgErr.Code == pgForeignKeyViolation && m.ForeignKey != nil:
			return errors.Join(m.ForeignKey, err)
		}
	}

	return err
}
