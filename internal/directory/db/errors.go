package db

import (
	"errors"
	"fmt"

	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// translate maps a storage error to one of the directory's failure kinds.
// Errors that already carry a kind pass through unchanged.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}

	switch e.KindOf(err) {
	case e.KindValidation, e.KindConflict, e.KindNotFound, e.KindAuthDenied:
		return err
	}
	if errors.Is(err, e.ErrInternal) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s", e.ErrNotFound, op)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return e.Conflict("%s: duplicate entry", op)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %s: referenced record does not exist", e.ErrValidation, op)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return e.Conflict("%s: duplicate entry (%s)", op, pgErr.ConstraintName)
		case pgerrcode.ForeignKeyViolation:
			return fmt.Errorf("%w: %s: %s", e.ErrValidation, op, pgErr.Detail)
		case pgerrcode.NotNullViolation, pgerrcode.CheckViolation:
			return fmt.Errorf("%w: %s: %s", e.ErrValidation, op, pgErr.Message)
		}
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return e.Conflict("%s: duplicate entry", op)
		case sqlite3.ErrConstraintForeignKey, sqlite3.ErrConstraintNotNull, sqlite3.ErrConstraintCheck:
			return fmt.Errorf("%w: %s: %s", e.ErrValidation, op, sqliteErr.Error())
		}
	}

	return e.Internal(op, err)
}
