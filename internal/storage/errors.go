package storage

import (
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrUniqueViolation     = errors.New("unique constraint violation")
	ErrForeignKeyViolation = errors.New("foreign key constraint violation")
)

// classify maps driver constraint errors onto the storage sentinels,
// keeping the driver error in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return err
	}
	code := serr.Code()
	switch {
	case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE,
		code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return errors.Join(ErrUniqueViolation, err)
	case code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return errors.Join(ErrForeignKeyViolation, err)
	case code&0xff == sqlite3.SQLITE_CONSTRAINT:
		// Primary result code only; fall back to the message.
		msg := serr.Error()
		if strings.Contains(msg, "UNIQUE") {
			return errors.Join(ErrUniqueViolation, err)
		}
		if strings.Contains(msg, "FOREIGN KEY") {
			return errors.Join(ErrForeignKeyViolation, err)
		}
	}
	return err
}
