package bunstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"calbook/internal/store"
)

const (
	constraintNoOverlap  = "bookings_no_overlap"
	constraintOwnerEmail = "owners_email_key"
)

// mapError translates driver errors into store sentinels. Errors it does not
// recognize pass through unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23P01":
			if pgErr.ConstraintName == constraintNoOverlap {
				return store.ErrSlotConflict
			}
		case "23505":
			if pgErr.ConstraintName == constraintOwnerEmail {
				return store.ErrDuplicateIdentity
			}
		case "23503":
			return store.ErrOwnerNotFound
		case "57P01", "57P02", "57P03", "53300":
			return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
		}
		return err
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		msg := sqliteErr.Error()
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_CONSTRAINT:
			switch {
			case strings.Contains(msg, constraintNoOverlap):
				return store.ErrSlotConflict
			case strings.Contains(msg, "owners.email"):
				return store.ErrDuplicateIdentity
			case strings.Contains(msg, "FOREIGN KEY"):
				return store.ErrOwnerNotFound
			}
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
		}
		return err
	}

	if isTransient(err) {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return err
}

// isTransient covers failures where the store could not be reached in time.
// Caller cancellation is not one of them.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return true
	}
	if pgconn.Timeout(err) && !errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
