package errors

import (
	stderrs "errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE classes the archive distinguishes; everything else is ErrorCodeDB
var pgCodes = map[string]ErrorCode{
	"23505": ErrorCodeDuplicateKey,    // unique_violation
	"23503": ErrorCodeInvalidArgument, // foreign_key_violation
	"22001": ErrorCodeInvalidArgument, // string_data_right_truncation
	"22P02": ErrorCodeInvalidArgument, // invalid_text_representation
	"23502": ErrorCodeValidation,      // not_null_violation
	"23514": ErrorCodeValidation,      // check_violation
	"25006": ErrorCodeUnavailable,     // read_only_sql_transaction
	"57P03": ErrorCodeUnavailable,     // cannot_connect_now
	"40001": ErrorCodeUnavailable,     // serialization_failure
	"40P01": ErrorCodeUnavailable,     // deadlock_detected
	"55P03": ErrorCodeUnavailable,     // lock_not_available
}

// FromPostgres wraps a pgx error under msg with a code taken from its SQLSTATE
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	code := ErrorCodeDB
	var pgErr *pgconn.PgError
	if stderrs.As(err, &pgErr) {
		if c, ok := pgCodes[pgErr.Code]; ok {
			code = c
		}
	}
	return Wrap(err, code, msg)
}

// IsBusy reports an SQLite BUSY or LOCKED condition
// The modernc driver only exposes these in the message text.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	return containsAny(Root(err).Error(), "SQLITE_BUSY", "SQLITE_LOCKED", "database is locked", "database table is locked")
}

// FromSQLite wraps an sqlite error under msg; busy is Unavailable so callers retry
func FromSQLite(err error, msg string) error {
	if err == nil {
		return nil
	}
	switch {
	case IsBusy(err):
		return Wrap(err, ErrorCodeUnavailable, msg)
	case containsAny(Root(err).Error(), "SQLITE_CONSTRAINT", "constraint failed"):
		return Wrap(err, ErrorCodeValidation, msg)
	}
	return Wrap(err, ErrorCodeDB, msg)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
