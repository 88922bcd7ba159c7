package errors

import (
	stderrs "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestHTTPStatus(t *testing.T) {
	cases := map[error]int{
		InvalidArgf("end before start"):         http.StatusUnprocessableEntity,
		New(ErrorCodeValidation, "identities"):  http.StatusBadRequest,
		JSONErrf("bad json"):                    http.StatusBadRequest,
		Unavailablef("no source"):               http.StatusServiceUnavailable,
		TooManyRequestsf("slow down"):           http.StatusTooManyRequests,
		NotFoundf("identity jack"):              http.StatusNotFound,
		Storagef("manifest write"):              http.StatusInternalServerError,
		stderrs.New("foreign"):                  http.StatusInternalServerError,
		fmt.Errorf("ctx: %w", Forbiddenf("no")): http.StatusForbidden,
	}
	for err, want := range cases {
		if got := HTTPStatus(err); got != want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", err, got, want)
		}
	}
	if HTTPStatusCode(ErrorCode(999)) != http.StatusInternalServerError {
		t.Fatal("unmapped code should be 500")
	}
}

func TestWrapKeepsCauseAndMessage(t *testing.T) {
	cause := stderrs.New("disk full")
	err := Wrapf(cause, ErrorCodeStorage, "persist manifest %s", "coverage.json")

	if err.Error() != "persist manifest coverage.json: disk full" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if !stderrs.Is(err, cause) || Root(err) != cause {
		t.Fatal("cause lost")
	}
	if !IsCode(fmt.Errorf("outer: %w", err), ErrorCodeStorage) {
		t.Fatal("code lost through fmt wrapping")
	}

	var nilErr *Error
	if nilErr.Error() != "<nil>" || Root(nil) != nil {
		t.Fatal("nil handling")
	}
}

func TestWithFieldCopies(t *testing.T) {
	base := InvalidArgf("bad identity")
	tagged := WithField(base, "identities")

	if e, _ := As(base); e.Field() != "" {
		t.Fatalf("original mutated: %q", e.Field())
	}
	if e, _ := As(tagged); e.Field() != "identities" || e.Code() != ErrorCodeInvalidArgument {
		t.Fatalf("tagged = %+v", e)
	}

	foreign := stderrs.New("x")
	if WithField(foreign, "f") != foreign {
		t.Fatal("foreign error should pass through")
	}
}

func TestWireFrom(t *testing.T) {
	if (WireFrom(nil) != Wire{}) {
		t.Fatal("nil should be zero Wire")
	}
	w := WireFrom(WithField(Wrap(stderrs.New("inner"), ErrorCodeInvalidArgument, "range"), "end"))
	if w.Code != ErrorCodeInvalidArgument || w.Message != "range" || w.Field != "end" {
		t.Fatalf("wire = %+v", w)
	}
	if w := WireFrom(stderrs.New("boom")); w.Code != ErrorCodeUnknown || w.Message != "boom" {
		t.Fatalf("foreign wire = %+v", w)
	}
	if !IsCode(ErrNotFound, ErrorCodeNotFound) {
		t.Fatal("ErrNotFound code")
	}
}

func TestFromPostgres(t *testing.T) {
	cases := []struct {
		sqlstate string
		want     ErrorCode
	}{
		{"23505", ErrorCodeDuplicateKey},
		{"23502", ErrorCodeValidation},
		{"22P02", ErrorCodeInvalidArgument},
		{"40P01", ErrorCodeUnavailable},
		{"57P03", ErrorCodeUnavailable},
		{"42P01", ErrorCodeDB},
	}
	for _, c := range cases {
		err := FromPostgres(fmt.Errorf("exec: %w", &pgconn.PgError{Code: c.sqlstate}), "upsert posts")
		if CodeOf(err) != c.want {
			t.Errorf("%s => %v, want %v", c.sqlstate, CodeOf(err), c.want)
		}
	}
	if CodeOf(FromPostgres(stderrs.New("conn reset"), "q")) != ErrorCodeDB {
		t.Fatal("non pg error should be DB")
	}
	if FromPostgres(nil, "q") != nil {
		t.Fatal("nil in, nil out")
	}
}

func TestFromSQLite(t *testing.T) {
	busy := stderrs.New("database is locked (5) (SQLITE_BUSY)")
	if !IsBusy(fmt.Errorf("tx: %w", busy)) || IsBusy(nil) {
		t.Fatal("IsBusy")
	}
	if !IsCode(FromSQLite(busy, "insert"), ErrorCodeUnavailable) {
		t.Fatal("busy should be Unavailable")
	}
	if !IsCode(FromSQLite(stderrs.New("UNIQUE constraint failed: posts.post_id"), "insert"), ErrorCodeValidation) {
		t.Fatal("constraint should be Validation")
	}
	if !IsCode(FromSQLite(stderrs.New("no such table: posts"), "insert"), ErrorCodeDB) {
		t.Fatal("other should be DB")
	}
	if FromSQLite(nil, "x") != nil {
		t.Fatal("nil in, nil out")
	}
}
