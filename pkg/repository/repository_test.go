package repository_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JaimeStill/camxfer/pkg/repository"
)

var (
	errNotFound  = errors.New("not found")
	errDuplicate = errors.New("duplicate")
	errMissing   = errors.New("parent missing")
)

func TestErrorsMap(t *testing.T) {
	m := repository.Errors{NotFound: errNotFound, Duplicate: errDuplicate, ForeignKey: errMissing}
	other := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: sql.ErrNoRows, want: errNotFound},
		{name: "wrapped no rows", err: fmt.Errorf("scan: %w", sql.ErrNoRows), want: errNotFound},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, want: errDuplicate},
		{name: "foreign key violation", err: &pgconn.PgError{Code: "23503"}, want: errMissing},
		{name: "other pg error", err: &pgconn.PgError{Code: "42P01"}, want: nil},
		{name: "other error", err: other, want: other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Map(tt.err)
			if !errors.Is(got, tt.err) {
				t.Errorf("map dropped original error: got %v", got)
			}
			if tt.want != nil && !errors.Is(got, tt.want) {
				t.Errorf("map: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorsMapNil(t *testing.T) {
	if err := (repository.Errors{NotFound: errNotFound}).Map(nil); err != nil {
		t.Errorf("map nil: got %v, want nil", err)
	}
}

func TestErrorsMapUnsetPassesThrough(t *testing.T) {
	got := repository.Errors{}.Map(sql.ErrNoRows)
	if got != sql.ErrNoRows {
		t.Errorf("map: got %v, want %v", got, sql.ErrNoRows)
	}
}
