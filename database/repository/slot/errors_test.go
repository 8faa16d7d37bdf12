package slotRepo

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestClassifyPostgres(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, ErrNotFound},
		{"unique", &pgconn.PgError{Code: pgUniqueViolation, Message: "duplicate key"}, ErrConflict},
		{"foreign key", &pgconn.PgError{Code: pgForeignKeyViolation, Message: "violates fk"}, ErrConstraint},
	}
	for _, tt := range tests {
		got := classifyPostgres(tt.err, "op")
		if !errors.Is(got, tt.want) {
			t.Errorf("%s: classifyPostgres = %v, want %v", tt.name, got, tt.want)
		}
	}

	check := classifyPostgres(&pgconn.PgError{Code: "23514", Message: "violates check"}, "op")
	if errors.Is(check, ErrConstraint) || errors.Is(check, ErrConflict) {
		t.Errorf("check violation should stay generic, got %v", check)
	}

	other := errors.New("connection reset")
	got := classifyPostgres(other, "op")
	for _, sentinel := range []error{ErrNotFound, ErrConflict, ErrConstraint} {
		if errors.Is(got, sentinel) {
			t.Errorf("generic failure classified as %v", sentinel)
		}
	}
	if !errors.Is(got, other) {
		t.Error("generic failure should keep the driver error in its chain")
	}
}

func TestClassifyMongo(t *testing.T) {
	t.Parallel()

	if got := classifyMongo(mongo.ErrNoDocuments, "op"); !errors.Is(got, ErrNotFound) {
		t.Errorf("ErrNoDocuments classified as %v", got)
	}

	dup := mongo.WriteException{
		WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error"}},
	}
	if got := classifyMongo(dup, "op"); !errors.Is(got, ErrConflict) {
		t.Errorf("duplicate key classified as %v", got)
	}

	if got := classifyMongo(errors.New("timeout"), "op"); errors.Is(got, ErrConflict) || errors.Is(got, ErrNotFound) {
		t.Errorf("generic failure classified as %v", got)
	}
}

func TestNormalizePrice(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"5.000000000": "5",
		"1.500000000": "1.5",
		"garbage":     "garbage",
	}
	for in, want := range tests {
		if got := normalizePrice(in); got != want {
			t.Errorf("normalizePrice(%q) = %q, want %q", in, got, want)
		}
	}
}
