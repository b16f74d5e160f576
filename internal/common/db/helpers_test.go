package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
)

func TestUniqueViolation(t *testing.T) {
	t.Parallel()
	dup := &mysql.MySQLError{
		Number:  1062,
		Message: "Duplicate entry 'e1-solution' for key 'PRIMARY'",
	}

	key, ok := UniqueViolation(fmt.Errorf("insert failed: %w", dup))
	if !ok || key != "PRIMARY" {
		t.Fatalf("got (%q, %v), want (PRIMARY, true)", key, ok)
	}

	if _, ok := UniqueViolation(&mysql.MySQLError{Number: 1064, Message: "syntax error"}); ok {
		t.Fatal("non-duplicate MySQL error reported as a violation")
	}
	if _, ok := UniqueViolation(errors.New("plain error")); ok {
		t.Fatal("plain error reported as a violation")
	}
}

func TestExtractDuplicateKeyName(t *testing.T) {
	t.Parallel()
	cases := []struct {
		message string
		want    string
	}{
		{"Duplicate entry 'x' for key 'users.PRIMARY'", "users.PRIMARY"},
		{"Duplicate entry 'x' for key `uk_evaluations_seq`", "uk_evaluations_seq"},
		{"no key marker here", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := extractDuplicateKeyName(tc.message); got != tc.want {
			t.Fatalf("extractDuplicateKeyName(%q) = %q, want %q", tc.message, got, tc.want)
		}
	}
}
