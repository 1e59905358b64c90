package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestIsUniqueViolationPgx(t *testing.T) {
	err := fmt.Errorf("create account: %w", &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "ux_loyalty_accounts_user",
	})

	if !IsUniqueViolation(err, "") {
		t.Fatalf("expected unique violation")
	}
	if !IsUniqueViolation(err, "ux_loyalty_accounts_user") {
		t.Fatalf("expected match on constraint name")
	}
	if IsUniqueViolation(err, "ux_referral_codes_user") {
		t.Fatalf("expected mismatch on foreign constraint name")
	}
}

func TestIsUniqueViolationPq(t *testing.T) {
	err := &pq.Error{Code: "23505", Constraint: "ux_referrals_referred_user"}

	if !IsUniqueViolation(err, "ux_referrals_referred_user") {
		t.Fatalf("expected match on constraint name")
	}

	notUnique := &pq.Error{Code: "23503", Constraint: "fk_referrals_code"}
	if IsUniqueViolation(notUnique, "") {
		t.Fatalf("foreign key violations are not unique violations")
	}
}

func TestIsUniqueViolationSqliteFallback(t *testing.T) {
	err := errors.New("UNIQUE constraint failed: referral_codes.code")
	if !IsUniqueViolation(err, "ux_referral_codes_code") {
		t.Fatalf("expected sqlite fallback to match")
	}

	if IsUniqueViolation(nil, "") {
		t.Fatalf("nil error is never a violation")
	}
	if IsUniqueViolation(errors.New("connection refused"), "") {
		t.Fatalf("unrelated errors are not violations")
	}
}
