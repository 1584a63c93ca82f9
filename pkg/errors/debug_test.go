package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestDumpCollectsChainAndCode(t *testing.T) {
	err := fmt.Errorf("handler: %w", Wrap(CodeDependency, fmt.Errorf("dial tcp: refused"), "persist cart"))

	dump := Dump(err)
	if dump.Code != CodeDependency {
		t.Fatalf("expected dependency code, got %q", dump.Code)
	}
	if len(dump.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d: %v", len(dump.Chain), dump.Chain)
	}
	if _, ok := dump.Fields()["sql_state"]; ok {
		t.Fatalf("non sql errors should not emit sql fields")
	}
}

func TestDumpExtractsPgError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "session_entries_pkey", TableName: "session_entries", Message: "duplicate key"}
	dump := Dump(Wrap(CodeDependency, pgErr, "write entry"))

	if dump.SQLState != "23505" || dump.SQLTable != "session_entries" {
		t.Fatalf("unexpected sql attributes %+v", dump)
	}
	if dump.Fields()["sql_constraint"] != "session_entries_pkey" {
		t.Fatalf("expected constraint in fields")
	}
}

func TestDumpNil(t *testing.T) {
	if d := Dump(nil); d.TopMessage != "" || len(d.Chain) != 0 {
		t.Fatalf("expected empty dump, got %+v", d)
	}
}
