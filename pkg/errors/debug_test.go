package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestDiagnoseWalksChain(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "tenants_slug_key", TableName: "tenants"}
	err := Wrap(CodeConflict, fmt.Errorf("insert tenant: %w", pgErr), "tenant already exists")

	d := Diagnose(err)
	if d.Code != CodeConflict {
		t.Fatalf("unexpected code %s", d.Code)
	}
	if len(d.Chain) != 3 {
		t.Fatalf("expected three links, got %v", d.Chain)
	}
	if d.SQLState != "23505" || d.Constraint != "tenants_slug_key" || d.Table != "tenants" {
		t.Fatalf("driver fields not captured: %+v", d)
	}

	fields := d.Fields()
	if fields["sql_constraint"] != "tenants_slug_key" {
		t.Fatalf("missing constraint field: %v", fields)
	}
	if _, ok := fields["sql_column"]; ok {
		t.Fatalf("empty driver fields should be omitted: %v", fields)
	}
}

func TestDiagnosePlainError(t *testing.T) {
	d := Diagnose(stdErrors.New("boom"))
	if d.Message != "boom" || d.Code != "" || d.SQLState != "" {
		t.Fatalf("unexpected diagnostics %+v", d)
	}
	if _, ok := d.Fields()["error_code"]; ok {
		t.Fatalf("untyped errors carry no code")
	}
	if got := Diagnose(nil); got.Message != "" || got.Chain != nil {
		t.Fatalf("nil error should produce empty diagnostics")
	}
}
