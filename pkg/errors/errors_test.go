package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := map[Code]Metadata{
		CodeValidation:    {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", DetailsAllowed: true, ExposeMessage: true},
		CodeUnauthorized:  {HTTPStatus: http.StatusUnauthorized, PublicMessage: "authentication required", ExposeMessage: true},
		CodeNotFound:      {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found", ExposeMessage: true},
		CodeStateConflict: {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "state transition disallowed", DetailsAllowed: true, ExposeMessage: true},
		CodeRateLimit:     {HTTPStatus: http.StatusTooManyRequests, PublicMessage: "rate limit exceeded", ExposeMessage: true},
		CodeInternal:      {HTTPStatus: http.StatusInternalServerError, PublicMessage: "internal server error", Retryable: true},
		CodeDependency:    {HTTPStatus: http.StatusServiceUnavailable, PublicMessage: "dependency unavailable", Retryable: true, DetailsAllowed: true},
	}
	for code, want := range tests {
		if got := MetadataFor(code); got != want {
			t.Fatalf("code %s: got %+v, want %+v", code, got, want)
		}
	}
	if got := MetadataFor("SOMETHING_UNKNOWN"); got != MetadataFor(CodeInternal) {
		t.Fatalf("unknown codes should map to internal, got %+v", got)
	}
}

func TestPublicViewHidesServerErrors(t *testing.T) {
	details := map[string]any{"field": "email"}
	client := New(CodeValidation, "email is required").WithDetails(details)
	if client.PublicMessage() != "email is required" || client.PublicDetails() == nil {
		t.Fatalf("client errors expose message and details, got %q %v", client.PublicMessage(), client.PublicDetails())
	}

	server := Wrap(CodeInternal, stdErrors.New("nil pointer"), "render order").WithDetails(details)
	if server.PublicMessage() != "internal server error" || server.PublicDetails() != nil {
		t.Fatalf("internal errors hide message and details, got %q %v", server.PublicMessage(), server.PublicDetails())
	}
	if got := New(CodeNotFound, "").PublicMessage(); got != "resource not found" {
		t.Fatalf("blank messages fall back to the default, got %q", got)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestCodeHelpers(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", New(CodeNotFound, "order not found"))
	if CodeOf(wrapped) != CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %s", CodeOf(wrapped))
	}
	if !IsCode(wrapped, CodeNotFound) {
		t.Fatalf("expected IsCode to match through wrapping")
	}
	if IsCode(stdErrors.New("plain"), CodeNotFound) {
		t.Fatalf("plain errors carry no code")
	}
	if CodeOf(stdErrors.New("plain")) != CodeInternal {
		t.Fatalf("plain errors default to internal")
	}
}

func TestDumpExtractsPostgresFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "comparisons_user_product_key", TableName: "comparisons", Message: "duplicate key value"}
	err := Wrap(CodeConflict, pgErr, "add comparison")

	d := Dump(err)
	if d.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", d.Code)
	}
	if d.PG == nil || d.PG.Code != "23505" || d.PG.Constraint != "comparisons_user_product_key" || d.PG.Table != "comparisons" {
		t.Fatalf("unexpected pg fields: %+v", d.PG)
	}
	if len(d.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %v", d.Chain)
	}

	fields := d.Fields()
	if fields["pg_constraint"] != "comparisons_user_product_key" {
		t.Fatalf("expected constraint in log fields, got %v", fields)
	}
	if _, ok := fields["pg_column"]; ok {
		t.Fatalf("empty pg parts should be skipped: %v", fields)
	}
}

func TestDumpPlainErrorHasNoPostgresFields(t *testing.T) {
	d := Dump(stdErrors.New("redis down"))
	if d.PG != nil || d.Code != CodeInternal {
		t.Fatalf("unexpected dump %+v", d)
	}
	if _, ok := d.Fields()["pg_code"]; ok {
		t.Fatalf("plain errors carry no pg fields")
	}
}

func TestDumpNil(t *testing.T) {
	if d := Dump(nil); d.TopMessage != "" || len(d.Chain) != 0 {
		t.Fatalf("expected empty dump, got %+v", d)
	}
}
