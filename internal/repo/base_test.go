package repo

import (
	"context"
	"errors"
	"testing"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openMemory(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return conn
}

func TestDBScopesContext(t *testing.T) {
	base := NewBase(openMemory(t))
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "order-42")

	scoped := base.DB(ctx)
	if scoped.Statement == nil || scoped.Statement.Context != ctx {
		t.Fatal("expected the context to reach the statement")
	}
	if base.DB(nil) != base.db {
		t.Fatal("expected nil context to return the raw handle")
	}
}

func TestBindKeepsBaseWithoutTx(t *testing.T) {
	conn := openMemory(t)
	base := NewBase(conn)

	if got := base.Bind(nil); got.db != conn {
		t.Fatal("expected nil tx to keep the original connection")
	}

	err := conn.Transaction(func(tx *gorm.DB) error {
		if got := base.Bind(tx); got.db != tx {
			t.Fatal("expected Bind to use the transaction")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

func TestLookupErrorClassifies(t *testing.T) {
	missing := LookupError(gorm.ErrRecordNotFound, "discount")
	if pkgerrors.CodeOf(missing) != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", missing)
	}
	if !errors.Is(missing, gorm.ErrRecordNotFound) {
		t.Fatalf("expected the gorm cause to be kept, got %v", missing)
	}

	broken := LookupError(errors.New("connection reset"), "discount")
	if pkgerrors.CodeOf(broken) != pkgerrors.CodeDependency {
		t.Fatalf("expected DEPENDENCY, got %v", broken)
	}
}
