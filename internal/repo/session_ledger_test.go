package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/caffeinepub/doom-hosting/internal/domain"
)

func newLedgerDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Unique DSN per call to avoid cross-test contamination.
	dsn := fmt.Sprintf("file:ledger_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.ConsumedSession{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestBeginAndLookup(t *testing.T) {
	l := NewSessionLedger(newLedgerDB(t))
	ctx := context.Background()

	if err := l.Begin(ctx, "cs_1", "2"); err != nil {
		t.Fatalf("begin: %v", err)
	}

	rec, err := l.Lookup(ctx, "cs_1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rec == nil || rec.PlanID != "2" || rec.Status != domain.SessionPending {
		t.Fatalf("rec = %+v", rec)
	}
}

func TestBeginDuplicate(t *testing.T) {
	l := NewSessionLedger(newLedgerDB(t))
	ctx := context.Background()

	if err := l.Begin(ctx, "cs_1", "1"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := l.Begin(ctx, "cs_1", "1"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
}

func TestLookupUnknownAndEmpty(t *testing.T) {
	l := NewSessionLedger(newLedgerDB(t))
	ctx := context.Background()

	rec, err := l.Lookup(ctx, "cs_missing")
	if err != nil || rec != nil {
		t.Fatalf("unknown lookup = %+v, %v; want nil, nil", rec, err)
	}
	rec, err = l.Lookup(ctx, "  ")
	if err != nil || rec != nil {
		t.Fatalf("blank lookup = %+v, %v; want nil, nil", rec, err)
	}
}

func TestConsumeUpdatesPendingRow(t *testing.T) {
	l := NewSessionLedger(newLedgerDB(t))
	ctx := context.Background()

	if err := l.Begin(ctx, "cs_1", "2"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := l.Consume(ctx, "cs_1", "2", "srv-9"); err != nil {
		t.Fatalf("consume: %v", err)
	}

	rec, err := l.Lookup(ctx, "cs_1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rec.Status != domain.SessionConsumed || rec.ServerID != "srv-9" || rec.PlanID != "2" {
		t.Fatalf("rec = %+v", rec)
	}
}

func TestConsumeUpsertsUnknownSession(t *testing.T) {
	// Resolution can arrive in a fresh process without a pending row.
	l := NewSessionLedger(newLedgerDB(t))
	ctx := context.Background()

	if err := l.Consume(ctx, "cs_orphan", "1", "srv-1"); err != nil {
		t.Fatalf("consume: %v", err)
	}
	rec, err := l.Lookup(ctx, "cs_orphan")
	if err != nil || rec == nil {
		t.Fatalf("lookup: %+v, %v", rec, err)
	}
	if rec.Status != domain.SessionConsumed || rec.PlanID != "1" {
		t.Fatalf("rec = %+v", rec)
	}
}

func TestAbort(t *testing.T) {
	l := NewSessionLedger(newLedgerDB(t))
	ctx := context.Background()

	if err := l.Begin(ctx, "cs_1", "1"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := l.Abort(ctx, "cs_1"); err != nil {
		t.Fatalf("abort: %v", err)
	}
	rec, _ := l.Lookup(ctx, "cs_1")
	if rec.Status != domain.SessionAborted {
		t.Fatalf("status = %q, want aborted", rec.Status)
	}
}

func TestAbortKeepsConsumedSession(t *testing.T) {
	l := NewSessionLedger(newLedgerDB(t))
	ctx := context.Background()

	if err := l.Begin(ctx, "cs_1", "1"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := l.Consume(ctx, "cs_1", "1", "srv-1"); err != nil {
		t.Fatalf("consume: %v", err)
	}

	// A failure-URL visit after provisioning must not drop the record
	// that suppresses duplicate creation.
	if err := l.Abort(ctx, "cs_1"); err != nil {
		t.Fatalf("abort: %v", err)
	}
	rec, _ := l.Lookup(ctx, "cs_1")
	if rec.Status != domain.SessionConsumed {
		t.Fatalf("status = %q, want consumed", rec.Status)
	}
}
