package circuitbreaker

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sony/gobreaker"
)

func fastTripConfig() Config {
	return Config{
		Name:             "database-test",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 1.0,
		MinRequests:      2,
	}
}

func TestDBCircuitBreaker_QueryContext(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT id FROM sources").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	dcb := NewDBCircuitBreaker(db)
	rows, err := dcb.QueryContext(context.Background(), "SELECT id FROM sources")
	if err != nil {
		t.Fatalf("QueryContext err=%v", err)
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		t.Fatal("expected one row")
	}
}

func TestDBCircuitBreaker_ExecContext(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectExec("UPDATE raw_items").WillReturnResult(sqlmock.NewResult(0, 3))

	dcb := NewDBCircuitBreaker(db)
	result, err := dcb.ExecContext(context.Background(), "UPDATE raw_items SET status = 'extracted'")
	if err != nil {
		t.Fatalf("ExecContext err=%v", err)
	}
	if n, _ := result.RowsAffected(); n != 3 {
		t.Fatalf("rows affected = %d, want 3", n)
	}
}

func TestDBCircuitBreaker_OpensOnRepeatedFailure(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT").WillReturnError(sql.ErrConnDone)
	mock.ExpectQuery("SELECT").WillReturnError(sql.ErrConnDone)

	dcb := NewDBCircuitBreakerWithConfig(db, fastTripConfig())
	ctx := context.Background()

	_, _ = dcb.QueryContext(ctx, "SELECT 1")
	_, _ = dcb.QueryContext(ctx, "SELECT 1")
	if !dcb.IsOpen() {
		t.Fatalf("state = %v, want open after consecutive failures", dcb.State())
	}

	// Open: the database is not touched again.
	_, err := dcb.QueryContext(ctx, "SELECT 1")
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("err = %v, want ErrOpenState", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("db saw unexpected traffic: %v", err)
	}
}

func TestDBCircuitBreaker_QueryRowBypassesBreaker(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	dcb := NewDBCircuitBreaker(db)
	var count int
	if err := dcb.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM sources").Scan(&count); err != nil {
		t.Fatalf("Scan err=%v", err)
	}
	if count != 7 {
		t.Fatalf("count = %d, want 7", count)
	}
}

func TestDBCircuitBreaker_DBAccessor(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	if NewDBCircuitBreaker(db).DB() != db {
		t.Fatal("DB() must return the wrapped connection")
	}
}
