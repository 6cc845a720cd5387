package utils

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func TestPostgresPoolDefaults(t *testing.T) {
	d := PostgresPoolConfig{}.withDefaults()
	if d.MaxOpenConns != 25 || d.MaxIdleConns != 25 {
		t.Fatalf("conn defaults = %+v", d)
	}
	if d.ConnMaxLifetime != 30*time.Minute || d.ConnMaxIdleTime != 5*time.Minute {
		t.Fatalf("lifetime defaults = %+v", d)
	}
	if d.PingTimeout != 5*time.Second {
		t.Fatalf("ping timeout = %v", d.PingTimeout)
	}

	// Explicit values survive.
	d = PostgresPoolConfig{MaxOpenConns: 3, PingTimeout: time.Second}.withDefaults()
	if d.MaxOpenConns != 3 || d.PingTimeout != time.Second {
		t.Fatalf("explicit values overridden: %+v", d)
	}
}

func TestHealthCheckFailsOnClosedDB(t *testing.T) {
	db, err := sql.Open("pgx", "host=127.0.0.1 port=5432")
	if err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	if err := HealthCheck(context.Background(), db, time.Second); err == nil {
		t.Fatal("expected ping error on closed db")
	}
}

func TestWithTxPropagatesBeginError(t *testing.T) {
	db, err := sql.Open("pgx", "host=127.0.0.1 port=5432")
	if err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	called := false
	err = WithTx(context.Background(), db, nil, func(ctx context.Context, tx *sql.Tx) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatal("expected begin error on closed db")
	}
	if called {
		t.Fatal("fn must not run when the transaction cannot start")
	}
}
