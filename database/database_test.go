package database

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/example/taskflow/config"
	"gorm.io/gorm"
)

type widget struct {
	ID   uint
	Name string
}

func TestOpen_SQLite(t *testing.T) {
	cfg := config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "test.db")}

	db, err := Open(cfg, &widget{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer Close(db)

	if err := Ping(context.Background(), db); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if !db.Migrator().HasTable(&widget{}) {
		t.Error("expected widget table to be migrated")
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(config.DatabaseConfig{Driver: "mongo"}); err == nil {
		t.Error("Open() expected error for unknown driver")
	}
}

func TestPing_Nil(t *testing.T) {
	if err := Ping(context.Background(), nil); err == nil {
		t.Error("Ping() expected error for nil db")
	}
}

func TestDescribe(t *testing.T) {
	if got := Describe(config.DatabaseConfig{Driver: "postgres", DSN: "postgres://secret@host/db"}); got != "postgres" {
		t.Errorf("Describe() = %v, want postgres", got)
	}
	if got := Describe(config.DatabaseConfig{Driver: "sqlite", Path: "a.db"}); got != "sqlite:a.db" {
		t.Errorf("Describe() = %v, want sqlite:a.db", got)
	}
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"data/taskflow.db", "data/taskflow.db?_busy_timeout=5000&_journal_mode=WAL"},
		{":memory:", ":memory:"},
		{"file.db?cache=shared", "file.db?cache=shared"},
	}

	for _, tt := range tests {
		if got := sqliteDSN(tt.path); got != tt.want {
			t.Errorf("sqliteDSN(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestOpen_SQLiteBusyTimeout(t *testing.T) {
	cfg := config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "test.db")}

	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer Close(db)

	var timeout int
	if err := db.Raw("PRAGMA busy_timeout").Scan(&timeout).Error; err != nil {
		t.Fatalf("PRAGMA busy_timeout error = %v", err)
	}
	if timeout != sqliteBusyTimeoutMS {
		t.Errorf("busy_timeout = %d, want %d", timeout, sqliteBusyTimeoutMS)
	}

	var mode string
	if err := db.Raw("PRAGMA journal_mode").Scan(&mode).Error; err != nil {
		t.Fatalf("PRAGMA journal_mode error = %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestOpen_TwoPoolsSameFile(t *testing.T) {
	cfg := config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "shared.db")}

	first, err := Open(cfg, &widget{})
	if err != nil {
		t.Fatalf("Open() first error = %v", err)
	}
	defer Close(first)
	second, err := Open(cfg, &widget{})
	if err != nil {
		t.Fatalf("Open() second error = %v", err)
	}
	defer Close(second)

	const perPool = 25
	var wg sync.WaitGroup
	errs := make(chan error, 2*perPool)
	for _, db := range []*gorm.DB{first, second} {
		wg.Add(1)
		go func(db *gorm.DB) {
			defer wg.Done()
			for i := 0; i < perPool; i++ {
				if err := db.Create(&widget{Name: "w"}).Error; err != nil {
					errs <- err
				}
			}
		}(db)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent write error = %v", err)
	}

	var count int64
	if err := first.Model(&widget{}).Count(&count).Error; err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2*perPool {
		t.Errorf("count = %d, want %d", count, 2*perPool)
	}
}
