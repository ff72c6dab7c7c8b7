// Package repo implements the local persistence layer of the client, backed
// by GORM over SQLite (pure Go driver). The only entity is the stored
// credential; this file opens the store and migrates its schema.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-docchat-client/internal/domain"
)

var pragmas = []string{
	"PRAGMA journal_mode=WAL;",
	"PRAGMA synchronous=NORMAL;",
	"PRAGMA busy_timeout=5000;",
}

// OpenSQLite opens (or creates) the credential store at path. The parent
// directory is created owner-only and the database file is restricted to the
// owner, since it holds a bearer token. ":memory:" and "file:" DSNs are
// passed through untouched.
func OpenSQLite(path string) (*gorm.DB, error) {
	onDisk := path != ":memory:" && !strings.HasPrefix(path, "file:")
	if onDisk {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("create store dir: %w", err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	for _, p := range pragmas {
		if err := db.Exec(p).Error; err != nil {
			return nil, fmt.Errorf("%s %w", p, err)
		}
	}

	// One row, one writer.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	}

	if onDisk {
		if err := os.Chmod(path, 0o600); err != nil {
			return nil, fmt.Errorf("restrict store file: %w", err)
		}
	}

	// Bound values would leak the token into spans.
	if err := db.Use(tracing.NewPlugin(tracing.WithoutQueryVariables())); err != nil {
		return nil, err
	}
	return db, nil
}

// AutoMigrate creates or updates the local schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.StoredCredential{})
}
