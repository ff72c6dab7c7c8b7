package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestStoredCredential_TableName(t *testing.T) {
	if got := (StoredCredential{}).TableName(); got != "credentials" {
		t.Fatalf("TableName() = %q; want credentials", got)
	}
}

func TestStoredCredential_MigrateAndUpsert(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&StoredCredential{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if !db.Migrator().HasTable(&StoredCredential{}) {
		t.Fatalf("credentials table missing")
	}

	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	first := StoredCredential{Key: CredentialKey, Token: "t1", Subject: "alice", ExpiresAt: &exp}
	if err := db.Create(&first).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	// Same key replaces the row instead of adding a second one.
	second := StoredCredential{Key: CredentialKey, Token: "t2"}
	if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&second).Error; err != nil {
		t.Fatalf("upsert: %v", err)
	}

	var n int64
	db.Model(&StoredCredential{}).Count(&n)
	if n != 1 {
		t.Fatalf("expected exactly one credential row, got %d", n)
	}
	var got StoredCredential
	if err := db.First(&got, "key = ?", CredentialKey).Error; err != nil {
		t.Fatalf("first: %v", err)
	}
	if got.Token != "t2" || got.ExpiresAt != nil || got.Subject != "" {
		t.Fatalf("unexpected row after upsert: %+v", got)
	}
}
