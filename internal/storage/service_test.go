package storage

import (
	"testing"
	"time"

	"matchchat/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// dryRunDB renders postgres SQL without a server.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=matchchat dbname=matchchat sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true, SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db
}

func TestMarkerUpsert_OnlyReplacesExpiredMarkers(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	marker := &models.NotificationMarker{Key: "expiry_warning:r:a:3", ExpiresAt: now.Add(time.Hour)}

	stmt := dryRunDB(t).Clauses(markerUpsert(now)).Create(marker).Statement
	sql := stmt.SQL.String()

	assert.Contains(t, sql, `INSERT INTO "notification_markers"`)
	assert.Contains(t, sql, `ON CONFLICT ("key") DO UPDATE SET "expires_at"="excluded"."expires_at"`)
	assert.Contains(t, sql, "WHERE notification_markers.expires_at <=")
	assert.Contains(t, stmt.Vars, now)
}

func TestMarkNotified_FallsBackToMarkerTable(t *testing.T) {
	s := NewStorageService(dryRunDB(t), nil)

	// A dry run affects no rows, which reads as "already notified", but the
	// call must go through the table instead of failing for the missing Redis.
	fresh, err := s.MarkNotified(t.Context(), "expiry_warning:r:a:3", time.Hour)
	require.NoError(t, err)
	assert.False(t, fresh)
}
