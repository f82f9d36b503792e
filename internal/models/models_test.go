package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupModelTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// Create tables manually to avoid PostgreSQL-specific syntax
	require.NoError(t, db.Exec(`
		CREATE TABLE fact_checks (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			verdict TEXT NOT NULL,
			confidence REAL NOT NULL,
			claim TEXT NOT NULL,
			conclusion TEXT NOT NULL,
			evidence TEXT,
			sources TEXT,
			checked_at DATETIME
		)
	`).Error)

	require.NoError(t, db.Exec(`
		CREATE TABLE check_jobs (
			id TEXT PRIMARY KEY,
			job_id TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL,
			input_type TEXT NOT NULL,
			payload TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			error_message TEXT,
			result_id TEXT,
			created_at DATETIME,
			completed_at DATETIME
		)
	`).Error)

	return db
}

func TestFactCheck_BeforeCreateAssignsID(t *testing.T) {
	db := setupModelTestDB(t)

	factCheck := &FactCheck{
		UserID:     "user-1",
		Verdict:    "TRUE",
		Confidence: 0.9,
		Claim:      "claim",
		Conclusion: "conclusion",
		Evidence:   datatypes.JSON([]byte(`{"supporting":[],"counter":[]}`)),
		Sources:    datatypes.JSON([]byte(`[]`)),
		CheckedAt:  time.Now().UTC(),
	}

	require.NoError(t, db.Create(factCheck).Error)
	assert.NotEqual(t, uuid.Nil, factCheck.ID)
}

func TestFactCheck_KeepsExplicitID(t *testing.T) {
	db := setupModelTestDB(t)

	id := uuid.New()
	factCheck := &FactCheck{
		ID:         id,
		UserID:     "user-1",
		Verdict:    "FALSE",
		Confidence: 0.5,
		Claim:      "claim",
		Conclusion: "conclusion",
	}

	require.NoError(t, db.Create(factCheck).Error)
	assert.Equal(t, id, factCheck.ID)
}

func TestCheckJob_BeforeCreateAssignsIDs(t *testing.T) {
	db := setupModelTestDB(t)

	job := &CheckJob{
		UserID:    "user-1",
		InputType: "text",
		Payload:   "some claim",
		Status:    "pending",
	}

	require.NoError(t, db.Create(job).Error)
	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.NotEqual(t, uuid.Nil, job.JobID)
	assert.NotEqual(t, job.ID, job.JobID)
}
