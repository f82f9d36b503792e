package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FactCheck represents one persisted verification result owned by a user
type FactCheck struct {
	ID         uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID     string         `gorm:"size:255;not null;index;index:idx_user_checked,priority:1" json:"user_id"`
	Verdict    string         `gorm:"size:20;not null;index" json:"verdict"` // TRUE, FALSE, UNVERIFIABLE, ERROR
	Confidence float64        `gorm:"not null;check:confidence >= 0 AND confidence <= 1" json:"confidence"`
	Claim      string         `gorm:"type:text;not null" json:"claim"`
	Conclusion string         `gorm:"type:text;not null" json:"conclusion"`
	Evidence   datatypes.JSON `gorm:"type:jsonb" json:"evidence"` // {supporting: [...], counter: [...]}
	Sources    datatypes.JSON `gorm:"type:jsonb" json:"sources"`  // [{title, url}, ...]
	CheckedAt  time.Time      `gorm:"default:CURRENT_TIMESTAMP;index;index:idx_user_checked,priority:2" json:"checked_at"`
}

// CheckJob represents an asynchronous fact-check job queued through Kafka
type CheckJob struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	JobID        uuid.UUID  `gorm:"type:uuid;not null;unique;index" json:"job_id"`
	UserID       string     `gorm:"size:255;not null;index" json:"user_id"`
	InputType    string     `gorm:"size:20;not null" json:"input_type"` // text, url
	Payload      string     `gorm:"type:text;not null" json:"payload"`
	Status       string     `gorm:"size:20;not null;default:'pending';index" json:"status"` // pending, processing, completed, failed
	ErrorMessage *string    `gorm:"type:text" json:"error_message,omitempty"`
	ResultID     *uuid.UUID `gorm:"type:uuid" json:"result_id,omitempty"`
	CreatedAt    time.Time  `gorm:"default:CURRENT_TIMESTAMP;index" json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (f *FactCheck) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

func (j *CheckJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.JobID == uuid.Nil {
		j.JobID = uuid.New()
	}
	return nil
}

// AutoMigrate creates or updates database tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&FactCheck{}, &CheckJob{})
}
