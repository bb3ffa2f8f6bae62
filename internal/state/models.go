package state

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/alvesdmateus/slotship/pkg/database"
	"github.com/alvesdmateus/slotship/pkg/models"
)

// PipelineRun database model: one execution of the deployment pipeline,
// from trigger to final status
type PipelineRun struct {
	ID           uuid.UUID          `gorm:"type:uuid;primary_key"`
	WorkflowName string             `gorm:"not null"`
	AppName      string             `gorm:"not null"`
	Slot         string             `gorm:"not null"`
	Trigger      models.TriggerType `gorm:"not null"`
	RepoURL      string             `gorm:"not null"`
	Branch       string
	CommitSHA    string
	Status       models.RunStatus `gorm:"not null"`
	URL          string
	Error        string `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	StartedAt    *time.Time
	FinishedAt   *time.Time

	// Relationships
	Stages []StageExecution `gorm:"foreignKey:RunID"`
}

// StageExecution tracks one pipeline stage within a run
type StageExecution struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	RunID       uuid.UUID `gorm:"type:uuid;not null;index"`
	Ordinal     int       `gorm:"not null"`
	Name        string    `gorm:"not null"`
	Status      models.StageStatus
	Output      string `gorm:"type:text"` // captured output, credential-redacted
	Error       string `gorm:"type:text"`
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// RunLog is a run-level log entry persisted for the triggering actor
type RunLog struct {
	ID        uint      `gorm:"primary_key;auto_increment"`
	RunID     uuid.UUID `gorm:"type:uuid;not null;index"`
	JobID     string
	Stage     string
	Level     string
	Message   string `gorm:"type:text"`
	Details   string `gorm:"type:text"`
	Timestamp time.Time
}

// AutoMigrate runs database migrations for the run state models
func AutoMigrate(db *gorm.DB) error {
	return database.Migrate(db,
		&PipelineRun{},
		&StageExecution{},
		&RunLog{},
	)
}
