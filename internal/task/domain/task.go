package domain

import (
	"errors"
	"time"
)

// ExecutionStatus is the state of the last run of a named batch job
type ExecutionStatus string

const (
	StatusStarted ExecutionStatus = "started"
	StatusSuccess ExecutionStatus = "success"
	StatusFailed  ExecutionStatus = "failed"
)

var (
	ErrUnknownJob = errors.New("unknown job")
	ErrJobRunning = errors.New("job already running")
)

// TaskExecution keeps one row per job name, overwritten on every run
type TaskExecution struct {
	TaskName    string          `json:"task_name" gorm:"primaryKey"`
	Status      ExecutionStatus `json:"status" gorm:"not null"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	LastSuccess *time.Time      `json:"last_success,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (TaskExecution) TableName() string {
	return "task_executions"
}
