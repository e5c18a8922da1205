package repository

import (
	"errors"
	"time"

	"github.com/jalemieux/hermes/internal/task/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TaskExecutionRepository records the outcome of batch job runs
type TaskExecutionRepository interface {
	Start(name string, at time.Time) error
	// Finish stores success or failure; a nil runErr is a success
	Finish(name string, runErr error, at time.Time) error
	FindByName(name string) (*domain.TaskExecution, error)
	List() ([]domain.TaskExecution, error)
}

type taskExecutionRepository struct {
	db *gorm.DB
}

func NewTaskExecutionRepository(db *gorm.DB) TaskExecutionRepository {
	return &taskExecutionRepository{db: db}
}

func (r *taskExecutionRepository) Start(name string, at time.Time) error {
	exec := &domain.TaskExecution{
		TaskName:  name,
		Status:    domain.StatusStarted,
		StartedAt: &at,
		UpdatedAt: at,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "task_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "started_at", "updated_at"}),
	}).Create(exec).Error
}

func (r *taskExecutionRepository) Finish(name string, runErr error, at time.Time) error {
	exec := &domain.TaskExecution{
		TaskName:  name,
		Status:    domain.StatusSuccess,
		UpdatedAt: at,
	}
	columns := []string{"status", "last_error", "updated_at"}
	if runErr != nil {
		exec.Status = domain.StatusFailed
		exec.LastError = runErr.Error()
	} else {
		exec.LastSuccess = &at
		columns = append(columns, "last_success")
	}

	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "task_name"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(exec).Error
}

func (r *taskExecutionRepository) FindByName(name string) (*domain.TaskExecution, error) {
	var exec domain.TaskExecution
	if err := r.db.Where("task_name = ?", name).First(&exec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &exec, nil
}

func (r *taskExecutionRepository) List() ([]domain.TaskExecution, error) {
	var execs []domain.TaskExecution
	err := r.db.Order("task_name ASC").Find(&execs).Error
	return execs, err
}
