package usecase

import (
	"time"

	"github.com/jalemieux/hermes/internal/task/domain"
)

// TaskUsecase tracks batch job runs. Ingestion and digest generation record
// themselves through Start/Finish; other jobs go through Track.
type TaskUsecase interface {
	Start(name string) error
	Finish(name string, runErr error) error
	// Track records a run of fn under name and returns fn's error
	Track(name string, fn func() error) error
	// LastSuccess is nil when the job never succeeded
	LastSuccess(name string) (*time.Time, error)
	List() ([]domain.TaskExecution, error)
}
