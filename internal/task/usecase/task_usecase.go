package usecase

import (
	"time"

	"github.com/jalemieux/hermes/internal/task/domain"
	"github.com/jalemieux/hermes/internal/task/repository"

	log "github.com/sirupsen/logrus"
)

type taskUsecase struct {
	repo repository.TaskExecutionRepository
	now  func() time.Time
}

func NewTaskUsecase(repo repository.TaskExecutionRepository) TaskUsecase {
	return &taskUsecase{repo: repo, now: time.Now}
}

func (u *taskUsecase) Start(name string) error {
	log.WithField("task", name).Info("[Task] Started")
	return u.repo.Start(name, u.now())
}

func (u *taskUsecase) Finish(name string, runErr error) error {
	entry := log.WithField("task", name)
	if runErr != nil {
		entry.Warnf("[Task] Failed: %v", runErr)
	} else {
		entry.Info("[Task] Succeeded")
	}
	return u.repo.Finish(name, runErr, u.now())
}

func (u *taskUsecase) Track(name string, fn func() error) error {
	if err := u.Start(name); err != nil {
		log.Warnf("[Task] Could not record start of %s: %v", name, err)
	}
	runErr := fn()
	if err := u.Finish(name, runErr); err != nil {
		log.Warnf("[Task] Could not record result of %s: %v", name, err)
	}
	return runErr
}

func (u *taskUsecase) LastSuccess(name string) (*time.Time, error) {
	exec, err := u.repo.FindByName(name)
	if err != nil || exec == nil {
		return nil, err
	}
	return exec.LastSuccess, nil
}

func (u *taskUsecase) List() ([]domain.TaskExecution, error) {
	execs, err := u.repo.List()
	if err != nil {
		return nil, err
	}
	if execs == nil {
		execs = []domain.TaskExecution{}
	}
	return execs, nil
}
