package delivery

import (
	"errors"
	"net/http"

	"github.com/jalemieux/hermes/internal/task/domain"
	"github.com/jalemieux/hermes/internal/task/usecase"

	"github.com/gin-gonic/gin"
)

// Runner triggers a registered job out of schedule
type Runner interface {
	RunNow(name string) error
	Jobs() []string
}

type TaskHandler struct {
	taskUsecase usecase.TaskUsecase
	runner      Runner
}

func NewTaskHandler(taskUsecase usecase.TaskUsecase, runner Runner) *TaskHandler {
	return &TaskHandler{
		taskUsecase: taskUsecase,
		runner:      runner,
	}
}

// GET /api/tasks
func (h *TaskHandler) List(c *gin.Context) {
	execs, err := h.taskUsecase.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"executions": execs,
		"jobs":       h.runner.Jobs(),
	})
}

// POST /api/tasks/:name/run
func (h *TaskHandler) Run(c *gin.Context) {
	name := c.Param("name")
	if err := h.runner.RunNow(name); err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownJob):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrJobRunning):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job": name, "status": "queued"})
}
