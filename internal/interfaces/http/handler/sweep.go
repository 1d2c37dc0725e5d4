package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/scaregistry/backend/internal/domain/casework"
	"github.com/scaregistry/backend/internal/infrastructure/scheduler"
	"github.com/scaregistry/backend/internal/interfaces/http/dto"
)

// SweepTrigger queues expiry sweeps on demand
type SweepTrigger interface {
	TriggerManual(entity casework.EntityType) ([]*scheduler.Job, error)
	LastRun() time.Time
}

// SweepHandler lets administrators run the expiry sweep ahead of schedule
type SweepHandler struct {
	BaseHandler
	trigger SweepTrigger
}

// NewSweepHandler creates a new SweepHandler
func NewSweepHandler(trigger SweepTrigger) *SweepHandler {
	return &SweepHandler{trigger: trigger}
}

// SweepQuery optionally narrows the sweep to one entity
type SweepQuery struct {
	Entity string `form:"entity" binding:"omitempty,entity"`
}

// QueuedJob is a sweep job accepted for processing
type QueuedJob struct {
	ID     uuid.UUID           `json:"jobId"`
	Entity casework.EntityType `json:"entity"`
}

// SweepResponse lists the queued jobs
type SweepResponse struct {
	Jobs    []QueuedJob `json:"jobs"`
	LastRun *time.Time  `json:"lastScheduledRun,omitempty"`
}

// Trigger handles POST /admin/expiry-sweep?entity=
func (h *SweepHandler) Trigger(c *gin.Context) {
	var q SweepQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}

	jobs, err := h.trigger.TriggerManual(casework.EntityType(q.Entity))
	switch {
	case errors.Is(err, scheduler.ErrUnknownEntity):
		h.BadRequest(c, "Entity has no expiry: "+q.Entity)
		return
	case errors.Is(err, scheduler.ErrSchedulerNotRunning), errors.Is(err, scheduler.ErrJobQueueFull):
		c.Header("Retry-After", "5")
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeSchedulerBusy, err.Error())
		return
	case err != nil:
		h.HandleDomainError(c, err)
		return
	}

	resp := SweepResponse{Jobs: make([]QueuedJob, 0, len(jobs))}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, QueuedJob{ID: j.ID, Entity: j.Entity})
	}
	if last := h.trigger.LastRun(); !last.IsZero() {
		resp.LastRun = &last
	}
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(resp))
}
