package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/scaregistry/backend/internal/application/event"
)

// OutboxAdmin is the dead letter management surface
type OutboxAdmin interface {
	ListDeadLetters(ctx context.Context, page, pageSize int) (*event.OutboxListResult, error)
	GetEntry(ctx context.Context, id uuid.UUID) (*event.OutboxEntryDTO, error)
	RetryDeadEntry(ctx context.Context, id uuid.UUID) (*event.OutboxEntryDTO, error)
	RetryAllDeadEntries(ctx context.Context) (int64, error)
	GetStats(ctx context.Context) (*event.OutboxStatsDTO, error)
}

// OutboxHandler handles outbox management HTTP requests
type OutboxHandler struct {
	BaseHandler
	outbox OutboxAdmin
}

// NewOutboxHandler creates a new outbox handler
func NewOutboxHandler(outbox OutboxAdmin) *OutboxHandler {
	return &OutboxHandler{outbox: outbox}
}

// PageQuery is the common paging query string
type PageQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ListDeadLetters handles GET /admin/outbox/dead
func (h *OutboxHandler) ListDeadLetters(c *gin.Context) {
	var q PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.outbox.ListDeadLetters(c.Request.Context(), q.Page, q.PageSize)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Entries, result.Total, result.Page, result.PageSize)
}

// GetEntry handles GET /admin/outbox/:id
func (h *OutboxHandler) GetEntry(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	entry, err := h.outbox.GetEntry(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, entry)
}

// RetryDeadEntry handles POST /admin/outbox/:id/retry
func (h *OutboxHandler) RetryDeadEntry(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	entry, err := h.outbox.RetryDeadEntry(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, entry)
}

// RetryAllResponse reports how many dead letters were requeued
type RetryAllResponse struct {
	Retried int64 `json:"retried"`
}

// RetryAllDeadEntries handles POST /admin/outbox/dead/retry
func (h *OutboxHandler) RetryAllDeadEntries(c *gin.Context) {
	n, err := h.outbox.RetryAllDeadEntries(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, RetryAllResponse{Retried: n})
}

// GetStats handles GET /admin/outbox/stats
func (h *OutboxHandler) GetStats(c *gin.Context) {
	stats, err := h.outbox.GetStats(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, stats)
}
