package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/scaregistry/backend/internal/domain/casework"
	"github.com/shopspring/decimal"
)

// PenaltyHandler exposes the fine tier schedule
type PenaltyHandler struct {
	BaseHandler
}

// NewPenaltyHandler creates a new PenaltyHandler
func NewPenaltyHandler() *PenaltyHandler {
	return &PenaltyHandler{}
}

// FineTierQuery is the points total to look up
type FineTierQuery struct {
	Points *int `form:"points" binding:"required"`
}

// FineTierResponse is the tier for a points total. Amount is omitted when
// the total has no tier.
type FineTierResponse struct {
	Points   int              `json:"points"`
	Tier     string           `json:"tier"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Currency string           `json:"currency,omitempty"`
}

// FineTier handles GET /penalty/fine-tier?points=
func (h *PenaltyHandler) FineTier(c *gin.Context) {
	var q FineTierQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}

	resp := FineTierResponse{Points: *q.Points, Tier: casework.FineTier(*q.Points)}
	if amount, ok := casework.FineAmount(*q.Points); ok {
		resp.Amount = &amount
		resp.Currency = "PGK"
	}
	h.Success(c, resp)
}
