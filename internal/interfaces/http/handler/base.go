package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/scaregistry/backend/internal/domain/shared"
	"github.com/scaregistry/backend/internal/infrastructure/logger"
	"github.com/scaregistry/backend/internal/interfaces/http/dto"
	"github.com/scaregistry/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// principal returns the authenticated principal id, or "" when the route
// is unauthenticated
func principal(c *gin.Context) string {
	return middleware.GetPrincipal(c)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with an explicit status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.AbortWithStatusJSON(statusCode, dto.NewErrorResponse(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// BindError answers a failed ShouldBind* call
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	middleware.HandleBindError(c, err)
}

// ParseID parses the :id path parameter, answering 400 on failure
func (h *BaseHandler) ParseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// HandleDomainError converts domain errors to HTTP responses. VALIDATION_ERROR
// carries one detail per field; retryable errors are flagged so clients can
// back off and resend. Anything else is logged and answered with a bare 500.
func (h *BaseHandler) HandleDomainError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID := middleware.GetRequestID(c)

	var de *shared.DomainError
	if !errors.As(err, &de) {
		logger.L(c.Request.Context()).Error("Unhandled error", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			dto.NewErrorResponse(dto.ErrCodeInternal, "An unexpected error occurred", requestID))
		return
	}

	status := dto.GetHTTPStatus(de.Code)
	if status >= http.StatusInternalServerError {
		logger.L(c.Request.Context()).Error("Request failed", zap.String("code", de.Code), zap.Error(err))
	}

	resp := dto.NewErrorResponse(de.Code, de.Message, requestID)
	resp.Error.Retryable = de.Retryable
	if de.Code == shared.CodeValidation {
		for _, f := range de.Fields {
			resp.Error.Details = append(resp.Error.Details, dto.ValidationDetail{Field: f, Message: "Missing or invalid"})
		}
	}
	if de.Retryable {
		c.Header("Retry-After", "1")
	}
	c.AbortWithStatusJSON(status, resp)
}
