package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/travelops/backoffice/internal/domain/shared"
	"github.com/travelops/backoffice/internal/infrastructure/logger"
	"github.com/travelops/backoffice/internal/interfaces/http/dto"
	"github.com/travelops/backoffice/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// errMissingActor is returned when X-User-ID is absent
var errMissingActor = errors.New("actor id not found in request")

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getActorID extracts the acting user from the X-User-ID header.
// Authentication is done upstream; the id is trusted but must be a UUID.
func getActorID(c *gin.Context) (uuid.UUID, error) {
	raw := c.GetHeader(middleware.ActorHeader)
	if raw == "" {
		return uuid.Nil, errMissingActor
	}
	return uuid.Parse(raw)
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

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponse(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 response for requests without a usable actor
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// HandleError converts an error to the error envelope. Ledger errors keep
// their code; anything else is logged and answered with a 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		status := dto.GetHTTPStatus(domainErr.Code)
		if status >= http.StatusInternalServerError {
			logger.L(c.Request.Context()).Error("Ledger operation failed", zap.Error(err))
		}
		h.Error(c, status, domainErr.Code, domainErr.Message)
		return
	}

	logger.L(c.Request.Context()).Error("Unexpected error", zap.Error(err))
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
}

// bind decodes the JSON body into req and answers 400 on failure
func (h *BaseHandler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// bindQuery decodes the query string into req and answers 400 on failure
func (h *BaseHandler) bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// pathID parses a UUID path parameter and answers 400 when it is malformed
func (h *BaseHandler) pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

// actor resolves the acting user and answers 401 when it is missing or
// malformed. The request logger is tagged with the actor.
func (h *BaseHandler) actor(c *gin.Context) (uuid.UUID, bool) {
	id, err := getActorID(c)
	if err != nil {
		h.Unauthorized(c, "A valid "+middleware.ActorHeader+" header is required")
		return uuid.Nil, false
	}
	ctx := c.Request.Context()
	ctx, _ = logger.WithActorID(ctx, logger.FromContext(ctx), id.String())
	c.Request = c.Request.WithContext(ctx)
	return id, true
}
