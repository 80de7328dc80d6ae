package handlers

import (
	"errors"
	"net/http"

	"warehouse-service/internal/dto"
	"warehouse-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// writeError maps a service error onto the HTTP error envelope.
func writeError(c *gin.Context, log *zap.Logger, op string, err error) {
	var verr *service.ValidationError
	switch {
	// A taken order number is a conflict unless other fields failed alongside it.
	case errors.Is(err, service.ErrOrderNumberTaken) && (!errors.As(err, &verr) || len(verr.Fields) == 1):
		c.JSON(http.StatusConflict, dto.NewConflictError(service.ErrOrderNumberTaken.Error()))
	case errors.As(err, &verr):
		fields := make([]dto.FieldError, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			fields = append(fields, dto.FieldError{Field: f.Field, Message: f.Message})
		}
		c.JSON(http.StatusBadRequest, dto.NewValidationError("validation failed", fields))
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrEmptyItems):
		c.JSON(http.StatusBadRequest, dto.NewValidationError(err.Error(), nil))
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrInventoryNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrSupplierNotFound):
		c.JSON(http.StatusNotFound, dto.NewNotFoundError(err.Error()))
	case errors.Is(err, service.ErrAlreadyFulfilled),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrConcurrentUpdate):
		c.JSON(http.StatusConflict, dto.NewConflictError(err.Error()))
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError("authentication required"))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, dto.NewForbiddenError("insufficient permissions"))
	default:
		log.Error(op+" failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
	}
}

func writeBindError(c *gin.Context, log *zap.Logger, op string, err error) {
	log.Warn("invalid "+op+" request", zap.Error(err))
	c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request", dto.BindingFields(err)))
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid id", []dto.FieldError{
			{Field: "id", Message: "must be a valid UUID", Tag: "uuid"},
		}))
		return uuid.Nil, false
	}
	return id, true
}

// optionalUUID parses a value already checked by binding; empty means unset.
func optionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id := uuid.MustParse(s)
	return &id
}
