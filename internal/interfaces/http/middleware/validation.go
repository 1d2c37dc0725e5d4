package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/scaregistry/backend/internal/domain/casework"
	"github.com/scaregistry/backend/internal/domain/identity"
	"github.com/scaregistry/backend/internal/interfaces/http/dto"
)

var setupOnce sync.Once

// SetupValidator configures gin's validator: field names come from json,
// form or uri tags, and the custom tags below become available.
//
//	entity      a case entity type (Registration, Inspection, ...)
//	transition  a transition of any case state machine
//	role        a staff role
func SetupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form", "uri"} {
				name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return ""
		})
		_ = v.RegisterValidation("entity", validateEntity)
		_ = v.RegisterValidation("transition", validateTransition)
		_ = v.RegisterValidation("role", validateRole)
	})
}

func validateEntity(fl validator.FieldLevel) bool {
	return casework.EntityType(fl.Field().String()).IsCase()
}

func validateTransition(fl validator.FieldLevel) bool {
	tr := casework.Transition(fl.Field().String())
	for _, e := range casework.CaseEntities() {
		if slices.Contains(casework.TransitionsOf(e), tr) {
			return true
		}
	}
	return false
}

func validateRole(fl validator.FieldLevel) bool {
	return identity.Role(fl.Field().String()).IsValid()
}

// ValidationDetails converts validator errors to response details. Other
// errors yield nil.
func ValidationDetails(err error) []dto.ValidationDetail {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make([]dto.ValidationDetail, 0, len(verrs))
	for _, e := range verrs {
		details = append(details, dto.ValidationDetail{
			Field:   e.Field(),
			Message: validationMessage(e),
		})
	}
	return details
}

// HandleBindError answers a failed ShouldBind*: 422 VALIDATION_ERROR with
// details for tag failures, 400 INVALID_JSON for anything else.
func HandleBindError(c *gin.Context, err error) {
	if details := ValidationDetails(err); details != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity,
			dto.NewValidationErrorResponse("Request validation failed", GetRequestID(c), details))
		return
	}
	c.AbortWithStatusJSON(http.StatusBadRequest,
		dto.NewErrorResponse(dto.ErrCodeInvalidJSON, "Malformed request body", GetRequestID(c)))
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "entity":
		return "Unknown case entity"
	case "transition":
		return "Unknown transition"
	case "role":
		return "Unknown role"
	default:
		return "Invalid value"
	}
}
