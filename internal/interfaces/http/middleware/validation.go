package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/travelops/backoffice/internal/domain/ledger"
	"github.com/travelops/backoffice/internal/interfaces/http/dto"
)

// RequestIDKey is the gin context key holding the request ID
const RequestIDKey = "request_id"

var setupOnce sync.Once

// SetupValidator configures gin's validator: JSON field names in errors,
// decimal fields validated through their string form, and the ledger tags
// decimal_gt0 and financial_year.
func SetupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			return name
		})
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				return d.String()
			}
			return nil
		}, decimal.Decimal{})
		_ = v.RegisterValidation("decimal_gt0", validateDecimalGT0)
		_ = v.RegisterValidation("decimal_gte0", validateDecimalGTE0)
		_ = v.RegisterValidation("financial_year", validateFinancialYear)
	})
}

func validateDecimalGT0(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	return err == nil && d.IsPositive()
}

func validateDecimalGTE0(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	return err == nil && !d.IsNegative()
}

func validateFinancialYear(fl validator.FieldLevel) bool {
	_, err := ledger.ParseFinancialYear(fl.Field().String())
	return err == nil
}

// FormatValidationErrors formats binding errors into the error envelope
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: getValidationMessage(e),
			})
		}
		return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
	}

	// Malformed JSON or a value of the wrong type
	return dto.NewErrorResponse(dto.ErrCodeBadRequest, "Malformed request: "+err.Error(), requestID)
}

// HandleValidationError answers a failed bind with a 400 envelope
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, GetRequestID(c)))
}

// GetRequestID extracts the request ID from the gin context or the header
func GetRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

// getValidationMessage returns a human-readable validation message
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "min":
		return "Must contain at least " + e.Param() + " item(s)"
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "decimal_gt0":
		return "Must be a decimal greater than zero"
	case "decimal_gte0":
		return "Must be a decimal not less than zero"
	case "financial_year":
		return "Must be a financial year label such as 2024-25"
	default:
		return "Invalid value"
	}
}
