package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tradebook/internal/errs"
	"github.com/smallbiznis/tradebook/pkg/db/pagination"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var ErrUnauthorized = errors.New("unauthorized")

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

type errorRule struct {
	match   func(error) bool
	status  int
	kind    string
	message string
}

func isUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }

func isNotFound(err error) bool {
	return errs.IsNotFound(err) || errors.Is(err, gorm.ErrRecordNotFound)
}

// rules is checked in order; the first match decides the status.
var rules = []errorRule{
	{isUnauthorized, http.StatusUnauthorized, "unauthorized", "unauthorized"},
	{errs.IsForbidden, http.StatusForbidden, "forbidden", "forbidden"},
	{isNotFound, http.StatusNotFound, "not_found", "not found"},
	{errs.IsConflict, http.StatusConflict, "conflict", "conflict"},
	{errs.IsInvalidState, http.StatusUnprocessableEntity, "invalid_state", "operation not allowed in the current state"},
}

// mapError turns an error kind into a status. The domain code travels in
// the payload so clients can branch without parsing messages.
func mapError(err error) (int, errorPayload) {
	internal := errorPayload{Type: "internal_error", Message: "internal server error"}
	if err == nil {
		return http.StatusInternalServerError, internal
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	code := errs.Code(err)
	if errs.IsInvalidInput(err) || errors.Is(err, pagination.ErrInvalidPageToken) {
		if code == "" {
			code = "invalid_request"
		}
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Code:    code,
			Message: "validation error",
			Errors:  []ValidationError{{Field: validationErrorField(code), Code: code, Message: "invalid value"}},
		}
	}

	for _, rule := range rules {
		if !rule.match(err) {
			continue
		}
		payload := errorPayload{Type: rule.kind, Code: code, Message: rule.message}
		if rule.status == http.StatusUnauthorized {
			payload.Code = ""
		}
		return rule.status, payload
	}
	return http.StatusInternalServerError, internal
}

func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	if status >= http.StatusInternalServerError {
		return "internal_error", ""
	}
	return payload.Type, payload.Code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}
