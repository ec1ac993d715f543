// Package envelope wraps every API outcome in a uniform success, error or
// pagination shape with a fixed mapping from error code to HTTP status.
package envelope

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nhle/docflow/internal/model"
)

// Code is the machine-readable error category.
type Code string

const (
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeRateLimited  Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal     Code = "INTERNAL_ERROR"
)

// Status returns the HTTP status bound to the code.
func (c Code) Status() int {
	switch c {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation:
		return http.StatusUnprocessableEntity
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// RequestIDKey is the gin context key the request-id middleware stores
// the id under. It is echoed in Meta.
const RequestIDKey = "request_id"

// Meta accompanies every response.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Response is the top-level API body.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
	Meta    Meta       `json:"meta"`
}

// Pagination describes the window a paginated response covers.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// Page is the data payload of a paginated response.
type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// NewPagination computes has_more as total > offset+limit.
func NewPagination(total, limit, offset int) Pagination {
	return Pagination{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: total > offset+limit,
	}
}

var now = time.Now

func meta(c *gin.Context) Meta {
	return Meta{
		Timestamp: now().UTC(),
		RequestID: c.GetString(RequestIDKey),
	}
}

// Success writes a success envelope with the given status.
func Success(c *gin.Context, status int, data any) {
	c.JSON(status, Response{Success: true, Data: data, Meta: meta(c)})
}

// OK writes a 200 success envelope.
func OK(c *gin.Context, data any) {
	Success(c, http.StatusOK, data)
}

// Created writes a 201 success envelope.
func Created(c *gin.Context, data any) {
	Success(c, http.StatusCreated, data)
}

// Accepted writes a 202 success envelope.
func Accepted(c *gin.Context, data any) {
	Success(c, http.StatusAccepted, data)
}

// Paginated writes a 200 envelope whose data nests items and pagination.
func Paginated[T any](c *gin.Context, items []T, total, limit, offset int) {
	if items == nil {
		items = []T{}
	}
	OK(c, Page[T]{Data: items, Pagination: NewPagination(total, limit, offset)})
}

// Fail writes an error envelope for code and aborts the handler chain.
func Fail(c *gin.Context, code Code, message string, details any) {
	c.AbortWithStatusJSON(code.Status(), Response{
		Success: false,
		Error:   &ErrorBody{Code: code, Message: message, Details: details},
		Meta:    meta(c),
	})
}

// Error classifies err and writes the matching error envelope.
func Error(c *gin.Context, err error, devMode bool) {
	body := Classify(err, devMode)
	Fail(c, body.Code, body.Message, body.Details)
}

// ValidationFailed writes a 422 envelope listing field errors.
func ValidationFailed(c *gin.Context, fields []model.FieldError) {
	Fail(c, CodeValidation, "Validation failed", fields)
}

// RateLimited writes a 429 envelope with a Retry-After header rounded up
// to whole seconds.
func RateLimited(c *gin.Context, retryAfter time.Duration) {
	secs := int(math.Ceil(retryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	c.Header("Retry-After", strconv.Itoa(secs))
	Fail(c, CodeRateLimited, "Too many requests", gin.H{"retry_after": secs})
}

// phraseRule maps error messages containing any of phrases to a code.
type phraseRule struct {
	phrases []string
	code    Code
	message string // empty means use the error's own message
}

// rules are checked in order; the first match wins.
var rules = []phraseRule{
	{phrases: []string{"Unauthorized"}, code: CodeUnauthorized, message: "Authentication required"},
	{phrases: []string{"Forbidden"}, code: CodeForbidden, message: "Insufficient permissions"},
	{phrases: []string{"Not found", "not found"}, code: CodeNotFound, message: "Resource not found"},
	{phrases: []string{"Validation", "Invalid"}, code: CodeValidation},
	{phrases: []string{"Rate limit"}, code: CodeRateLimited, message: "Too many requests"},
}

// Classify maps err onto the fixed code vocabulary. Typed errors from the
// model package are recognized first; other errors are matched by phrase.
// Unmatched errors become INTERNAL_ERROR and their text is only exposed
// when devMode is set.
func Classify(err error, devMode bool) ErrorBody {
	if err == nil {
		return ErrorBody{Code: CodeInternal, Message: "An internal error occurred"}
	}

	var verr *model.ValidationError
	switch {
	case errors.Is(err, model.ErrUnauthorized):
		return ErrorBody{Code: CodeUnauthorized, Message: "Authentication required"}
	case errors.Is(err, model.ErrForbidden):
		return ErrorBody{Code: CodeForbidden, Message: "Insufficient permissions"}
	case errors.Is(err, model.ErrNotFound):
		return ErrorBody{Code: CodeNotFound, Message: "Resource not found"}
	case errors.As(err, &verr):
		return ErrorBody{Code: CodeValidation, Message: verr.Error(), Details: verr.Fields}
	case errors.Is(err, model.ErrRateLimited):
		return ErrorBody{Code: CodeRateLimited, Message: "Too many requests"}
	}

	msg := err.Error()
	for _, r := range rules {
		for _, p := range r.phrases {
			if !strings.Contains(msg, p) {
				continue
			}
			body := ErrorBody{Code: r.code, Message: r.message}
			if body.Message == "" {
				body.Message = msg
			}
			return body
		}
	}

	body := ErrorBody{Code: CodeInternal, Message: "An internal error occurred"}
	if devMode {
		body.Details = msg
	}
	return body
}
