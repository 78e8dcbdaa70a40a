package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

type ErrorCode string

const (
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrBadRequest     ErrorCode = "BAD_REQUEST"
	ErrAuth           ErrorCode = "AUTH_FAILED"
	ErrConfig         ErrorCode = "CONFIG_INVALID"
	ErrQuery          ErrorCode = "QUERY_FAILED"
	ErrPrecondition   ErrorCode = "PRECONDITION_FAILED"
	ErrDelivery       ErrorCode = "DELIVERY_FAILED"
	ErrDeprecated     ErrorCode = "DEPRECATED"
	ErrInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"
)

type APIError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code ErrorCode, message string, details interface{}) APIError {
	logrus.Error(details)
	return APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// HasCode reports whether err (or anything it wraps) is an APIError carrying
// the given code.
func HasCode(err error, code ErrorCode) bool {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

func MapErrorToHTTPStatus(err error) int {
	if apiErr, ok := err.(APIError); ok {
		switch apiErr.Code {
		case ErrNotFound:
			return http.StatusNotFound
		case ErrBadRequest, ErrConfig:
			return http.StatusBadRequest
		case ErrAuth:
			return http.StatusUnauthorized
		case ErrDeprecated:
			return http.StatusGone
		case ErrQuery, ErrDelivery:
			return http.StatusBadGateway
		case ErrInternalServer:
			return http.StatusInternalServerError
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}
