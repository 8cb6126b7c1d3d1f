package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Business codes carried in every response envelope
const (
	CodeSuccess          = 20000
	CodeParamInvalid     = 40001
	CodeValidationFailed = 40002
	CodeNotFound         = 40400
	CodeInternalServer   = 50000
	CodeUnavailable      = 50300
)

var codeStatus = map[int]int{
	CodeSuccess:          http.StatusOK,
	CodeParamInvalid:     http.StatusBadRequest,
	CodeValidationFailed: http.StatusBadRequest,
	CodeNotFound:         http.StatusNotFound,
	CodeInternalServer:   http.StatusInternalServerError,
	CodeUnavailable:      http.StatusServiceUnavailable,
}

// Response is the envelope returned by every endpoint
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func httpStatus(code int) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// SuccessResponse writes a success envelope with the given payload
func SuccessResponse(c *gin.Context, code int, data any) {
	c.JSON(httpStatus(code), Response{
		Code: code,
		Data: data,
	})
}

// ErrorResponse writes an error envelope with the error message
func ErrorResponse(c *gin.Context, code int, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	c.JSON(httpStatus(code), Response{
		Code:    code,
		Message: msg,
	})
}
