package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// DataResponse writes the envelope with a logical status.
func DataResponse(c echo.Context, statusCode int, data interface{}) error {
	return c.JSON(http.StatusOK, APIResponse{
		Status:  statusCode,
		Message: http.StatusText(statusCode),
		Data:    data,
	})
}

// ListResponse writes a bounded list.
func ListResponse(c echo.Context, rows interface{}, total int64, limit int) error {
	return DataResponse(c, http.StatusOK, &ListDataResponse{
		Rows:  rows,
		Total: total,
		Limit: limit,
	})
}

// SuccessResponse writes success response.
func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

// BadRequestResponse writes bad request error.
func BadRequestResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusBadRequest, data)
}

// TooManyRequestsResponse asks the client to back off for retryAfter.
func TooManyRequestsResponse(c echo.Context, retryAfter time.Duration) error {
	secs := int(retryAfter.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
	return AppErrorResponse(c, NewAppError("ERR_RATE_LIMITED", "", "rate limited", http.StatusTooManyRequests))
}

// InternalServerErrorResponse writes internal server error.
func InternalServerErrorResponse(c echo.Context) error {
	return DataResponse(c, http.StatusInternalServerError, "Something went wrong")
}

// AppErrorResponse writes application error response.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return DataResponse(c, appErr.Status, []*AppError{appErr})
	}
	return InternalServerErrorResponse(c)
}

// HealthResponse writes a bare health status with a real HTTP code so load
// balancers can act on it.
func HealthResponse(c echo.Context, err error) error {
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, HealthStatus{Status: "unavailable", Error: err.Error()})
	}
	return c.JSON(http.StatusOK, HealthStatus{Status: "ok"})
}
