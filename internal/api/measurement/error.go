package measurement

import (
	"PupilMeter/pkg/response"
	"net/http"
)

var (
	ErrSessionNotFound            = response.NewError(http.StatusNotFound, "measurement session not found")
	ErrNoMeasurement              = response.NewError(http.StatusNotFound, "no measurement available yet")
	ErrInvalidFrame               = response.NewError(http.StatusBadRequest, "invalid frame")
	ErrInvalidSessionMode         = response.NewError(http.StatusBadRequest, "invalid session mode")
	ErrTooManySessions            = response.NewError(http.StatusTooManyRequests, "too many active sessions")
	ErrLandmarkServiceUnavailable = response.NewError(http.StatusServiceUnavailable, "landmark service unavailable")
	ErrInternalServerError        = response.NewError(http.StatusInternalServerError, "internal server error")
)
