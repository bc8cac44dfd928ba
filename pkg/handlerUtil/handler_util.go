package handlerUtil

import (
	"PupilMeter/internal/api/measurement"
	"PupilMeter/pkg/log"
	"PupilMeter/pkg/response"
	"PupilMeter/pkg/utils"
	"errors"
	"github.com/gofiber/fiber/v2"
	fiberUtils "github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

type knownError struct {
	target  error
	status  int
	code    string
	message string
}

var knownErrors = []knownError{
	// Measurement domain errors
	{measurement.ErrSessionNotFound, fiber.StatusNotFound, "SESSION_NOT_FOUND", "Measurement session not found"},
	{measurement.ErrNoMeasurement, fiber.StatusNotFound, "NO_MEASUREMENT", "No measurement available yet"},
	{measurement.ErrInvalidFrame, fiber.StatusBadRequest, "INVALID_FRAME", "Invalid frame"},
	{measurement.ErrInvalidSessionMode, fiber.StatusBadRequest, "INVALID_SESSION_MODE", "Session mode must be auto or manual"},
	{measurement.ErrTooManySessions, fiber.StatusTooManyRequests, "TOO_MANY_SESSIONS", "Too many active measurement sessions"},
	{measurement.ErrLandmarkServiceUnavailable, fiber.StatusServiceUnavailable, "LANDMARK_SERVICE_UNAVAILABLE", "Landmark service unavailable"},

	// Upload errors
	{utils.ErrNoFile, fiber.StatusBadRequest, "NO_FILE", "No image uploaded"},
	{utils.ErrNotAnImage, fiber.StatusBadRequest, "INVALID_FILE_TYPE", "Invalid file type. Only images are allowed."},
	{utils.ErrFileTooLarge, fiber.StatusBadRequest, "FILE_TOO_LARGE", "File too large. Maximum size is 5MB."},
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	fields := log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}

	for _, known := range knownErrors {
		if !errors.Is(err, known.target) {
			continue
		}
		fields["code"] = known.code
		if known.status >= fiber.StatusInternalServerError {
			h.logger.WithFields(fields).Error(known.message)
		} else {
			h.logger.WithFields(fields).Warn(known.message)
		}
		return c.Status(known.status).JSON(ErrorResponse{
			Error: known.message,
			Code:  known.code,
		})
	}

	if errors.Is(err, measurement.ErrInternalServerError) {
		h.logger.WithFields(fields).Error("Internal server error")
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "Internal server error",
			Code:  "INTERNAL_SERVER_ERROR",
		})
	}

	if code, msg, ok := response.StatusOf(err); ok {
		fields["code"] = code
		h.logger.WithFields(fields).Warn("Operation failed with error response")
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		h.logger.WithFields(fields).Warn("Request rejected")
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
	}

	traceID := log.ErrorWithTraceID(fields, "Unexpected error")

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":    "An unexpected error occurred",
		"trace_id": traceID,
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Validation failed: " + err.Error(),
		"code":  "VALIDATION_ERROR",
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(fiberUtils.StatusMessage(fiber.StatusRequestTimeout))
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
