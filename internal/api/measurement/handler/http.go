package measurementHandler

import (
	measurementService "PupilMeter/internal/api/measurement/service"
	"PupilMeter/internal/middleware"
	"PupilMeter/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type MeasurementHandler struct {
	log                *logrus.Logger
	validator          *validator.Validate
	middleware         middleware.Middleware
	measurementService measurementService.IMeasurementService
	utils              utils.IUtils
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	ms measurementService.IMeasurementService,
	utils utils.IUtils,
) *MeasurementHandler {
	return &MeasurementHandler{
		log:                log,
		validator:          validator,
		middleware:         middleware,
		measurementService: ms,
		utils:              utils,
	}
}

func (h *MeasurementHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	sessions := srv.Group("/measurement/sessions")

	sessions.Post("", h.middleware.NewRateLimiter, h.StartSession)
	sessions.Delete("/:id", h.middleware.NewRateLimiter, h.StopSession)
	sessions.Get("/:id/status", h.GetStatus)
	sessions.Get("/:id/measurement", h.GetMeasurement)
	sessions.Get("/:id/history", h.middleware.NewRateLimiter, h.GetHistory)
	sessions.Post("/:id/trigger", h.middleware.NewRateLimiter, h.TriggerMeasurement)
	sessions.Post("/:id/frames", h.middleware.NewFrameRateLimiter, h.SubmitFrame)
	sessions.Post("/:id/image", h.middleware.NewFrameRateLimiter, h.SubmitImage)

	sessions.Use("/:id/ws", wsMiddleware)
	sessions.Get("/:id/ws", websocket.New(h.handleWebSocket))
}
