package config

import (
	"PupilMeter/database/postgres"
	measurementHandler "PupilMeter/internal/api/measurement/handler"
	measurementRepository "PupilMeter/internal/api/measurement/repository"
	measurementService "PupilMeter/internal/api/measurement/service"
	"PupilMeter/internal/middleware"
	"PupilMeter/pkg/redis"
	"PupilMeter/pkg/utils"
	websocketPkg "PupilMeter/pkg/websocket"
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"os"
)

type ServerOption func(*Server) error

type Server struct {
	engine            *fiber.App
	db                *sqlx.DB
	log               *logrus.Logger
	middleware        middleware.Middleware
	validator         *validator.Validate
	utils             utils.IUtils
	handlers          []handler
	redisServer       redis.IRedis
	landmarkClient    websocketPkg.IWebsocket
	measurementConfig *MeasurementConfig
	services          []closer
}

type handler interface {
	Start(srv fiber.Router)
}

type closer interface {
	Close()
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.middleware == nil {
		return nil, fmt.Errorf("middleware is required")
	}
	if server.validator == nil {
		server.validator = NewValidator()
	}
	if server.utils == nil {
		server.utils = utils.New()
	}
	if server.measurementConfig == nil {
		cfg := DefaultMeasurementConfig()
		server.measurementConfig = &cfg
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

// WithDatabase connects the measurement history store. Without it the
// service runs with an empty history.
func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithLandmarkClient(client websocketPkg.IWebsocket) ServerOption {
	return func(s *Server) error {
		s.landmarkClient = client
		return nil
	}
}

func WithMeasurementConfig(cfg *MeasurementConfig) ServerOption {
	return func(s *Server) error {
		if cfg == nil {
			return fmt.Errorf("measurement config is nil")
		}
		if err := cfg.Validate(s.validator); err != nil {
			return err
		}
		s.measurementConfig = cfg
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) RegisterHandler() {
	// Measurement Domain
	var measurementRepo measurementRepository.Repository
	if s.db != nil {
		measurementRepo = measurementRepository.New(s.db, s.log)
	}
	measurementServices := measurementService.NewMeasurementService(
		s.log,
		s.measurementConfig.ServiceSettings(),
		measurementRepo,
		s.redisServer,
		s.landmarkClient,
		s.utils,
	)
	measurementHandlers := measurementHandler.New(s.log, s.validator, s.middleware, measurementServices, s.utils)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, measurementHandlers)
	s.services = append(s.services, measurementServices)
}

func (s *Server) Run() error {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())
	router := s.engine.Group("/api/v1")

	for _, h := range s.handlers {
		h.Start(router)
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

// Shutdown stops accepting requests, then releases the services and
// connections the server owns.
func (s *Server) Shutdown() error {
	err := s.engine.Shutdown()

	for _, svc := range s.services {
		svc.Close()
	}
	if s.landmarkClient != nil {
		s.landmarkClient.CloseConnections()
	}
	if s.db != nil {
		if dbErr := s.db.Close(); dbErr != nil && err == nil {
			err = dbErr
		}
	}

	return err
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		landmarks := "disabled"
		if s.landmarkClient != nil {
			landmarks = "disconnected"
			if s.landmarkClient.IsConnected() {
				landmarks = "connected"
			}
		}

		return ctx.JSON(fiber.Map{
			"message":          "Server is Healthy!",
			"landmark_service": landmarks,
		})
	})
}
