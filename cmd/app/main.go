package main

import (
	"PupilMeter/internal/config"
	"PupilMeter/pkg/log"
	"PupilMeter/pkg/redis"
	websocketPkg "PupilMeter/pkg/websocket"
	"github.com/joho/godotenv"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.NewLogger().Fatalf("Error loading .env file: %v", err)
	}
	logger := log.NewLogger()

	validator := config.NewValidator()

	configPath := os.Getenv("MEASUREMENT_CONFIG_PATH")
	if configPath == "" {
		configPath = config.DefaultMeasurementConfigPath
	}
	measurementConfig, err := config.LoadMeasurementConfig(configPath, validator)
	if err != nil {
		logger.Fatalf("Error loading measurement config: %v", err)
	}

	fiberApp := config.NewFiber(logger)
	redisServer := redis.New()
	landmarkClient := websocketPkg.NewLandmarkClient(logger)

	options := []config.ServerOption{
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithValidator(validator),
		config.WithRedisServer(redisServer),
		config.WithLandmarkClient(landmarkClient),
		config.WithMeasurementConfig(measurementConfig),
		config.WithMiddleware(),
		config.WithUtils(),
	}
	if os.Getenv("DATABASE_URL") != "" || os.Getenv("DB_HOST") != "" {
		options = append(options, config.WithDatabase())
	} else {
		logger.Warn("No database configured, measurement history is disabled")
	}

	server, err := config.NewServer(options...)
	if err != nil {
		logger.Fatal(err)
	}

	server.RegisterHandler()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.Info("Server started successfully")

	<-sigChan
	logger.Info("Shutting down server...")

	if err := server.Shutdown(); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
}
