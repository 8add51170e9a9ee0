package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/Rhuthvik-D/Kasparro-Assignment/internal/api/handlers"
	rediscache "github.com/Rhuthvik-D/Kasparro-Assignment/internal/cache/redis"
	"github.com/Rhuthvik-D/Kasparro-Assignment/internal/ingestion"
	"github.com/Rhuthvik-D/Kasparro-Assignment/internal/insights"
	"github.com/Rhuthvik-D/Kasparro-Assignment/internal/llm"
	"github.com/Rhuthvik-D/Kasparro-Assignment/internal/metrics"
	"github.com/Rhuthvik-D/Kasparro-Assignment/internal/report"
	"github.com/Rhuthvik-D/Kasparro-Assignment/internal/storage/sqlite"
	"github.com/Rhuthvik-D/Kasparro-Assignment/pkg/config"
	appLogger "github.com/Rhuthvik-D/Kasparro-Assignment/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Market Intelligence API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	cacheClient, err := rediscache.NewClient(
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.TTLSec,
	)
	if err != nil {
		appLogger.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer cacheClient.Close()

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
		cfg.LLM.TimeoutSec,
	)

	service := report.NewService(
		ingestion.NewProcessor(),
		insights.NewEngine(),
		sqliteClient,
		cacheClient,
		llmClient,
		cfg.LLM.Model,
		cfg.Pipeline.DatasetPath,
	)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	reportHandler := handlers.NewReportHandler(service)
	dashboardHandler := handlers.NewDashboardHandler(service)
	pipelineHandler := handlers.NewPipelineHandler(service)
	wsHandler := handlers.NewWebSocketHandler(service)

	api := app.Group("/api/v1")

	api.Post("/pipeline/run", pipelineHandler.RunPipeline)
	api.Get("/pipeline/runs", pipelineHandler.GetRuns)

	api.Get("/insights", reportHandler.GetInsights)
	api.Get("/report", reportHandler.GetReport)
	api.Get("/report/markdown", reportHandler.DownloadNarrative)

	api.Get("/summary", dashboardHandler.GetSummary)
	api.Get("/channels", dashboardHandler.GetChannels)
	api.Get("/channels/:channel", dashboardHandler.GetChannelBreakdown)

	api.Get("/ws/pipeline", websocket.New(wsHandler.HandleConnection))

	app.Get("/metrics", metrics.MetricsHandler())

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
