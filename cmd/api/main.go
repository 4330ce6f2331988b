package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"alfredoptarigan/resume-matcher/internal/bootstrap"
	"alfredoptarigan/resume-matcher/internal/config"
	"alfredoptarigan/resume-matcher/internal/handlers"
	"alfredoptarigan/resume-matcher/internal/logger"
	"alfredoptarigan/resume-matcher/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	slog.SetDefault(log)
	log.Info("config loaded", "env", cfg.Server.Env)

	// Initialize database
	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		fatal(log, "failed to initialize database", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize pipeline services
	pipeline, err := bootstrap.NewPipeline(ctx, cfg, db, log)
	if err != nil {
		fatal(log, "failed to initialize pipeline", err)
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			log.Warn("failed to close pipeline", "error", err)
		}
	}()
	log.Info("services initialized")

	matchService := services.NewMatchService(pipeline.ResumeRepo, pipeline.JobRepo, pipeline.VectorIndex, log)
	advisorService := services.NewAdvisorService(pipeline.Generator, cfg.LLM.MaxRetries, log)

	// Initialize worker
	worker := services.NewWorker(
		pipeline.ResumeRepo,
		pipeline.JobRepo,
		pipeline.Processor,
		services.WorkerOptions{
			Concurrency:  cfg.Worker.Concurrency,
			QueueSize:    cfg.Worker.QueueSize,
			PollInterval: cfg.Worker.PollInterval,
			PollBatch:    cfg.Worker.PollBatch,
		},
		log,
	)
	worker.Start(ctx)

	// Initialize Handlers
	resumeHandler := handlers.NewResumeHandler(
		pipeline.ResumeRepo,
		pipeline.Storage,
		worker,
		cfg.Storage.MaxFileSize,
		log,
	)
	jobHandler := handlers.NewJobHandler(pipeline.JobRepo, pipeline.SearchIndex, worker)
	matchHandler := handlers.NewMatchHandler(matchService)
	advisorHandler := handlers.NewAdvisorHandler(advisorService, pipeline.ResumeRepo, pipeline.JobRepo)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Resume Matcher API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * cfg.LLM.Timeout,
		BodyLimit:    int(cfg.Storage.MaxFileSize) + 1024*1024,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(handlers.CorrelationMiddleware)
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path} ${locals:requestid}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))

	// Routes
	api := app.Group("/api/v1")
	handlers.RegisterRoutes(api, handlers.Handlers{
		Resume:  resumeHandler,
		Job:     jobHandler,
		Match:   matchHandler,
		Advisor: advisorHandler,
	})

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Resume Matcher API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/resumes",
				"GET /api/v1/resumes/:id",
				"POST /api/v1/jobs",
				"GET /api/v1/jobs/search?q=",
				"GET /api/v1/match/:resume_id/:job_id",
				"GET /api/v1/match/latest?resume_id=",
				"GET /api/v1/resumes/:id/similar-jobs",
				"POST /api/v1/interview-questions",
				"POST /api/v1/career-insights",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("shutting down server")
		worker.Stop()
		cancel()
		if err := app.Shutdown(); err != nil {
			log.Error("server forced to shutdown", "error", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("server starting", "addr", addr)

	if err := app.Listen(addr); err != nil {
		log.Error("failed to start server", "error", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}
