package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/google/uuid"

	"alfredoptarigan/resume-matcher/internal/bootstrap"
	"alfredoptarigan/resume-matcher/internal/config"
	"alfredoptarigan/resume-matcher/internal/logger"
	"alfredoptarigan/resume-matcher/internal/services"
)

// Re-runs the pipeline for resumes and jobs that failed or were embedded
// with a model other than the configured one.
func main() {
	limit := flag.Int("limit", 500, "maximum documents of each kind to reprocess")
	flag.Parse()

	cfg := config.Load()
	log := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	log.Info("starting document reprocessing", "embedding_model", cfg.Embedding.Model, "limit", *limit)

	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		log.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	pipeline, err := bootstrap.NewPipeline(ctx, cfg, db, log)
	if err != nil {
		log.Error("failed to initialize pipeline", "error", err)
		os.Exit(1)
	}
	defer pipeline.Close()

	model := pipeline.Embeddings.Model()
	if model == "" {
		log.Error("embedding model not configured, nothing to reprocess against")
		os.Exit(1)
	}

	resumes, err := pipeline.ResumeRepo.FindForReprocessing(model, *limit)
	if err != nil {
		log.Error("failed to list resumes", "error", err)
		os.Exit(1)
	}
	jobs, err := pipeline.JobRepo.FindForReprocessing(model, *limit)
	if err != nil {
		log.Error("failed to list jobs", "error", err)
		os.Exit(1)
	}

	var tasks []services.Task
	for _, r := range resumes {
		tasks = append(tasks, services.Task{Kind: services.KindResume, ID: r.ID})
	}
	for _, j := range jobs {
		tasks = append(tasks, services.Task{Kind: services.KindJob, ID: j.ID})
	}

	successCount := 0
	failCount := 0

	for i, task := range tasks {
		taskCtx := logger.WithCorrelationID(ctx, "reprocess-"+uuid.NewString())
		taskLog := log.With("kind", task.Kind, "id", task.ID, "progress", i+1, "total", len(tasks))

		if err := pipeline.Processor.Process(taskCtx, task.Kind, task.ID); err != nil {
			taskLog.Error("reprocessing failed", "error", err)
			failCount++
			continue
		}
		taskLog.Info("document reprocessed")
		successCount++
	}

	// Summary
	log.Info(strings.Repeat("=", 60))
	log.Info("reprocessing summary", "successful", successCount, "failed", failCount)
	log.Info(strings.Repeat("=", 60))

	if failCount > 0 {
		log.Warn("some documents failed to reprocess, check the logs above")
		pipeline.Close()
		os.Exit(1)
	}
}
