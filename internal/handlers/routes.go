package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Resume  *ResumeHandler
	Job     *JobHandler
	Match   *MatchHandler
	Advisor *AdvisorHandler
}

// RegisterRoutes mounts every endpoint on api.
func RegisterRoutes(api fiber.Router, h Handlers) {
	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	api.Post("/resumes", h.Resume.HandleUpload)
	api.Get("/resumes", h.Resume.HandleList)
	api.Get("/resumes/:id", h.Resume.HandleGet)
	api.Post("/resumes/:id/reprocess", h.Resume.HandleReprocess)
	api.Get("/resumes/:id/similar-jobs", h.Match.HandleSimilarJobs)

	api.Post("/jobs", h.Job.HandleCreate)
	api.Get("/jobs", h.Job.HandleList)
	// registered before /jobs/:id so "search" is not read as an id
	api.Get("/jobs/search", h.Job.HandleSearch)
	api.Get("/jobs/:id", h.Job.HandleGet)
	api.Post("/jobs/:id/reprocess", h.Job.HandleReprocess)

	api.Get("/match/latest", h.Match.HandleMatchLatest)
	api.Get("/match/:resume_id/:job_id", h.Match.HandleMatch)

	api.Post("/interview-questions", h.Advisor.HandleInterviewQuestions)
	api.Post("/career-insights", h.Advisor.HandleCareerInsights)
}
