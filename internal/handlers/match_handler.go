package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/resume-matcher/internal/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(matchService services.MatchService) *MatchHandler {
	return &MatchHandler{
		matchService: matchService,
	}
}

// HandleMatch handles GET /match/:resume_id/:job_id
func (h *MatchHandler) HandleMatch(c *fiber.Ctx) error {
	resumeID, err := parseIDParam(c, "resume_id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid resume ID format",
		})
	}

	jobID, err := parseIDParam(c, "job_id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid job ID format",
		})
	}

	report, err := h.matchService.Match(c.UserContext(), resumeID, jobID)
	if err != nil {
		return lookupError(c, err, "Resume or job not found")
	}

	return c.JSON(report)
}

// HandleMatchLatest handles GET /match/latest?resume_id=
func (h *MatchHandler) HandleMatchLatest(c *fiber.Ctx) error {
	resumeID, err := uuid.Parse(c.Query("resume_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "resume_id query parameter must be a valid ID",
		})
	}

	report, err := h.matchService.MatchLatest(c.UserContext(), resumeID)
	if err != nil {
		return lookupError(c, err, "Resume or job not found")
	}

	return c.JSON(report)
}

// HandleSimilarJobs handles GET /resumes/:id/similar-jobs
func (h *MatchHandler) HandleSimilarJobs(c *fiber.Ctx) error {
	resumeID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid resume ID format",
		})
	}

	limit := c.QueryInt("limit", services.DefaultSimilarJobsLimit)

	jobs, err := h.matchService.SimilarJobs(c.UserContext(), resumeID, limit)
	if errors.Is(err, services.ErrVectorIndexUnavailable) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "similar job search is not available",
		})
	}
	if err != nil {
		return lookupError(c, err, "Resume not found")
	}

	return c.JSON(fiber.Map{
		"resume_id": resumeID.String(),
		"jobs":      jobs,
	})
}
