package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/repositories"
	"alfredoptarigan/resume-matcher/internal/services"
)

var errInvalidID = errors.New("invalid ID format")

type AdvisorHandler struct {
	advisor    services.AdvisorService
	resumeRepo repositories.ResumeRepository
	jobRepo    repositories.JobRepository
}

func NewAdvisorHandler(
	advisor services.AdvisorService,
	resumeRepo repositories.ResumeRepository,
	jobRepo repositories.JobRepository,
) *AdvisorHandler {
	return &AdvisorHandler{
		advisor:    advisor,
		resumeRepo: resumeRepo,
		jobRepo:    jobRepo,
	}
}

// HandleInterviewQuestions handles POST /interview-questions
//
// A resume_id supplies the candidate's skills when none were given. A job_id
// fills in title and description, and its required skills only when neither
// the request nor the resume provided any.
func (h *AdvisorHandler) HandleInterviewQuestions(c *fiber.Ctx) error {
	var req models.InterviewQuestionsRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if req.ResumeID != "" && len(req.Skills) == 0 {
		resume, err := h.loadResume(req.ResumeID)
		if err != nil {
			return h.refError(c, err, "Resume not found")
		}
		req.Skills = resume.Skills
	}

	if req.JobID != "" {
		job, err := h.loadJob(req.JobID)
		if err != nil {
			return h.refError(c, err, "Job not found")
		}
		if req.JobTitle == "" {
			req.JobTitle = job.Title
		}
		if req.JobDescription == "" {
			req.JobDescription = job.Description
		}
		if len(req.Skills) == 0 {
			req.Skills = job.Skills
		}
	}

	if strings.TrimSpace(req.JobTitle) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "job_title or job_id is required",
		})
	}

	resp := h.advisor.GenerateInterviewQuestions(c.UserContext(), req.JobTitle, req.JobDescription, req.Skills, req.Count)
	return c.JSON(resp)
}

// HandleCareerInsights handles POST /career-insights
func (h *AdvisorHandler) HandleCareerInsights(c *fiber.Ctx) error {
	var req models.CareerInsightsRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if req.ResumeID != "" && len(req.Skills) == 0 {
		resume, err := h.loadResume(req.ResumeID)
		if err != nil {
			return h.refError(c, err, "Resume not found")
		}
		req.Skills = resume.Skills
	}

	if req.JobID != "" {
		job, err := h.loadJob(req.JobID)
		if err != nil {
			return h.refError(c, err, "Job not found")
		}
		if req.JobTitle == "" {
			req.JobTitle = job.Title
		}
		if req.JobDescription == "" {
			req.JobDescription = job.Description
		}
		if len(req.JobSkills) == 0 {
			req.JobSkills = job.Skills
		}
	}

	resp := h.advisor.CareerInsights(c.UserContext(), req.Skills, req.JobTitle, req.JobDescription, req.JobSkills)
	return c.JSON(resp)
}

func (h *AdvisorHandler) loadJob(rawID string) (*models.Job, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, errInvalidID
	}
	return h.jobRepo.FindByID(id)
}

func (h *AdvisorHandler) loadResume(rawID string) (*models.Resume, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, errInvalidID
	}
	return h.resumeRepo.FindByID(id)
}

func (h *AdvisorHandler) refError(c *fiber.Ctx, err error, notFoundMsg string) error {
	if errors.Is(err, errInvalidID) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid ID format",
		})
	}
	return lookupError(c, err, notFoundMsg)
}
