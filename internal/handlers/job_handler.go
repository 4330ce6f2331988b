package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/repositories"
	"alfredoptarigan/resume-matcher/internal/services"
)

type JobHandler struct {
	jobRepo     repositories.JobRepository
	searchIndex services.JobSearchIndex
	queue       TaskQueue
}

func NewJobHandler(
	jobRepo repositories.JobRepository,
	searchIndex services.JobSearchIndex,
	queue TaskQueue,
) *JobHandler {
	return &JobHandler{
		jobRepo:     jobRepo,
		searchIndex: searchIndex,
		queue:       queue,
	}
}

// HandleCreate handles POST /jobs
func (h *JobHandler) HandleCreate(c *fiber.Ctx) error {
	var req models.CreateJobRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)

	if req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "title is required",
		})
	}

	if req.Description == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "description is required",
		})
	}

	job := &models.Job{
		ID:          uuid.New(),
		Title:       req.Title,
		Description: req.Description,
		Analysis:    models.Analysis{Status: models.StatusQueued},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := h.jobRepo.Create(job); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create job",
		})
	}

	h.queue.Enqueue(newTask(c, services.KindJob, job.ID))

	return c.Status(fiber.StatusCreated).JSON(job)
}

// HandleGet handles GET /jobs/:id
func (h *JobHandler) HandleGet(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid job ID format",
		})
	}

	job, err := h.jobRepo.FindByID(id)
	if err != nil {
		return lookupError(c, err, "Job not found")
	}

	return c.JSON(job)
}

// HandleList handles GET /jobs
func (h *JobHandler) HandleList(c *fiber.Ctx) error {
	limit, offset := pagination(c)

	jobs, err := h.jobRepo.List(limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list jobs",
		})
	}

	return c.JSON(fiber.Map{
		"jobs":   jobs,
		"limit":  limit,
		"offset": offset,
	})
}

// HandleSearch handles GET /jobs/search?q=
func (h *JobHandler) HandleSearch(c *fiber.Ctx) error {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "q is required",
		})
	}

	limit, _ := pagination(c)

	hits, err := h.searchIndex.Search(q, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "job search failed",
		})
	}

	return c.JSON(fiber.Map{
		"query": q,
		"hits":  hits,
	})
}

// HandleReprocess handles POST /jobs/:id/reprocess
func (h *JobHandler) HandleReprocess(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid job ID format",
		})
	}

	if err := h.jobRepo.UpdateStatus(id, models.StatusQueued); err != nil {
		return lookupError(c, err, "Job not found")
	}

	h.queue.Enqueue(newTask(c, services.KindJob, id))

	return c.Status(fiber.StatusAccepted).JSON(models.QueuedResponse{
		ID:     id.String(),
		Status: string(models.StatusQueued),
	})
}
