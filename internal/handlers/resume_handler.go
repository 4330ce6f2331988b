package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/resume-matcher/internal/logger"
	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/repositories"
	"alfredoptarigan/resume-matcher/internal/services"
)

type ResumeHandler struct {
	resumeRepo     repositories.ResumeRepository
	storageService services.StorageService
	queue          TaskQueue
	maxFileSize    int64
	log            *slog.Logger
}

func NewResumeHandler(
	resumeRepo repositories.ResumeRepository,
	storageService services.StorageService,
	queue TaskQueue,
	maxFileSize int64,
	log *slog.Logger,
) *ResumeHandler {
	return &ResumeHandler{
		resumeRepo:     resumeRepo,
		storageService: storageService,
		queue:          queue,
		maxFileSize:    maxFileSize,
		log:            log.With("component", "resume_handler"),
	}
}

// HandleUpload handles POST /resumes
func (h *ResumeHandler) HandleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "file is required",
		})
	}

	if file.Size > h.maxFileSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("file too large. Max size: %d bytes", h.maxFileSize),
		})
	}

	ctx := c.UserContext()
	key, err := h.storageService.SaveFile(ctx, file, "resume")
	if err != nil {
		if errors.Is(err, services.ErrUnsupportedFileType) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to save file: %v", err),
		})
	}

	resume := &models.Resume{
		ID:               uuid.New(),
		Filename:         key,
		OriginalFileName: file.Filename,
		Format:           models.FormatFromFilename(file.Filename),
		StorageKey:       key,
		Analysis:         models.Analysis{Status: models.StatusQueued},
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}

	if err := h.resumeRepo.Create(resume); err != nil {
		// Cleanup stored file if database insert fails
		if delErr := h.storageService.DeleteFile(ctx, key); delErr != nil {
			logger.FromContext(ctx, h.log).Warn("failed to clean up stored file", "key", key, "error", delErr)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to save resume record",
		})
	}

	h.queue.Enqueue(newTask(c, services.KindResume, resume.ID))

	return c.Status(fiber.StatusCreated).JSON(models.UploadResponse{
		ID:           resume.ID.String(),
		Filename:     resume.Filename,
		OriginalName: resume.OriginalFileName,
		FileType:     string(resume.Format),
		Status:       string(resume.Status),
	})
}

// HandleGet handles GET /resumes/:id
func (h *ResumeHandler) HandleGet(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid resume ID format",
		})
	}

	resume, err := h.resumeRepo.FindByID(id)
	if err != nil {
		return lookupError(c, err, "Resume not found")
	}

	return c.JSON(resume)
}

// HandleList handles GET /resumes
func (h *ResumeHandler) HandleList(c *fiber.Ctx) error {
	limit, offset := pagination(c)

	resumes, err := h.resumeRepo.List(limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list resumes",
		})
	}

	return c.JSON(fiber.Map{
		"resumes": resumes,
		"limit":   limit,
		"offset":  offset,
	})
}

// HandleReprocess handles POST /resumes/:id/reprocess
func (h *ResumeHandler) HandleReprocess(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid resume ID format",
		})
	}

	if err := h.resumeRepo.UpdateStatus(id, models.StatusQueued); err != nil {
		return lookupError(c, err, "Resume not found")
	}

	h.queue.Enqueue(newTask(c, services.KindResume, id))

	return c.Status(fiber.StatusAccepted).JSON(models.QueuedResponse{
		ID:     id.String(),
		Status: string(models.StatusQueued),
	})
}
