package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"annotation-service/internal/models"
	"annotation-service/internal/repository"
	"annotation-service/internal/services"
)

// WorkerHandler defines handlers for worker profiles and attachments.
type WorkerHandler struct {
	Workers     repository.WorkerRepository
	Attachments *services.AttachmentService
}

// NewWorkerHandler creates a new WorkerHandler.
func NewWorkerHandler(workers repository.WorkerRepository, attachments *services.AttachmentService) *WorkerHandler {
	return &WorkerHandler{Workers: workers, Attachments: attachments}
}

// GetMe handles GET /workers/me, returning the authenticated worker's
// profile.
// @Summary Get the caller's worker profile
// @Tags workers
// @Produce json
// @Success 200 {object} map[string]interface{} "Worker profile"
// @Failure 404 {object} map[string]interface{} "Worker not found"
// @Router /workers/me [get]
func (h *WorkerHandler) GetMe(c *fiber.Ctx) error {
	workerID, err := callerID(c)
	if err != nil {
		return respondError(c, err)
	}
	worker, err := h.Workers.GetByID(workerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false, "message": "worker not found",
			})
		}
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "worker retrieved", worker)
}

// UploadResume handles POST /workers/me/resume. The file arrives as
// multipart form data under the "file" key.
// @Summary Upload the caller's resume
// @Description Accepts PDF, DOC or DOCX and stores it in object storage
// @Tags workers
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Resume file"
// @Success 200 {object} map[string]interface{} "Updated worker"
// @Failure 400 {object} map[string]interface{} "Missing or unsupported file"
// @Router /workers/me/resume [post]
func (h *WorkerHandler) UploadResume(c *fiber.Ctx) error {
	workerID, err := callerID(c)
	if err != nil {
		return respondError(c, err)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": "file is required",
		})
	}

	worker, err := h.Attachments.UploadResume(c.Context(), workerID, fileHeader)
	if err != nil {
		log.Printf("Resume upload failed: Worker=%s Error=%v", workerID, err)
		return respondError(c, err)
	}
	log.Printf("Resume uploaded: Worker=%s URL=%s", workerID, worker.ResumeURL)
	return respond(c, fiber.StatusOK, "resume uploaded", worker)
}

// UploadPortfolio handles POST /workers/me/portfolio. The archive is
// extracted and every contained file stored individually.
// @Summary Upload the caller's portfolio archive
// @Description Accepts a zip or rar archive of portfolio pieces
// @Tags workers
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Portfolio archive"
// @Success 200 {object} map[string]interface{} "Updated worker"
// @Failure 400 {object} map[string]interface{} "Missing or unsupported archive"
// @Router /workers/me/portfolio [post]
func (h *WorkerHandler) UploadPortfolio(c *fiber.Ctx) error {
	workerID, err := callerID(c)
	if err != nil {
		return respondError(c, err)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": "file is required",
		})
	}

	worker, err := h.Attachments.UploadPortfolio(c.Context(), workerID, fileHeader)
	if err != nil {
		log.Printf("Portfolio upload failed: Worker=%s Error=%v", workerID, err)
		return respondError(c, err)
	}
	log.Printf("Portfolio uploaded: Worker=%s Files=%d", workerID, len(worker.PortfolioURLs))
	return respond(c, fiber.StatusOK, "portfolio uploaded", worker)
}

type annotatorStatusRequest struct {
	Status models.AnnotatorStatus `json:"status"`
}

// UpdateAnnotatorStatus handles PATCH /workers/:id/status, the admin action
// that approves, rejects or suspends an annotator.
// @Summary Update a worker's annotator status
// @Tags workers
// @Accept json
// @Produce json
// @Param id path string true "Worker ID"
// @Param status body annotatorStatusRequest true "New annotator status"
// @Success 200 {object} map[string]interface{} "Updated worker"
// @Failure 400 {object} map[string]interface{} "Unknown status"
// @Failure 404 {object} map[string]interface{} "Worker not found"
// @Router /workers/{id}/status [patch]
func (h *WorkerHandler) UpdateAnnotatorStatus(c *fiber.Ctx) error {
	workerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": InvalidUuidError,
		})
	}

	var req annotatorStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": "invalid request body: " + err.Error(),
		})
	}
	if !models.ValidAnnotatorStatus(req.Status) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": "unknown annotator status",
		})
	}

	if _, err := h.Workers.GetByID(workerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false, "message": "worker not found",
			})
		}
		return respondError(c, err)
	}
	if err := h.Workers.UpdateAnnotatorStatus(workerID, req.Status); err != nil {
		log.Printf("Annotator status update failed: Worker=%s Error=%v", workerID, err)
		return respondError(c, err)
	}

	worker, err := h.Workers.GetByID(workerID)
	if err != nil {
		return respondError(c, err)
	}
	log.Printf("Annotator status updated: Worker=%s Status=%s", workerID, req.Status)
	return respond(c, fiber.StatusOK, "annotator status updated", worker)
}
