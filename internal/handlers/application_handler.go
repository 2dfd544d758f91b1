package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"annotation-service/internal/models"
	"annotation-service/internal/services"
)

// ApplicationHandler defines handlers for the application lifecycle.
type ApplicationHandler struct {
	Service *services.ApplicationService
}

// NewApplicationHandler creates a new ApplicationHandler with the given
// ApplicationService.
func NewApplicationHandler(service *services.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{Service: service}
}

// Apply handles POST /projects/:id/applications. The applicant is the
// authenticated worker.
// @Summary Apply to a project
// @Tags applications
// @Produce json
// @Param id path string true "Project ID"
// @Success 201 {object} map[string]interface{} "Created application"
// @Failure 400 {object} map[string]interface{} "Resume missing or project not accepting"
// @Failure 401 {object} map[string]interface{} "Caller is already an approved annotator"
// @Failure 409 {object} map[string]interface{} "Duplicate application"
// @Router /projects/{id}/applications [post]
func (h *ApplicationHandler) Apply(c *fiber.Ctx) error {
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": InvalidUuidError,
		})
	}
	workerID, err := callerID(c)
	if err != nil {
		return respondError(c, err)
	}

	app, err := h.Service.Apply(c.Context(), workerID, projectID)
	if err != nil {
		log.Printf("Application refused: Project=%s Worker=%s Error=%v", projectID, workerID, err)
		return respondError(c, err)
	}
	log.Printf("Application created: ID=%s Project=%s Worker=%s Status=%s", app.ID, projectID, workerID, app.Status)
	return respond(c, fiber.StatusCreated, "application submitted", app)
}

// ListByProject handles GET /projects/:id/applications.
// @Summary List applications for a project
// @Tags applications
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} map[string]interface{} "Applications"
// @Router /projects/{id}/applications [get]
func (h *ApplicationHandler) ListByProject(c *fiber.Ctx) error {
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": InvalidUuidError,
		})
	}
	apps, err := h.Service.ListByProject(projectID)
	if err != nil {
		log.Printf("Error listing applications: Project=%s Error=%v", projectID, err)
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "applications retrieved", apps)
}

// GetApplication handles GET /applications/:id.
// @Summary Get an application by ID
// @Tags applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} map[string]interface{} "Application found"
// @Failure 404 {object} map[string]interface{} "Application not found"
// @Router /applications/{id} [get]
func (h *ApplicationHandler) GetApplication(c *fiber.Ctx) error {
	applicationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": InvalidUuidError,
		})
	}
	app, err := h.Service.Get(applicationID)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "application retrieved", app)
}

type reviewRequest struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes"`
}

// Approve handles PATCH /applications/:id/approve.
// @Summary Approve a pending application
// @Tags applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param review body reviewRequest true "Review notes"
// @Success 200 {object} map[string]interface{} "Approved application"
// @Failure 400 {object} map[string]interface{} "Not pending or project at capacity"
// @Router /applications/{id}/approve [patch]
func (h *ApplicationHandler) Approve(c *fiber.Ctx) error {
	applicationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": InvalidUuidError,
		})
	}
	reviewerID, err := callerID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req reviewRequest
	_ = c.BodyParser(&req)

	app, err := h.Service.Approve(c.Context(), applicationID, reviewerID, req.Notes)
	if err != nil {
		log.Printf("Approval refused: ID=%s Error=%v", applicationID, err)
		return respondError(c, err)
	}
	log.Printf("Application approved: ID=%s Reviewer=%s", applicationID, reviewerID)
	return respond(c, fiber.StatusOK, "application approved", app)
}

// Reject handles PATCH /applications/:id/reject.
// @Summary Reject a pending application
// @Tags applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param review body reviewRequest true "Rejection reason and notes"
// @Success 200 {object} map[string]interface{} "Rejected application"
// @Failure 400 {object} map[string]interface{} "Application is not pending"
// @Router /applications/{id}/reject [patch]
func (h *ApplicationHandler) Reject(c *fiber.Ctx) error {
	applicationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": InvalidUuidError,
		})
	}
	reviewerID, err := callerID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req reviewRequest
	_ = c.BodyParser(&req)
	reason := models.NormalizeRejectionReason(models.RejectionReason(req.Reason))

	app, err := h.Service.Reject(c.Context(), applicationID, reviewerID, reason, req.Notes)
	if err != nil {
		log.Printf("Rejection refused: ID=%s Error=%v", applicationID, err)
		return respondError(c, err)
	}
	log.Printf("Application rejected: ID=%s Reason=%s", applicationID, reason)
	return respond(c, fiber.StatusOK, "application rejected", app)
}

type bulkRejectRequest struct {
	ApplicationIDs []string `json:"application_ids"`
	Reason         string   `json:"reason"`
	Notes          string   `json:"notes"`
}

// BulkReject handles POST /applications/bulk-reject.
// @Summary Reject many pending applications at once
// @Tags applications
// @Accept json
// @Produce json
// @Param request body bulkRejectRequest true "Application IDs and shared reason"
// @Success 200 {object} map[string]interface{} "Bulk rejection summary"
// @Failure 400 {object} map[string]interface{} "Invalid input"
// @Router /applications/bulk-reject [post]
func (h *ApplicationHandler) BulkReject(c *fiber.Ctx) error {
	reviewerID, err := callerID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req bulkRejectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": "invalid request body: " + err.Error(),
		})
	}
	if len(req.ApplicationIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": "application_ids must not be empty",
		})
	}

	ids := make([]uuid.UUID, 0, len(req.ApplicationIDs))
	for _, raw := range req.ApplicationIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false, "message": InvalidUuidError,
			})
		}
		ids = append(ids, id)
	}

	reason := models.NormalizeRejectionReason(models.RejectionReason(req.Reason))
	result, err := h.Service.RejectBulk(c.Context(), ids, reviewerID, reason, req.Notes)
	if err != nil {
		log.Printf("Bulk rejection failed: %v", err)
		return respondError(c, err)
	}
	log.Printf("Bulk rejection: Requested=%d Rejected=%d NotificationFailures=%d",
		result.Requested, result.Rejected, result.NotificationFailures)
	return respond(c, fiber.StatusOK, "applications rejected", result)
}

// RemoveApproved handles PATCH /applications/:id/remove, taking an approved
// annotator off a project.
// @Summary Remove an approved annotator from a project
// @Tags applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param review body reviewRequest true "Removal reason and notes"
// @Success 200 {object} map[string]interface{} "Removed application"
// @Failure 400 {object} map[string]interface{} "Application is not approved"
// @Router /applications/{id}/remove [patch]
func (h *ApplicationHandler) RemoveApproved(c *fiber.Ctx) error {
	applicationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": InvalidUuidError,
		})
	}
	adminID, err := callerID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req reviewRequest
	_ = c.BodyParser(&req)

	app, err := h.Service.RemoveApproved(c.Context(), applicationID, adminID, callerEmail(c), req.Reason, req.Notes)
	if err != nil {
		log.Printf("Removal refused: ID=%s Error=%v", applicationID, err)
		return respondError(c, err)
	}
	log.Printf("Annotator removed: Application=%s Admin=%s", applicationID, adminID)
	return respond(c, fiber.StatusOK, "annotator removed from project", app)
}

// Withdraw handles PATCH /applications/:id/withdraw. Only the applicant can
// withdraw their own pending application.
// @Summary Withdraw a pending application
// @Tags applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} map[string]interface{} "Withdrawn application"
// @Failure 400 {object} map[string]interface{} "Application is not pending"
// @Failure 403 {object} map[string]interface{} "Not the applicant"
// @Router /applications/{id}/withdraw [patch]
func (h *ApplicationHandler) Withdraw(c *fiber.Ctx) error {
	applicationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": InvalidUuidError,
		})
	}
	workerID, err := callerID(c)
	if err != nil {
		return respondError(c, err)
	}

	app, err := h.Service.Withdraw(c.Context(), applicationID, workerID)
	if err != nil {
		log.Printf("Withdrawal refused: ID=%s Error=%v", applicationID, err)
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "application withdrawn", app)
}

type assessmentRequest struct {
	Score  int  `json:"score"`
	Passed bool `json:"passed"`
}

// SubmitAssessment handles POST /applications/:id/assessment, resolving an
// assessment-gated application into pending or rejected.
// @Summary Record an assessment result
// @Tags applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param result body assessmentRequest true "Assessment outcome"
// @Success 200 {object} map[string]interface{} "Resolved application"
// @Failure 400 {object} map[string]interface{} "Application does not require assessment"
// @Router /applications/{id}/assessment [post]
func (h *ApplicationHandler) SubmitAssessment(c *fiber.Ctx) error {
	applicationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": InvalidUuidError,
		})
	}

	var req assessmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": "invalid request body: " + err.Error(),
		})
	}

	app, err := h.Service.SubmitAssessment(c.Context(), applicationID, req.Score, req.Passed)
	if err != nil {
		log.Printf("Assessment refused: ID=%s Error=%v", applicationID, err)
		return respondError(c, err)
	}
	log.Printf("Assessment recorded: ID=%s Score=%d Passed=%t Status=%s", applicationID, req.Score, req.Passed, app.Status)
	return respond(c, fiber.StatusOK, "assessment recorded", app)
}
