package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"annotation-service/internal/models"
	"annotation-service/internal/services"
)

// ProjectHandler defines handlers for managing annotation projects.
type ProjectHandler struct {
	Service *services.ProjectService
}

// NewProjectHandler creates a new ProjectHandler with the given ProjectService.
func NewProjectHandler(service *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{Service: service}
}

// CreateProject handles POST /projects to create a new annotation project.
// @Summary Create a project
// @Description Creates an annotation project in draft status
// @Tags projects
// @Accept json
// @Produce json
// @Param project body services.CreateProjectInput true "Project fields"
// @Success 201 {object} map[string]interface{} "Created project"
// @Failure 400 {object} map[string]interface{} "Invalid input"
// @Router /projects [post]
func (h *ProjectHandler) CreateProject(c *fiber.Ctx) error {
	adminID, err := callerID(c)
	if err != nil {
		return respondError(c, err)
	}

	var input services.CreateProjectInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": "invalid request body: " + err.Error(),
		})
	}

	project, err := h.Service.Create(input, adminID)
	if err != nil {
		log.Printf("Project creation failed: %v", err)
		return respondError(c, err)
	}
	return respond(c, fiber.StatusCreated, "project created", project)
}

// ListProjects handles GET /projects to retrieve all projects.
// @Summary List projects
// @Tags projects
// @Produce json
// @Success 200 {object} map[string]interface{} "All projects"
// @Router /projects [get]
func (h *ProjectHandler) ListProjects(c *fiber.Ctx) error {
	projects, err := h.Service.List()
	if err != nil {
		log.Printf("Error listing projects: %v", err)
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "projects retrieved", projects)
}

// GetProject handles GET /projects/:id to retrieve a single project.
// @Summary Get a project by ID
// @Tags projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} map[string]interface{} "Project found"
// @Failure 400 {object} map[string]interface{} "Invalid UUID"
// @Failure 404 {object} map[string]interface{} "Project not found"
// @Router /projects/{id} [get]
func (h *ProjectHandler) GetProject(c *fiber.Ctx) error {
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": InvalidUuidError,
		})
	}
	project, err := h.Service.Get(projectID)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "project retrieved", project)
}

type updateProjectRequest struct {
	Status        models.ProjectStatus `json:"status"`
	MaxAnnotators *int                 `json:"max_annotators"`
}

// UpdateProject handles PATCH /projects/:id to change status or capacity.
// @Summary Update project status or capacity
// @Tags projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param update body updateProjectRequest true "Fields to change"
// @Success 200 {object} map[string]interface{} "Updated project"
// @Failure 400 {object} map[string]interface{} "Invalid input"
// @Failure 404 {object} map[string]interface{} "Project not found"
// @Router /projects/{id} [patch]
func (h *ProjectHandler) UpdateProject(c *fiber.Ctx) error {
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": InvalidUuidError,
		})
	}

	var req updateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": "invalid request body: " + err.Error(),
		})
	}

	var project *models.Project
	if req.Status != "" {
		project, err = h.Service.UpdateStatus(projectID, req.Status)
		if err != nil {
			return respondError(c, err)
		}
	}
	if req.MaxAnnotators != nil {
		project, err = h.Service.UpdateCapacity(projectID, req.MaxAnnotators)
		if err != nil {
			return respondError(c, err)
		}
	}
	if project == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": "nothing to update",
		})
	}
	log.Printf("Project updated: ID=%s Status=%s", projectID, project.Status)
	return respond(c, fiber.StatusOK, "project updated", project)
}

// DeleteProject handles DELETE /projects/:id. Projects with live
// applications fail with a structured error carrying requiresOTP, directing
// the caller to the two-phase deletion flow.
// @Summary Delete a project
// @Tags projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} map[string]interface{} "Deletion manifest"
// @Failure 400 {object} map[string]interface{} "Active applications require OTP"
// @Failure 404 {object} map[string]interface{} "Project not found"
// @Router /projects/{id} [delete]
func (h *ProjectHandler) DeleteProject(c *fiber.Ctx) error {
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": InvalidUuidError,
		})
	}

	manifest, err := h.Service.Delete(c.Context(), projectID)
	if err != nil {
		log.Printf("Project delete refused: ID=%s Error=%v", projectID, err)
		return respondError(c, err)
	}
	log.Printf("Project deleted: ID=%s Applications=%d", projectID, manifest.DeletedApplications.Total)
	return respond(c, fiber.StatusOK, "project deleted", manifest)
}

type deletionOTPRequest struct {
	Reason string `json:"reason"`
}

// RequestDeletionOTP handles POST /projects/:id/deletion-otp, phase one of
// the force-delete protocol.
// @Summary Request a deletion approval code
// @Description Emails a one-time deletion code to the Projects Officer
// @Tags projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param request body deletionOTPRequest true "Deletion reason"
// @Success 200 {object} map[string]interface{} "Code requested"
// @Failure 400 {object} map[string]interface{} "Invalid input"
// @Failure 404 {object} map[string]interface{} "Project not found"
// @Router /projects/{id}/deletion-otp [post]
func (h *ProjectHandler) RequestDeletionOTP(c *fiber.Ctx) error {
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": InvalidUuidError,
		})
	}
	adminID, err := callerID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req deletionOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": "invalid request body: " + err.Error(),
		})
	}

	result, err := h.Service.RequestDeletionOTP(c.Context(), projectID, adminID, callerEmail(c), req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "deletion code sent to the projects officer", result)
}

type verifyOTPRequest struct {
	OTP          string `json:"otp"`
	Confirmation string `json:"confirmation"`
}

// VerifyOTPAndDelete handles POST /projects/:id/deletion-otp/verify, phase
// two of the force-delete protocol.
// @Summary Verify a deletion code and delete the project
// @Tags projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param request body verifyOTPRequest true "One-time code"
// @Success 200 {object} map[string]interface{} "Deletion manifest"
// @Failure 400 {object} map[string]interface{} "Invalid, expired or used code"
// @Failure 404 {object} map[string]interface{} "Project not found"
// @Router /projects/{id}/deletion-otp/verify [post]
func (h *ProjectHandler) VerifyOTPAndDelete(c *fiber.Ctx) error {
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": InvalidUuidError,
		})
	}
	adminID, err := callerID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil || req.OTP == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": "a one-time code is required",
		})
	}

	manifest, err := h.Service.VerifyOTPAndDelete(c.Context(), projectID, adminID, req.OTP, req.Confirmation)
	if err != nil {
		log.Printf("Force delete refused: ID=%s Error=%v", projectID, err)
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, "project deleted", manifest)
}
