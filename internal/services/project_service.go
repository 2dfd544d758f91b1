package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"annotation-service/internal/apperrors"
	"annotation-service/internal/metrics"
	"annotation-service/internal/models"
	"annotation-service/internal/notification"
	"annotation-service/internal/repository"
)

const (
	deletionOTPTTL         = 15 * time.Minute
	deletionOTPMaxAttempts = 5
	deletionOTPLength      = 6
)

// ProjectService manages project lifecycle, capacity settings and the
// two-phase OTP-authorized force deletion of projects with live work.
type ProjectService struct {
	Projects   repository.ProjectRepository
	Apps       repository.ApplicationRepository
	Dispatcher *notification.Dispatcher
	Metrics    *metrics.Metrics

	// OfficerEmail is the fixed Projects Officer mailbox that receives
	// deletion codes, independent of the requesting admin.
	OfficerEmail string
}

// NewProjectService creates a new ProjectService.
func NewProjectService(projects repository.ProjectRepository, apps repository.ApplicationRepository, dispatcher *notification.Dispatcher, m *metrics.Metrics, officerEmail string) *ProjectService {
	return &ProjectService{
		Projects:     projects,
		Apps:         apps,
		Dispatcher:   dispatcher,
		Metrics:      m,
		OfficerEmail: officerEmail,
	}
}

// CreateProjectInput carries the admin-supplied fields for a new project.
type CreateProjectInput struct {
	Name               string                 `json:"name"`
	Description        string                 `json:"description"`
	Category           models.ProjectCategory `json:"category"`
	PayRate            string                 `json:"pay_rate"`
	Currency           string                 `json:"currency"`
	RateType           models.RateType        `json:"rate_type"`
	MaxAnnotators      *int                   `json:"max_annotators"`
	GuidelineURL       string                 `json:"guideline_url"`
	RequiresAssessment bool                   `json:"requires_assessment"`
	AssessmentURL      string                 `json:"assessment_url"`
}

// DeletionManifest itemizes everything removed by a project deletion.
type DeletionManifest struct {
	ProjectID   uuid.UUID `json:"project_id"`
	ProjectName string    `json:"project_name"`

	DeletedApplications struct {
		Total    int64 `json:"total"`
		Pending  int64 `json:"pending"`
		Approved int64 `json:"approved"`
		Other    int64 `json:"other"`
	} `json:"deleted_applications"`
}

// OTPRequestResult reports when a requested deletion code expires.
type OTPRequestResult struct {
	ExpiresAt time.Time `json:"expires_at"`
	SentTo    string    `json:"sent_to"`
}

// Create creates a project in draft status.
func (s *ProjectService) Create(input CreateProjectInput, adminID uuid.UUID) (*models.Project, error) {
	if input.Name == "" {
		return nil, apperrors.Validation("project name is required")
	}
	if !models.ValidProjectCategory(input.Category) {
		return nil, apperrors.Validation("unknown project category")
	}
	payRate, err := parseAmount(input.PayRate)
	if err != nil {
		return nil, apperrors.Validation("pay rate must be a positive amount")
	}
	if input.MaxAnnotators != nil && *input.MaxAnnotators <= 0 {
		return nil, apperrors.Validation("max annotators must be positive when set")
	}

	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}

	project := &models.Project{
		ID:                 uuid.New(),
		Name:               input.Name,
		Description:        input.Description,
		Category:           input.Category,
		PayRate:            payRate,
		Currency:           currency,
		RateType:           input.RateType,
		Status:             models.ProjectStatusDraft,
		MaxAnnotators:      input.MaxAnnotators,
		GuidelineURL:       input.GuidelineURL,
		RequiresAssessment: input.RequiresAssessment,
		AssessmentURL:      input.AssessmentURL,
		CreatedBy:          adminID,
	}
	if err := s.Projects.Create(project); err != nil {
		return nil, errors.Wrap(err, "creating project")
	}
	log.Printf("Project created: ID=%s Name=%q", project.ID, project.Name)
	return project, nil
}

// Get retrieves one project.
func (s *ProjectService) Get(id uuid.UUID) (*models.Project, error) {
	project, err := s.Projects.GetByID(id)
	if err != nil {
		return nil, translateNotFound(err, "project not found")
	}
	return project, nil
}

// List retrieves all projects, newest first.
func (s *ProjectService) List() ([]models.Project, error) {
	return s.Projects.List()
}

// UpdateStatus sets a project's lifecycle status.
func (s *ProjectService) UpdateStatus(id uuid.UUID, status models.ProjectStatus) (*models.Project, error) {
	if !models.ValidProjectStatus(status) {
		return nil, apperrors.Validation("unknown project status")
	}
	project, err := s.Projects.GetByID(id)
	if err != nil {
		return nil, translateNotFound(err, "project not found")
	}
	project.Status = status
	if err := s.Projects.Update(project); err != nil {
		return nil, err
	}
	return project, nil
}

// UpdateCapacity changes the annotator ceiling. The new ceiling may not be
// below the number already approved.
func (s *ProjectService) UpdateCapacity(id uuid.UUID, maxAnnotators *int) (*models.Project, error) {
	project, err := s.Projects.GetByID(id)
	if err != nil {
		return nil, translateNotFound(err, "project not found")
	}
	if maxAnnotators != nil {
		if *maxAnnotators <= 0 {
			return nil, apperrors.Validation("max annotators must be positive when set")
		}
		if *maxAnnotators < project.ApprovedAnnotatorCount {
			return nil, apperrors.ValidationWithDetails(
				"capacity cannot be set below the current approved count",
				map[string]interface{}{"approvedAnnotatorCount": project.ApprovedAnnotatorCount})
		}
	}
	project.MaxAnnotators = maxAnnotators
	if err := s.Projects.Update(project); err != nil {
		return nil, err
	}
	return project, nil
}

// Delete removes a project with no live applications, cascading the delete
// of its terminal application records. When live applications exist it
// fails with a structured validation error directing the caller to the OTP
// path instead.
func (s *ProjectService) Delete(ctx context.Context, id uuid.UUID) (*DeletionManifest, error) {
	project, err := s.Projects.GetByID(id)
	if err != nil {
		return nil, translateNotFound(err, "project not found")
	}

	active, err := s.Apps.CountActiveByProject(id)
	if err != nil {
		return nil, err
	}
	if active > 0 {
		return nil, apperrors.ValidationWithDetails(
			"project has active applications and requires OTP authorization to delete",
			map[string]interface{}{
				"activeApplications": active,
				"requiresOTP":        true,
			})
	}

	return s.cascadeDelete(project)
}

// RequestDeletionOTP starts the force-delete protocol: a fresh 6-digit code
// is stored on the project with a 15-minute expiry and emailed to the
// Projects Officer. Requesting again replaces any previous live code, so at
// most one live code exists.
func (s *ProjectService) RequestDeletionOTP(ctx context.Context, id uuid.UUID, adminID uuid.UUID, adminEmail, reason string) (*OTPRequestResult, error) {
	project, err := s.Projects.GetByID(id)
	if err != nil {
		return nil, translateNotFound(err, "project not found")
	}
	if reason == "" {
		return nil, apperrors.Validation("a deletion reason is required")
	}

	code, err := generateOTP()
	if err != nil {
		return nil, errors.Wrap(err, "generating deletion code")
	}

	expiresAt := time.Now().UTC().Add(deletionOTPTTL)
	project.DeletionOTP = models.DeletionOTP{
		Code:         code,
		ExpiresAt:    &expiresAt,
		Verified:     false,
		AttemptsLeft: deletionOTPMaxAttempts,
		RequestedBy:  &adminID,
		Reason:       reason,
	}
	if err := s.Projects.Update(project); err != nil {
		return nil, errors.Wrap(err, "storing deletion code")
	}

	// The code goes to the officer mailbox, never back to the requesting
	// admin. Separation of duty for a destructive action.
	s.Dispatcher.DispatchOne(ctx, notification.DeletionOTPEmail(
		s.OfficerEmail, project.Name, code, reason, adminEmail, expiresAt))

	log.Printf("Deletion OTP requested for project %s by admin %s", id, adminID)
	return &OTPRequestResult{ExpiresAt: expiresAt, SentTo: s.OfficerEmail}, nil
}

// VerifyOTPAndDelete completes the force-delete protocol. The stored code
// must match, be unexpired and unused; the verified flag is persisted
// before the destructive action so a replayed code cannot delete twice.
// Wrong codes consume one of a bounded number of attempts. The admin's
// confirmation message is carried into the officer's confirmation email for
// the audit trail.
func (s *ProjectService) VerifyOTPAndDelete(ctx context.Context, id uuid.UUID, adminID uuid.UUID, otp, confirmation string) (*DeletionManifest, error) {
	project, err := s.Projects.GetByID(id)
	if err != nil {
		return nil, translateNotFound(err, "project not found")
	}

	record := project.DeletionOTP
	now := time.Now().UTC()

	if record.Code == "" {
		return nil, apperrors.Validation("no deletion code has been requested for this project")
	}
	if record.Verified {
		return nil, apperrors.Validation("deletion code already used")
	}
	if record.ExpiresAt == nil || now.After(*record.ExpiresAt) {
		// Expired codes are cleared so they cannot linger as guess targets.
		project.DeletionOTP = models.DeletionOTP{}
		if err := s.Projects.Update(project); err != nil {
			log.Printf("Failed to clear expired deletion code for project %s: %v", id, err)
		}
		return nil, apperrors.Validation("deletion code has expired, request a new one")
	}
	if otp != record.Code {
		project.DeletionOTP.AttemptsLeft--
		if project.DeletionOTP.AttemptsLeft <= 0 {
			project.DeletionOTP = models.DeletionOTP{}
		}
		if err := s.Projects.Update(project); err != nil {
			log.Printf("Failed to record deletion code attempt for project %s: %v", id, err)
		}
		if project.DeletionOTP.Code == "" {
			return nil, apperrors.Validation("too many incorrect codes, request a new one")
		}
		return nil, apperrors.Validation("incorrect deletion code")
	}

	// Mark the code used before deleting anything. If the delete below
	// fails the code stays burned; re-requesting is cheap, replaying the
	// cascade is not.
	project.DeletionOTP.Verified = true
	if err := s.Projects.Update(project); err != nil {
		return nil, errors.Wrap(err, "consuming deletion code")
	}

	manifest, err := s.cascadeDelete(project)
	if err != nil {
		return nil, err
	}

	s.Dispatcher.DispatchOne(ctx, notification.DeletionConfirmationEmail(
		s.OfficerEmail, manifest.ProjectName, manifest.DeletedApplications.Total, confirmation))

	log.Printf("Project %s force-deleted by admin %s (%d applications removed)",
		id, adminID, manifest.DeletedApplications.Total)
	return manifest, nil
}

func (s *ProjectService) cascadeDelete(project *models.Project) (*DeletionManifest, error) {
	manifest := &DeletionManifest{ProjectID: project.ID, ProjectName: project.Name}

	pending, err := s.Apps.CountByProjectAndStatus(project.ID, models.ApplicationStatusPending)
	if err != nil {
		return nil, err
	}
	approved, err := s.Apps.CountByProjectAndStatus(project.ID, models.ApplicationStatusApproved)
	if err != nil {
		return nil, err
	}

	deleted, err := s.Apps.DeleteByProject(project.ID)
	if err != nil {
		return nil, errors.Wrap(err, "cascading application delete")
	}
	if err := s.Projects.Delete(project.ID); err != nil {
		return nil, errors.Wrap(err, "deleting project")
	}

	manifest.DeletedApplications.Total = deleted
	manifest.DeletedApplications.Pending = pending
	manifest.DeletedApplications.Approved = approved
	manifest.DeletedApplications.Other = deleted - pending - approved
	return manifest, nil
}

// generateOTP returns a random numeric code of deletionOTPLength digits.
func generateOTP() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < deletionOTPLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", deletionOTPLength, n), nil
}
