package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"annotation-service/internal/apperrors"
	"annotation-service/internal/metrics"
	"annotation-service/internal/models"
	"annotation-service/internal/notification"
	"annotation-service/internal/repository"
)

// ApplicationService governs a worker's relationship to one project:
// pending -> approved | rejected, approved -> removed, with withdrawn and
// assessment_required side states.
type ApplicationService struct {
	Apps       repository.ApplicationRepository
	Projects   repository.ProjectRepository
	Workers    repository.WorkerRepository
	Dispatcher *notification.Dispatcher
	Metrics    *metrics.Metrics
}

// NewApplicationService creates a new ApplicationService.
func NewApplicationService(apps repository.ApplicationRepository, projects repository.ProjectRepository, workers repository.WorkerRepository, dispatcher *notification.Dispatcher, m *metrics.Metrics) *ApplicationService {
	return &ApplicationService{
		Apps:       apps,
		Projects:   projects,
		Workers:    workers,
		Dispatcher: dispatcher,
		Metrics:    m,
	}
}

// BulkRejectResult reports the outcome of a bulk rejection.
type BulkRejectResult struct {
	Requested            int   `json:"requested"`
	Rejected             int64 `json:"rejected"`
	NotificationFailures int   `json:"notification_failures"`
}

// Apply creates a pending application for (worker, project). The resume URL
// is copied from the worker profile rather than the request body so a stale
// or forged reference can never be attached.
func (s *ApplicationService) Apply(ctx context.Context, workerID, projectID uuid.UUID) (*models.Application, error) {
	worker, err := s.Workers.GetByID(workerID)
	if err != nil {
		return nil, translateNotFound(err, "worker not found")
	}
	if worker.AnnotatorStatus != models.AnnotatorStatusApproved {
		return nil, apperrors.Unauthorized("only approved annotators can apply to projects")
	}
	if !worker.HasResume() {
		return nil, apperrors.Validation("an uploaded resume is required before applying")
	}

	project, err := s.Projects.GetByID(projectID)
	if err != nil {
		return nil, translateNotFound(err, "project not found")
	}
	if project.Status != models.ProjectStatusActive {
		return nil, apperrors.Validation("project is not accepting applications")
	}

	if _, err := s.Apps.GetByProjectAndWorker(projectID, workerID); err == nil {
		return nil, apperrors.Validation("you have already applied to this project")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	status := models.ApplicationStatusPending
	if project.RequiresAssessment {
		status = models.ApplicationStatusAssessmentRequired
	}

	app := &models.Application{
		ID:        uuid.New(),
		ProjectID: projectID,
		WorkerID:  workerID,
		Status:    status,
		ResumeURL: worker.ResumeURL,
		AppliedAt: time.Now().UTC(),
	}
	if err := s.Apps.Create(app); err != nil {
		// The unique index wins races the duplicate check above missed.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.Validation("you have already applied to this project")
		}
		return nil, err
	}

	if err := s.Projects.IncrementTotalApplications(projectID); err != nil {
		log.Printf("Failed to bump application counter for project %s: %v", projectID, err)
	}

	s.Metrics.RecordTransition("apply", "ok")
	log.Printf("Worker %s applied to project %s (status=%s)", workerID, projectID, status)
	return app, nil
}

// Approve moves a pending application to approved, stamping the reviewer and
// atomically incrementing the project's approved-annotator counter. The
// capacity guard and the status flip run as one transaction so concurrent
// approvals cannot overbook the project.
func (s *ApplicationService) Approve(ctx context.Context, applicationID, reviewerID uuid.UUID, notes string) (*models.Application, error) {
	app, err := s.Apps.GetByID(applicationID)
	if err != nil {
		return nil, translateNotFound(err, "application not found")
	}
	if app.Status != models.ApplicationStatusPending {
		s.Metrics.RecordTransition("approve", "rejected_precondition")
		return nil, apperrors.Validation(fmt.Sprintf("Application is already %s", app.Status))
	}

	now := time.Now().UTC()
	if err := s.Apps.Approve(applicationID, reviewerID, notes, now); err != nil {
		switch {
		case errors.Is(err, repository.ErrCapacityFull):
			s.Metrics.RecordTransition("approve", "capacity_full")
			project, perr := s.Projects.GetByID(app.ProjectID)
			details := map[string]interface{}{}
			if perr == nil && project.MaxAnnotators != nil {
				details["maxAnnotators"] = *project.MaxAnnotators
			}
			return nil, apperrors.ValidationWithDetails("project has reached its maximum number of annotators", details)
		case errors.Is(err, repository.ErrNotPending):
			s.Metrics.RecordTransition("approve", "lost_race")
			return nil, apperrors.Validation("application was reviewed by someone else")
		default:
			return nil, err
		}
	}

	app, err = s.Apps.GetByID(applicationID)
	if err != nil {
		return nil, err
	}

	s.Metrics.RecordTransition("approve", "ok")
	s.notifyWorker(ctx, app.WorkerID, app.ProjectID, func(worker *models.Worker, project *models.Project) notification.Email {
		return notification.ApprovalEmail(worker.Email, worker.Name, project.Name)
	})
	return app, nil
}

// Reject moves a pending application to rejected. Unknown reasons collapse
// to "other"; the project counters are untouched.
func (s *ApplicationService) Reject(ctx context.Context, applicationID, reviewerID uuid.UUID, reason models.RejectionReason, notes string) (*models.Application, error) {
	app, err := s.Apps.GetByID(applicationID)
	if err != nil {
		return nil, translateNotFound(err, "application not found")
	}
	if app.Status != models.ApplicationStatusPending {
		s.Metrics.RecordTransition("reject", "rejected_precondition")
		return nil, apperrors.Validation(fmt.Sprintf("Application is already %s", app.Status))
	}

	reason = models.NormalizeRejectionReason(reason)
	if err := s.Apps.Reject(applicationID, reviewerID, reason, notes, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotPending) {
			return nil, apperrors.Validation("application was reviewed by someone else")
		}
		return nil, err
	}

	app, err = s.Apps.GetByID(applicationID)
	if err != nil {
		return nil, err
	}

	s.Metrics.RecordTransition("reject", "ok")
	s.notifyWorker(ctx, app.WorkerID, app.ProjectID, func(worker *models.Worker, project *models.Project) notification.Email {
		return notification.RejectionEmail(worker.Email, worker.Name, project.Name, string(reason))
	})
	return app, nil
}

// RejectBulk applies one rejection to all pending applications among the
// given ids; records in any other status are silently excluded so repeated
// calls are safe. Notification failures are counted, never propagated.
func (s *ApplicationService) RejectBulk(ctx context.Context, ids []uuid.UUID, reviewerID uuid.UUID, reason models.RejectionReason, notes string) (*BulkRejectResult, error) {
	if len(ids) == 0 {
		return nil, apperrors.Validation("no application ids given")
	}

	pending, err := s.Apps.ListPendingByIDs(ids)
	if err != nil {
		return nil, err
	}

	reason = models.NormalizeRejectionReason(reason)
	updated, err := s.Apps.RejectBulk(ids, reviewerID, reason, notes, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	s.Metrics.RecordTransition("reject_bulk", "ok")

	// Settle all notifications, counting failures instead of aborting.
	var emails []notification.Email
	for _, app := range pending {
		worker, werr := s.Workers.GetByID(app.WorkerID)
		project, perr := s.Projects.GetByID(app.ProjectID)
		if werr != nil || perr != nil {
			log.Printf("Skipping rejection email for application %s: worker or project lookup failed", app.ID)
			continue
		}
		emails = append(emails, notification.RejectionEmail(worker.Email, worker.Name, project.Name, string(reason)))
	}
	failures := s.Dispatcher.Dispatch(ctx, emails)

	return &BulkRejectResult{
		Requested:            len(ids),
		Rejected:             updated,
		NotificationFailures: failures,
	}, nil
}

// RemoveApproved moves an approved application to removed, decrements the
// project's approved-annotator counter, and notifies both the removed
// worker and the acting admin with independent best-effort emails.
func (s *ApplicationService) RemoveApproved(ctx context.Context, applicationID, adminID uuid.UUID, adminEmail, reason, notes string) (*models.Application, error) {
	app, err := s.Apps.GetByID(applicationID)
	if err != nil {
		return nil, translateNotFound(err, "application not found")
	}
	if app.Status != models.ApplicationStatusApproved {
		s.Metrics.RecordTransition("remove", "rejected_precondition")
		return nil, apperrors.Validation("only approved applications can be removed")
	}

	if err := s.Apps.RemoveApproved(applicationID, adminID, reason, notes, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotApproved) {
			return nil, apperrors.Validation("application is no longer approved")
		}
		return nil, err
	}

	app, err = s.Apps.GetByID(applicationID)
	if err != nil {
		return nil, err
	}
	s.Metrics.RecordTransition("remove", "ok")

	worker, werr := s.Workers.GetByID(app.WorkerID)
	project, perr := s.Projects.GetByID(app.ProjectID)
	if werr == nil && perr == nil {
		s.Dispatcher.Dispatch(ctx, []notification.Email{
			notification.RemovalWorkerEmail(worker.Email, worker.Name, project.Name, reason),
			notification.RemovalAdminEmail(adminEmail, worker.Name, project.Name),
		})
	}
	return app, nil
}

// Withdraw lets a worker pull back their own pending application.
func (s *ApplicationService) Withdraw(ctx context.Context, applicationID, workerID uuid.UUID) (*models.Application, error) {
	app, err := s.Apps.GetByID(applicationID)
	if err != nil {
		return nil, translateNotFound(err, "application not found")
	}
	if app.WorkerID != workerID {
		return nil, apperrors.Forbidden("application belongs to another worker")
	}
	if app.Status != models.ApplicationStatusPending {
		return nil, apperrors.Validation("only pending applications can be withdrawn")
	}

	if err := s.Apps.Withdraw(applicationID, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotPending) {
			return nil, apperrors.Validation("application was reviewed in the meantime")
		}
		return nil, err
	}
	s.Metrics.RecordTransition("withdraw", "ok")
	return s.Apps.GetByID(applicationID)
}

// SubmitAssessment records a gating-assessment result. A pass moves the
// application into the normal pending queue; a fail rejects it.
func (s *ApplicationService) SubmitAssessment(ctx context.Context, applicationID uuid.UUID, score int, passed bool) (*models.Application, error) {
	app, err := s.Apps.GetByID(applicationID)
	if err != nil {
		return nil, translateNotFound(err, "application not found")
	}
	if app.Status != models.ApplicationStatusAssessmentRequired {
		return nil, apperrors.Validation("application does not have a pending assessment")
	}

	if err := s.Apps.ResolveAssessment(applicationID, score, passed, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotPending) {
			return nil, apperrors.Validation("assessment was already resolved")
		}
		return nil, err
	}
	s.Metrics.RecordTransition("assessment", "ok")
	return s.Apps.GetByID(applicationID)
}

// Get retrieves one application.
func (s *ApplicationService) Get(id uuid.UUID) (*models.Application, error) {
	app, err := s.Apps.GetByID(id)
	if err != nil {
		return nil, translateNotFound(err, "application not found")
	}
	return app, nil
}

// ListByProject retrieves a project's applications, oldest first.
func (s *ApplicationService) ListByProject(projectID uuid.UUID) ([]models.Application, error) {
	return s.Apps.ListByProject(projectID)
}

// ListByWorker retrieves a worker's applications, newest first.
func (s *ApplicationService) ListByWorker(workerID uuid.UUID) ([]models.Application, error) {
	return s.Apps.ListByWorker(workerID)
}

func (s *ApplicationService) notifyWorker(ctx context.Context, workerID, projectID uuid.UUID, build func(*models.Worker, *models.Project) notification.Email) {
	worker, err := s.Workers.GetByID(workerID)
	if err != nil {
		log.Printf("Notification skipped, worker %s lookup failed: %v", workerID, err)
		return
	}
	project, err := s.Projects.GetByID(projectID)
	if err != nil {
		log.Printf("Notification skipped, project %s lookup failed: %v", projectID, err)
		return
	}
	s.Dispatcher.DispatchOne(ctx, build(worker, project))
}

// translateNotFound maps the persistence layer's not-found error onto the
// application taxonomy, passing other errors through untouched.
func translateNotFound(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(message)
	}
	return err
}
