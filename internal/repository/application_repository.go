package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"annotation-service/internal/models"
)

// Sentinel errors for conditional transition updates. A conditional UPDATE
// matching zero rows means the guarded precondition no longer holds, usually
// because a concurrent reviewer got there first.
var (
	ErrNotPending   = errors.New("application is not pending")
	ErrNotApproved  = errors.New("application is not approved")
	ErrCapacityFull = errors.New("project capacity reached")
)

// ApplicationRepository defines persistence operations for applications,
// including the guarded transition updates that must be atomic.
type ApplicationRepository interface {
	Create(app *models.Application) error
	GetByID(id uuid.UUID) (*models.Application, error)
	GetByProjectAndWorker(projectID, workerID uuid.UUID) (*models.Application, error)
	ListByProject(projectID uuid.UUID) ([]models.Application, error)
	ListByWorker(workerID uuid.UUID) ([]models.Application, error)
	ListPendingByIDs(ids []uuid.UUID) ([]models.Application, error)
	CountActiveByProject(projectID uuid.UUID) (int64, error)
	CountByProjectAndStatus(projectID uuid.UUID, status models.ApplicationStatus) (int64, error)
	Update(app *models.Application) error

	Approve(id uuid.UUID, reviewerID uuid.UUID, notes string, now time.Time) error
	Reject(id uuid.UUID, reviewerID uuid.UUID, reason models.RejectionReason, notes string, now time.Time) error
	RejectBulk(ids []uuid.UUID, reviewerID uuid.UUID, reason models.RejectionReason, notes string, now time.Time) (int64, error)
	RemoveApproved(id uuid.UUID, adminID uuid.UUID, reason, notes string, now time.Time) error
	Withdraw(id uuid.UUID, now time.Time) error
	ResolveAssessment(id uuid.UUID, score int, passed bool, now time.Time) error

	DeleteByProject(projectID uuid.UUID) (int64, error)
}

// ApplicationRepositoryImpl provides methods to interact with the
// Application model in the database.
type ApplicationRepositoryImpl struct {
	db *gorm.DB
}

// NewApplicationRepository creates a new ApplicationRepositoryImpl instance
// with the provided GORM database connection.
func NewApplicationRepository(db *gorm.DB) *ApplicationRepositoryImpl {
	return &ApplicationRepositoryImpl{db: db}
}

// Create creates a new Application in the database. The composite unique
// index on (project_id, worker_id) rejects duplicates.
func (r *ApplicationRepositoryImpl) Create(app *models.Application) error {
	return r.db.Create(app).Error
}

// GetByID retrieves an Application by its ID from the database.
func (r *ApplicationRepositoryImpl) GetByID(id uuid.UUID) (*models.Application, error) {
	var app models.Application
	err := r.db.First(&app, "id = ?", id).Error
	return &app, err
}

// GetByProjectAndWorker retrieves the Application for one (project, worker) pair.
func (r *ApplicationRepositoryImpl) GetByProjectAndWorker(projectID, workerID uuid.UUID) (*models.Application, error) {
	var app models.Application
	err := r.db.First(&app, "project_id = ? AND worker_id = ?", projectID, workerID).Error
	return &app, err
}

// ListByProject retrieves all Applications for a project.
func (r *ApplicationRepositoryImpl) ListByProject(projectID uuid.UUID) ([]models.Application, error) {
	var apps []models.Application
	err := r.db.Where("project_id = ?", projectID).Order("applied_at ASC").Find(&apps).Error
	return apps, err
}

// ListByWorker retrieves all Applications submitted by a worker.
func (r *ApplicationRepositoryImpl) ListByWorker(workerID uuid.UUID) ([]models.Application, error) {
	var apps []models.Application
	err := r.db.Where("worker_id = ?", workerID).Order("applied_at DESC").Find(&apps).Error
	return apps, err
}

// ListPendingByIDs retrieves the pending Applications among the given ids.
// Records in any other status are silently excluded.
func (r *ApplicationRepositoryImpl) ListPendingByIDs(ids []uuid.UUID) ([]models.Application, error) {
	var apps []models.Application
	err := r.db.Where("id IN ? AND status = ?", ids, models.ApplicationStatusPending).Find(&apps).Error
	return apps, err
}

// CountActiveByProject counts applications with live work (pending or approved).
func (r *ApplicationRepositoryImpl) CountActiveByProject(projectID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&models.Application{}).
		Where("project_id = ? AND status IN ?", projectID, models.ActiveApplicationStatuses).
		Count(&count).Error
	return count, err
}

// CountByProjectAndStatus counts a project's applications in one status.
func (r *ApplicationRepositoryImpl) CountByProjectAndStatus(projectID uuid.UUID, status models.ApplicationStatus) (int64, error) {
	var count int64
	err := r.db.Model(&models.Application{}).
		Where("project_id = ? AND status = ?", projectID, status).
		Count(&count).Error
	return count, err
}

// Update updates an existing Application in the database.
func (r *ApplicationRepositoryImpl) Update(app *models.Application) error {
	return r.db.Save(app).Error
}

// Approve flips a pending application to approved and increments the
// project's approved-annotator counter, both as guarded updates inside one
// transaction. Racing approvals lose on the status guard; approvals racing
// the capacity ceiling lose on the counter guard.
func (r *ApplicationRepositoryImpl) Approve(id uuid.UUID, reviewerID uuid.UUID, notes string, now time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var app models.Application
		if err := tx.First(&app, "id = ?", id).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Project{}).
			Where("id = ? AND (max_annotators IS NULL OR approved_annotator_count < max_annotators)", app.ProjectID).
			UpdateColumn("approved_annotator_count", gorm.Expr("approved_annotator_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCapacityFull
		}

		res = tx.Model(&models.Application{}).
			Where("id = ? AND status = ?", id, models.ApplicationStatusPending).
			Updates(map[string]interface{}{
				"status":          models.ApplicationStatusApproved,
				"reviewed_at":     now,
				"reviewed_by":     reviewerID,
				"review_notes":    notes,
				"work_started_at": now,
				"updated_at":      now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotPending
		}
		return nil
	})
}

// Reject flips a pending application to rejected. No counter change.
func (r *ApplicationRepositoryImpl) Reject(id uuid.UUID, reviewerID uuid.UUID, reason models.RejectionReason, notes string, now time.Time) error {
	res := r.db.Model(&models.Application{}).
		Where("id = ? AND status = ?", id, models.ApplicationStatusPending).
		Updates(map[string]interface{}{
			"status":           models.ApplicationStatusRejected,
			"reviewed_at":      now,
			"reviewed_by":      reviewerID,
			"review_notes":     notes,
			"rejection_reason": reason,
			"updated_at":       now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotPending
	}
	return nil
}

// RejectBulk rejects every pending application among the given ids in one
// update and reports how many rows changed.
func (r *ApplicationRepositoryImpl) RejectBulk(ids []uuid.UUID, reviewerID uuid.UUID, reason models.RejectionReason, notes string, now time.Time) (int64, error) {
	res := r.db.Model(&models.Application{}).
		Where("id IN ? AND status = ?", ids, models.ApplicationStatusPending).
		Updates(map[string]interface{}{
			"status":           models.ApplicationStatusRejected,
			"reviewed_at":      now,
			"reviewed_by":      reviewerID,
			"review_notes":     notes,
			"rejection_reason": reason,
			"updated_at":       now,
		})
	return res.RowsAffected, res.Error
}

// RemoveApproved flips an approved application to removed and decrements the
// project's approved-annotator counter inside one transaction.
func (r *ApplicationRepositoryImpl) RemoveApproved(id uuid.UUID, adminID uuid.UUID, reason, notes string, now time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var app models.Application
		if err := tx.First(&app, "id = ?", id).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Application{}).
			Where("id = ? AND status = ?", id, models.ApplicationStatusApproved).
			Updates(map[string]interface{}{
				"status":         models.ApplicationStatusRemoved,
				"removed_at":     now,
				"removed_by":     adminID,
				"removal_reason": reason,
				"removal_notes":  notes,
				"updated_at":     now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotApproved
		}

		return tx.Model(&models.Project{}).
			Where("id = ? AND approved_annotator_count > 0", app.ProjectID).
			UpdateColumn("approved_annotator_count", gorm.Expr("approved_annotator_count - 1")).Error
	})
}

// Withdraw flips a pending application to withdrawn.
func (r *ApplicationRepositoryImpl) Withdraw(id uuid.UUID, now time.Time) error {
	res := r.db.Model(&models.Application{}).
		Where("id = ? AND status = ?", id, models.ApplicationStatusPending).
		Updates(map[string]interface{}{
			"status":     models.ApplicationStatusWithdrawn,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotPending
	}
	return nil
}

// ResolveAssessment records an assessment result: pass moves the application
// into the normal pending queue, fail rejects it.
func (r *ApplicationRepositoryImpl) ResolveAssessment(id uuid.UUID, score int, passed bool, now time.Time) error {
	next := models.ApplicationStatusPending
	updates := map[string]interface{}{
		"assessment_score":  score,
		"assessment_passed": passed,
		"updated_at":        now,
	}
	if !passed {
		next = models.ApplicationStatusRejected
		updates["rejection_reason"] = models.ReasonFailedAssessment
		updates["reviewed_at"] = now
	}
	updates["status"] = next

	res := r.db.Model(&models.Application{}).
		Where("id = ? AND status = ?", id, models.ApplicationStatusAssessmentRequired).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotPending
	}
	return nil
}

// DeleteByProject deletes every application of a project and reports how
// many rows were removed. Used by the project deletion cascade.
func (r *ApplicationRepositoryImpl) DeleteByProject(projectID uuid.UUID) (int64, error) {
	res := r.db.Where("project_id = ?", projectID).Delete(&models.Application{})
	return res.RowsAffected, res.Error
}
