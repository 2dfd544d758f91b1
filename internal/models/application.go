package models

import (
	"time"

	"github.com/google/uuid"
)

// ApplicationStatus is the state of one worker's candidacy for one project.
type ApplicationStatus string

const (
	ApplicationStatusPending            ApplicationStatus = "pending"
	ApplicationStatusApproved           ApplicationStatus = "approved"
	ApplicationStatusRejected           ApplicationStatus = "rejected"
	ApplicationStatusWithdrawn          ApplicationStatus = "withdrawn"
	ApplicationStatusRemoved            ApplicationStatus = "removed"
	ApplicationStatusAssessmentRequired ApplicationStatus = "assessment_required"
)

// ActiveApplicationStatuses are the statuses that count as live work on a
// project and therefore block direct project deletion.
var ActiveApplicationStatuses = []ApplicationStatus{
	ApplicationStatusPending,
	ApplicationStatusApproved,
}

// RejectionReason is the closed set of reasons an admin can reject with.
type RejectionReason string

const (
	ReasonInsufficientExperience RejectionReason = "insufficient_experience"
	ReasonProjectFull            RejectionReason = "project_full"
	ReasonIncompleteProfile      RejectionReason = "incomplete_profile"
	ReasonFailedAssessment       RejectionReason = "failed_assessment"
	ReasonOther                  RejectionReason = "other"
)

// NormalizeRejectionReason maps unknown or missing reasons to ReasonOther.
func NormalizeRejectionReason(r RejectionReason) RejectionReason {
	switch r {
	case ReasonInsufficientExperience, ReasonProjectFull, ReasonIncompleteProfile, ReasonFailedAssessment:
		return r
	default:
		return ReasonOther
	}
}

// Application records one worker's candidacy for one project. The composite
// unique index enforces at most one live application per (project, worker).
type Application struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_applications_project_worker" json:"project_id"`
	WorkerID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_applications_project_worker" json:"worker_id"`

	Status ApplicationStatus `gorm:"index;not null" json:"status"`

	// ResumeURL is copied from the worker profile at apply time and must be
	// non-empty for the record to exist.
	ResumeURL string `gorm:"not null" json:"resume_url"`

	AppliedAt   time.Time  `json:"applied_at"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy  *uuid.UUID `gorm:"type:uuid" json:"reviewed_by,omitempty"`
	ReviewNotes string     `json:"review_notes,omitempty"`

	WorkStartedAt *time.Time `json:"work_started_at,omitempty"`

	RejectionReason RejectionReason `json:"rejection_reason,omitempty"`

	RemovedAt     *time.Time `json:"removed_at,omitempty"`
	RemovedBy     *uuid.UUID `gorm:"type:uuid" json:"removed_by,omitempty"`
	RemovalReason string     `json:"removal_reason,omitempty"`
	RemovalNotes  string     `json:"removal_notes,omitempty"`

	AssessmentScore  *int  `json:"assessment_score,omitempty"`
	AssessmentPassed *bool `json:"assessment_passed,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
