package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProjectStatus is the lifecycle state of an annotation project.
type ProjectStatus string

const (
	ProjectStatusDraft     ProjectStatus = "draft"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusPaused    ProjectStatus = "paused"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

// ValidProjectStatus reports whether s is a known project status.
func ValidProjectStatus(s ProjectStatus) bool {
	switch s {
	case ProjectStatusDraft, ProjectStatusActive, ProjectStatusPaused, ProjectStatusCompleted, ProjectStatusCancelled:
		return true
	default:
		return false
	}
}

// ProjectCategory classifies the kind of annotation work a project asks for.
type ProjectCategory string

const (
	CategoryImageAnnotation    ProjectCategory = "image_annotation"
	CategoryTextAnnotation     ProjectCategory = "text_annotation"
	CategoryAudioTranscription ProjectCategory = "audio_transcription"
	CategoryVideoLabeling      ProjectCategory = "video_labeling"
	CategoryDataCollection     ProjectCategory = "data_collection"
	CategoryOther              ProjectCategory = "other"
)

// ValidProjectCategory reports whether c is a known category.
func ValidProjectCategory(c ProjectCategory) bool {
	switch c {
	case CategoryImageAnnotation, CategoryTextAnnotation, CategoryAudioTranscription,
		CategoryVideoLabeling, CategoryDataCollection, CategoryOther:
		return true
	default:
		return false
	}
}

// RateType describes how the pay rate is applied.
type RateType string

const (
	RatePerTask  RateType = "per_task"
	RatePerHour  RateType = "per_hour"
	RatePerLabel RateType = "per_label"
)

// DeletionOTP is the one-time code sub-record gating destructive project deletion.
// At most one live (unexpired, unverified) code exists per project.
type DeletionOTP struct {
	Code         string     `json:"-"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Verified     bool       `json:"verified"`
	AttemptsLeft int        `json:"-"`
	RequestedBy  *uuid.UUID `gorm:"type:uuid" json:"requested_by,omitempty"`
	Reason       string     `json:"reason,omitempty"`
}

// Live reports whether the code can still be consumed at the given time.
func (o DeletionOTP) Live(now time.Time) bool {
	return o.Code != "" && !o.Verified && o.ExpiresAt != nil && now.Before(*o.ExpiresAt)
}

// Project represents an annotation job posting stored in the database.
type Project struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string          `gorm:"not null" json:"name"`
	Description string          `json:"description"`
	Category    ProjectCategory `gorm:"not null" json:"category"`

	PayRate  decimal.Decimal `gorm:"type:numeric(12,2)" json:"pay_rate"`
	Currency string          `gorm:"size:3;default:USD" json:"currency"`
	RateType RateType        `json:"rate_type"`

	Status ProjectStatus `gorm:"index;not null" json:"status"`

	// MaxAnnotators is nil for unlimited capacity.
	MaxAnnotators          *int `json:"max_annotators,omitempty"`
	ApprovedAnnotatorCount int  `gorm:"not null;default:0" json:"approved_annotator_count"`
	TotalApplicationCount  int  `gorm:"not null;default:0" json:"total_application_count"`

	GuidelineURL       string `json:"guideline_url,omitempty"`
	RequiresAssessment bool   `json:"requires_assessment"`
	AssessmentURL      string `json:"assessment_url,omitempty"`

	DeletionOTP DeletionOTP `gorm:"embedded;embeddedPrefix:deletion_otp_" json:"-"`

	CreatedBy uuid.UUID `gorm:"type:uuid" json:"created_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// HasCapacity reports whether another annotator can be approved onto the project.
func (p *Project) HasCapacity() bool {
	return p.MaxAnnotators == nil || p.ApprovedAnnotatorCount < *p.MaxAnnotators
}
