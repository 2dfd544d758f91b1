package models

import (
	"time"

	"github.com/google/uuid"
)

// AnnotatorStatus gates a worker's ability to view and apply to projects.
type AnnotatorStatus string

const (
	AnnotatorStatusPending   AnnotatorStatus = "pending"
	AnnotatorStatusApproved  AnnotatorStatus = "approved"
	AnnotatorStatusRejected  AnnotatorStatus = "rejected"
	AnnotatorStatusSuspended AnnotatorStatus = "suspended"
)

// ValidAnnotatorStatus reports whether s is a known annotator status.
func ValidAnnotatorStatus(s AnnotatorStatus) bool {
	switch s {
	case AnnotatorStatusPending, AnnotatorStatusApproved, AnnotatorStatusRejected, AnnotatorStatusSuspended:
		return true
	default:
		return false
	}
}

// Worker is a platform participant who applies to and performs annotation
// projects. The auth/profile subsystem owns most of this record; the core
// treats it as read-mostly.
type Worker struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email string    `gorm:"uniqueIndex;not null" json:"email"`
	Name  string    `json:"name"`

	AnnotatorStatus AnnotatorStatus `gorm:"index;not null;default:pending" json:"annotator_status"`

	ResumeURL string `json:"resume_url,omitempty"`
	ResumeKey string `json:"-"`

	PortfolioURLs []string `gorm:"serializer:json" json:"portfolio_urls,omitempty"`

	// Payout destination fields, validated at CSV export time.
	BankName      string `json:"bank_name,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	AccountName   string `json:"account_name,omitempty"`
	MpesaNumber   string `json:"mpesa_number,omitempty"`

	Active    bool      `gorm:"default:true" json:"active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// HasResume reports whether the worker has an uploaded resume on file.
func (w *Worker) HasResume() bool {
	return w.ResumeURL != ""
}
