package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus is the stored payment state of an invoice. "overdue" is
// derived from the due date and never written.
type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"

	// PaymentStatusOverdue is a derived view of an unpaid invoice past its
	// due date, exposed in responses only.
	PaymentStatusOverdue PaymentStatus = "overdue"
)

// PaymentMethod identifies how an invoice was settled.
type PaymentMethod string

const (
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodPaystack     PaymentMethod = "paystack"
	MethodMpesa        PaymentMethod = "mpesa"
	MethodManual       PaymentMethod = "manual"
)

// Invoice is a payable record between the platform and one worker for one
// project. Once paid it becomes immutable to deletion.
type Invoice struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	WorkerID  uuid.UUID `gorm:"type:uuid;not null;index" json:"worker_id"`

	InvoiceNumber string `gorm:"uniqueIndex;not null" json:"invoice_number"`

	Amount   decimal.Decimal `gorm:"type:numeric(12,2)" json:"amount"`
	Currency string          `gorm:"size:3;default:USD" json:"currency"`

	IssuedAt time.Time `json:"issued_at"`
	DueDate  time.Time `json:"due_date"`

	PaymentStatus    PaymentStatus    `gorm:"index;not null;default:unpaid" json:"payment_status"`
	PaidAt           *time.Time       `json:"paid_at,omitempty"`
	PaidAmount       *decimal.Decimal `gorm:"type:numeric(12,2)" json:"paid_amount,omitempty"`
	PaymentMethod    PaymentMethod    `json:"payment_method,omitempty"`
	PaymentReference string           `json:"payment_reference,omitempty"`

	Notes string `json:"notes,omitempty"`

	EmailSent   bool       `json:"email_sent"`
	EmailSentAt *time.Time `json:"email_sent_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Overdue reports whether the invoice is unpaid and past its due date.
func (i *Invoice) Overdue(now time.Time) bool {
	return i.PaymentStatus == PaymentStatusUnpaid && now.After(i.DueDate)
}

// EffectiveStatus is the status shown to callers, with the derived overdue
// view applied.
func (i *Invoice) EffectiveStatus(now time.Time) PaymentStatus {
	if i.Overdue(now) {
		return PaymentStatusOverdue
	}
	return i.PaymentStatus
}
