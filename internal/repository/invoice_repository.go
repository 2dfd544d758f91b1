package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"annotation-service/internal/models"
)

// ErrNotUnpaid signals a paid-status update lost to a concurrent writer or
// targeting an already-paid invoice.
var ErrNotUnpaid = errors.New("invoice is not unpaid")

// InvoiceRepository defines persistence operations for invoices.
type InvoiceRepository interface {
	Create(invoice *models.Invoice) error
	GetByID(id uuid.UUID) (*models.Invoice, error)
	List() ([]models.Invoice, error)
	ListUnpaid(ids []uuid.UUID) ([]models.Invoice, error)
	LastInvoiceNumber(prefix string) (string, error)
	Update(invoice *models.Invoice) error
	MarkPaid(id uuid.UUID, method models.PaymentMethod, reference string, paidAmount decimal.Decimal, now time.Time) error
	Delete(id uuid.UUID) error
}

// InvoiceRepositoryImpl provides methods to interact with the Invoice model
// in the database.
type InvoiceRepositoryImpl struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new InvoiceRepositoryImpl instance with the
// provided GORM database connection.
func NewInvoiceRepository(db *gorm.DB) *InvoiceRepositoryImpl {
	return &InvoiceRepositoryImpl{db: db}
}

// Create creates a new Invoice in the database.
func (r *InvoiceRepositoryImpl) Create(invoice *models.Invoice) error {
	return r.db.Create(invoice).Error
}

// GetByID retrieves an Invoice by its ID from the database.
func (r *InvoiceRepositoryImpl) GetByID(id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.First(&invoice, "id = ?", id).Error
	return &invoice, err
}

// List retrieves all Invoices from the database.
func (r *InvoiceRepositoryImpl) List() ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.Order("issued_at DESC").Find(&invoices).Error
	return invoices, err
}

// ListUnpaid retrieves unpaid invoices, optionally restricted to the given
// id set. Overdue is derived from the due date, so unpaid covers it.
func (r *InvoiceRepositoryImpl) ListUnpaid(ids []uuid.UUID) ([]models.Invoice, error) {
	var invoices []models.Invoice
	q := r.db.Where("payment_status = ?", models.PaymentStatusUnpaid)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	err := q.Order("issued_at ASC").Find(&invoices).Error
	return invoices, err
}

// LastInvoiceNumber returns the highest invoice number carrying the given
// prefix, or "" when none exists. The suffix is zero-padded, so the
// lexicographic max is the numeric max. Sequencing from the max survives
// deletions where a row count would re-mint a number still in use.
func (r *InvoiceRepositoryImpl) LastInvoiceNumber(prefix string) (string, error) {
	var number string
	err := r.db.Model(&models.Invoice{}).
		Where("invoice_number LIKE ?", prefix+"%").
		Select("COALESCE(MAX(invoice_number), '')").
		Scan(&number).Error
	return number, err
}

// Update updates an existing Invoice in the database.
func (r *InvoiceRepositoryImpl) Update(invoice *models.Invoice) error {
	return r.db.Save(invoice).Error
}

// MarkPaid flips an unpaid invoice to paid with a guarded update, stamping
// the payment fields. A zero-row update means the invoice was already paid.
func (r *InvoiceRepositoryImpl) MarkPaid(id uuid.UUID, method models.PaymentMethod, reference string, paidAmount decimal.Decimal, now time.Time) error {
	res := r.db.Model(&models.Invoice{}).
		Where("id = ? AND payment_status = ?", id, models.PaymentStatusUnpaid).
		Updates(map[string]interface{}{
			"payment_status":    models.PaymentStatusPaid,
			"paid_at":           now,
			"paid_amount":       paidAmount,
			"payment_method":    method,
			"payment_reference": reference,
			"updated_at":        now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotUnpaid
	}
	return nil
}

// Delete deletes an Invoice by its ID from the database.
func (r *InvoiceRepositoryImpl) Delete(id uuid.UUID) error {
	return r.db.Delete(&models.Invoice{}, "id = ?", id).Error
}
