package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"annotation-service/internal/apperrors"
	"annotation-service/internal/metrics"
	"annotation-service/internal/models"
	"annotation-service/internal/notification"
	"annotation-service/internal/repository"
)

// invoiceDeletionWindow is the correction window after which even unpaid
// invoices become immutable to deletion.
const invoiceDeletionWindow = 24 * time.Hour

// InvoiceService manages the invoice payment-state machine: unpaid -> paid,
// with overdue derived from the due date.
type InvoiceService struct {
	Invoices   repository.InvoiceRepository
	Projects   repository.ProjectRepository
	Workers    repository.WorkerRepository
	Apps       repository.ApplicationRepository
	Dispatcher *notification.Dispatcher
	Metrics    *metrics.Metrics
}

// NewInvoiceService creates a new InvoiceService.
func NewInvoiceService(invoices repository.InvoiceRepository, projects repository.ProjectRepository, workers repository.WorkerRepository, apps repository.ApplicationRepository, dispatcher *notification.Dispatcher, m *metrics.Metrics) *InvoiceService {
	return &InvoiceService{
		Invoices:   invoices,
		Projects:   projects,
		Workers:    workers,
		Apps:       apps,
		Dispatcher: dispatcher,
		Metrics:    m,
	}
}

// CreateInvoiceInput carries the admin-supplied fields for a new invoice.
type CreateInvoiceInput struct {
	ProjectID uuid.UUID `json:"project_id"`
	WorkerID  uuid.UUID `json:"worker_id"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	DueDate   time.Time `json:"due_date"`
	Notes     string    `json:"notes"`
}

// UpdatePaymentInput carries a manual payment-status update.
type UpdatePaymentInput struct {
	PaymentStatus    models.PaymentStatus `json:"payment_status"`
	PaymentMethod    models.PaymentMethod `json:"payment_method"`
	PaymentReference string               `json:"payment_reference"`
	PaidAmount       string               `json:"paid_amount"`
}

// PaymentUpdateResult is the outcome of a payment-status update. The email
// result is surfaced as a boolean rather than an error so a failed
// confirmation never masks a successful payment.
type PaymentUpdateResult struct {
	Invoice               *models.Invoice `json:"invoice"`
	EmailNotificationSent bool            `json:"email_notification_sent"`
}

// BulkAuthorizeResult reports the best-effort outcome of a bulk payout
// authorization: every failure is collected, none aborts the batch.
type BulkAuthorizeResult struct {
	ProcessedInvoices int             `json:"processed_invoices"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	EmailsSent        int             `json:"emails_sent"`
	Errors            []string        `json:"errors"`
}

// Create raises an invoice for approved work. The worker must hold an
// approved application for the project; untouched work cannot be invoiced.
func (s *InvoiceService) Create(ctx context.Context, input CreateInvoiceInput, adminID uuid.UUID) (*models.Invoice, error) {
	project, err := s.Projects.GetByID(input.ProjectID)
	if err != nil {
		return nil, translateNotFound(err, "project not found")
	}
	worker, err := s.Workers.GetByID(input.WorkerID)
	if err != nil {
		return nil, translateNotFound(err, "worker not found")
	}
	if worker.AnnotatorStatus != models.AnnotatorStatusApproved {
		return nil, apperrors.Validation("worker is not an approved annotator")
	}

	app, err := s.Apps.GetByProjectAndWorker(input.ProjectID, input.WorkerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Validation("worker has no application for this project")
		}
		return nil, err
	}
	if app.Status != models.ApplicationStatusApproved {
		return nil, apperrors.Validation("worker's application is not approved; cannot invoice")
	}

	amount, err := parseAmount(input.Amount)
	if err != nil {
		return nil, apperrors.Validation("invoice amount must be a positive amount")
	}
	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}

	now := time.Now().UTC()
	dueDate := input.DueDate
	if dueDate.IsZero() {
		dueDate = now.AddDate(0, 0, 14)
	}

	number, err := s.nextInvoiceNumber(now)
	if err != nil {
		return nil, err
	}

	invoice := &models.Invoice{
		ID:            uuid.New(),
		ProjectID:     input.ProjectID,
		WorkerID:      input.WorkerID,
		InvoiceNumber: number,
		Amount:        amount,
		Currency:      currency,
		IssuedAt:      now,
		DueDate:       dueDate,
		PaymentStatus: models.PaymentStatusUnpaid,
		Notes:         input.Notes,
	}
	if err := s.Invoices.Create(invoice); err != nil {
		return nil, err
	}

	// Best-effort issue notification; the email flags are recorded either
	// way so later payment updates know whether the worker was told.
	sent := s.Dispatcher.DispatchOne(ctx, notification.InvoiceIssuedEmail(
		worker.Email, worker.Name, project.Name, invoice.InvoiceNumber,
		invoice.Amount, invoice.Currency, invoice.DueDate))
	invoice.EmailSent = sent
	if sent {
		sentAt := time.Now().UTC()
		invoice.EmailSentAt = &sentAt
	}
	if err := s.Invoices.Update(invoice); err != nil {
		log.Printf("Failed to record email flags on invoice %s: %v", invoice.ID, err)
	}

	log.Printf("Invoice %s created for worker %s on project %s by admin %s",
		invoice.InvoiceNumber, input.WorkerID, input.ProjectID, adminID)
	return invoice, nil
}

// UpdatePaymentStatus applies a manual payment-status change. Transitions to
// paid stamp the payment fields, default the paid amount to the full invoice
// amount, and send a best-effort confirmation email.
func (s *InvoiceService) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, input UpdatePaymentInput) (*PaymentUpdateResult, error) {
	invoice, err := s.Invoices.GetByID(id)
	if err != nil {
		return nil, translateNotFound(err, "invoice not found")
	}

	if input.PaymentStatus != models.PaymentStatusPaid {
		return nil, apperrors.Validation("only a transition to paid is supported")
	}
	if invoice.PaymentStatus == models.PaymentStatusPaid {
		return nil, apperrors.Validation("invoice is already paid")
	}

	paidAmount := invoice.Amount
	if input.PaidAmount != "" {
		paidAmount, err = parseAmount(input.PaidAmount)
		if err != nil {
			return nil, apperrors.Validation("paid amount must be a positive amount")
		}
	}
	method := input.PaymentMethod
	if method == "" {
		method = models.MethodManual
	}

	if err := s.Invoices.MarkPaid(id, method, input.PaymentReference, paidAmount, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotUnpaid) {
			return nil, apperrors.Validation("invoice is already paid")
		}
		return nil, err
	}
	s.Metrics.RecordInvoicePaid()

	invoice, err = s.Invoices.GetByID(id)
	if err != nil {
		return nil, err
	}

	emailSent := false
	if worker, werr := s.Workers.GetByID(invoice.WorkerID); werr == nil {
		emailSent = s.Dispatcher.DispatchOne(ctx, notification.PaymentConfirmationEmail(
			worker.Email, worker.Name, invoice.InvoiceNumber, paidAmount,
			invoice.Currency, input.PaymentReference))
	}

	return &PaymentUpdateResult{Invoice: invoice, EmailNotificationSent: emailSent}, nil
}

// BulkAuthorizePayment marks every unpaid invoice paid under one synthetic
// bulk reference. One invoice's failure is appended to the error list and
// the batch continues; the semantics are best-effort all, report partial
// failure.
func (s *InvoiceService) BulkAuthorizePayment(ctx context.Context, adminEmail string) (*BulkAuthorizeResult, error) {
	invoices, err := s.Invoices.ListUnpaid(nil)
	if err != nil {
		return nil, err
	}

	result := &BulkAuthorizeResult{TotalAmount: decimal.Zero, Errors: []string{}}
	reference := fmt.Sprintf("BULK-%s", time.Now().UTC().Format("20060102-150405"))
	now := time.Now().UTC()

	for _, invoice := range invoices {
		if err := s.Invoices.MarkPaid(invoice.ID, models.MethodBankTransfer, reference, invoice.Amount, now); err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("invoice %s: %v", invoice.InvoiceNumber, err))
			continue
		}
		s.Metrics.RecordInvoicePaid()
		result.ProcessedInvoices++
		result.TotalAmount = result.TotalAmount.Add(invoice.Amount)

		worker, werr := s.Workers.GetByID(invoice.WorkerID)
		if werr != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("invoice %s: worker lookup failed: %v", invoice.InvoiceNumber, werr))
			continue
		}
		if s.Dispatcher.DispatchOne(ctx, notification.PaymentConfirmationEmail(
			worker.Email, worker.Name, invoice.InvoiceNumber, invoice.Amount,
			invoice.Currency, reference)) {
			result.EmailsSent++
		} else {
			result.Errors = append(result.Errors,
				fmt.Sprintf("invoice %s: confirmation email failed", invoice.InvoiceNumber))
		}
	}

	log.Printf("Bulk payment authorized by %s: %d invoices, %s total, %d errors",
		adminEmail, result.ProcessedInvoices, result.TotalAmount.StringFixed(2), len(result.Errors))
	return result, nil
}

// Delete removes an invoice that is still inside the correction window.
// Paid invoices and invoices older than 24 hours are audit records and can
// never be deleted.
func (s *InvoiceService) Delete(id uuid.UUID) error {
	invoice, err := s.Invoices.GetByID(id)
	if err != nil {
		return translateNotFound(err, "invoice not found")
	}
	if invoice.PaymentStatus == models.PaymentStatusPaid {
		return apperrors.Validation("paid invoices cannot be deleted")
	}
	if time.Since(invoice.IssuedAt) >= invoiceDeletionWindow {
		return apperrors.Validation("invoices older than 24 hours cannot be deleted")
	}
	return s.Invoices.Delete(id)
}

// Get retrieves one invoice.
func (s *InvoiceService) Get(id uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.Invoices.GetByID(id)
	if err != nil {
		return nil, translateNotFound(err, "invoice not found")
	}
	return invoice, nil
}

// List retrieves all invoices, newest first.
func (s *InvoiceService) List() ([]models.Invoice, error) {
	return s.Invoices.List()
}

// nextInvoiceNumber continues the month's sequence from the highest suffix
// already issued, so numbers freed by a corrected invoice are never reused.
func (s *InvoiceService) nextInvoiceNumber(now time.Time) (string, error) {
	prefix := fmt.Sprintf("INV-%s-", now.Format("200601"))
	last, err := s.Invoices.LastInvoiceNumber(prefix)
	if err != nil {
		return "", err
	}
	seq := 0
	if last != "" {
		seq, err = strconv.Atoi(strings.TrimPrefix(last, prefix))
		if err != nil {
			return "", fmt.Errorf("malformed invoice number %q: %w", last, err)
		}
	}
	return fmt.Sprintf("%s%06d", prefix, seq+1), nil
}

// parseAmount parses a positive decimal money amount from its string form.
func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("amount must be positive")
	}
	return amount, nil
}
