package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"annotation-service/internal/models"
	"annotation-service/internal/notification"
	"annotation-service/internal/repository"
)

// In-memory repository fakes. They reproduce the guarded-transition
// semantics of the real implementations, including the sentinel errors for
// zero-row conditional updates.

type fakeProjectRepo struct {
	mu       sync.Mutex
	projects map[uuid.UUID]models.Project

	// deleteErr, when set, is returned by Delete without removing the row.
	deleteErr error
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{projects: make(map[uuid.UUID]models.Project)}
}

func (r *fakeProjectRepo) Create(project *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[project.ID] = *project
	return nil
}

func (r *fakeProjectRepo) GetByID(id uuid.UUID) (*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, ok := r.projects[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copy := project
	return &copy, nil
}

func (r *fakeProjectRepo) List() ([]models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Project, 0, len(r.projects))
	for _, p := range r.projects {
		out = append(out, p)
	}
	return out, nil
}

func (r *fakeProjectRepo) Update(project *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[project.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.projects[project.ID] = *project
	return nil
}

func (r *fakeProjectRepo) Delete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.projects, id)
	return nil
}

func (r *fakeProjectRepo) IncrementTotalApplications(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, ok := r.projects[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	project.TotalApplicationCount++
	r.projects[id] = project
	return nil
}

type fakeApplicationRepo struct {
	mu       sync.Mutex
	apps     map[uuid.UUID]models.Application
	projects *fakeProjectRepo

	// createErr, when set, is returned by Create to simulate an insert
	// failing for a reason other than the unique index.
	createErr error
}

func newFakeApplicationRepo(projects *fakeProjectRepo) *fakeApplicationRepo {
	return &fakeApplicationRepo{
		apps:     make(map[uuid.UUID]models.Application),
		projects: projects,
	}
}

func (r *fakeApplicationRepo) Create(app *models.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.apps {
		if existing.ProjectID == app.ProjectID && existing.WorkerID == app.WorkerID {
			return gorm.ErrDuplicatedKey
		}
	}
	r.apps[app.ID] = *app
	return nil
}

func (r *fakeApplicationRepo) GetByID(id uuid.UUID) (*models.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copy := app
	return &copy, nil
}

func (r *fakeApplicationRepo) GetByProjectAndWorker(projectID, workerID uuid.UUID) (*models.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, app := range r.apps {
		if app.ProjectID == projectID && app.WorkerID == workerID {
			copy := app
			return &copy, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeApplicationRepo) ListByProject(projectID uuid.UUID) ([]models.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Application
	for _, app := range r.apps {
		if app.ProjectID == projectID {
			out = append(out, app)
		}
	}
	return out, nil
}

func (r *fakeApplicationRepo) ListByWorker(workerID uuid.UUID) ([]models.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Application
	for _, app := range r.apps {
		if app.WorkerID == workerID {
			out = append(out, app)
		}
	}
	return out, nil
}

func (r *fakeApplicationRepo) ListPendingByIDs(ids []uuid.UUID) ([]models.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Application
	for _, id := range ids {
		if app, ok := r.apps[id]; ok && app.Status == models.ApplicationStatusPending {
			out = append(out, app)
		}
	}
	return out, nil
}

func (r *fakeApplicationRepo) CountActiveByProject(projectID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, app := range r.apps {
		if app.ProjectID != projectID {
			continue
		}
		for _, status := range models.ActiveApplicationStatuses {
			if app.Status == status {
				count++
				break
			}
		}
	}
	return count, nil
}

func (r *fakeApplicationRepo) CountByProjectAndStatus(projectID uuid.UUID, status models.ApplicationStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, app := range r.apps {
		if app.ProjectID == projectID && app.Status == status {
			count++
		}
	}
	return count, nil
}

func (r *fakeApplicationRepo) Update(app *models.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apps[app.ID] = *app
	return nil
}

func (r *fakeApplicationRepo) Approve(id uuid.UUID, reviewerID uuid.UUID, notes string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}

	r.projects.mu.Lock()
	project, ok := r.projects.projects[app.ProjectID]
	if !ok {
		r.projects.mu.Unlock()
		return gorm.ErrRecordNotFound
	}
	if project.MaxAnnotators != nil && project.ApprovedAnnotatorCount >= *project.MaxAnnotators {
		r.projects.mu.Unlock()
		return repository.ErrCapacityFull
	}
	if app.Status != models.ApplicationStatusPending {
		r.projects.mu.Unlock()
		return repository.ErrNotPending
	}
	project.ApprovedAnnotatorCount++
	r.projects.projects[app.ProjectID] = project
	r.projects.mu.Unlock()

	app.Status = models.ApplicationStatusApproved
	app.ReviewedAt = &now
	app.ReviewedBy = &reviewerID
	app.ReviewNotes = notes
	app.WorkStartedAt = &now
	r.apps[id] = app
	return nil
}

func (r *fakeApplicationRepo) Reject(id uuid.UUID, reviewerID uuid.UUID, reason models.RejectionReason, notes string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok || app.Status != models.ApplicationStatusPending {
		return repository.ErrNotPending
	}
	app.Status = models.ApplicationStatusRejected
	app.ReviewedAt = &now
	app.ReviewedBy = &reviewerID
	app.ReviewNotes = notes
	app.RejectionReason = reason
	r.apps[id] = app
	return nil
}

func (r *fakeApplicationRepo) RejectBulk(ids []uuid.UUID, reviewerID uuid.UUID, reason models.RejectionReason, notes string, now time.Time) (int64, error) {
	var updated int64
	for _, id := range ids {
		if err := r.Reject(id, reviewerID, reason, notes, now); err == nil {
			updated++
		}
	}
	return updated, nil
}

func (r *fakeApplicationRepo) RemoveApproved(id uuid.UUID, adminID uuid.UUID, reason, notes string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok || app.Status != models.ApplicationStatusApproved {
		return repository.ErrNotApproved
	}
	app.Status = models.ApplicationStatusRemoved
	app.RemovedAt = &now
	app.RemovedBy = &adminID
	app.RemovalReason = reason
	app.RemovalNotes = notes
	r.apps[id] = app

	r.projects.mu.Lock()
	if project, ok := r.projects.projects[app.ProjectID]; ok && project.ApprovedAnnotatorCount > 0 {
		project.ApprovedAnnotatorCount--
		r.projects.projects[app.ProjectID] = project
	}
	r.projects.mu.Unlock()
	return nil
}

func (r *fakeApplicationRepo) Withdraw(id uuid.UUID, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok || app.Status != models.ApplicationStatusPending {
		return repository.ErrNotPending
	}
	app.Status = models.ApplicationStatusWithdrawn
	r.apps[id] = app
	return nil
}

func (r *fakeApplicationRepo) ResolveAssessment(id uuid.UUID, score int, passed bool, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok || app.Status != models.ApplicationStatusAssessmentRequired {
		return repository.ErrNotPending
	}
	app.AssessmentScore = &score
	app.AssessmentPassed = &passed
	if passed {
		app.Status = models.ApplicationStatusPending
	} else {
		app.Status = models.ApplicationStatusRejected
		app.RejectionReason = models.ReasonFailedAssessment
		app.ReviewedAt = &now
	}
	r.apps[id] = app
	return nil
}

func (r *fakeApplicationRepo) DeleteByProject(projectID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, app := range r.apps {
		if app.ProjectID == projectID {
			delete(r.apps, id)
			deleted++
		}
	}
	return deleted, nil
}

type fakeWorkerRepo struct {
	mu      sync.Mutex
	workers map[uuid.UUID]models.Worker
}

func newFakeWorkerRepo() *fakeWorkerRepo {
	return &fakeWorkerRepo{workers: make(map[uuid.UUID]models.Worker)}
}

func (r *fakeWorkerRepo) Create(worker *models.Worker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workers[worker.ID] = *worker
	return nil
}

func (r *fakeWorkerRepo) GetByID(id uuid.UUID) (*models.Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	worker, ok := r.workers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copy := worker
	return &copy, nil
}

func (r *fakeWorkerRepo) GetByEmail(email string) (*models.Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, worker := range r.workers {
		if worker.Email == email {
			copy := worker
			return &copy, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeWorkerRepo) List() ([]models.Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Worker, 0, len(r.workers))
	for _, w := range r.workers {
		out = append(out, w)
	}
	return out, nil
}

func (r *fakeWorkerRepo) Update(worker *models.Worker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workers[worker.ID] = *worker
	return nil
}

func (r *fakeWorkerRepo) UpdateAnnotatorStatus(id uuid.UUID, status models.AnnotatorStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	worker, ok := r.workers[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	worker.AnnotatorStatus = status
	r.workers[id] = worker
	return nil
}

type fakeInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[uuid.UUID]models.Invoice
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{invoices: make(map[uuid.UUID]models.Invoice)}
}

func (r *fakeInvoiceRepo) Create(invoice *models.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices[invoice.ID] = *invoice
	return nil
}

func (r *fakeInvoiceRepo) GetByID(id uuid.UUID) (*models.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	invoice, ok := r.invoices[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copy := invoice
	return &copy, nil
}

func (r *fakeInvoiceRepo) List() ([]models.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Invoice, 0, len(r.invoices))
	for _, invoice := range r.invoices {
		out = append(out, invoice)
	}
	return out, nil
}

func (r *fakeInvoiceRepo) ListUnpaid(ids []uuid.UUID) ([]models.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []models.Invoice
	for _, invoice := range r.invoices {
		if invoice.PaymentStatus != models.PaymentStatusUnpaid {
			continue
		}
		if len(ids) > 0 && !wanted[invoice.ID] {
			continue
		}
		out = append(out, invoice)
	}
	return out, nil
}

func (r *fakeInvoiceRepo) LastInvoiceNumber(prefix string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var last string
	for _, invoice := range r.invoices {
		if strings.HasPrefix(invoice.InvoiceNumber, prefix) && invoice.InvoiceNumber > last {
			last = invoice.InvoiceNumber
		}
	}
	return last, nil
}

func (r *fakeInvoiceRepo) Update(invoice *models.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices[invoice.ID] = *invoice
	return nil
}

func (r *fakeInvoiceRepo) MarkPaid(id uuid.UUID, method models.PaymentMethod, reference string, paidAmount decimal.Decimal, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	invoice, ok := r.invoices[id]
	if !ok || invoice.PaymentStatus != models.PaymentStatusUnpaid {
		return repository.ErrNotUnpaid
	}
	invoice.PaymentStatus = models.PaymentStatusPaid
	invoice.PaidAt = &now
	invoice.PaidAmount = &paidAmount
	invoice.PaymentMethod = method
	invoice.PaymentReference = reference
	r.invoices[id] = invoice
	return nil
}

func (r *fakeInvoiceRepo) Delete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.invoices, id)
	return nil
}

// fakeSender records every send and fails for addresses listed in failFor.
type fakeSender struct {
	mu      sync.Mutex
	sent    []notification.Email
	failFor map[string]bool
}

func newFakeSender() *fakeSender {
	return &fakeSender{failFor: make(map[string]bool)}
}

func (s *fakeSender) Send(ctx context.Context, email notification.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[email.To] {
		return fmt.Errorf("smtp refused %s", email.To)
	}
	s.sent = append(s.sent, email)
	return nil
}

func (s *fakeSender) sentTo(addr string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, email := range s.sent {
		if email.To == addr {
			count++
		}
	}
	return count
}

// fixedRateSource returns one rate, or an error when rate is zero.
type fixedRateSource struct {
	rate decimal.Decimal
}

func (s *fixedRateSource) USDToNGNRate(ctx context.Context) (decimal.Decimal, error) {
	if s.rate.IsZero() {
		return decimal.Zero, fmt.Errorf("rate source unavailable")
	}
	return s.rate, nil
}
