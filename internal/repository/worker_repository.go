package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"annotation-service/internal/models"
)

// WorkerRepository defines persistence operations for workers.
type WorkerRepository interface {
	Create(worker *models.Worker) error
	GetByID(id uuid.UUID) (*models.Worker, error)
	GetByEmail(email string) (*models.Worker, error)
	List() ([]models.Worker, error)
	Update(worker *models.Worker) error
	UpdateAnnotatorStatus(id uuid.UUID, status models.AnnotatorStatus) error
}

// WorkerRepositoryImpl provides methods to interact with the Worker model in
// the database.
type WorkerRepositoryImpl struct {
	db *gorm.DB
}

// NewWorkerRepository creates a new WorkerRepositoryImpl instance with the
// provided GORM database connection.
func NewWorkerRepository(db *gorm.DB) *WorkerRepositoryImpl {
	return &WorkerRepositoryImpl{db: db}
}

// Create creates a new Worker in the database.
func (r *WorkerRepositoryImpl) Create(worker *models.Worker) error {
	return r.db.Create(worker).Error
}

// GetByID retrieves a Worker by its ID from the database.
func (r *WorkerRepositoryImpl) GetByID(id uuid.UUID) (*models.Worker, error) {
	var worker models.Worker
	err := r.db.First(&worker, "id = ?", id).Error
	return &worker, err
}

// GetByEmail retrieves a Worker by email.
func (r *WorkerRepositoryImpl) GetByEmail(email string) (*models.Worker, error) {
	var worker models.Worker
	err := r.db.First(&worker, "email = ?", email).Error
	return &worker, err
}

// List retrieves all Workers from the database.
func (r *WorkerRepositoryImpl) List() ([]models.Worker, error) {
	var workers []models.Worker
	err := r.db.Find(&workers).Error
	return workers, err
}

// Update updates an existing Worker in the database.
func (r *WorkerRepositoryImpl) Update(worker *models.Worker) error {
	return r.db.Save(worker).Error
}

// UpdateAnnotatorStatus sets only the annotator status column.
func (r *WorkerRepositoryImpl) UpdateAnnotatorStatus(id uuid.UUID, status models.AnnotatorStatus) error {
	return r.db.Model(&models.Worker{}).
		Where("id = ?", id).
		Update("annotator_status", status).Error
}
