package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"annotation-service/internal/models"
)

// ProjectRepository defines persistence operations for projects.
type ProjectRepository interface {
	Create(project *models.Project) error
	GetByID(id uuid.UUID) (*models.Project, error)
	List() ([]models.Project, error)
	Update(project *models.Project) error
	Delete(id uuid.UUID) error

	// IncrementTotalApplications bumps the application counter atomically.
	IncrementTotalApplications(id uuid.UUID) error
}

// ProjectRepositoryImpl provides methods to interact with the Project model
// in the database.
type ProjectRepositoryImpl struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepositoryImpl instance with the
// provided GORM database connection.
func NewProjectRepository(db *gorm.DB) *ProjectRepositoryImpl {
	return &ProjectRepositoryImpl{db: db}
}

// Create creates a new Project in the database.
func (r *ProjectRepositoryImpl) Create(project *models.Project) error {
	return r.db.Create(project).Error
}

// GetByID retrieves a Project by its ID from the database.
func (r *ProjectRepositoryImpl) GetByID(id uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := r.db.First(&project, "id = ?", id).Error
	return &project, err
}

// List retrieves all Projects from the database.
func (r *ProjectRepositoryImpl) List() ([]models.Project, error) {
	var projects []models.Project
	err := r.db.Order("created_at DESC").Find(&projects).Error
	return projects, err
}

// Update updates an existing Project in the database.
func (r *ProjectRepositoryImpl) Update(project *models.Project) error {
	return r.db.Save(project).Error
}

// Delete deletes a Project by its ID from the database.
func (r *ProjectRepositoryImpl) Delete(id uuid.UUID) error {
	return r.db.Delete(&models.Project{}, "id = ?", id).Error
}

// IncrementTotalApplications bumps the application counter atomically.
func (r *ProjectRepositoryImpl) IncrementTotalApplications(id uuid.UUID) error {
	return r.db.Model(&models.Project{}).
		Where("id = ?", id).
		UpdateColumn("total_application_count", gorm.Expr("total_application_count + 1")).Error
}
