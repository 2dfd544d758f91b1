package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"annotation-service/internal/apperrors"
	"annotation-service/internal/models"
	"annotation-service/internal/notification"
)

const officerEmail = "projects-officer@example.com"

type projectFixture struct {
	projects *fakeProjectRepo
	apps     *fakeApplicationRepo
	sender   *fakeSender
	service  *ProjectService
}

func newProjectFixture() *projectFixture {
	projects := newFakeProjectRepo()
	apps := newFakeApplicationRepo(projects)
	sender := newFakeSender()
	service := NewProjectService(projects, apps, notification.NewDispatcher(sender, nil), nil, officerEmail)
	return &projectFixture{projects: projects, apps: apps, sender: sender, service: service}
}

func (f *projectFixture) addProject(t *testing.T) *models.Project {
	t.Helper()
	project := &models.Project{
		ID:       uuid.New(),
		Name:     "Receipt Transcription",
		Category: models.CategoryTextAnnotation,
		Status:   models.ProjectStatusActive,
	}
	require.NoError(t, f.projects.Create(project))
	return project
}

func (f *projectFixture) addApplication(t *testing.T, projectID uuid.UUID, status models.ApplicationStatus) *models.Application {
	t.Helper()
	app := &models.Application{
		ID:        uuid.New(),
		ProjectID: projectID,
		WorkerID:  uuid.New(),
		Status:    status,
		ResumeURL: "https://cdn/resume.pdf",
		AppliedAt: time.Now().UTC(),
	}
	require.NoError(t, f.apps.Create(app))
	return app
}

func (f *projectFixture) storedCode(t *testing.T, projectID uuid.UUID) string {
	t.Helper()
	project, err := f.projects.GetByID(projectID)
	require.NoError(t, err)
	return project.DeletionOTP.Code
}

func TestCreateProjectStartsInDraft(t *testing.T) {
	f := newProjectFixture()

	project, err := f.service.Create(CreateProjectInput{
		Name:     "Pose Estimation",
		Category: models.CategoryVideoLabeling,
		PayRate:  "0.35",
		RateType: models.RatePerLabel,
	}, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusDraft, project.Status)
	assert.Equal(t, "USD", project.Currency)
	assert.Equal(t, "0.35", project.PayRate.StringFixed(2))
}

func TestCreateProjectValidation(t *testing.T) {
	f := newProjectFixture()

	_, err := f.service.Create(CreateProjectInput{Category: models.CategoryOther, PayRate: "1"}, uuid.New())
	require.Error(t, err)

	_, err = f.service.Create(CreateProjectInput{Name: "X", Category: "bogus", PayRate: "1"}, uuid.New())
	require.Error(t, err)

	_, err = f.service.Create(CreateProjectInput{Name: "X", Category: models.CategoryOther, PayRate: "-2"}, uuid.New())
	require.Error(t, err)
}

func TestUpdateCapacityBelowApprovedCount(t *testing.T) {
	f := newProjectFixture()
	project := f.addProject(t)
	project.ApprovedAnnotatorCount = 3
	require.NoError(t, f.projects.Update(project))

	_, err := f.service.UpdateCapacity(project.ID, intPtr(2))
	require.Error(t, err)
	details := apperrors.DetailsOf(err)
	require.NotNil(t, details)
	assert.Equal(t, 3, details["approvedAnnotatorCount"])

	updated, err := f.service.UpdateCapacity(project.ID, intPtr(3))
	require.NoError(t, err)
	assert.Equal(t, 3, *updated.MaxAnnotators)
}

func TestDeleteRefusedWithLiveApplications(t *testing.T) {
	f := newProjectFixture()
	project := f.addProject(t)
	f.addApplication(t, project.ID, models.ApplicationStatusPending)
	f.addApplication(t, project.ID, models.ApplicationStatusApproved)
	f.addApplication(t, project.ID, models.ApplicationStatusRejected)

	_, err := f.service.Delete(context.Background(), project.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

	details := apperrors.DetailsOf(err)
	require.NotNil(t, details)
	assert.Equal(t, int64(2), details["activeApplications"])
	assert.Equal(t, true, details["requiresOTP"])

	// Nothing was deleted.
	_, err = f.projects.GetByID(project.ID)
	require.NoError(t, err)
}

func TestDeleteCascadesTerminalApplications(t *testing.T) {
	f := newProjectFixture()
	project := f.addProject(t)
	f.addApplication(t, project.ID, models.ApplicationStatusRejected)
	f.addApplication(t, project.ID, models.ApplicationStatusWithdrawn)

	manifest, err := f.service.Delete(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), manifest.DeletedApplications.Total)
	assert.Equal(t, int64(0), manifest.DeletedApplications.Pending)
	assert.Equal(t, int64(0), manifest.DeletedApplications.Approved)
	assert.Equal(t, int64(2), manifest.DeletedApplications.Other)

	_, err = f.projects.GetByID(project.ID)
	require.Error(t, err)
}

func TestRequestDeletionOTPGoesToOfficerOnly(t *testing.T) {
	f := newProjectFixture()
	project := f.addProject(t)

	result, err := f.service.RequestDeletionOTP(context.Background(), project.ID, uuid.New(), "admin@example.com", "client cancelled")
	require.NoError(t, err)
	assert.Equal(t, officerEmail, result.SentTo)
	assert.True(t, result.ExpiresAt.After(time.Now()))

	assert.Equal(t, 1, f.sender.sentTo(officerEmail))
	assert.Equal(t, 0, f.sender.sentTo("admin@example.com"))

	code := f.storedCode(t, project.ID)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), code)
}

func TestRequestDeletionOTPRequiresReason(t *testing.T) {
	f := newProjectFixture()
	project := f.addProject(t)

	_, err := f.service.RequestDeletionOTP(context.Background(), project.ID, uuid.New(), "admin@example.com", "")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestVerifyOTPDeletesWithManifest(t *testing.T) {
	f := newProjectFixture()
	project := f.addProject(t)
	f.addApplication(t, project.ID, models.ApplicationStatusPending)
	f.addApplication(t, project.ID, models.ApplicationStatusApproved)
	f.addApplication(t, project.ID, models.ApplicationStatusRejected)

	_, err := f.service.RequestDeletionOTP(context.Background(), project.ID, uuid.New(), "admin@example.com", "duplicate posting")
	require.NoError(t, err)
	code := f.storedCode(t, project.ID)

	manifest, err := f.service.VerifyOTPAndDelete(context.Background(), project.ID, uuid.New(), code, "confirmed with the client")
	require.NoError(t, err)
	assert.Equal(t, project.Name, manifest.ProjectName)
	assert.Equal(t, int64(3), manifest.DeletedApplications.Total)
	assert.Equal(t, int64(1), manifest.DeletedApplications.Pending)
	assert.Equal(t, int64(1), manifest.DeletedApplications.Approved)
	assert.Equal(t, int64(1), manifest.DeletedApplications.Other)

	_, err = f.projects.GetByID(project.ID)
	require.Error(t, err)

	// Request notification plus deletion confirmation, with the admin's
	// confirmation message quoted for the audit trail.
	assert.Equal(t, 2, f.sender.sentTo(officerEmail))
	last := f.sender.sent[len(f.sender.sent)-1]
	assert.Contains(t, last.Body, "confirmed with the client")
}

func TestVerifyOTPWithoutRequest(t *testing.T) {
	f := newProjectFixture()
	project := f.addProject(t)

	_, err := f.service.VerifyOTPAndDelete(context.Background(), project.ID, uuid.New(), "123456", "")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestVerifyOTPWrongCodeExhaustsAttempts(t *testing.T) {
	f := newProjectFixture()
	project := f.addProject(t)
	f.addApplication(t, project.ID, models.ApplicationStatusPending)

	_, err := f.service.RequestDeletionOTP(context.Background(), project.ID, uuid.New(), "admin@example.com", "stale project")
	require.NoError(t, err)
	code := f.storedCode(t, project.ID)
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	for i := 0; i < 4; i++ {
		_, err = f.service.VerifyOTPAndDelete(context.Background(), project.ID, uuid.New(), wrong, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "incorrect deletion code")
	}

	// The fifth wrong guess burns the code.
	_, err = f.service.VerifyOTPAndDelete(context.Background(), project.ID, uuid.New(), wrong, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many incorrect codes")

	// Even the right code is now useless.
	_, err = f.service.VerifyOTPAndDelete(context.Background(), project.ID, uuid.New(), code, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no deletion code has been requested")

	_, err = f.projects.GetByID(project.ID)
	require.NoError(t, err)
}

func TestVerifyOTPExpiredCodeIsCleared(t *testing.T) {
	f := newProjectFixture()
	project := f.addProject(t)

	_, err := f.service.RequestDeletionOTP(context.Background(), project.ID, uuid.New(), "admin@example.com", "abandoned")
	require.NoError(t, err)
	code := f.storedCode(t, project.ID)

	stored, err := f.projects.GetByID(project.ID)
	require.NoError(t, err)
	past := time.Now().UTC().Add(-time.Minute)
	stored.DeletionOTP.ExpiresAt = &past
	require.NoError(t, f.projects.Update(stored))

	_, err = f.service.VerifyOTPAndDelete(context.Background(), project.ID, uuid.New(), code, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")

	assert.Empty(t, f.storedCode(t, project.ID))

	_, err = f.service.VerifyOTPAndDelete(context.Background(), project.ID, uuid.New(), code, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no deletion code has been requested")
}

func TestVerifyOTPCodeIsSingleUse(t *testing.T) {
	f := newProjectFixture()
	project := f.addProject(t)
	f.addApplication(t, project.ID, models.ApplicationStatusPending)

	_, err := f.service.RequestDeletionOTP(context.Background(), project.ID, uuid.New(), "admin@example.com", "client cancelled")
	require.NoError(t, err)
	code := f.storedCode(t, project.ID)

	// The project delete fails after the code has been consumed, so the
	// project row survives with the code marked used.
	f.projects.deleteErr = errors.New("database unavailable")
	_, err = f.service.VerifyOTPAndDelete(context.Background(), project.ID, uuid.New(), code, "")
	require.Error(t, err)

	stored, err := f.projects.GetByID(project.ID)
	require.NoError(t, err)
	assert.True(t, stored.DeletionOTP.Verified)

	// Replaying the same valid code must not trigger a second cascade.
	f.projects.deleteErr = nil
	_, err = f.service.VerifyOTPAndDelete(context.Background(), project.ID, uuid.New(), code, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deletion code already used")

	_, err = f.projects.GetByID(project.ID)
	require.NoError(t, err)
}

func TestRequestDeletionOTPReplacesPreviousCode(t *testing.T) {
	f := newProjectFixture()
	project := f.addProject(t)

	_, err := f.service.RequestDeletionOTP(context.Background(), project.ID, uuid.New(), "admin@example.com", "first")
	require.NoError(t, err)

	_, err = f.service.RequestDeletionOTP(context.Background(), project.ID, uuid.New(), "admin@example.com", "second")
	require.NoError(t, err)
	code := f.storedCode(t, project.ID)

	_, err = f.service.VerifyOTPAndDelete(context.Background(), project.ID, uuid.New(), code, "")
	require.NoError(t, err)
}
