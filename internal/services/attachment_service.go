package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"

	"annotation-service/internal/apperrors"
	"annotation-service/internal/extraction"
	"annotation-service/internal/models"
	"annotation-service/internal/repository"
)

// AttachmentService stores worker resumes and portfolio files in object
// storage and records the resulting URLs on the worker profile.
type AttachmentService struct {
	Workers    repository.WorkerRepository
	Minio      *minio.Client
	BucketName string
	PublicURL  string
}

// NewAttachmentService creates a new AttachmentService with the given
// repository and storage client. publicURL is the externally reachable base
// of the bucket, e.g. "https://files.example.com/annotation-uploads".
func NewAttachmentService(workers repository.WorkerRepository, minioClient *minio.Client, bucketName, publicURL string) *AttachmentService {
	return &AttachmentService{
		Workers:    workers,
		Minio:      minioClient,
		BucketName: bucketName,
		PublicURL:  strings.TrimRight(publicURL, "/"),
	}
}

func isAllowedResumeExtension(ext string) bool {
	allowed := map[string]bool{
		".pdf": true, ".doc": true, ".docx": true,
	}
	return allowed[ext]
}

func isArchiveExtension(ext string) bool {
	return ext == ".zip" || ext == ".rar"
}

func (s *AttachmentService) objectURL(key string) string {
	return s.PublicURL + "/" + key
}

func (s *AttachmentService) storeFile(ctx context.Context, key, path, contentType string) error {
	_, err := s.Minio.FPutObject(ctx, s.BucketName, key, path, minio.PutObjectOptions{ContentType: contentType})
	return errors.Wrapf(err, "storing %s", key)
}

// UploadResume stores a worker's resume document and sets the profile's
// resume URL. Replacing a resume deletes the previous stored object.
func (s *AttachmentService) UploadResume(ctx context.Context, workerID uuid.UUID, fileHeader *multipart.FileHeader) (*models.Worker, error) {
	worker, err := s.Workers.GetByID(workerID)
	if err != nil {
		return nil, apperrors.NotFound("worker not found")
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !isAllowedResumeExtension(ext) {
		return nil, apperrors.Validation("resume must be a PDF or Word document")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return nil, errors.Wrap(err, "opening uploaded resume")
	}
	defer src.Close()

	key := fmt.Sprintf("resumes/%s/%s%s", workerID, uuid.New(), ext)
	_, err = s.Minio.PutObject(ctx, s.BucketName, key, src, fileHeader.Size,
		minio.PutObjectOptions{ContentType: fileHeader.Header.Get("Content-Type")})
	if err != nil {
		return nil, errors.Wrap(err, "storing resume")
	}

	if worker.ResumeKey != "" {
		if err := s.Minio.RemoveObject(ctx, s.BucketName, worker.ResumeKey, minio.RemoveObjectOptions{}); err != nil {
			log.Printf("Failed to remove previous resume %s: %v", worker.ResumeKey, err)
		}
	}

	worker.ResumeKey = key
	worker.ResumeURL = s.objectURL(key)
	if err := s.Workers.Update(worker); err != nil {
		return nil, errors.Wrap(err, "saving worker resume reference")
	}

	log.Printf("Stored resume for worker %s: %s (%d bytes)", workerID, key, fileHeader.Size)
	return worker, nil
}

// UploadPortfolio accepts a zipped portfolio, extracts it and stores each
// contained file, recording the URLs on the worker profile.
func (s *AttachmentService) UploadPortfolio(ctx context.Context, workerID uuid.UUID, fileHeader *multipart.FileHeader) (*models.Worker, error) {
	worker, err := s.Workers.GetByID(workerID)
	if err != nil {
		return nil, apperrors.NotFound("worker not found")
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !isArchiveExtension(ext) {
		return nil, apperrors.Validation("portfolio must be a ZIP or RAR archive")
	}

	tmp, err := os.CreateTemp("", "portfolio-upload-*"+ext)
	if err != nil {
		return nil, errors.Wrap(err, "creating temp archive")
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	src, err := fileHeader.Open()
	if err != nil {
		return nil, errors.Wrap(err, "opening uploaded archive")
	}
	defer src.Close()
	if _, err := io.Copy(tmp, src); err != nil {
		return nil, errors.Wrap(err, "buffering uploaded archive")
	}

	files, destDir, err := extraction.ExtractArchive(tmp.Name())
	if err != nil {
		return nil, apperrors.New(apperrors.CodeValidation, "could not extract portfolio archive", err)
	}
	defer os.RemoveAll(destDir)

	batch := uuid.New().String()
	var urls []string
	for _, path := range files {
		key := fmt.Sprintf("portfolios/%s/%s/%s", workerID, batch, filepath.Base(path))
		if err := s.storeFile(ctx, key, path, "application/octet-stream"); err != nil {
			return nil, err
		}
		urls = append(urls, s.objectURL(key))
	}

	worker.PortfolioURLs = urls
	if err := s.Workers.Update(worker); err != nil {
		return nil, errors.Wrap(err, "saving worker portfolio references")
	}

	log.Printf("Stored portfolio for worker %s: %d files at %s", workerID, len(files), time.Now().UTC().Format(time.RFC3339))
	return worker, nil
}
