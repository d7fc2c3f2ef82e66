package videos

import (
	"context"

	"github.com/clipforge/video-pipeline/internal/models"
)

type RedisRepository interface {
	EnqueueJob(ctx context.Context, key string, job *models.ProcessJob) error
	PeekJob(ctx context.Context, key string) (*models.ProcessJob, error)
	DequeueJob(ctx context.Context, key string) (*models.ProcessJob, error)

	GetJob(ctx context.Context, key string, jobID string) (*models.ProcessJob, error)
	GetJobStatus(ctx context.Context, key string, jobID string) (models.JobStatus, error)

	UpdateProgress(ctx context.Context, jobID string, key string, progress float64) error
	UpdateStatus(ctx context.Context, jobID string, key string, status models.JobStatus) error
	SetJobError(ctx context.Context, jobID string, key string, message string) error
}
