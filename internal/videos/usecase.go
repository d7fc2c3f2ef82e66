package videos

import (
	"context"

	"github.com/google/uuid"

	"github.com/clipforge/video-pipeline/internal/chunker"
	"github.com/clipforge/video-pipeline/internal/models"
	"github.com/clipforge/video-pipeline/pkg/utils"
)

type UseCase interface {
	GetPresignURL(ctx context.Context, input *models.UploadInput) (string, error)
	RegisterVideo(ctx context.Context, input *models.VideoUploadInput) (*models.VideoRecord, *models.ProcessJob, error)
	GetVideo(ctx context.Context, videoID uuid.UUID) (*models.VideoRecord, error)
	ListVideos(ctx context.Context, pq *utils.Pagination) (*models.VideoList, error)
	SearchVideos(ctx context.Context, query string, pq *utils.Pagination) (*models.VideoList, error)
	DeleteVideo(ctx context.Context, videoID uuid.UUID) error
	GetJobStatus(ctx context.Context, jobID string) (*models.ProcessJob, error)
	EstimateProcessing(ctx context.Context, input *models.VideoUploadInput) (*chunker.ProcessingEstimate, error)
	Strategies() []string
}
