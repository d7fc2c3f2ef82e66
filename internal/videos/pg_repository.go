package videos

import (
	"context"

	"github.com/google/uuid"

	"github.com/clipforge/video-pipeline/internal/models"
	"github.com/clipforge/video-pipeline/pkg/utils"
)

type Repository interface {
	CreateVideo(ctx context.Context, video *models.VideoRecord) (*models.VideoRecord, error)
	GetVideos(ctx context.Context, pq *utils.Pagination) (*models.VideoList, error)
	GetVideoByID(ctx context.Context, videoID uuid.UUID) (*models.VideoRecord, error)
	GetVideosByQuery(ctx context.Context, query string, pq *utils.Pagination) (*models.VideoList, error)
	UpdateVideo(ctx context.Context, video *models.VideoRecord) (*models.VideoRecord, error)
	UpdateStatus(ctx context.Context, videoID uuid.UUID, status models.JobStatus, chunkCount int) error
	DeleteVideo(ctx context.Context, videoID uuid.UUID) error
}
