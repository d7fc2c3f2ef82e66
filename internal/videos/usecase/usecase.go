package usecase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clipforge/video-pipeline/internal/chunker"
	"github.com/clipforge/video-pipeline/internal/config"
	"github.com/clipforge/video-pipeline/internal/models"
	"github.com/clipforge/video-pipeline/internal/videos"
	"github.com/clipforge/video-pipeline/internal/videos/repository"
	"github.com/clipforge/video-pipeline/pkg/logger"
	"github.com/clipforge/video-pipeline/pkg/utils"
)

type videoUC struct {
	cfg       *config.Config
	videoRepo videos.Repository
	redisRepo videos.RedisRepository
	awsRepo   videos.AWSRepository
	optimizer *chunker.Optimizer
	logger    logger.Logger
}

func NewVideoUseCase(
	cfg *config.Config,
	videoRepo videos.Repository,
	redisRepo videos.RedisRepository,
	awsRepo videos.AWSRepository,
	optimizer *chunker.Optimizer,
	log logger.Logger,
) videos.UseCase {
	return &videoUC{
		cfg:       cfg,
		videoRepo: videoRepo,
		redisRepo: redisRepo,
		awsRepo:   awsRepo,
		optimizer: optimizer,
		logger:    log,
	}
}

func (v *videoUC) GetPresignURL(ctx context.Context, input *models.UploadInput) (string, error) {
	if input == nil {
		return "", fmt.Errorf("invalid input: input is nil")
	}
	if err := utils.ValidateStruct(ctx, input); err != nil {
		v.logger.Errorf("GetPresignURL - ValidateStruct error: %v", err)
		return "", err
	}

	input.BucketName = v.cfg.S3.InputBucket
	input.Key = fmt.Sprintf("uploads/%s", input.Name)

	v.logger.Infof("generating presigned URL for key: %s", input.Key)
	url, err := v.awsRepo.GetPresignedURL(ctx, input)
	if err != nil {
		v.logger.Errorf("GetPresignURL - GetPresignedURL error: %v", err)
		return "", fmt.Errorf("failed to generate presigned URL: %v", err)
	}
	return url, nil
}

// RegisterVideo persists the uploaded video's row and enqueues its pipeline
// job in one call. The returned job is already queued.
func (v *videoUC) RegisterVideo(ctx context.Context, input *models.VideoUploadInput) (*models.VideoRecord, *models.ProcessJob, error) {
	if err := utils.ValidateStruct(ctx, input); err != nil {
		v.logger.Errorf("RegisterVideo - ValidateStruct error: %v", err)
		return nil, nil, fmt.Errorf("invalid input: %v", err)
	}

	strategy := input.Strategy
	if strategy == "" {
		strategy = v.cfg.Pipeline.DefaultStrategy
	}
	if !v.strategyKnown(strategy) {
		return nil, nil, &chunker.UnknownStrategyError{Name: strategy}
	}
	thumbnailCount := input.ThumbnailCount
	if thumbnailCount == 0 {
		thumbnailCount = v.cfg.Pipeline.ThumbnailCount
	}

	record := &models.VideoRecord{
		FileName: input.FileName,
		FileSize: input.FileSize,
		S3Key:    fmt.Sprintf("uploads/%s", input.FileName),
		S3Bucket: v.cfg.S3.InputBucket,
		Format:   input.Format,
		Status:   models.JobStatusQueued,
	}
	record, err := v.videoRepo.CreateVideo(ctx, record)
	if err != nil {
		v.logger.Errorf("RegisterVideo - CreateVideo error: %v", err)
		return nil, nil, err
	}

	job := &models.ProcessJob{
		JobID:            uuid.New().String(),
		VideoID:          record.VideoID.String(),
		InputS3Key:       record.S3Key,
		InputBucket:      record.S3Bucket,
		OutputPrefix:     fmt.Sprintf("processed/%s", record.VideoID),
		OutputBucket:     v.cfg.S3.OutputBucket,
		Strategy:         strategy,
		ThumbnailCount:   thumbnailCount,
		ThumbnailQuality: v.cfg.Pipeline.ThumbnailQuality,
		Status:           models.JobStatusQueued,
		StartedAt:        time.Now(),
	}
	if err = v.redisRepo.EnqueueJob(ctx, v.cfg.Redis.JobQueueKey, job); err != nil {
		v.logger.Errorf("RegisterVideo - EnqueueJob error: %v", err)
		return nil, nil, fmt.Errorf("failed to queue the job: %v", err)
	}
	v.logger.Infof("registered video %s with job %s (strategy %s)", record.VideoID, job.JobID, strategy)
	return record, job, nil
}

func (v *videoUC) GetVideo(ctx context.Context, videoID uuid.UUID) (*models.VideoRecord, error) {
	if videoID == uuid.Nil {
		return nil, fmt.Errorf("invalid video id: cannot be empty")
	}
	video, err := v.videoRepo.GetVideoByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			v.logger.Warnf("video not found with ID: %s", videoID)
			return nil, fmt.Errorf("video not found")
		}
		v.logger.Errorf("GetVideo - failed to fetch video: %v", err)
		return nil, fmt.Errorf("failed to fetch video: %v", err)
	}
	return video, nil
}

func (v *videoUC) ListVideos(ctx context.Context, pq *utils.Pagination) (*models.VideoList, error) {
	if pq == nil {
		pq = &utils.Pagination{Page: 1, Size: 10}
	}
	if pq.Page < 1 {
		pq.Page = 1
	}
	if pq.Size < 1 || pq.Size > 100 {
		pq.Size = 10
	}
	list, err := v.videoRepo.GetVideos(ctx, pq)
	if err != nil {
		v.logger.Errorf("ListVideos - failed to fetch videos: %v", err)
		return nil, fmt.Errorf("failed to fetch videos: %v", err)
	}
	return list, nil
}

func (v *videoUC) SearchVideos(ctx context.Context, query string, pq *utils.Pagination) (*models.VideoList, error) {
	if query == "" {
		return nil, fmt.Errorf("invalid query: cannot be empty")
	}
	if pq == nil {
		pq = &utils.Pagination{Page: 1, Size: 10}
	}
	list, err := v.videoRepo.GetVideosByQuery(ctx, query, pq)
	if err != nil {
		v.logger.Errorf("SearchVideos - failed to search videos: %v", err)
		return nil, fmt.Errorf("failed to search videos: %v", err)
	}
	return list, nil
}

// DeleteVideo removes the row plus every stored object for the video, the
// uploaded source and all processed outputs included.
func (v *videoUC) DeleteVideo(ctx context.Context, videoID uuid.UUID) error {
	if videoID == uuid.Nil {
		return fmt.Errorf("invalid video id: cannot be empty")
	}
	video, err := v.videoRepo.GetVideoByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("video not found")
		}
		return fmt.Errorf("failed to fetch video: %v", err)
	}
	if err = v.videoRepo.DeleteVideo(ctx, videoID); err != nil {
		v.logger.Errorf("DeleteVideo - failed to delete video: %v", err)
		return fmt.Errorf("failed to delete video: %v", err)
	}

	if err = v.awsRepo.RemoveObject(ctx, video.S3Bucket, video.S3Key); err != nil {
		v.logger.Warnf("DeleteVideo - failed to remove source object: %v", err)
	}
	outputs, err := v.awsRepo.ListObjects(ctx, v.cfg.S3.OutputBucket, fmt.Sprintf("processed/%s", videoID))
	if err != nil {
		v.logger.Warnf("DeleteVideo - failed to list outputs: %v", err)
		return nil
	}
	for _, key := range outputs {
		if err = v.awsRepo.RemoveObject(ctx, v.cfg.S3.OutputBucket, key); err != nil {
			v.logger.Warnf("DeleteVideo - failed to remove output %s: %v", key, err)
		}
	}
	return nil
}

func (v *videoUC) GetJobStatus(ctx context.Context, jobID string) (*models.ProcessJob, error) {
	if jobID == "" {
		return nil, fmt.Errorf("invalid job id: cannot be empty")
	}
	job, err := v.redisRepo.GetJob(ctx, repository.ProgressKeyPrefix, jobID)
	if err != nil {
		v.logger.Errorf("GetJobStatus - failed to fetch job: %v", err)
		return nil, fmt.Errorf("job not found: %v", err)
	}
	return job, nil
}

// EstimateProcessing predicts the job's cost from the declared file size
// without touching storage or the engine.
func (v *videoUC) EstimateProcessing(ctx context.Context, input *models.VideoUploadInput) (*chunker.ProcessingEstimate, error) {
	if err := utils.ValidateStruct(ctx, input); err != nil {
		return nil, fmt.Errorf("invalid input: %v", err)
	}
	strategy := input.Strategy
	if strategy == "" {
		strategy = v.cfg.Pipeline.DefaultStrategy
	}
	return v.optimizer.EstimateProcessing(input.FileSize, 0, strategy)
}

func (v *videoUC) Strategies() []string {
	return v.optimizer.Strategies()
}

func (v *videoUC) strategyKnown(name string) bool {
	for _, s := range v.optimizer.Strategies() {
		if s == name {
			return true
		}
	}
	return false
}
