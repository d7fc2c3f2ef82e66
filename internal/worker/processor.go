package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/google/uuid"

	"github.com/clipforge/video-pipeline/internal/chunker"
	"github.com/clipforge/video-pipeline/internal/metadata"
	"github.com/clipforge/video-pipeline/internal/models"
	"github.com/clipforge/video-pipeline/internal/thumbnails"
	"github.com/clipforge/video-pipeline/internal/videos"
	"github.com/clipforge/video-pipeline/internal/videos/repository"
	"github.com/clipforge/video-pipeline/pkg/logger"
	"github.com/clipforge/video-pipeline/pkg/utils"
)

// Progress milestones reported over the job's lifetime.
const (
	progressDownloaded = 10
	progressProbed     = 20
	progressChunked    = 70
	progressThumbed    = 90
	progressDone       = 100
)

// JobProcessor executes one queued job end to end: download, optimize,
// thumbnail, upload, record.
type JobProcessor struct {
	optimizer *chunker.Optimizer
	extractor *metadata.Extractor
	generator *thumbnails.Generator
	redisRepo videos.RedisRepository
	awsRepo   videos.AWSRepository
	videoRepo videos.Repository
	logger    logger.Logger
}

func NewJobProcessor(
	optimizer *chunker.Optimizer,
	extractor *metadata.Extractor,
	generator *thumbnails.Generator,
	redisRepo videos.RedisRepository,
	awsRepo videos.AWSRepository,
	videoRepo videos.Repository,
	log logger.Logger,
) *JobProcessor {
	if log == nil {
		log = logger.NopLogger
	}
	return &JobProcessor{
		optimizer: optimizer,
		extractor: extractor,
		generator: generator,
		redisRepo: redisRepo,
		awsRepo:   awsRepo,
		videoRepo: videoRepo,
		logger:    log,
	}
}

// Process runs the job. Failures are recorded on the job and the video row
// before returning.
func (p *JobProcessor) Process(ctx context.Context, job *models.ProcessJob) error {
	if err := p.process(ctx, job); err != nil {
		p.fail(ctx, job, err)
		return err
	}
	return nil
}

func (p *JobProcessor) process(ctx context.Context, job *models.ProcessJob) error {
	data, err := p.awsRepo.GetObject(ctx, job.InputBucket, job.InputS3Key)
	if err != nil {
		return fmt.Errorf("download input: %w", err)
	}
	p.progress(ctx, job, progressDownloaded)
	p.logger.Infof("job %s downloaded %s (%s)", job.JobID, job.InputS3Key, utils.FormatBytes(int64(len(data))))

	src := models.NewSource(path.Base(job.InputS3Key), data)

	detailed, err := p.extractor.ExtractDetailedMetadata(ctx, src, metadata.ExtractionOptions{
		IncludeAdvanced:        true,
		IncludeContentAnalysis: true,
		IncludeSNSOptimization: true,
	})
	if err != nil {
		return fmt.Errorf("extract metadata: %w", err)
	}
	p.progress(ctx, job, progressProbed)

	result, err := p.optimizer.OptimizeVideoChunks(ctx, src, job.Strategy)
	if err != nil {
		return fmt.Errorf("optimize chunks: %w", err)
	}
	for _, chunk := range result.Chunks {
		key := fmt.Sprintf("%s/chunks/chunk_%05d.mp4", job.OutputPrefix, chunk.Index)
		if err = p.awsRepo.PutObject(ctx, job.OutputBucket, key, "video/mp4", chunk.Data); err != nil {
			return fmt.Errorf("upload chunk %d: %w", chunk.Index, err)
		}
	}
	p.progress(ctx, job, progressChunked)

	if job.ThumbnailCount > 0 {
		thumbs, err := p.generator.Generate(ctx, src, thumbnails.Options{
			Count:    job.ThumbnailCount,
			Quality:  job.ThumbnailQuality,
			Strategy: thumbnails.StrategySmart,
		})
		if err != nil {
			return fmt.Errorf("generate thumbnails: %w", err)
		}
		for _, t := range thumbs {
			key := fmt.Sprintf("%s/thumbnails/thumb_%02d.jpeg", job.OutputPrefix, t.Index)
			if err = p.awsRepo.PutObject(ctx, job.OutputBucket, key, "image/jpeg", t.Data); err != nil {
				return fmt.Errorf("upload thumbnail %d: %w", t.Index, err)
			}
		}
	}
	p.progress(ctx, job, progressThumbed)

	manifest := map[string]interface{}{
		"job_id":       job.JobID,
		"video_id":     job.VideoID,
		"strategy":     result.Strategy,
		"chunk_count":  len(result.Chunks),
		"output_size":  result.TotalOutputSize,
		"scene_points": result.SceneChanges,
		"metadata":     detailed,
	}
	manifestData, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	manifestKey := fmt.Sprintf("%s/manifest.json", job.OutputPrefix)
	if err = p.awsRepo.PutObject(ctx, job.OutputBucket, manifestKey, "application/json", manifestData); err != nil {
		return fmt.Errorf("upload manifest: %w", err)
	}

	if videoID, parseErr := uuid.Parse(job.VideoID); parseErr == nil {
		if err = p.videoRepo.UpdateStatus(ctx, videoID, models.JobStatusCompleted, len(result.Chunks)); err != nil {
			p.logger.Warnf("job %s failed to update video row: %v", job.JobID, err)
		}
	}
	p.progress(ctx, job, progressDone)
	if err = p.redisRepo.UpdateStatus(ctx, job.JobID, repository.ProgressKeyPrefix, models.JobStatusCompleted); err != nil {
		p.logger.Warnf("job %s failed to mark completed: %v", job.JobID, err)
	}
	return nil
}

func (p *JobProcessor) progress(ctx context.Context, job *models.ProcessJob, pct float64) {
	if err := p.redisRepo.UpdateProgress(ctx, job.JobID, repository.ProgressKeyPrefix, pct); err != nil {
		p.logger.Warnf("job %s failed to report progress %.0f%%: %v", job.JobID, pct, err)
	}
}

func (p *JobProcessor) fail(ctx context.Context, job *models.ProcessJob, cause error) {
	if err := p.redisRepo.SetJobError(ctx, job.JobID, repository.ProgressKeyPrefix, cause.Error()); err != nil {
		p.logger.Warnf("job %s failed to record error: %v", job.JobID, err)
	}
	if videoID, parseErr := uuid.Parse(job.VideoID); parseErr == nil {
		if err := p.videoRepo.UpdateStatus(ctx, videoID, models.JobStatusFailed, 0); err != nil {
			p.logger.Warnf("job %s failed to update video row: %v", job.JobID, err)
		}
	}
}
