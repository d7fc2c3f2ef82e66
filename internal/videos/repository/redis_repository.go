package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/clipforge/video-pipeline/internal/models"
	"github.com/clipforge/video-pipeline/internal/videos"
	"github.com/clipforge/video-pipeline/pkg/logger"
)

const (
	// ProgressKeyPrefix is the hash key prefix holding per-job progress,
	// status and the serialized job itself.
	ProgressKeyPrefix = "video:progress:"

	jobLockTTL = 10 * time.Minute
)

type videoRedisRepo struct {
	redisClient *redis.Client
	logger      logger.Logger
}

func NewVideoRedisRepo(redisClient *redis.Client, log logger.Logger) videos.RedisRepository {
	if log == nil {
		log = logger.NopLogger
	}
	return &videoRedisRepo{redisClient: redisClient, logger: log}
}

// EnqueueJob pushes the job onto the queue and seeds its progress hash so
// status reads work before a worker picks it up.
func (v *videoRedisRepo) EnqueueJob(ctx context.Context, key string, job *models.ProcessJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	pipe := v.redisClient.Pipeline()
	pipe.LPush(ctx, key, string(data))
	pipe.HSet(ctx, ProgressKeyPrefix+job.JobID,
		"status", string(job.Status),
		"progress", job.Progress,
		"job_data", string(data),
	)
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

// PeekJob scans the queue for the first job that is neither processing nor
// locked by another worker, locks it and marks it processing in place.
// Returns nil without error when no job is available.
func (v *videoRedisRepo) PeekJob(ctx context.Context, key string) (*models.ProcessJob, error) {
	length, err := v.redisClient.LLen(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue length: %w", err)
	}
	if length == 0 {
		return nil, nil
	}

	jobs, err := v.redisClient.LRange(ctx, key, 0, length-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get jobs from queue: %w", err)
	}

	for idx, jobData := range jobs {
		job := &models.ProcessJob{}
		if err = json.Unmarshal([]byte(jobData), job); err != nil {
			v.logger.Warnf("skipping unparseable job at index %d: %v", idx, err)
			continue
		}
		if job.Status == models.JobStatusProcessing {
			continue
		}

		lockKey := "lock:" + job.JobID
		locked, err := v.redisClient.SetNX(ctx, lockKey, 1, jobLockTTL).Result()
		if err != nil {
			v.logger.Warnf("failed to lock job %s: %v", job.JobID, err)
			continue
		}
		if !locked {
			continue
		}

		job.StartedAt = time.Now()
		job.Status = models.JobStatusProcessing
		updated, err := json.Marshal(job)
		if err != nil {
			v.redisClient.Del(ctx, lockKey)
			return nil, fmt.Errorf("failed to marshal updated job: %w", err)
		}
		if err = v.redisClient.LSet(ctx, key, int64(idx), string(updated)).Err(); err != nil {
			v.redisClient.Del(ctx, lockKey)
			return nil, fmt.Errorf("failed to update job in queue: %w", err)
		}

		v.logger.Infof("locked job %s at index %d", job.JobID, idx)
		return job, nil
	}
	return nil, nil
}

// DequeueJob blocks until a job is available, then marks it processing.
func (v *videoRedisRepo) DequeueJob(ctx context.Context, key string) (*models.ProcessJob, error) {
	res, err := v.redisClient.BLPop(ctx, 0*time.Second, key).Result()
	if err != nil {
		return nil, err
	}
	job := &models.ProcessJob{}
	if err = json.Unmarshal([]byte(res[1]), job); err != nil {
		return nil, fmt.Errorf("error unmarshalling job: %w", err)
	}
	job.StartedAt = time.Now()
	job.Status = models.JobStatusProcessing
	if err = v.UpdateStatus(ctx, job.JobID, ProgressKeyPrefix, models.JobStatusProcessing); err != nil {
		return nil, fmt.Errorf("error updating job status: %w", err)
	}
	return job, nil
}

func (v *videoRedisRepo) GetJob(ctx context.Context, key string, jobID string) (*models.ProcessJob, error) {
	jobData, err := v.redisClient.HGet(ctx, key+jobID, "job_data").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get job data: %w", err)
	}
	job := &models.ProcessJob{}
	if err = json.Unmarshal([]byte(jobData), job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job data: %w", err)
	}
	if progress, err := v.redisClient.HGet(ctx, key+jobID, "progress").Float64(); err == nil {
		job.Progress = progress
	}
	return job, nil
}

func (v *videoRedisRepo) GetJobStatus(ctx context.Context, key string, jobID string) (models.JobStatus, error) {
	status, err := v.redisClient.HGet(ctx, key+jobID, "status").Result()
	if err != nil {
		return "", fmt.Errorf("failed to get job status: %w", err)
	}
	return models.JobStatus(status), nil
}

func (v *videoRedisRepo) UpdateProgress(ctx context.Context, jobID string, key string, progress float64) error {
	if err := v.redisClient.HSet(ctx, key+jobID, "progress", progress).Err(); err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	return nil
}

func (v *videoRedisRepo) UpdateStatus(ctx context.Context, jobID string, key string, status models.JobStatus) error {
	progressKey := key + jobID

	jobData, err := v.redisClient.HGet(ctx, progressKey, "job_data").Result()
	if err != nil {
		return fmt.Errorf("failed to get job data: %w", err)
	}

	var job models.ProcessJob
	if err = json.Unmarshal([]byte(jobData), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job data: %w", err)
	}
	job.Status = status
	if status == models.JobStatusCompleted || status == models.JobStatusFailed {
		job.CompletedAt = time.Now()
	}

	updated, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal updated job: %w", err)
	}

	pipe := v.redisClient.Pipeline()
	pipe.HSet(ctx, progressKey, "status", string(status))
	pipe.HSet(ctx, progressKey, "job_data", string(updated))
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return nil
}

func (v *videoRedisRepo) SetJobError(ctx context.Context, jobID string, key string, message string) error {
	progressKey := key + jobID

	jobData, err := v.redisClient.HGet(ctx, progressKey, "job_data").Result()
	if err != nil {
		return fmt.Errorf("failed to get job data: %w", err)
	}
	var job models.ProcessJob
	if err = json.Unmarshal([]byte(jobData), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job data: %w", err)
	}
	job.Error = message
	job.Status = models.JobStatusFailed
	job.CompletedAt = time.Now()

	updated, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal updated job: %w", err)
	}

	pipe := v.redisClient.Pipeline()
	pipe.HSet(ctx, progressKey, "status", string(models.JobStatusFailed))
	pipe.HSet(ctx, progressKey, "error", message)
	pipe.HSet(ctx, progressKey, "job_data", string(updated))
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record job error: %w", err)
	}
	return nil
}
