package worker

import (
	"context"
	"sync"
	"time"

	"github.com/clipforge/video-pipeline/internal/config"
	"github.com/clipforge/video-pipeline/internal/videos"
	"github.com/clipforge/video-pipeline/pkg/logger"
	"github.com/clipforge/video-pipeline/pkg/utils"
)

const (
	pollInterval     = 2 * time.Second
	cpuBackoffPeriod = 10 * time.Second
)

// Worker drains the job queue with a pool of goroutines. Each goroutine
// checks the CPU admission gate before picking up work, so a saturated host
// backs off instead of piling on encodes.
type Worker struct {
	cfg       *config.Config
	logger    logger.Logger
	redisRepo videos.RedisRepository
	awsRepo   videos.AWSRepository
	videoRepo videos.Repository
	pipeline  *JobProcessor
	wg        sync.WaitGroup
}

func NewWorker(
	cfg *config.Config,
	log logger.Logger,
	redisRepo videos.RedisRepository,
	awsRepo videos.AWSRepository,
	videoRepo videos.Repository,
	pipeline *JobProcessor,
) *Worker {
	return &Worker{
		cfg:       cfg,
		logger:    log,
		redisRepo: redisRepo,
		awsRepo:   awsRepo,
		videoRepo: videoRepo,
		pipeline:  pipeline,
	}
}

// Start launches the worker pool and blocks until the context is cancelled
// and every goroutine has drained.
func (w *Worker) Start(ctx context.Context) {
	count := w.cfg.Worker.WorkerCount
	if count <= 0 {
		count = 1
	}
	w.logger.Infof("starting %d workers on queue %s", count, w.cfg.Redis.JobQueueKey)
	for i := 0; i < count; i++ {
		w.wg.Add(1)
		go w.run(ctx, i)
	}
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, id int) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			w.logger.Infof("worker %d stopping", id)
			return
		default:
		}

		if ok, usage := utils.CheckCPUUsage(w.cfg.Worker.MaxCPUUsage); !ok {
			w.logger.Infof("worker %d backing off, CPU at %.1f%%", id, usage)
			sleepCtx(ctx, cpuBackoffPeriod)
			continue
		}

		job, err := w.redisRepo.PeekJob(ctx, w.cfg.Redis.JobQueueKey)
		if err != nil {
			w.logger.Errorf("worker %d failed to peek job: %v", id, err)
			sleepCtx(ctx, pollInterval)
			continue
		}
		if job == nil {
			sleepCtx(ctx, pollInterval)
			continue
		}

		w.logger.Infof("worker %d picked up job %s (video %s)", id, job.JobID, job.VideoID)
		if err := w.pipeline.Process(ctx, job); err != nil {
			w.logger.Errorf("worker %d job %s failed: %v", id, job.JobID, err)
		} else {
			w.logger.Infof("worker %d job %s completed", id, job.JobID)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
