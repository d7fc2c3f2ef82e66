package models

import "time"

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// ProcessJob is a queued unit of chunk-pipeline work. Jobs are serialized to
// JSON on the redis queue and locked while a worker holds them.
type ProcessJob struct {
	JobID            string    `json:"job_id" db:"job_id" redis:"job_id" validate:"omitempty"`
	VideoID          string    `json:"video_id" db:"video_id" redis:"video_id" validate:"omitempty"`
	InputS3Key       string    `json:"input_s3_key" db:"input_s3_key" redis:"input_s3_key" validate:"required"`
	InputBucket      string    `json:"input_bucket" db:"input_bucket" redis:"input_bucket" validate:"required"`
	OutputPrefix     string    `json:"output_prefix" db:"output_prefix" redis:"output_prefix" validate:"required"`
	OutputBucket     string    `json:"output_bucket" db:"output_bucket" redis:"output_bucket" validate:"required"`
	Strategy         string    `json:"strategy" db:"strategy" redis:"strategy" validate:"required"`
	ThumbnailCount   int       `json:"thumbnail_count" db:"thumbnail_count" redis:"thumbnail_count" validate:"omitempty,gte=0,lte=20"`
	ThumbnailQuality int       `json:"thumbnail_quality" db:"thumbnail_quality" redis:"thumbnail_quality" validate:"omitempty,gte=1,lte=100"`
	Progress         float64   `json:"progress" db:"progress" redis:"progress" validate:"omitempty"`
	Status           JobStatus `json:"status" db:"status" redis:"status" validate:"required"`
	Error            string    `json:"error,omitempty" db:"error" redis:"error" validate:"omitempty"`
	StartedAt        time.Time `json:"started_at" db:"started_at" redis:"started_at" validate:"omitempty"`
	CompletedAt      time.Time `json:"completed_at" db:"completed_at" redis:"completed_at" validate:"omitempty"`
}
