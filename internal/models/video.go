package models

import (
	"time"

	"github.com/google/uuid"
)

// VideoRecord is the persisted row for an uploaded video.
type VideoRecord struct {
	VideoID    uuid.UUID `json:"video_id" db:"video_id" redis:"video_id" validate:"omitempty"`
	FileName   string    `json:"file_name" db:"file_name" redis:"file_name" validate:"required,lte=255"`
	FileSize   int64     `json:"file_size" db:"file_size" redis:"file_size" validate:"required"`
	Duration   float64   `json:"duration" db:"duration" redis:"duration" validate:"omitempty"`
	S3Key      string    `json:"s3_key" db:"s3_key" redis:"s3_key" validate:"required,lte=255"`
	S3Bucket   string    `json:"s3_bucket" db:"s3_bucket" redis:"s3_bucket" validate:"required,lte=255"`
	Format     string    `json:"format" db:"format" redis:"format" validate:"required,lte=20"`
	Status     JobStatus `json:"status" db:"status" redis:"status" validate:"omitempty"`
	ChunkCount int       `json:"chunk_count" db:"chunk_count" redis:"chunk_count" validate:"omitempty"`
	UploadedAt time.Time `json:"uploaded_at" db:"uploaded_at" redis:"uploaded_at" validate:"omitempty"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at" redis:"updated_at" validate:"omitempty"`
}

type VideoList struct {
	Videos     []*VideoRecord `json:"videos"`
	TotalCount int            `json:"total_count"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	HasMore    bool           `json:"has_more"`
}

// VideoUploadInput is the payload for registering an uploaded video and
// queueing pipeline work for it.
type VideoUploadInput struct {
	FileName       string `json:"filename" validate:"required,lte=255"`
	FileSize       int64  `json:"file_size" validate:"required"`
	Format         string `json:"format" validate:"required,lte=20"`
	Strategy       string `json:"strategy" validate:"omitempty,lte=64"`
	ThumbnailCount int    `json:"thumbnail_count" validate:"omitempty,gte=0,lte=20"`
}

// UploadInput describes a presigned-upload request.
type UploadInput struct {
	Name       string `json:"name" validate:"required,lte=255"`
	BucketName string `json:"bucket_name" validate:"omitempty"`
	Key        string `json:"key" validate:"omitempty"`
	Expiry     int    `json:"expiry" validate:"omitempty,gte=1,lte=1440"`
}
