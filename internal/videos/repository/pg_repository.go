package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clipforge/video-pipeline/internal/models"
	"github.com/clipforge/video-pipeline/internal/videos"
	"github.com/clipforge/video-pipeline/pkg/utils"
)

type videoRepo struct {
	db *sqlx.DB
}

func NewVideoRepo(db *sqlx.DB) videos.Repository {
	return &videoRepo{db: db}
}

func (v *videoRepo) CreateVideo(ctx context.Context, video *models.VideoRecord) (*models.VideoRecord, error) {
	created := &models.VideoRecord{}
	if err := v.db.QueryRowxContext(
		ctx,
		createVideoQuery,
		video.FileName,
		video.FileSize,
		video.Duration,
		video.S3Key,
		video.S3Bucket,
		video.Format,
		video.Status,
		video.ChunkCount,
	).StructScan(created); err != nil {
		return nil, fmt.Errorf("failed to create video: %w", err)
	}
	return created, nil
}

func (v *videoRepo) GetVideos(ctx context.Context, pq *utils.Pagination) (*models.VideoList, error) {
	var totalCount int
	if err := v.db.GetContext(ctx, &totalCount, getTotalVideosQuery); err != nil {
		return nil, fmt.Errorf("failed to get total videos count: %w", err)
	}
	if totalCount == 0 {
		return emptyVideoList(pq), nil
	}

	rows, err := v.db.QueryxContext(ctx, getVideosQuery, pq.GetOffset(), pq.GetLimit())
	if err != nil {
		return nil, fmt.Errorf("failed to get videos: %w", err)
	}
	defer rows.Close()

	list, err := scanVideoRows(rows, pq.Size)
	if err != nil {
		return nil, err
	}
	return &models.VideoList{
		Videos:     list,
		TotalCount: totalCount,
		Page:       pq.Page,
		PageSize:   pq.Size,
		HasMore:    utils.GetHasMore(pq.Page, totalCount, pq.Size),
	}, nil
}

func (v *videoRepo) GetVideoByID(ctx context.Context, videoID uuid.UUID) (*models.VideoRecord, error) {
	video := &models.VideoRecord{}
	if err := v.db.QueryRowxContext(ctx, getVideoByIDQuery, videoID).StructScan(video); err != nil {
		return nil, fmt.Errorf("failed to get video by id: %w", err)
	}
	return video, nil
}

func (v *videoRepo) GetVideosByQuery(ctx context.Context, query string, pq *utils.Pagination) (*models.VideoList, error) {
	var totalCount int
	if err := v.db.GetContext(ctx, &totalCount, getTotalVideosByNameQuery, query); err != nil {
		return nil, fmt.Errorf("failed to get total videos by query: %w", err)
	}
	if totalCount == 0 {
		return emptyVideoList(pq), nil
	}

	rows, err := v.db.QueryxContext(ctx, getVideosBySearchQuery, query, pq.GetOffset(), pq.GetLimit())
	if err != nil {
		return nil, fmt.Errorf("failed to get videos by query: %w", err)
	}
	defer rows.Close()

	list, err := scanVideoRows(rows, pq.Size)
	if err != nil {
		return nil, err
	}
	return &models.VideoList{
		Videos:     list,
		TotalCount: totalCount,
		Page:       pq.Page,
		PageSize:   pq.Size,
		HasMore:    utils.GetHasMore(pq.Page, totalCount, pq.Size),
	}, nil
}

func (v *videoRepo) UpdateVideo(ctx context.Context, video *models.VideoRecord) (*models.VideoRecord, error) {
	updated := &models.VideoRecord{}
	if err := v.db.QueryRowxContext(
		ctx,
		updateVideoQuery,
		video.FileName,
		video.FileSize,
		video.Duration,
		video.S3Key,
		video.S3Bucket,
		video.Format,
		video.Status,
		video.VideoID,
	).StructScan(updated); err != nil {
		return nil, fmt.Errorf("failed to update video: %w", err)
	}
	return updated, nil
}

func (v *videoRepo) UpdateStatus(ctx context.Context, videoID uuid.UUID, status models.JobStatus, chunkCount int) error {
	res, err := v.db.ExecContext(ctx, updateStatusQuery, status, chunkCount, videoID)
	if err != nil {
		return fmt.Errorf("failed to update video status: %w", err)
	}
	if count, _ := res.RowsAffected(); count == 0 {
		return fmt.Errorf("no video found to update")
	}
	return nil
}

func (v *videoRepo) DeleteVideo(ctx context.Context, videoID uuid.UUID) error {
	res, err := v.db.ExecContext(ctx, deleteVideoQuery, videoID)
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	if count, _ := res.RowsAffected(); count == 0 {
		return fmt.Errorf("no video found to delete")
	}
	return nil
}

func emptyVideoList(pq *utils.Pagination) *models.VideoList {
	return &models.VideoList{
		Videos:   make([]*models.VideoRecord, 0),
		Page:     pq.Page,
		PageSize: pq.Size,
	}
}

func scanVideoRows(rows *sqlx.Rows, capacity int) ([]*models.VideoRecord, error) {
	list := make([]*models.VideoRecord, 0, capacity)
	for rows.Next() {
		var video models.VideoRecord
		if err := rows.StructScan(&video); err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		list = append(list, &video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan videos: %w", err)
	}
	return list, nil
}
