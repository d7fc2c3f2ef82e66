package repository

const (
	createVideoQuery = `INSERT INTO videos (file_name, file_size, duration, s3_key, s3_bucket, format, status, chunk_count)
					VALUES ($1, $2, NULLIF($3, 0.0), $4, $5, $6, $7, $8) RETURNING *`
	getVideosQuery = `SELECT video_id, file_name, file_size, COALESCE(duration, 0) AS duration, s3_key, s3_bucket, format, status, chunk_count, uploaded_at, updated_at
					FROM videos ORDER BY uploaded_at DESC OFFSET $1 LIMIT $2`
	getVideoByIDQuery = `SELECT video_id, file_name, file_size, COALESCE(duration, 0) AS duration, s3_key, s3_bucket, format, status, chunk_count, uploaded_at, updated_at
					FROM videos WHERE video_id = $1`
	getTotalVideosQuery      = `SELECT COUNT(video_id) FROM videos`
	getTotalVideosByNameQuery = `SELECT COUNT(video_id) FROM videos WHERE file_name ILIKE '%' || $1 || '%'`
	getVideosBySearchQuery   = `SELECT video_id, file_name, file_size, COALESCE(duration, 0) AS duration, s3_key, s3_bucket, format, status, chunk_count, uploaded_at, updated_at
					FROM videos WHERE file_name ILIKE '%' || $1 || '%' ORDER BY uploaded_at DESC OFFSET $2 LIMIT $3`
	updateVideoQuery = `UPDATE videos
					SET file_name = COALESCE(NULLIF($1, ''), file_name),
					    file_size = COALESCE(NULLIF($2, 0), file_size),
					    duration = COALESCE(NULLIF($3, 0.0), duration),
					    s3_key = COALESCE(NULLIF($4, ''), s3_key),
					    s3_bucket = COALESCE(NULLIF($5, ''), s3_bucket),
					    format = COALESCE(NULLIF($6, ''), format),
					    status = COALESCE(NULLIF($7, ''), status),
					    updated_at = NOW()
					WHERE video_id = $8 RETURNING *`
	updateStatusQuery = `UPDATE videos SET status = $1, chunk_count = $2, updated_at = NOW() WHERE video_id = $3`
	deleteVideoQuery  = `DELETE FROM videos WHERE video_id = $1`
)
