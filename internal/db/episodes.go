package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bobarin/podcastgen/internal/models"
	"github.com/google/uuid"
)

const episodeColumns = `
	id, source_type, source_url, source_text, source_name, style, duration,
	script_only, status, total_lines, segments_succeeded, audio_duration_ms,
	script_asset_id, audio_asset_id, mp3_asset_id, transcript_asset_id,
	source_metadata, status_message, error_code, error_message, created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEpisode(row rowScanner, e *models.Episode) error {
	return row.Scan(
		&e.ID, &e.SourceType, &e.SourceURL, &e.SourceText, &e.SourceName, &e.Style, &e.Duration,
		&e.ScriptOnly, &e.Status, &e.TotalLines, &e.SegmentsSucceeded, &e.AudioDurationMs,
		&e.ScriptAssetID, &e.AudioAssetID, &e.MP3AssetID, &e.TranscriptAssetID,
		&e.SourceMetadata, &e.StatusMessage, &e.ErrorCode, &e.ErrorMessage, &e.CreatedAt, &e.UpdatedAt,
	)
}

func (db *DB) CreateEpisode(ctx context.Context, episode *models.Episode) error {
	query := `
		INSERT INTO episodes (
			id, source_type, source_url, source_text, source_name,
			style, duration, script_only, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		episode.ID, episode.SourceType, episode.SourceURL, episode.SourceText, episode.SourceName,
		episode.Style, episode.Duration, episode.ScriptOnly, episode.Status,
	).Scan(&episode.CreatedAt, &episode.UpdatedAt)
}

func (db *DB) GetEpisode(ctx context.Context, id uuid.UUID) (*models.Episode, error) {
	query := `SELECT ` + episodeColumns + ` FROM episodes WHERE id = $1`

	episode := &models.Episode{}
	err := scanEpisode(db.QueryRowContext(ctx, query, id), episode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("episode %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get episode: %w", err)
	}

	return episode, nil
}

// ListEpisodes returns episodes ordered by creation date (newest first).
// Supports optional status filter, limit, and offset for pagination.
func (db *DB) ListEpisodes(ctx context.Context, status string, limit, offset int) ([]models.Episode, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseSelect := `SELECT ` + episodeColumns + ` FROM episodes`

	if status != "" {
		query := baseSelect + ` WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		rows, err = db.QueryContext(ctx, query, status, limit, offset)
	} else {
		query := baseSelect + ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		rows, err = db.QueryContext(ctx, query, limit, offset)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}
	defer rows.Close()

	var episodes []models.Episode
	for rows.Next() {
		var e models.Episode
		if err := scanEpisode(rows, &e); err != nil {
			return nil, fmt.Errorf("failed to scan episode: %w", err)
		}
		episodes = append(episodes, e)
	}

	return episodes, rows.Err()
}

// CountEpisodes returns the total number of episodes, optionally filtered by status.
func (db *DB) CountEpisodes(ctx context.Context, status string) (int, error) {
	var count int
	if status != "" {
		err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM episodes WHERE status = $1`, status).Scan(&count)
		return count, err
	}
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM episodes`).Scan(&count)
	return count, err
}

func (db *DB) UpdateEpisodeStatus(ctx context.Context, id uuid.UUID, status models.EpisodeStatus) error {
	query := `UPDATE episodes SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := db.ExecContext(ctx, query, status, id)
	return err
}

func (db *DB) UpdateEpisodeError(ctx context.Context, id uuid.UUID, errorCode, errorMessage string) error {
	query := `
		UPDATE episodes
		SET status = $1, error_code = $2, error_message = $3, updated_at = NOW()
		WHERE id = $4
	`
	_, err := db.ExecContext(ctx, query, models.EpisodeStatusFailed, errorCode, errorMessage, id)
	return err
}

// SetEpisodeScript records a validated script and moves the episode on to status.
func (db *DB) SetEpisodeScript(ctx context.Context, id, scriptAssetID uuid.UUID, sourceName string, totalLines int, sourceMetadata models.JSONB, status models.EpisodeStatus) error {
	query := `
		UPDATE episodes
		SET script_asset_id = $1, source_name = $2, total_lines = $3,
			source_metadata = $4, status = $5, updated_at = NOW()
		WHERE id = $6
	`
	_, err := db.ExecContext(ctx, query, scriptAssetID, sourceName, totalLines, sourceMetadata, status, id)
	return err
}

// AudioResult is what a finished synthesis run writes back to its episode.
type AudioResult struct {
	AudioAssetID      *uuid.UUID
	MP3AssetID        *uuid.UUID
	TranscriptAssetID *uuid.UUID
	SegmentsSucceeded int
	AudioDurationMs   int
	StatusMessage     string
}

func (db *DB) SetEpisodeAudio(ctx context.Context, id uuid.UUID, res AudioResult) error {
	query := `
		UPDATE episodes
		SET audio_asset_id = $1, mp3_asset_id = $2, transcript_asset_id = $3,
			segments_succeeded = $4, audio_duration_ms = $5, status_message = $6,
			status = $7, updated_at = NOW()
		WHERE id = $8
	`
	_, err := db.ExecContext(ctx, query,
		res.AudioAssetID, res.MP3AssetID, res.TranscriptAssetID,
		res.SegmentsSucceeded, res.AudioDurationMs, res.StatusMessage,
		models.EpisodeStatusCompleted, id,
	)
	return err
}
