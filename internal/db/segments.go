package db

import (
	"context"
	"fmt"

	"github.com/bobarin/podcastgen/internal/models"
	"github.com/google/uuid"
)

// CreateSegments inserts one row per turn in a single transaction.
func (db *DB) CreateSegments(ctx context.Context, segments []models.Segment) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO segments (
			id, episode_id, turn_index, speaker, dialogue, status,
			audio_asset_id, duration_ms, offset_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (episode_id, turn_index) DO UPDATE SET
			status = EXCLUDED.status,
			audio_asset_id = EXCLUDED.audio_asset_id,
			duration_ms = EXCLUDED.duration_ms,
			offset_ms = EXCLUDED.offset_ms
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare segment insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range segments {
		if _, err := stmt.ExecContext(ctx,
			s.ID, s.EpisodeID, s.TurnIndex, s.Speaker, s.Dialogue, s.Status,
			s.AudioAssetID, s.DurationMs, s.OffsetMs,
		); err != nil {
			return fmt.Errorf("failed to insert segment %d: %w", s.TurnIndex, err)
		}
	}

	return tx.Commit()
}

func (db *DB) GetEpisodeSegments(ctx context.Context, episodeID uuid.UUID) ([]models.Segment, error) {
	query := `
		SELECT
			id, episode_id, turn_index, speaker, dialogue, status,
			audio_asset_id, duration_ms, offset_ms, created_at
		FROM segments
		WHERE episode_id = $1
		ORDER BY turn_index
	`

	rows, err := db.QueryContext(ctx, query, episodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query segments: %w", err)
	}
	defer rows.Close()

	var segments []models.Segment
	for rows.Next() {
		var s models.Segment
		if err := rows.Scan(
			&s.ID, &s.EpisodeID, &s.TurnIndex, &s.Speaker, &s.Dialogue, &s.Status,
			&s.AudioAssetID, &s.DurationMs, &s.OffsetMs, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}
		segments = append(segments, s)
	}

	return segments, rows.Err()
}
