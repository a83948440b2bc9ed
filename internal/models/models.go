package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Enums
type EpisodeStatus string

const (
	EpisodeStatusQueued       EpisodeStatus = "queued"
	EpisodeStatusScripting    EpisodeStatus = "scripting"
	EpisodeStatusScriptReady  EpisodeStatus = "script_ready"
	EpisodeStatusSynthesizing EpisodeStatus = "synthesizing"
	EpisodeStatusCompleted    EpisodeStatus = "completed"
	EpisodeStatusFailed       EpisodeStatus = "failed"
)

type SourceType string

const (
	SourceTypeText SourceType = "text"
	SourceTypeURL  SourceType = "url"
)

type SegmentStatus string

const (
	SegmentStatusSynthesized SegmentStatus = "synthesized"
	SegmentStatusFailed      SegmentStatus = "failed"
)

type AssetType string

const (
	AssetTypeScriptJSON   AssetType = "script_json"
	AssetTypeSegmentAudio AssetType = "segment_audio"
	AssetTypePodcastAudio AssetType = "podcast_audio"
	AssetTypePodcastMP3   AssetType = "podcast_mp3"
	AssetTypeTranscript   AssetType = "transcript"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

const (
	JobTypeGenerateScript  = "generate_script"
	JobTypeSynthesizeAudio = "synthesize_audio"
)

// JSONB is a custom type for PostgreSQL JSONB columns
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// Models

type Episode struct {
	ID                uuid.UUID     `json:"id"`
	SourceType        SourceType    `json:"source_type"`
	SourceURL         *string       `json:"source_url,omitempty"`
	SourceText        *string       `json:"-"`
	SourceName        *string       `json:"source_name,omitempty"` // page title or caller-supplied name
	Style             string        `json:"style"`
	Duration          string        `json:"duration"`
	ScriptOnly        bool          `json:"script_only"`
	Status            EpisodeStatus `json:"status"`
	TotalLines        *int          `json:"total_lines,omitempty"`
	SegmentsSucceeded *int          `json:"segments_succeeded,omitempty"`
	AudioDurationMs   *int          `json:"audio_duration_ms,omitempty"`
	ScriptAssetID     *uuid.UUID    `json:"script_asset_id,omitempty"`
	AudioAssetID      *uuid.UUID    `json:"audio_asset_id,omitempty"`
	MP3AssetID        *uuid.UUID    `json:"mp3_asset_id,omitempty"`
	TranscriptAssetID *uuid.UUID    `json:"transcript_asset_id,omitempty"`
	SourceMetadata    JSONB         `json:"source_metadata,omitempty"` // scrape result minus content
	StatusMessage     *string       `json:"status_message,omitempty"`  // e.g. "generated 7 of 9 segments"
	ErrorCode         *string       `json:"error_code,omitempty"`
	ErrorMessage      *string       `json:"error_message,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// Segment is one script turn and, when it synthesized, its audio.
type Segment struct {
	ID           uuid.UUID     `json:"id"`
	EpisodeID    uuid.UUID     `json:"episode_id"`
	TurnIndex    int           `json:"turn_index"` // 1-based, matches the segment file name
	Speaker      string        `json:"speaker"`
	Dialogue     string        `json:"dialogue"`
	Status       SegmentStatus `json:"status"`
	AudioAssetID *uuid.UUID    `json:"audio_asset_id,omitempty"`
	DurationMs   *int          `json:"duration_ms,omitempty"`
	OffsetMs     *int          `json:"offset_ms,omitempty"` // start within the combined file
	CreatedAt    time.Time     `json:"created_at"`
}

type Asset struct {
	ID            uuid.UUID  `json:"id"`
	EpisodeID     uuid.UUID  `json:"episode_id"`
	SegmentID     *uuid.UUID `json:"segment_id,omitempty"`
	Type          AssetType  `json:"type"`
	StorageBucket string     `json:"storage_bucket"`
	StoragePath   string     `json:"storage_path"`
	ContentType   *string    `json:"content_type,omitempty"`
	ByteSize      *int64     `json:"byte_size,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type Job struct {
	ID           uuid.UUID  `json:"id"`
	EpisodeID    uuid.UUID  `json:"episode_id"`
	Type         string     `json:"type"`
	Status       JobStatus  `json:"status"`
	Attempts     int        `json:"attempts"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// DTOs for API responses
type EpisodeResponse struct {
	Episode
	Segments      []SegmentResponse `json:"segments,omitempty"`
	AudioURL      *string           `json:"audio_url,omitempty"`
	MP3URL        *string           `json:"mp3_url,omitempty"`
	TranscriptURL *string           `json:"transcript_url,omitempty"`
}

type SegmentResponse struct {
	Segment
	AudioURL *string `json:"audio_url,omitempty"`
}

// EpisodeSummary is the lightweight list form: no segments, no URLs.
type EpisodeSummary struct {
	ID                uuid.UUID     `json:"id"`
	SourceType        SourceType    `json:"source_type"`
	SourceName        *string       `json:"source_name,omitempty"`
	Style             string        `json:"style"`
	Duration          string        `json:"duration"`
	Status            EpisodeStatus `json:"status"`
	TotalLines        *int          `json:"total_lines,omitempty"`
	SegmentsSucceeded *int          `json:"segments_succeeded,omitempty"`
	AudioDurationMs   *int          `json:"audio_duration_ms,omitempty"`
	StatusMessage     *string       `json:"status_message,omitempty"`
	ErrorCode         *string       `json:"error_code,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// Summary strips an episode down to its list form.
func (e *Episode) Summary() EpisodeSummary {
	return EpisodeSummary{
		ID:                e.ID,
		SourceType:        e.SourceType,
		SourceName:        e.SourceName,
		Style:             e.Style,
		Duration:          e.Duration,
		Status:            e.Status,
		TotalLines:        e.TotalLines,
		SegmentsSucceeded: e.SegmentsSucceeded,
		AudioDurationMs:   e.AudioDurationMs,
		StatusMessage:     e.StatusMessage,
		ErrorCode:         e.ErrorCode,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}

type ListEpisodesResponse struct {
	Episodes []EpisodeSummary `json:"episodes"`
	Total    int              `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

type CreateEpisodeRequest struct {
	Text       string  `json:"text,omitempty"`
	URL        string  `json:"url,omitempty"`
	SourceName *string `json:"source_name,omitempty"` // Default: "Text Input" for text, page title for url
	Style      *string `json:"style,omitempty"`       // Default: "conversational"
	Duration   *string `json:"duration,omitempty"`    // Default: "10 minutes"
	ScriptOnly bool    `json:"script_only,omitempty"`
}

type CreateEpisodeResponse struct {
	EpisodeID uuid.UUID     `json:"episode_id"`
	Status    EpisodeStatus `json:"status"`
}
