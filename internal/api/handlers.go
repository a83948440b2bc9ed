package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bobarin/podcastgen/internal/db"
	"github.com/bobarin/podcastgen/internal/models"
	"github.com/bobarin/podcastgen/internal/script"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxRequestBytes = 2 << 20
	signedURLTTL    = 3600
)

// Store is the database surface the handlers read and write.
type Store interface {
	CreateEpisode(ctx context.Context, episode *models.Episode) error
	GetEpisode(ctx context.Context, id uuid.UUID) (*models.Episode, error)
	ListEpisodes(ctx context.Context, status string, limit, offset int) ([]models.Episode, error)
	CountEpisodes(ctx context.Context, status string) (int, error)
	GetEpisodeSegments(ctx context.Context, episodeID uuid.UUID) ([]models.Segment, error)
	GetAsset(ctx context.Context, id uuid.UUID) (*models.Asset, error)
	CreateJob(ctx context.Context, job *models.Job) error
	GetEpisodeJobs(ctx context.Context, episodeID uuid.UUID) ([]models.Job, error)
}

type Enqueuer interface {
	EnqueueGenerateScript(ctx context.Context, episodeID, jobID uuid.UUID) error
}

// Files resolves stored assets to URLs and bytes.
type Files interface {
	GetPublicURL(path string) string
	GetSignedURL(ctx context.Context, path string, expiresIn int) (string, error)
	Download(ctx context.Context, path string) ([]byte, error)
}

type Handler struct {
	store        Store
	queue        Enqueuer
	files        Files
	audioEnabled bool
	logger       *zap.Logger
}

// NewHandler builds the HTTP handlers. audioEnabled is reported by
// /v1/presets so clients know whether episodes will get audio.
func NewHandler(store Store, q Enqueuer, files Files, audioEnabled bool, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:        store,
		queue:        q,
		files:        files,
		audioEnabled: audioEnabled,
		logger:       logger.Named("api"),
	}
}

// CreateEpisode handles POST /v1/episodes
func (h *Handler) CreateEpisode(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req models.CreateEpisodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	text := strings.TrimSpace(req.Text)
	rawURL := strings.TrimSpace(req.URL)

	switch {
	case text == "" && rawURL == "":
		respondError(w, http.StatusBadRequest, "Provide either text or url")
		return
	case text != "" && rawURL != "":
		respondError(w, http.StatusBadRequest, "Provide only one of text or url")
		return
	}

	episode := &models.Episode{
		ID:         uuid.New(),
		Style:      script.DefaultStyle,
		Duration:   script.DefaultDuration,
		ScriptOnly: req.ScriptOnly,
		Status:     models.EpisodeStatusQueued,
		SourceName: req.SourceName,
	}
	if req.Style != nil {
		episode.Style = script.ResolveStyle(*req.Style).Name
	}
	if req.Duration != nil {
		episode.Duration = script.ResolveDuration(*req.Duration).Name
	}

	if rawURL != "" {
		if !validHTTPURL(rawURL) {
			respondError(w, http.StatusBadRequest, "url must be an absolute http or https URL")
			return
		}
		episode.SourceType = models.SourceTypeURL
		episode.SourceURL = &rawURL
	} else {
		episode.SourceType = models.SourceTypeText
		episode.SourceText = &text
	}

	if err := h.store.CreateEpisode(r.Context(), episode); err != nil {
		h.logger.Error("create episode", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to create episode")
		return
	}

	job := &models.Job{
		ID:        uuid.New(),
		EpisodeID: episode.ID,
		Type:      models.JobTypeGenerateScript,
		Status:    models.JobStatusQueued,
	}

	if err := h.store.CreateJob(r.Context(), job); err != nil {
		h.logger.Error("create job", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}

	if err := h.queue.EnqueueGenerateScript(r.Context(), episode.ID, job.ID); err != nil {
		h.logger.Error("enqueue job", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	respondJSON(w, http.StatusCreated, models.CreateEpisodeResponse{
		EpisodeID: episode.ID,
		Status:    episode.Status,
	})
}

// ListEpisodes handles GET /v1/episodes
// Query params:
//   - status: filter by episode status
//   - limit:  max results per page (default 20, max 100)
//   - offset: number of results to skip (default 0)
func (h *Handler) ListEpisodes(w http.ResponseWriter, r *http.Request) {
	statusFilter := r.URL.Query().Get("status")
	if statusFilter != "" {
		switch models.EpisodeStatus(statusFilter) {
		case models.EpisodeStatusQueued, models.EpisodeStatusScripting,
			models.EpisodeStatusScriptReady, models.EpisodeStatusSynthesizing,
			models.EpisodeStatusCompleted, models.EpisodeStatusFailed:
		default:
			respondError(w, http.StatusBadRequest, "Invalid status filter. Allowed: queued, scripting, script_ready, synthesizing, completed, failed")
			return
		}
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	total, err := h.store.CountEpisodes(r.Context(), statusFilter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to count episodes")
		return
	}

	episodes, err := h.store.ListEpisodes(r.Context(), statusFilter, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list episodes")
		return
	}

	summaries := make([]models.EpisodeSummary, 0, len(episodes))
	for i := range episodes {
		summaries = append(summaries, episodes[i].Summary())
	}

	respondJSON(w, http.StatusOK, models.ListEpisodesResponse{
		Episodes: summaries,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	})
}

// GetEpisode handles GET /v1/episodes/{id}
func (h *Handler) GetEpisode(w http.ResponseWriter, r *http.Request) {
	episode, ok := h.loadEpisode(w, r)
	if !ok {
		return
	}

	segments, err := h.store.GetEpisodeSegments(r.Context(), episode.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get segments")
		return
	}

	response := models.EpisodeResponse{
		Episode:       *episode,
		Segments:      make([]models.SegmentResponse, len(segments)),
		AudioURL:      h.assetURL(r.Context(), episode.AudioAssetID),
		MP3URL:        h.assetURL(r.Context(), episode.MP3AssetID),
		TranscriptURL: h.assetURL(r.Context(), episode.TranscriptAssetID),
	}
	for i, s := range segments {
		response.Segments[i] = models.SegmentResponse{
			Segment:  s,
			AudioURL: h.assetURL(r.Context(), s.AudioAssetID),
		}
	}

	respondJSON(w, http.StatusOK, response)
}

// GetEpisodeScript handles GET /v1/episodes/{id}/script and returns the
// stored transport document as is.
func (h *Handler) GetEpisodeScript(w http.ResponseWriter, r *http.Request) {
	episode, ok := h.loadEpisode(w, r)
	if !ok {
		return
	}

	if episode.ScriptAssetID == nil {
		respondError(w, http.StatusNotFound, "Script not ready")
		return
	}

	asset, err := h.store.GetAsset(r.Context(), *episode.ScriptAssetID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Asset not found")
		return
	}

	data, err := h.files.Download(r.Context(), asset.StoragePath)
	if err != nil {
		h.logger.Error("download script", zap.String("episode_id", episode.ID.String()), zap.Error(err))
		respondError(w, http.StatusBadGateway, "Failed to fetch script")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// GetEpisodeDownload handles GET /v1/episodes/{id}/download
// Query params:
//   - format: wav (default), mp3 or srt
func (h *Handler) GetEpisodeDownload(w http.ResponseWriter, r *http.Request) {
	episode, ok := h.loadEpisode(w, r)
	if !ok {
		return
	}

	var assetID *uuid.UUID
	switch format := r.URL.Query().Get("format"); format {
	case "", "wav":
		assetID = episode.AudioAssetID
	case "mp3":
		assetID = episode.MP3AssetID
	case "srt":
		assetID = episode.TranscriptAssetID
	default:
		respondError(w, http.StatusBadRequest, "Invalid format. Allowed: wav, mp3, srt")
		return
	}

	if assetID == nil {
		respondError(w, http.StatusNotFound, "Audio not ready")
		return
	}

	asset, err := h.store.GetAsset(r.Context(), *assetID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Asset not found")
		return
	}

	signedURL, err := h.files.GetSignedURL(r.Context(), asset.StoragePath, signedURLTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate download URL")
		return
	}

	http.Redirect(w, r, signedURL, http.StatusTemporaryRedirect)
}

// GetEpisodeJobs handles GET /v1/episodes/{id}/debug/jobs
func (h *Handler) GetEpisodeJobs(w http.ResponseWriter, r *http.Request) {
	episodeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid episode ID")
		return
	}

	jobs, err := h.store.GetEpisodeJobs(r.Context(), episodeID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get jobs")
		return
	}
	if jobs == nil {
		jobs = []models.Job{}
	}

	respondJSON(w, http.StatusOK, jobs)
}

type presetsResponse struct {
	Styles       []script.Preset `json:"styles"`
	Durations    []script.Preset `json:"durations"`
	AudioEnabled bool            `json:"audio_enabled"`
}

// ListPresets handles GET /v1/presets
func (h *Handler) ListPresets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, presetsResponse{
		Styles:       script.Styles(),
		Durations:    script.Durations(),
		AudioEnabled: h.audioEnabled,
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) loadEpisode(w http.ResponseWriter, r *http.Request) (*models.Episode, bool) {
	episodeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid episode ID")
		return nil, false
	}

	episode, err := h.store.GetEpisode(r.Context(), episodeID)
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Episode not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error("get episode", zap.String("episode_id", episodeID.String()), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to get episode")
		return nil, false
	}
	return episode, true
}

func (h *Handler) assetURL(ctx context.Context, id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	asset, err := h.store.GetAsset(ctx, *id)
	if err != nil {
		return nil
	}
	u := h.files.GetPublicURL(asset.StoragePath)
	return &u
}

func validHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
