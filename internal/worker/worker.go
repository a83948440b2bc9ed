package worker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/bobarin/podcastgen/internal/audio"
	"github.com/bobarin/podcastgen/internal/db"
	"github.com/bobarin/podcastgen/internal/metrics"
	"github.com/bobarin/podcastgen/internal/models"
	"github.com/bobarin/podcastgen/internal/pipeline"
	"github.com/bobarin/podcastgen/internal/queue"
	"github.com/bobarin/podcastgen/internal/script"
	"github.com/bobarin/podcastgen/internal/services"
	"github.com/bobarin/podcastgen/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	dequeueTimeout     = 5 * time.Second
	defaultUploadSlots = 4

	contentTypeJSON = "application/json"
	contentTypeWAV  = "audio/wav"
	contentTypeMP3  = "audio/mpeg"
	contentTypeSRT  = "application/x-subrip"
)

// Error codes written to failed episodes.
const (
	ErrCodeSourceFailed     = "source_failed"
	ErrCodeScriptInvalid    = "script_invalid"
	ErrCodeScriptFailed     = "script_generation_failed"
	ErrCodeAudioUnavailable = "audio_unavailable"
	ErrCodeSynthesisFailed  = "synthesis_failed"
	ErrCodeAssemblyFailed   = "assembly_failed"
	ErrCodeUploadFailed     = "upload_failed"
)

// Store is the slice of the database the worker needs.
type Store interface {
	GetEpisode(ctx context.Context, id uuid.UUID) (*models.Episode, error)
	UpdateEpisodeStatus(ctx context.Context, id uuid.UUID, status models.EpisodeStatus) error
	UpdateEpisodeError(ctx context.Context, id uuid.UUID, errorCode, errorMessage string) error
	SetEpisodeScript(ctx context.Context, id, scriptAssetID uuid.UUID, sourceName string, totalLines int, sourceMetadata models.JSONB, status models.EpisodeStatus) error
	SetEpisodeAudio(ctx context.Context, id uuid.UUID, res db.AudioResult) error
	CreateAsset(ctx context.Context, asset *models.Asset) error
	GetAsset(ctx context.Context, id uuid.UUID) (*models.Asset, error)
	CreateSegments(ctx context.Context, segments []models.Segment) error
	CreateJob(ctx context.Context, job *models.Job) error
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status models.JobStatus) error
	UpdateJobError(ctx context.Context, id uuid.UUID, errorMessage string) error
}

// BlobStore holds episode files.
type BlobStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	UploadFile(ctx context.Context, storagePath, localPath, contentType string) (int64, error)
	Download(ctx context.Context, path string) ([]byte, error)
}

type JobQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration, queueNames ...string) (*queue.Job, error)
	EnqueueSynthesizeAudio(ctx context.Context, episodeID, jobID uuid.UUID) error
}

// MP3Encoder converts the combined WAV. Satisfied by services.FFmpegService.
type MP3Encoder interface {
	ConvertToMP3(ctx context.Context, wavPath string) (string, error)
}

var _ MP3Encoder = (*services.FFmpegService)(nil)

type Options struct {
	Bucket string
	// TempDir is the parent of every per-job run directory.
	TempDir string
	// UploadSlots caps concurrent uploads across all jobs.
	UploadSlots int
	// MP3 is nil when MP3 export is off.
	MP3 MP3Encoder
}

type Worker struct {
	store     Store
	queue     JobQueue
	blobs     BlobStore
	pipeline  *pipeline.Pipeline
	bucket    string
	tempDir   string
	mp3       MP3Encoder
	uploadSem chan struct{}
	logger    *zap.Logger
}

func New(store Store, q JobQueue, blobs BlobStore, pipe *pipeline.Pipeline, opts Options, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	slots := opts.UploadSlots
	if slots <= 0 {
		slots = defaultUploadSlots
	}
	return &Worker{
		store:     store,
		queue:     q,
		blobs:     blobs,
		pipeline:  pipe,
		bucket:    opts.Bucket,
		tempDir:   opts.TempDir,
		mp3:       opts.MP3,
		uploadSem: make(chan struct{}, slots),
		logger:    logger.Named("worker"),
	}
}

// uploadWithLimit runs fn once an upload slot is free.
func (w *Worker) uploadWithLimit(ctx context.Context, fn func() error) error {
	select {
	case w.uploadSem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("upload cancelled while waiting for slot: %w", ctx.Err())
	}
	defer func() { <-w.uploadSem }()

	return fn()
}

// Start runs concurrency consumers until ctx is cancelled.
func (w *Worker) Start(ctx context.Context, concurrency int) {
	w.logger.Info("worker started", zap.Int("concurrency", concurrency))

	done := make(chan struct{})
	for i := 0; i < concurrency; i++ {
		go func() {
			w.consume(ctx)
			done <- struct{}{}
		}()
	}

	<-ctx.Done()
	w.logger.Info("worker shutting down")
	for i := 0; i < concurrency; i++ {
		<-done
	}
}

func (w *Worker) consume(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		job, err := w.queue.Dequeue(ctx, dequeueTimeout, queue.Queues...)
		if err != nil {
			if ctx.Err() == nil {
				w.logger.Error("dequeue failed", zap.Error(err))
				time.Sleep(time.Second)
			}
			continue
		}
		if job == nil {
			continue
		}

		w.Process(ctx, job)
	}
}

// Process runs one job and records its outcome on the job row.
func (w *Worker) Process(ctx context.Context, job *queue.Job) error {
	log := w.logger.With(
		zap.String("job_id", job.ID.String()),
		zap.String("type", job.Type),
		zap.String("episode_id", job.EpisodeID.String()),
	)
	log.Info("processing job")

	if err := w.store.UpdateJobStatus(ctx, job.ID, models.JobStatusRunning); err != nil {
		log.Warn("failed to mark job running", zap.Error(err))
	}

	var err error
	switch job.Type {
	case models.JobTypeGenerateScript:
		err = w.handleGenerateScript(ctx, job)
	case models.JobTypeSynthesizeAudio:
		err = w.handleSynthesizeAudio(ctx, job)
	default:
		err = fmt.Errorf("unknown job type %q", job.Type)
	}
	metrics.JobsProcessed.WithLabelValues(job.Type, metrics.Result(err)).Inc()

	if err != nil {
		log.Error("job failed", zap.Error(err))
		if uerr := w.store.UpdateJobError(ctx, job.ID, err.Error()); uerr != nil {
			log.Warn("failed to record job error", zap.Error(uerr))
		}
		return err
	}

	log.Info("job completed")
	if err := w.store.UpdateJobStatus(ctx, job.ID, models.JobStatusSucceeded); err != nil {
		log.Warn("failed to mark job succeeded", zap.Error(err))
	}
	return nil
}

// handleGenerateScript produces and stores the script, then queues audio
// unless the episode is script-only or no speech engine is configured.
func (w *Worker) handleGenerateScript(ctx context.Context, job *queue.Job) error {
	if err := w.store.UpdateEpisodeStatus(ctx, job.EpisodeID, models.EpisodeStatusScripting); err != nil {
		return fmt.Errorf("failed to update episode status: %w", err)
	}

	episode, err := w.store.GetEpisode(ctx, job.EpisodeID)
	if err != nil {
		return fmt.Errorf("failed to get episode: %w", err)
	}

	var (
		sc     *script.Script
		source *services.ScrapeResult
	)
	switch episode.SourceType {
	case models.SourceTypeURL:
		sc, source, err = w.pipeline.ScriptFromURL(ctx, deref(episode.SourceURL), episode.Style, episode.Duration)
	default:
		sc, err = w.pipeline.ScriptFromText(ctx, deref(episode.SourceText), deref(episode.SourceName), episode.Style, episode.Duration)
	}
	if err != nil {
		w.fail(ctx, job.EpisodeID, scriptErrorCode(err), err)
		return fmt.Errorf("failed to generate script: %w", err)
	}

	data, err := sc.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to encode script: %w", err)
	}

	asset := w.newAsset(job.EpisodeID, nil, models.AssetTypeScriptJSON, "script.json", contentTypeJSON, int64(len(data)))
	if err := w.uploadWithLimit(ctx, func() error {
		return w.blobs.Upload(ctx, asset.StoragePath, data, contentTypeJSON)
	}); err != nil {
		w.fail(ctx, job.EpisodeID, ErrCodeUploadFailed, err)
		return fmt.Errorf("failed to upload script: %w", err)
	}
	if err := w.store.CreateAsset(ctx, asset); err != nil {
		return fmt.Errorf("failed to save script asset: %w", err)
	}

	next := models.EpisodeStatusScriptReady
	if episode.ScriptOnly || !w.pipeline.AudioAvailable() {
		next = models.EpisodeStatusCompleted
		if !episode.ScriptOnly {
			w.logger.Warn("no speech engine configured, episode completes with script only",
				zap.String("episode_id", job.EpisodeID.String()))
		}
	}

	if err := w.store.SetEpisodeScript(ctx, job.EpisodeID, asset.ID, sc.SourceName(), sc.TotalLines(), sourceMetadata(source), next); err != nil {
		return fmt.Errorf("failed to save script: %w", err)
	}

	if next != models.EpisodeStatusScriptReady {
		return nil
	}

	audioJob := &models.Job{
		ID:        uuid.New(),
		EpisodeID: job.EpisodeID,
		Type:      models.JobTypeSynthesizeAudio,
		Status:    models.JobStatusQueued,
	}
	if err := w.store.CreateJob(ctx, audioJob); err != nil {
		return fmt.Errorf("failed to create audio job: %w", err)
	}
	if err := w.queue.EnqueueSynthesizeAudio(ctx, job.EpisodeID, audioJob.ID); err != nil {
		return fmt.Errorf("failed to enqueue audio job: %w", err)
	}
	return nil
}

// handleSynthesizeAudio renders the stored script into a fresh directory,
// uploads every produced file and records one segment row per turn.
func (w *Worker) handleSynthesizeAudio(ctx context.Context, job *queue.Job) error {
	if err := w.store.UpdateEpisodeStatus(ctx, job.EpisodeID, models.EpisodeStatusSynthesizing); err != nil {
		return fmt.Errorf("failed to update episode status: %w", err)
	}

	sc, err := w.loadScript(ctx, job.EpisodeID)
	if err != nil {
		return err
	}

	dir, err := pipeline.NewRunDir(w.tempDir)
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	out, err := w.pipeline.Synthesize(ctx, sc, dir)
	if err != nil {
		code := ErrCodeAssemblyFailed
		if errors.Is(err, pipeline.ErrAudioUnavailable) {
			code = ErrCodeAudioUnavailable
		}
		w.fail(ctx, job.EpisodeID, code, err)
		return fmt.Errorf("failed to synthesize audio: %w", err)
	}

	segments := buildSegments(job.EpisodeID, sc, out)

	if out.Succeeded == 0 {
		if err := w.store.CreateSegments(ctx, segments); err != nil {
			w.logger.Warn("failed to save segments", zap.Error(err))
		}
		err := errors.New(out.Summary())
		w.fail(ctx, job.EpisodeID, ErrCodeSynthesisFailed, err)
		return err
	}

	res, err := w.uploadOutput(ctx, job.EpisodeID, out, segments)
	if err != nil {
		w.fail(ctx, job.EpisodeID, ErrCodeUploadFailed, err)
		return err
	}

	if err := w.store.CreateSegments(ctx, segments); err != nil {
		return fmt.Errorf("failed to save segments: %w", err)
	}

	res.SegmentsSucceeded = out.Succeeded
	res.AudioDurationMs = int(math.Round(out.DurationSeconds * 1000))
	res.StatusMessage = out.Summary()

	return w.store.SetEpisodeAudio(ctx, job.EpisodeID, res)
}

func (w *Worker) loadScript(ctx context.Context, episodeID uuid.UUID) (*script.Script, error) {
	episode, err := w.store.GetEpisode(ctx, episodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get episode: %w", err)
	}
	if episode.ScriptAssetID == nil {
		return nil, fmt.Errorf("episode %s has no script", episodeID)
	}

	asset, err := w.store.GetAsset(ctx, *episode.ScriptAssetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get script asset: %w", err)
	}

	data, err := w.blobs.Download(ctx, asset.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to download script: %w", err)
	}

	sc, err := script.FromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("stored script is invalid: %w", err)
	}
	return sc, nil
}

// uploadOutput pushes segment clips, the combined file, its transcript and
// the optional MP3 in parallel. Segment rows get their asset IDs filled in.
func (w *Worker) uploadOutput(ctx context.Context, episodeID uuid.UUID, out *audio.Output, segments []models.Segment) (db.AudioResult, error) {
	var res db.AudioResult

	g, gctx := errgroup.WithContext(ctx)

	byIndex := make(map[int]int, len(segments))
	for i, s := range segments {
		byIndex[s.TurnIndex] = i
	}

	for _, seg := range out.Segments {
		row := &segments[byIndex[seg.Index]]
		file := seg.File
		g.Go(func() error {
			asset, err := w.uploadAsset(gctx, episodeID, &row.ID, models.AssetTypeSegmentAudio, file, contentTypeWAV)
			if err != nil {
				return err
			}
			row.AudioAssetID = &asset.ID
			return nil
		})
	}

	g.Go(func() error {
		asset, err := w.uploadAsset(gctx, episodeID, nil, models.AssetTypePodcastAudio, out.CombinedFile, contentTypeWAV)
		if err != nil {
			return err
		}
		res.AudioAssetID = &asset.ID
		return nil
	})

	if out.TranscriptFile != "" {
		g.Go(func() error {
			asset, err := w.uploadAsset(gctx, episodeID, nil, models.AssetTypeTranscript, out.TranscriptFile, contentTypeSRT)
			if err != nil {
				return err
			}
			res.TranscriptAssetID = &asset.ID
			return nil
		})
	}

	if w.mp3 != nil {
		g.Go(func() error {
			mp3Path, err := w.mp3.ConvertToMP3(gctx, out.CombinedFile)
			if err != nil {
				w.logger.Warn("mp3 export failed, keeping wav only", zap.Error(err))
				return nil
			}
			asset, err := w.uploadAsset(gctx, episodeID, nil, models.AssetTypePodcastMP3, mp3Path, contentTypeMP3)
			if err != nil {
				w.logger.Warn("mp3 upload failed, keeping wav only", zap.Error(err))
				return nil
			}
			res.MP3AssetID = &asset.ID
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return res, fmt.Errorf("failed to upload audio: %w", err)
	}
	return res, nil
}

func (w *Worker) uploadAsset(ctx context.Context, episodeID uuid.UUID, segmentID *uuid.UUID, typ models.AssetType, localPath, contentType string) (*models.Asset, error) {
	asset := w.newAsset(episodeID, segmentID, typ, filepath.Base(localPath), contentType, 0)

	var size int64
	if err := w.uploadWithLimit(ctx, func() error {
		var err error
		size, err = w.blobs.UploadFile(ctx, asset.StoragePath, localPath, contentType)
		return err
	}); err != nil {
		return nil, fmt.Errorf("upload %s: %w", filepath.Base(localPath), err)
	}
	asset.ByteSize = &size

	if err := w.store.CreateAsset(ctx, asset); err != nil {
		return nil, fmt.Errorf("save asset %s: %w", filepath.Base(localPath), err)
	}
	return asset, nil
}

func (w *Worker) newAsset(episodeID uuid.UUID, segmentID *uuid.UUID, typ models.AssetType, filename, contentType string, size int64) *models.Asset {
	asset := &models.Asset{
		ID:            uuid.New(),
		EpisodeID:     episodeID,
		SegmentID:     segmentID,
		Type:          typ,
		StorageBucket: w.bucket,
		StoragePath:   storage.EpisodePath(episodeID, filename),
		ContentType:   &contentType,
	}
	if size > 0 {
		asset.ByteSize = &size
	}
	return asset
}

func (w *Worker) fail(ctx context.Context, episodeID uuid.UUID, code string, cause error) {
	if err := w.store.UpdateEpisodeError(ctx, episodeID, code, cause.Error()); err != nil {
		w.logger.Warn("failed to record episode error",
			zap.String("episode_id", episodeID.String()), zap.Error(err))
	}
}

// buildSegments makes one row per script turn. Turns that produced audio are
// marked synthesized and carry their timing within the combined file.
func buildSegments(episodeID uuid.UUID, sc *script.Script, out *audio.Output) []models.Segment {
	done := make(map[int]audio.Segment, len(out.Segments))
	for _, s := range out.Segments {
		done[s.Index] = s
	}

	turns := sc.Turns()
	segments := make([]models.Segment, len(turns))
	for i, t := range turns {
		n := i + 1
		seg := models.Segment{
			ID:        uuid.New(),
			EpisodeID: episodeID,
			TurnIndex: n,
			Speaker:   string(t.Speaker),
			Dialogue:  t.Dialogue,
			Status:    models.SegmentStatusFailed,
		}
		if s, ok := done[n]; ok {
			seg.Status = models.SegmentStatusSynthesized
			seg.DurationMs = msPtr(s.Duration)
			seg.OffsetMs = msPtr(s.Offset)
		}
		segments[i] = seg
	}
	return segments
}

func scriptErrorCode(err error) string {
	switch {
	case errors.Is(err, pipeline.ErrSourceFailed):
		return ErrCodeSourceFailed
	case script.IsScriptError(err):
		return ErrCodeScriptInvalid
	default:
		return ErrCodeScriptFailed
	}
}

// sourceMetadata keeps everything about a scrape except the page body.
func sourceMetadata(res *services.ScrapeResult) models.JSONB {
	if res == nil {
		return nil
	}
	return models.JSONB{
		"title":      res.Title,
		"url":        res.URL,
		"word_count": res.WordCount,
		"scraped_at": res.ScrapedAt.Format(time.RFC3339),
	}
}

func msPtr(seconds float64) *int {
	ms := int(math.Round(seconds * 1000))
	return &ms
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
