package services

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestElevenLabsSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text-to-speech/voice-1", r.URL.Path)
		assert.Equal(t, "pcm_22050", r.URL.Query().Get("output_format"))
		assert.Equal(t, "secret", r.Header.Get("xi-api-key"))

		var body elevenLabsRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Hello.", body.Text)
		assert.Equal(t, elevenLabsDefaultModel, body.ModelID)

		w.Write(pcm16(0, 32767))
	}))
	defer srv.Close()

	svc := NewElevenLabsService("secret", srv.URL, "", 22050, zaptest.NewLogger(t))
	chunks, err := svc.Synthesize(context.Background(), "Hello.", "voice-1")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, float32(0), chunks[0][0])
	assert.InDelta(t, 1.0, chunks[0][1], 1e-4)
}

func TestElevenLabsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"quota exceeded"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewElevenLabsService("k", srv.URL, "", 0, nil).Synthesize(context.Background(), "Hi.", "v")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestCartesiaSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tts/bytes", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, CartesiaAPIVersion, r.Header.Get("Cartesia-Version"))

		var body CartesiaRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "raw", body.OutputFormat.Container)
		assert.Equal(t, "pcm_f32le", body.OutputFormat.Encoding)
		assert.Equal(t, 24000, body.OutputFormat.SampleRate)
		assert.Equal(t, "voice-2", body.Voice.ID)

		out := make([]byte, 8)
		binary.LittleEndian.PutUint32(out, math.Float32bits(0.25))
		binary.LittleEndian.PutUint32(out[4:], math.Float32bits(-0.75))
		w.Write(out)
	}))
	defer srv.Close()

	svc := NewCartesiaService("secret", srv.URL, "", 0, zaptest.NewLogger(t))
	chunks, err := svc.Synthesize(context.Background(), "Hello there.", "voice-2")
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.25, -0.75}}, chunks)
}

func TestCartesiaEmptyAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, err := NewCartesiaService("k", srv.URL, "", 0, nil).Synthesize(context.Background(), "Hi.", "v")
	assert.ErrorContains(t, err, "empty audio")
}

func TestParseDurationMs(t *testing.T) {
	ms, err := parseDurationMs("12.345678\n")
	require.NoError(t, err)
	assert.Equal(t, 12345, ms)

	_, err = parseDurationMs("N/A")
	assert.Error(t, err)
}
