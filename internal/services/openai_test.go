package services

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestOpenAIServiceComplete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "{\"script\": []}"}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`)
	}))
	defer srv.Close()

	svc := NewOpenAIService("test-key", srv.URL+"/v1", "", zaptest.NewLogger(t))
	out, err := svc.Complete(context.Background(), "write a podcast")
	require.NoError(t, err)
	assert.Equal(t, `{"script": []}`, out)

	assert.Equal(t, "gpt-4o-mini", got["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, got["response_format"])
	messages := got["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "write a podcast", messages[1].(map[string]any)["content"])
}

func TestOpenAIServiceCompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"x","object":"chat.completion","choices":[]}`)
	}))
	defer srv.Close()

	_, err := NewOpenAIService("k", srv.URL+"/v1", "", nil).Complete(context.Background(), "p")
	assert.ErrorContains(t, err, "no response")
}

func TestOpenAIServiceCompleteHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
	}))
	defer srv.Close()

	_, err := NewOpenAIService("k", srv.URL+"/v1", "", nil).Complete(context.Background(), "p")
	assert.ErrorContains(t, err, "openai request failed")
}

func pcm16(values ...int16) []byte {
	b := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(v))
	}
	return b
}

func TestOpenAISpeechService(t *testing.T) {
	var inputs []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "pcm", body["response_format"])
		assert.Equal(t, "onyx", body["voice"])
		inputs = append(inputs, body["input"].(string))

		w.Header().Set("Content-Type", "audio/pcm")
		w.Write(pcm16(16384, -16384))
	}))
	defer srv.Close()

	svc := NewOpenAISpeechService("k", srv.URL+"/v1", "", zaptest.NewLogger(t))
	chunks, err := svc.Synthesize(context.Background(), "Short line.", "onyx")
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.5, -0.5}}, chunks)
	assert.Equal(t, []string{"Short line."}, inputs)

	// Over the input limit the line goes out as several requests.
	inputs = nil
	long := strings.Repeat("This sentence is padding. ", 300)
	chunks, err = svc.Synthesize(context.Background(), long, "onyx")
	require.NoError(t, err)
	assert.Len(t, chunks, len(inputs))
	assert.Greater(t, len(inputs), 1)
}
