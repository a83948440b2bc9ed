package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment does not leak in.
func clearEnv(t *testing.T) {
	for _, k := range []string{
		"CONFIG_FILE", "API_PORT", "WORKER_ENABLED", "BACKEND_API_KEY", "CORS_ALLOWED_ORIGINS",
		"DATABASE_URL", "REDIS_URL", "SUPABASE_URL", "SUPABASE_SERVICE_KEY", "SUPABASE_STORAGE_BUCKET",
		"LLM_PROVIDER", "LLM_MODEL", "OPENAI_API_KEY", "OPENAI_BASE_URL", "GEMINI_API_KEY",
		"TTS_PROVIDER", "TTS_MODEL", "ELEVENLABS_API_KEY", "CARTESIA_API_KEY", "CARTESIA_API_URL",
		"SPEAKER1_VOICE", "SPEAKER2_VOICE", "SAMPLE_RATE", "PODCASTGEN_CACHE_DIR", "DISABLE_CACHE",
		"EXPORT_MP3", "TEMP_DIR", "FIRECRAWL_API_KEY", "LOG_LEVEL", "LOG_FORMAT", "MAX_CONCURRENT_JOBS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.APIPort)
	assert.Equal(t, 24000, cfg.SampleRate)
	assert.Equal(t, LLMProviderOpenAI, cfg.LLMProvider)
	assert.Equal(t, 5, cfg.MaxConcurrentJobs)
	assert.False(t, cfg.AudioEnabled())
}

func TestLoadYAMLThenEnv(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "podcastgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_port: "9090"
llm_provider: gemini
gemini_api_key: from-yaml
sample_rate: 44100
speaker1_voice: alice
export_mp3: true
`), 0o644))

	t.Setenv("API_PORT", "7070")
	t.Setenv("SPEAKER2_VOICE", "bob")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.APIPort, "env wins over yaml")
	assert.Equal(t, LLMProviderGemini, cfg.LLMProvider)
	assert.Equal(t, "from-yaml", cfg.LLMKey())
	assert.Equal(t, 44100, cfg.SampleRate)
	assert.Equal(t, "alice", cfg.Speaker1Voice)
	assert.Equal(t, "bob", cfg.Speaker2Voice)
	assert.True(t, cfg.ExportMP3)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL, "defaults survive")
}

func TestLoadBadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_port: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestResolvedTTSProvider(t *testing.T) {
	cfg := defaults()
	assert.Equal(t, "", cfg.ResolvedTTSProvider())

	cfg.CartesiaKey = "c"
	assert.Equal(t, TTSProviderCartesia, cfg.ResolvedTTSProvider())
	assert.Equal(t, "c", cfg.TTSKey())
	assert.Equal(t, "https://api.cartesia.ai", cfg.TTSBaseURL())

	cfg.ElevenLabsKey = "e"
	assert.Equal(t, TTSProviderElevenLabs, cfg.ResolvedTTSProvider())

	cfg.TTSProvider = TTSProviderOpenAI
	cfg.OpenAIKey = "o"
	assert.Equal(t, "o", cfg.TTSKey())
	assert.True(t, cfg.AudioEnabled())
}

func TestValidate(t *testing.T) {
	cfg := defaults()
	assert.ErrorContains(t, cfg.ValidateCLI(), "OPENAI_API_KEY")

	cfg.OpenAIKey = "k"
	assert.NoError(t, cfg.ValidateCLI())

	cfg.TTSProvider = TTSProviderElevenLabs
	assert.ErrorContains(t, cfg.ValidateCLI(), "API key is missing")
	cfg.ElevenLabsKey = "e"
	assert.NoError(t, cfg.ValidateCLI())

	cfg.TTSProvider = "kokoro"
	assert.ErrorContains(t, cfg.ValidateCLI(), "unknown TTS_PROVIDER")
	cfg.TTSProvider = ""

	cfg.LLMProvider = "claude"
	assert.ErrorContains(t, cfg.ValidateCLI(), "unknown LLM_PROVIDER")
	cfg.LLMProvider = LLMProviderOpenAI

	assert.ErrorContains(t, cfg.ValidateServer(), "DATABASE_URL")
	cfg.DatabaseURL = "postgres://localhost/podcasts"
	assert.ErrorContains(t, cfg.ValidateServer(), "SUPABASE_URL")
	cfg.SupabaseURL = "https://x.supabase.co"
	cfg.SupabaseServiceKey = "s"
	assert.NoError(t, cfg.ValidateServer())
}
