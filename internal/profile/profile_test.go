package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"JOBMATCH_AI_ENABLED",
	"JOBMATCH_AI_EMBEDDING_PROVIDER",
	"JOBMATCH_AI_EMBEDDING_MODEL",
	"JOBMATCH_AI_EMBEDDING_DIMENSIONS",
	"JOBMATCH_AI_EMBEDDING_MAX_BATCH",
	"JOBMATCH_AI_OPENAI_API_KEY",
	"JOBMATCH_AI_LLM_TEMPERATURE",
	"JOBMATCH_AI_LLM_JSON_MODE",
	"JOBMATCH_VECTOR_BACKEND",
	"JOBMATCH_BACKFILL_BATCH_SIZE",
	"JOBMATCH_BACKFILL_DELAY",
	"JOBMATCH_USER_BACKFILL_POLICY",
	"JOBMATCH_MATCH_CACHE_TTL",
	"JOBMATCH_MATCH_ANALYSIS_VERSION",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestProfileDefaults(t *testing.T) {
	clearEnv(t)

	p := &Profile{}
	p.FromEnv()

	assert.False(t, p.AIEnabled)
	assert.Equal(t, "openai", p.AIEmbeddingProvider)
	assert.Equal(t, "text-embedding-3-small", p.AIEmbeddingModel)
	assert.Equal(t, 1536, p.AIEmbeddingDimensions)
	assert.Equal(t, 100, p.AIEmbeddingMaxBatch)
	assert.Equal(t, 8000, p.AIEmbeddingMaxChars)
	assert.True(t, p.AILLMJSONMode)
	assert.Equal(t, "memory", p.VectorBackend)
	assert.Equal(t, 50, p.BackfillBatchSize)
	assert.Equal(t, 100*time.Millisecond, p.BackfillDelay)
	assert.Equal(t, "all", p.UserBackfillPolicy)
	assert.Equal(t, 7*24*time.Hour, p.MatchCacheTTL)
	assert.Equal(t, 2, p.MatchAnalysisVersion)
	assert.Equal(t, 24*time.Hour, p.UserEmbeddingCacheTTL)
	assert.Equal(t, 300, p.CostTokensPerItem)
	assert.InDelta(t, 0.02, p.CostPerMillionTokens, 1e-9)
}

func TestProfileFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("JOBMATCH_AI_ENABLED", "true")
	t.Setenv("JOBMATCH_AI_OPENAI_API_KEY", "sk-test")
	t.Setenv("JOBMATCH_AI_LLM_TEMPERATURE", "0.2")
	t.Setenv("JOBMATCH_AI_LLM_JSON_MODE", "false")
	t.Setenv("JOBMATCH_BACKFILL_BATCH_SIZE", "25")
	t.Setenv("JOBMATCH_BACKFILL_DELAY", "250ms")
	t.Setenv("JOBMATCH_MATCH_CACHE_TTL", "48h")
	t.Setenv("JOBMATCH_USER_BACKFILL_POLICY", "missing")

	p := &Profile{}
	p.FromEnv()

	assert.True(t, p.AIEnabled)
	assert.True(t, p.IsAIEnabled())
	assert.InDelta(t, 0.2, p.AILLMTemperature, 1e-9)
	assert.False(t, p.AILLMJSONMode)
	assert.Equal(t, 25, p.BackfillBatchSize)
	assert.Equal(t, 250*time.Millisecond, p.BackfillDelay)
	assert.Equal(t, 48*time.Hour, p.MatchCacheTTL)
	assert.Equal(t, "missing", p.UserBackfillPolicy)
}

func TestProfileFromEnv_InvalidNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("JOBMATCH_AI_EMBEDDING_DIMENSIONS", "lots")
	t.Setenv("JOBMATCH_BACKFILL_DELAY", "soon")

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, 1536, p.AIEmbeddingDimensions)
	assert.Equal(t, 100*time.Millisecond, p.BackfillDelay)
}

func TestProfileValidate(t *testing.T) {
	t.Run("sqlite dsn derived from data dir", func(t *testing.T) {
		dir := t.TempDir()
		p := &Profile{Mode: "dev", Data: dir, UserBackfillPolicy: "all"}
		require.NoError(t, p.Validate())
		assert.Equal(t, "sqlite", p.Driver)
		assert.Contains(t, p.DSN, "jobmatch_dev.db")
	})

	t.Run("unknown mode becomes demo", func(t *testing.T) {
		p := &Profile{Mode: "staging", Driver: "postgres", DSN: "postgres://localhost/jobmatch", UserBackfillPolicy: "all"}
		require.NoError(t, p.Validate())
		assert.Equal(t, "demo", p.Mode)
	})

	t.Run("rejects unknown driver", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "mysql", UserBackfillPolicy: "all"}
		assert.Error(t, p.Validate())
	})

	t.Run("rejects unknown backfill policy", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "postgres", DSN: "x", UserBackfillPolicy: "sometimes"}
		assert.Error(t, p.Validate())
	})

	t.Run("batch size cannot exceed provider max", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "postgres", DSN: "x", UserBackfillPolicy: "all", BackfillBatchSize: 150, AIEmbeddingMaxBatch: 100}
		assert.Error(t, p.Validate())
	})

	t.Run("pgvector requires postgres", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "sqlite", DSN: "x.db", UserBackfillPolicy: "all", VectorBackend: "pgvector"}
		assert.Error(t, p.Validate())
	})
}
