package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the jobmatch server and its batch commands.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where jobmatch stores jobs and profiles
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// Secret signs and verifies bearer tokens
	Secret string
	// LogLevel is one of debug, info, warn, error
	LogLevel string

	// AI Configuration
	AIEnabled             bool    // JOBMATCH_AI_ENABLED
	AIEmbeddingProvider   string  // JOBMATCH_AI_EMBEDDING_PROVIDER (default: openai)
	AILLMProvider         string  // JOBMATCH_AI_LLM_PROVIDER (default: openai)
	AIOpenAIAPIKey        string  // JOBMATCH_AI_OPENAI_API_KEY
	AIOpenAIBaseURL       string  // JOBMATCH_AI_OPENAI_BASE_URL (default: https://api.openai.com/v1)
	AISiliconFlowAPIKey   string  // JOBMATCH_AI_SILICONFLOW_API_KEY
	AISiliconFlowBaseURL  string  // JOBMATCH_AI_SILICONFLOW_BASE_URL (default: https://api.siliconflow.cn/v1)
	AIDeepSeekAPIKey      string  // JOBMATCH_AI_DEEPSEEK_API_KEY
	AIDeepSeekBaseURL     string  // JOBMATCH_AI_DEEPSEEK_BASE_URL (default: https://api.deepseek.com)
	AIOllamaBaseURL       string  // JOBMATCH_AI_OLLAMA_BASE_URL (default: http://localhost:11434)
	AIGeminiAPIKey        string  // JOBMATCH_AI_GEMINI_API_KEY
	AIEmbeddingModel      string  // JOBMATCH_AI_EMBEDDING_MODEL (default: text-embedding-3-small)
	AIEmbeddingDimensions int     // JOBMATCH_AI_EMBEDDING_DIMENSIONS (default: 1536)
	AIEmbeddingMaxBatch   int     // JOBMATCH_AI_EMBEDDING_MAX_BATCH (default: 100)
	AIEmbeddingMaxChars   int     // JOBMATCH_AI_EMBEDDING_MAX_CHARS (default: 8000)
	AILLMModel            string  // JOBMATCH_AI_LLM_MODEL (default: gpt-4o-mini)
	AILLMMaxTokens        int     // JOBMATCH_AI_LLM_MAX_TOKENS (default: 1000)
	AILLMTemperature      float64 // JOBMATCH_AI_LLM_TEMPERATURE (default: 0.7)
	AILLMJSONMode         bool    // JOBMATCH_AI_LLM_JSON_MODE (default: true)

	// Vector index configuration
	VectorBackend     string // JOBMATCH_VECTOR_BACKEND: memory, pinecone, qdrant, pgvector (default: memory)
	PineconeAPIKey    string // JOBMATCH_PINECONE_API_KEY
	PineconeIndexHost string // JOBMATCH_PINECONE_INDEX_HOST
	PineconeNamespace string // JOBMATCH_PINECONE_NAMESPACE
	QdrantHost        string // JOBMATCH_QDRANT_HOST (default: localhost)
	QdrantPort        int    // JOBMATCH_QDRANT_PORT (default: 6334)
	QdrantAPIKey      string // JOBMATCH_QDRANT_API_KEY
	QdrantCollection  string // JOBMATCH_QDRANT_COLLECTION (default: jobmatch)
	QdrantUseTLS      bool   // JOBMATCH_QDRANT_USE_TLS

	// Cache configuration
	CacheBackend  string // JOBMATCH_CACHE_BACKEND: memory, redis (default: memory)
	RedisAddr     string // JOBMATCH_REDIS_ADDR (default: localhost:6379)
	RedisPassword string // JOBMATCH_REDIS_PASSWORD
	RedisDB       int    // JOBMATCH_REDIS_DB

	// Backfill configuration
	BackfillBatchSize  int           // JOBMATCH_BACKFILL_BATCH_SIZE (default: 50)
	BackfillDelay      time.Duration // JOBMATCH_BACKFILL_DELAY (default: 100ms)
	BackfillInterval   time.Duration // JOBMATCH_BACKFILL_INTERVAL (default: 0, periodic backfill disabled)
	UserBackfillPolicy string        // JOBMATCH_USER_BACKFILL_POLICY: all, missing (default: all)

	// Match analysis configuration
	MatchCacheTTL         time.Duration // JOBMATCH_MATCH_CACHE_TTL (default: 168h)
	MatchAnalysisVersion  int           // JOBMATCH_MATCH_ANALYSIS_VERSION (default: 2)
	UserEmbeddingCacheTTL time.Duration // JOBMATCH_USER_EMBEDDING_CACHE_TTL (default: 24h)

	// Cost estimation
	CostTokensPerItem    int     // JOBMATCH_COST_TOKENS_PER_ITEM (default: 300)
	CostPerMillionTokens float64 // JOBMATCH_COST_PER_MILLION_TOKENS (default: 0.02)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if AI is enabled and at least one API key or base URL is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && (p.AIOpenAIAPIKey != "" || p.AISiliconFlowAPIKey != "" || p.AIDeepSeekAPIKey != "" || p.AIGeminiAPIKey != "" || p.AIOllamaBaseURL != "")
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return n
}

func getFloatEnvOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		slog.Warn("invalid float in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return f
}

func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return d
}

func getBoolEnvOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1"
}

// FromEnv loads the AI, vector, cache, backfill and match settings from JOBMATCH_* environment variables.
func (p *Profile) FromEnv() {
	p.AIEnabled = getBoolEnvOrDefault("JOBMATCH_AI_ENABLED", false)
	p.AIEmbeddingProvider = getEnvOrDefault("JOBMATCH_AI_EMBEDDING_PROVIDER", "openai")
	p.AILLMProvider = getEnvOrDefault("JOBMATCH_AI_LLM_PROVIDER", "openai")
	p.AIOpenAIAPIKey = os.Getenv("JOBMATCH_AI_OPENAI_API_KEY")
	p.AIOpenAIBaseURL = getEnvOrDefault("JOBMATCH_AI_OPENAI_BASE_URL", "https://api.openai.com/v1")
	p.AISiliconFlowAPIKey = os.Getenv("JOBMATCH_AI_SILICONFLOW_API_KEY")
	p.AISiliconFlowBaseURL = getEnvOrDefault("JOBMATCH_AI_SILICONFLOW_BASE_URL", "https://api.siliconflow.cn/v1")
	p.AIDeepSeekAPIKey = os.Getenv("JOBMATCH_AI_DEEPSEEK_API_KEY")
	p.AIDeepSeekBaseURL = getEnvOrDefault("JOBMATCH_AI_DEEPSEEK_BASE_URL", "https://api.deepseek.com")
	p.AIOllamaBaseURL = os.Getenv("JOBMATCH_AI_OLLAMA_BASE_URL")
	p.AIGeminiAPIKey = os.Getenv("JOBMATCH_AI_GEMINI_API_KEY")
	p.AIEmbeddingModel = getEnvOrDefault("JOBMATCH_AI_EMBEDDING_MODEL", "text-embedding-3-small")
	p.AIEmbeddingDimensions = getIntEnvOrDefault("JOBMATCH_AI_EMBEDDING_DIMENSIONS", 1536)
	p.AIEmbeddingMaxBatch = getIntEnvOrDefault("JOBMATCH_AI_EMBEDDING_MAX_BATCH", 100)
	p.AIEmbeddingMaxChars = getIntEnvOrDefault("JOBMATCH_AI_EMBEDDING_MAX_CHARS", 8000)
	p.AILLMModel = getEnvOrDefault("JOBMATCH_AI_LLM_MODEL", "gpt-4o-mini")
	p.AILLMMaxTokens = getIntEnvOrDefault("JOBMATCH_AI_LLM_MAX_TOKENS", 1000)
	p.AILLMTemperature = getFloatEnvOrDefault("JOBMATCH_AI_LLM_TEMPERATURE", 0.7)
	p.AILLMJSONMode = getBoolEnvOrDefault("JOBMATCH_AI_LLM_JSON_MODE", true)

	p.VectorBackend = getEnvOrDefault("JOBMATCH_VECTOR_BACKEND", "memory")
	p.PineconeAPIKey = os.Getenv("JOBMATCH_PINECONE_API_KEY")
	p.PineconeIndexHost = os.Getenv("JOBMATCH_PINECONE_INDEX_HOST")
	p.PineconeNamespace = os.Getenv("JOBMATCH_PINECONE_NAMESPACE")
	p.QdrantHost = getEnvOrDefault("JOBMATCH_QDRANT_HOST", "localhost")
	p.QdrantPort = getIntEnvOrDefault("JOBMATCH_QDRANT_PORT", 6334)
	p.QdrantAPIKey = os.Getenv("JOBMATCH_QDRANT_API_KEY")
	p.QdrantCollection = getEnvOrDefault("JOBMATCH_QDRANT_COLLECTION", "jobmatch")
	p.QdrantUseTLS = getBoolEnvOrDefault("JOBMATCH_QDRANT_USE_TLS", false)

	p.CacheBackend = getEnvOrDefault("JOBMATCH_CACHE_BACKEND", "memory")
	p.RedisAddr = getEnvOrDefault("JOBMATCH_REDIS_ADDR", "localhost:6379")
	p.RedisPassword = os.Getenv("JOBMATCH_REDIS_PASSWORD")
	p.RedisDB = getIntEnvOrDefault("JOBMATCH_REDIS_DB", 0)

	p.BackfillBatchSize = getIntEnvOrDefault("JOBMATCH_BACKFILL_BATCH_SIZE", 50)
	p.BackfillDelay = getDurationEnvOrDefault("JOBMATCH_BACKFILL_DELAY", 100*time.Millisecond)
	p.BackfillInterval = getDurationEnvOrDefault("JOBMATCH_BACKFILL_INTERVAL", 0)
	p.UserBackfillPolicy = getEnvOrDefault("JOBMATCH_USER_BACKFILL_POLICY", "all")

	p.MatchCacheTTL = getDurationEnvOrDefault("JOBMATCH_MATCH_CACHE_TTL", 7*24*time.Hour)
	p.MatchAnalysisVersion = getIntEnvOrDefault("JOBMATCH_MATCH_ANALYSIS_VERSION", 2)
	p.UserEmbeddingCacheTTL = getDurationEnvOrDefault("JOBMATCH_USER_EMBEDDING_CACHE_TTL", 24*time.Hour)

	p.CostTokensPerItem = getIntEnvOrDefault("JOBMATCH_COST_TOKENS_PER_ITEM", 300)
	p.CostPerMillionTokens = getFloatEnvOrDefault("JOBMATCH_COST_PER_MILLION_TOKENS", 0.02)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q: only sqlite and postgres are supported", p.Driver)
	}
	if p.UserBackfillPolicy != "all" && p.UserBackfillPolicy != "missing" {
		return errors.Errorf("unsupported user backfill policy %q: expected all or missing", p.UserBackfillPolicy)
	}
	if p.AIEmbeddingMaxBatch > 0 && p.BackfillBatchSize > p.AIEmbeddingMaxBatch {
		return errors.Errorf("backfill batch size %d exceeds embedding max batch %d", p.BackfillBatchSize, p.AIEmbeddingMaxBatch)
	}
	if p.VectorBackend == "pgvector" && p.Driver != "postgres" {
		return errors.New("pgvector backend requires the postgres driver")
	}

	if p.Driver != "sqlite" || p.DSN != "" {
		return nil
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "jobmatch")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/jobmatch"
		}
	}
	if p.Data == "" {
		p.Data = "."
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	p.DSN = filepath.Join(dataDir, fmt.Sprintf("jobmatch_%s.db", p.Mode))
	return nil
}
