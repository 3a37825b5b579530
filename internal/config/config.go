package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/facegate/internal/constants"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Embedding  EmbeddingConfig
	Database   DatabaseConfig
	Matching   MatchingConfig
	Redis      RedisConfig
	OTP        OTPConfig
	Web        WebConfig
	Enrollment EnrollmentConfig
}

type EmbeddingConfig struct {
	Backend       string        // "http" (default) or "dlib"
	URL           string        // defaults to http://localhost:8000
	Dim           int           // defaults to 128
	Timeout       time.Duration // per extraction attempt
	Retries       int           // retries after a timed out attempt
	DlibModelsDir string        // directory with dlib model files (dlib backend only)
	DlibCNN       bool          // use the CNN face detector instead of HOG
}

type DatabaseConfig struct {
	URL           string // PostgreSQL connection URL
	MaxOpenConns  int    // Maximum open connections (default 25)
	MaxIdleConns  int    // Maximum idle connections (default 5)
	HNSWIndexPath string // Path to persist the identity HNSW index (optional, if empty index is rebuilt on startup)
}

type MatchingConfig struct {
	Threshold       float64
	UseIndex        bool // generate candidates from the HNSW index instead of a full scan
	IndexCandidates int
}

type RedisConfig struct {
	Addr     string // empty disables Redis
	Password string
	DB       int
}

type OTPConfig struct {
	TTL     time.Duration
	Backend string // "memory", "redis" or "postgres"; empty picks redis when REDIS_ADDR is set
}

type WebConfig struct {
	Port           int
	Host           string
	AdminToken     string   // bearer token for admin endpoints; empty disables them
	AllowedOrigins []string // CORS origins in addition to localhost
	UploadDir      string   // where enrollment photos are kept; empty discards them
	RecognizeRate  float64  // requests per second per client
	RecognizeBurst int
}

type EnrollmentConfig struct {
	KeyField        string   `yaml:"key_field"`
	KeyAliases      []string `yaml:"key_aliases"`
	NameField       string   `yaml:"name_field"`
	RequiredFields  []string `yaml:"required_fields"`
	DiscardedFields []string `yaml:"discarded_fields"`
	MaxFieldLength  int      `yaml:"max_field_length"`
}

type defaultsFile struct {
	Enrollment EnrollmentConfig `yaml:"enrollment"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envNonNegInt is envInt that also accepts zero (retry counts, Redis DB index).
func envNonNegInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a positive float, falling back to defaultVal.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDuration accepts Go duration strings ("15s") or plain seconds ("15").
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return defaultVal
	}
	return b
}

// envList splits a comma-separated variable, dropping empty items.
func envList(key string, defaultVal []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	var out []string
	for item := range strings.SplitSeq(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

func loadDefaults() defaultsFile {
	var d defaultsFile
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return d
}

func Load() *Config {
	defaults := loadDefaults()

	enrollment := defaults.Enrollment
	enrollment.RequiredFields = envList("ENROLL_REQUIRED_FIELDS", enrollment.RequiredFields)
	if enrollment.KeyField == "" {
		enrollment.KeyField = "key"
	}

	return &Config{
		Embedding: EmbeddingConfig{
			Backend:       strings.ToLower(os.Getenv("EMBEDDING_BACKEND")),
			URL:           os.Getenv("EMBEDDING_URL"),
			Dim:           envInt("EMBEDDING_DIM", constants.DefaultDescriptorDim),
			Timeout:       envDuration("EMBEDDING_TIMEOUT", constants.DefaultExtractionTimeout),
			Retries:       envNonNegInt("EMBEDDING_RETRIES", constants.DefaultExtractionRetries),
			DlibModelsDir: os.Getenv("DLIB_MODELS_DIR"),
			DlibCNN:       envBool("DLIB_CNN", false),
		},
		Database: DatabaseConfig{
			URL:           os.Getenv("DATABASE_URL"),
			MaxOpenConns:  envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:  envInt("DATABASE_MAX_IDLE_CONNS", 5),
			HNSWIndexPath: os.Getenv("HNSW_INDEX_PATH"),
		},
		Matching: MatchingConfig{
			Threshold:       envFloat("MATCH_THRESHOLD", constants.DefaultMatchThreshold),
			UseIndex:        envBool("MATCH_USE_INDEX", false),
			IndexCandidates: envInt("MATCH_INDEX_CANDIDATES", constants.DefaultIndexCandidates),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       envNonNegInt("REDIS_DB", 0),
		},
		OTP: OTPConfig{
			TTL:     envDuration("OTP_TTL", constants.DefaultOTPTTL),
			Backend: strings.ToLower(os.Getenv("OTP_BACKEND")),
		},
		Web: WebConfig{
			Port:           envInt("WEB_PORT", 8080),
			Host:           envString("WEB_HOST", "0.0.0.0"),
			AdminToken:     os.Getenv("WEB_ADMIN_TOKEN"),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS", nil),
			UploadDir:      os.Getenv("UPLOAD_DIR"),
			RecognizeRate:  envFloat("RECOGNIZE_RATE", constants.DefaultRecognizeRate),
			RecognizeBurst: envInt("RECOGNIZE_BURST", constants.DefaultRecognizeBurst),
		},
		Enrollment: enrollment,
	}
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// OTPBackend resolves the configured one-time code store, defaulting to
// Redis when an address is configured and to process memory otherwise.
func (c *Config) OTPBackend() string {
	switch c.OTP.Backend {
	case "memory", "redis", "postgres":
		return c.OTP.Backend
	}
	if c.Redis.Addr != "" {
		return "redis"
	}
	return "memory"
}

// IsDiscardedField reports whether a form field must never be stored.
func (e *EnrollmentConfig) IsDiscardedField(name string) bool {
	for _, f := range e.DiscardedFields {
		if strings.EqualFold(f, name) {
			return true
		}
	}
	return false
}
