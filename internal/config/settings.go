package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrMissingCredential = errors.New("llm credential is missing")
	ErrInvalidSettings   = errors.New("invalid settings")
)

// ConfigError is returned by Validate and Load.
type ConfigError struct {
	Code    string
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

func newConfigError(message string, cause error) *ConfigError {
	return &ConfigError{Code: "CONFIG_ERROR", Message: message, Cause: cause}
}

// Settings is the runtime configuration handed to constructors.
type Settings struct {
	Env          string `yaml:"env"`
	LogLevel     string `yaml:"log_level"`
	ListenAddr   string `yaml:"listen_addr"`
	AuthToken    string `yaml:"-"`
	NoAuthBypass bool   `yaml:"no_auth_bypass"`
	DataDir      string `yaml:"data_dir"`

	Redis  RedisSettings  `yaml:"redis"`
	LLM    LLMSettings    `yaml:"llm"`
	Loader LoaderSettings `yaml:"loader"`
	S3     S3Settings     `yaml:"s3"`
}

type RedisSettings struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"-"`
}

type LLMSettings struct {
	Provider       string        `yaml:"provider"`
	APIKey         string        `yaml:"-"`
	BaseURL        string        `yaml:"base_url"`
	DefaultModel   string        `yaml:"model"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	BackoffBase    time.Duration `yaml:"backoff_base"`
	BackoffMax     time.Duration `yaml:"backoff_max"`
	Temperature    float64       `yaml:"temperature"`
}

// LogValue keeps the credential out of every log record.
func (l LLMSettings) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("provider", l.Provider),
		slog.String("model", l.DefaultModel),
		slog.String("base_url", l.BaseURL),
		slog.Duration("request_timeout", l.RequestTimeout),
		slog.Int("max_retries", l.MaxRetries),
		slog.Bool("credential_set", l.APIKey != ""),
	)
}

type LoaderSettings struct {
	MaxCharsPerFile int           `yaml:"max_chars_per_file"`
	RepairAttempts  int           `yaml:"repair_attempts"`
	Workers         int           `yaml:"workers"`
	BatchTimeout    time.Duration `yaml:"batch_timeout"`
}

type S3Settings struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

func (s S3Settings) Enabled() bool {
	return s.Endpoint != "" && s.Bucket != ""
}

func (s S3Settings) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("endpoint", s.Endpoint),
		slog.String("bucket", s.Bucket),
		slog.Bool("use_ssl", s.UseSSL),
	)
}

func (s Settings) IsProd() bool {
	return strings.EqualFold(s.Env, "production") || strings.EqualFold(s.Env, "prod")
}

func (s Settings) SlogLevel() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		return slog.LevelInfo
	}
	if s.IsProd() {
		return LOG_LEVEL_PROD
	}
	return slog.LevelDebug
}

func (s Settings) UploadsDir() string {
	return filepath.Join(s.DataDir, "uploads")
}

func (s Settings) AgreementsDir() string {
	return filepath.Join(s.UploadsDir(), "agreements")
}

func (s Settings) StandardsDir() string {
	return filepath.Join(s.UploadsDir(), "standards")
}

func (s Settings) OutputDir() string {
	return filepath.Join(s.DataDir, "output")
}

func Defaults() Settings {
	return Settings{
		Env:        "development",
		ListenAddr: ServerListenAddr,
		DataDir:    DefaultDataDir,
		Redis:      RedisSettings{Addr: RedisAddr},
		LLM: LLMSettings{
			Provider:       ProviderOpenAI,
			DefaultModel:   DefaultModelName,
			RequestTimeout: DefaultRequestTimeout,
			MaxRetries:     DefaultMaxRetries,
			BackoffBase:    DefaultBackoffBase,
			BackoffMax:     DefaultBackoffMax,
			Temperature:    ModelTemperature,
		},
		Loader: LoaderSettings{
			MaxCharsPerFile: DefaultMaxCharsPerFile,
			RepairAttempts:  DefaultRepairAttempts,
			Workers:         DefaultLoaderWorkers,
			BatchTimeout:    DefaultBatchTimeout,
		},
	}
}

// Load builds Settings from defaults, the optional LOADER_CONFIG_FILE yaml overlay
// and the environment, in that order.
func Load() (Settings, error) {
	s := Defaults()
	if path := os.Getenv("LOADER_CONFIG_FILE"); path != "" {
		if err := overlayFile(&s, path); err != nil {
			return s, err
		}
	}
	applyEnv(&s)
	return s, s.Validate()
}

func overlayFile(s *Settings, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return newConfigError("cannot read config file "+path, err)
	}
	if err := yaml.Unmarshal(raw, s); err != nil {
		return newConfigError("cannot parse config file "+path, err)
	}
	return nil
}

func applyEnv(s *Settings) {
	s.Env = getEnv("LOADER_ENV", s.Env)
	s.LogLevel = getEnv("LOG_LEVEL", s.LogLevel)
	s.ListenAddr = getEnv("LISTEN_ADDR", s.ListenAddr)
	s.AuthToken = getEnv("AUTH_TOKEN", s.AuthToken)
	s.NoAuthBypass = getEnvAsBool("NO_AUTH_BYPASS", s.NoAuthBypass)
	s.DataDir = getEnv("LOADER_DATA_DIR", s.DataDir)

	s.Redis.Addr = getEnv("REDIS_ADDR", s.Redis.Addr)
	s.Redis.Password = getEnv("REDIS_PASSWORD", s.Redis.Password)

	s.LLM.Provider = strings.ToLower(getEnv("LOADER_LLM_PROVIDER", s.LLM.Provider))
	switch s.LLM.Provider {
	case ProviderGemini:
		s.LLM.APIKey = getEnv("GEMINI_API_KEY", s.LLM.APIKey)
		s.LLM.BaseURL = getEnv("GEMINI_BASE_URL", s.LLM.BaseURL)
		if s.LLM.DefaultModel == DefaultModelName {
			s.LLM.DefaultModel = DefaultGeminiModel
		}
	default:
		s.LLM.APIKey = getEnv("OPENAI_API_KEY", s.LLM.APIKey)
		s.LLM.BaseURL = getEnv("OPENAI_BASE_URL", s.LLM.BaseURL)
	}
	s.LLM.DefaultModel = getEnv("LOADER_MODEL", s.LLM.DefaultModel)
	s.LLM.RequestTimeout = getEnvAsSeconds("OPENAI_TIMEOUT_SECONDS", s.LLM.RequestTimeout)
	s.LLM.MaxRetries = getEnvAsInt("LOADER_MAX_RETRIES", s.LLM.MaxRetries)
	s.LLM.BackoffBase = getEnvAsDuration("LOADER_BACKOFF_BASE", s.LLM.BackoffBase)
	s.LLM.BackoffMax = getEnvAsDuration("LOADER_BACKOFF_MAX", s.LLM.BackoffMax)

	s.Loader.MaxCharsPerFile = getEnvAsInt("LOADER_MAX_CHARS_PER_FILE", s.Loader.MaxCharsPerFile)
	s.Loader.RepairAttempts = getEnvAsInt("LOADER_REPAIR_ATTEMPTS", s.Loader.RepairAttempts)
	s.Loader.Workers = getEnvAsInt("LOADER_WORKERS", s.Loader.Workers)
	s.Loader.BatchTimeout = getEnvAsDuration("LOADER_BATCH_TIMEOUT", s.Loader.BatchTimeout)

	s.S3.Endpoint = getEnv("LOADER_S3_ENDPOINT", s.S3.Endpoint)
	s.S3.AccessKey = getEnv("LOADER_S3_ACCESS_KEY", s.S3.AccessKey)
	s.S3.SecretKey = getEnv("LOADER_S3_SECRET_KEY", s.S3.SecretKey)
	s.S3.Bucket = getEnv("LOADER_S3_BUCKET", s.S3.Bucket)
	s.S3.UseSSL = getEnvAsBool("LOADER_S3_USE_SSL", s.S3.UseSSL)
}

// Validate reports the first fatal configuration problem.
// ServerWriteTimeout leaves a synchronous batch room to finish and stream its
// artifact, however long LOADER_BATCH_TIMEOUT is.
func (s Settings) ServerWriteTimeout() time.Duration {
	if need := s.Loader.BatchTimeout + WriteTimeoutMargin; need > WriteTimeout {
		return need
	}
	return WriteTimeout
}

func (s Settings) Validate() error {
	if strings.TrimSpace(s.LLM.APIKey) == "" {
		return newConfigError("API credential for provider "+s.LLM.Provider+" is required", ErrMissingCredential)
	}
	if s.LLM.Provider != ProviderOpenAI && s.LLM.Provider != ProviderGemini {
		return newConfigError("unknown LOADER_LLM_PROVIDER "+s.LLM.Provider, ErrInvalidSettings)
	}
	if s.LLM.MaxRetries < 0 {
		return newConfigError("LOADER_MAX_RETRIES must not be negative", ErrInvalidSettings)
	}
	if s.LLM.BackoffBase <= 0 || s.LLM.BackoffMax < s.LLM.BackoffBase {
		return newConfigError("backoff base must be positive and not above backoff max", ErrInvalidSettings)
	}
	if s.Loader.Workers < 1 {
		return newConfigError("LOADER_WORKERS must be at least 1", ErrInvalidSettings)
	}
	if s.Loader.BatchTimeout <= 0 {
		return newConfigError("LOADER_BATCH_TIMEOUT must be positive", ErrInvalidSettings)
	}
	if s.Loader.RepairAttempts < 0 {
		return newConfigError("LOADER_REPAIR_ATTEMPTS must not be negative", ErrInvalidSettings)
	}
	if s.DataDir == "" {
		return newConfigError("LOADER_DATA_DIR is required", ErrInvalidSettings)
	}
	if !s.NoAuthBypass && s.AuthToken == "" {
		return newConfigError("AUTH_TOKEN is required unless NO_AUTH_BYPASS is set", ErrInvalidSettings)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSeconds(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.ParseFloat(value, 64); err == nil && seconds > 0 {
			return time.Duration(seconds * float64(time.Second))
		}
	}
	return defaultValue
}
