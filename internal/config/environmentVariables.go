package config

import (
	"log/slog"
	"time"
)

const (
	LOG_LEVEL_PROD              = slog.LevelInfo
	TRACE_ID_KEY                = "traceId"
	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute

	//serverTimeouts
	//write timeout has to outlive a synchronous batch, see Settings.ServerWriteTimeout
	ReadTimeout            = 30 * time.Second
	WriteTimeout           = 11 * time.Minute
	WriteTimeoutMargin     = 1 * time.Minute
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//job requests buffer limit
	BufferLimit = 100

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//uploads
	MaxUploadBytes  int64 = 15 << 20 //15mb per file
	MaxFormMemory   int64 = 32 << 20
	MaxFilenameRune       = 180

	//llm
	ProviderOpenAI        = "openai"
	ProviderGemini        = "gemini"
	DefaultModelName      = "gpt-4.1-mini"
	DefaultGeminiModel    = "gemini-2.5-flash"
	DefaultRequestTimeout = 60 * time.Second
	DefaultMaxRetries     = 3
	DefaultBackoffBase    = 500 * time.Millisecond
	DefaultBackoffMax     = 8 * time.Second
	ModelTemperature      = 0.0
	ModelContext          = "You convert telecom agreements and IOT standard documents into loader field mappings. Answer only in the requested format."

	//loader pipeline
	DefaultMaxCharsPerFile = 60_000
	DefaultRepairAttempts  = 1
	DefaultLoaderWorkers   = 4
	DefaultBatchTimeout    = 10 * time.Minute
	PDFPageTimeout         = 10 * time.Second
	MaxOutputVersions      = 9999

	//storage
	DefaultDataDir = "data"

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	//redis has 16 DB we can use
	RedisReportStore = 0

	//redis timeouts
	RedisReportStoreTTL = 24 * time.Hour
	RedisPingTimeout    = 3 * time.Second
)
