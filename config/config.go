package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultEmbeddingDims   = 384
	DefaultBulkBatchSize   = 500
	DefaultSyncTopic       = "ytindex.sync.completed"
	defaultEmbeddingsDir   = "/app/data/embeddings_data/"
	defaultOpensearchURL   = "http://localhost:9200"
	defaultConnectRetries  = 6
	defaultDBConnectTries  = 12
	defaultConnectInterval = 5 * time.Second
)

// Config is built once at process start and handed to every component.
type Config struct {
	Env        string
	LogLevel   string
	Postgres   PostgresConfig
	Opensearch OpensearchConfig
	Sync       SyncConfig
	Sentiment  SentimentConfig
	Report     ReportConfig
}

type PostgresConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
	SSLMode  string

	ConnectRetries int
	ConnectDelay   time.Duration
}

// DSN renders a postgres:// connection string for pgx.
func (p PostgresConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     p.Host + ":" + p.Port,
		Path:     "/" + p.Database,
		RawQuery: "sslmode=" + url.QueryEscape(p.SSLMode),
	}
	return u.String()
}

type OpensearchConfig struct {
	Endpoint string
	Username string
	Password string
	// SigV4 signs requests with credentials from the default AWS chain.
	SigV4     bool
	AWSRegion string

	ConnectRetries int
	ConnectDelay   time.Duration
}

type SyncConfig struct {
	EmbeddingDims         int
	BatchSize             int
	BulkTimeout           time.Duration
	VideoEmbeddingFiles   []string
	CommentEmbeddingFiles []string
	CommentSentimentFiles []string
}

type SentimentConfig struct {
	// Scorer is one of none, vader or remote.
	Scorer   string
	Endpoint string
	Timeout  time.Duration
}

type ReportConfig struct {
	ValkeyAddress  string
	ValkeyPassword string
	ValkeyTLS      bool
	KafkaBroker    string
	KafkaTopic     string
	PushgatewayURL string
}

// Load reads the process environment. Malformed numeric or duration values are errors.
func Load() (Config, error) {
	var (
		cfg  Config
		errs []string
	)

	intVar := func(key string, def int) int {
		v, err := getEnvInt(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}
	durVar := func(key string, def time.Duration) time.Duration {
		v, err := getEnvDuration(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}

	cfg.Env = AppEnv()
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	cfg.Postgres = PostgresConfig{
		Host:           getEnv("DB_HOST", "localhost"),
		Port:           getEnv("DB_PORT", "5432"),
		Database:       getEnv("DB_NAME", "postgres"),
		User:           getEnv("DB_USER", "postgres"),
		Password:       os.Getenv("DB_PASSWORD"),
		SSLMode:        getEnv("DB_SSLMODE", "disable"),
		ConnectRetries: intVar("DB_CONNECT_RETRIES", defaultDBConnectTries),
		ConnectDelay:   durVar("DB_CONNECT_DELAY", defaultConnectInterval),
	}

	cfg.Opensearch = OpensearchConfig{
		Endpoint:       getEnv("OPENSEARCH_ENDPOINT", defaultOpensearchURL),
		Username:       os.Getenv("OPENSEARCH_USERNAME"),
		Password:       os.Getenv("OPENSEARCH_PASSWORD"),
		SigV4:          getEnvBool("OPENSEARCH_SIGV4"),
		AWSRegion:      os.Getenv("AWS_REGION"),
		ConnectRetries: intVar("OPENSEARCH_CONNECT_RETRIES", defaultConnectRetries),
		ConnectDelay:   durVar("OPENSEARCH_CONNECT_DELAY", defaultConnectInterval),
	}

	cfg.Sync = SyncConfig{
		EmbeddingDims: intVar("EMBEDDING_DIMS", DefaultEmbeddingDims),
		BatchSize:     intVar("BULK_BATCH_SIZE", DefaultBulkBatchSize),
		BulkTimeout:   durVar("BULK_TIMEOUT", 60*time.Second),
		VideoEmbeddingFiles: getEnvList("VIDEO_EMBEDDING_FILES",
			defaultEmbeddingsDir+"videos_embeddings.csv"),
		CommentEmbeddingFiles: getEnvList("COMMENT_EMBEDDING_FILES",
			defaultEmbeddingsDir+"comments_embeddings_part1.csv",
			defaultEmbeddingsDir+"comments_embeddings_part2.csv",
			defaultEmbeddingsDir+"comments_embeddings_part3.csv"),
		CommentSentimentFiles: getEnvList("COMMENT_SENTIMENT_FILES"),
	}

	cfg.Sentiment = SentimentConfig{
		Scorer:   strings.ToLower(getEnv("SENTIMENT_SCORER", "none")),
		Endpoint: os.Getenv("SENTIMENT_ENDPOINT"),
		Timeout:  durVar("SENTIMENT_TIMEOUT", 60*time.Second),
	}

	cfg.Report = ReportConfig{
		ValkeyAddress:  os.Getenv("VALKEY_INIT_ADDRESS"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),
		ValkeyTLS:      getEnvBool("VALKEY_TLS"),
		KafkaBroker:    os.Getenv("KAFKA_BROKER"),
		KafkaTopic:     getEnv("KAFKA_SYNC_TOPIC", DefaultSyncTopic),
		PushgatewayURL: os.Getenv("PUSHGATEWAY_URL"),
	}

	if cfg.Sync.EmbeddingDims <= 0 {
		errs = append(errs, "EMBEDDING_DIMS must be positive")
	}
	if cfg.Sync.BatchSize <= 0 {
		errs = append(errs, "BULK_BATCH_SIZE must be positive")
	}
	switch cfg.Sentiment.Scorer {
	case "none", "vader":
	case "remote":
		if cfg.Sentiment.Endpoint == "" {
			errs = append(errs, "SENTIMENT_ENDPOINT is required when SENTIMENT_SCORER=remote")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown SENTIMENT_SCORER %q", cfg.Sentiment.Scorer))
	}

	if len(errs) > 0 {
		return cfg, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %q is not an integer", key, raw)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %q is not a duration", key, raw)
	}
	return v, nil
}

// getEnvList splits a comma separated variable. An unset variable yields the defaults;
// a variable set to "-" yields no entries.
func getEnvList(key string, defaults ...string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return defaults
	}
	if strings.TrimSpace(raw) == "-" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
