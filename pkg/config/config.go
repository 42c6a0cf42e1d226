package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Corpus     CorpusConfig
	Index      IndexConfig
	Inference  InferenceConfig
	Classifier ClassifierConfig
	SQLite     SQLiteConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type CorpusConfig struct {
	Dir       string
	SourceDir string
}

type IndexConfig struct {
	Backend string
	Milvus  MilvusConfig
}

type MilvusConfig struct {
	Endpoint       string
	CollectionName string
}

type InferenceConfig struct {
	BaseURL         string
	APIKey          string
	EmbeddingModel  string
	EmbeddingDim    int
	PerplexityModel string
	MaxTextChars    int
	TimeoutSec      int
}

type ClassifierConfig struct {
	Enabled    bool
	Endpoint   string
	TimeoutSec int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTLMin   int
}

type RateLimitConfig struct {
	MaxRequestsPerMinute int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/jasper")

	viper.SetEnvPrefix("JASPER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 5123)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 60)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("corpus.dir", "./data/corpus")
	viper.SetDefault("corpus.sourceDir", "./data/corpus_source")

	viper.SetDefault("index.backend", "flat")
	viper.SetDefault("index.milvus.endpoint", "localhost:19530")
	viper.SetDefault("index.milvus.collectionName", "jasper_sentences")

	viper.SetDefault("inference.baseURL", "http://localhost:8000/v1")
	viper.SetDefault("inference.apiKey", "local")
	viper.SetDefault("inference.embeddingModel", "all-MiniLM-L6-v2")
	viper.SetDefault("inference.embeddingDim", 384)
	viper.SetDefault("inference.perplexityModel", "gpt2")
	viper.SetDefault("inference.maxTextChars", 4096)
	viper.SetDefault("inference.timeoutSec", 30)

	viper.SetDefault("classifier.enabled", false)
	viper.SetDefault("classifier.endpoint", "http://localhost:8001/classify")
	viper.SetDefault("classifier.timeoutSec", 15)

	viper.SetDefault("sqlite.path", "./data/jasper.db")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttlMin", 60)

	viper.SetDefault("ratelimit.maxRequestsPerMinute", 120)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
