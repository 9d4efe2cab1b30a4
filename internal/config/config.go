package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Roster    RosterConfig
	Embedding EmbeddingConfig
	Match     MatchConfig
	Sink      SinkConfig
	Log       LogConfig
}

type RosterConfig struct {
	Dir     string // directory of per-identity subdirectories with reference images
	Aliases string // optional YAML file mapping identity keys to display names
}

type EmbeddingConfig struct {
	URL string // embedding service base URL
	Dim int    // embedding dimension (128 for the dlib face model)
}

type MatchConfig struct {
	Threshold float64       // maximum accepted distance, strictly less-than (smaller is a better match)
	Cooldown  time.Duration // minimum time between two counted attendance events per identity
	Index     string        // "brute" or "hnsw"
}

type SinkConfig struct {
	Kind      string        // "remote", "csv" or "sqlite"
	APIURL    string        // attendance endpoint for the remote sink
	LogPath   string        // CSV log path for the csv sink
	DBPath    string        // SQLite database path for the sqlite sink
	QueueSize int           // dispatcher queue capacity
	Timeout   time.Duration // per-delivery timeout
}

type LogConfig struct {
	Level string
	JSON  bool
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

// envFloat reads an environment variable and parses it as a positive float.
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

// envSeconds reads an environment variable holding a number of seconds.
// Zero is valid and disables the window entirely.
func envSeconds(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}

// envString reads an environment variable, falling back to a default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	return &Config{
		Roster: RosterConfig{
			Dir:     envString("ROSTER_DIR", "training_images"),
			Aliases: os.Getenv("ROSTER_ALIASES"),
		},
		Embedding: EmbeddingConfig{
			URL: envString("EMBEDDING_URL", "http://localhost:8000"),
			Dim: envInt("EMBEDDING_DIM", 128),
		},
		Match: MatchConfig{
			Threshold: envFloat("MATCH_THRESHOLD", 0.52),
			Cooldown:  envSeconds("COOLDOWN_SECONDS", time.Hour),
			Index:     envString("MATCHER", "brute"),
		},
		Sink: SinkConfig{
			Kind:      envString("SINK", "remote"),
			APIURL:    envString("ATTENDANCE_API_URL", "http://127.0.0.1:5000/api/attendance/mark"),
			LogPath:   envString("ATTENDANCE_LOG_PATH", "attendance_log.csv"),
			DBPath:    envString("ATTENDANCE_DB_PATH", "attendance.db"),
			QueueSize: envInt("SINK_QUEUE_SIZE", 64),
			Timeout:   envSeconds("SINK_TIMEOUT_SECONDS", 5*time.Second),
		},
		Log: LogConfig{
			Level: envString("LOG_LEVEL", "info"),
			JSON:  os.Getenv("LOG_JSON") == "true",
		},
	}
}

// InitLogger initializes the global zap logger from the log config.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.JSON {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return nil
}
