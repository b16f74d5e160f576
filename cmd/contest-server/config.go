package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/algorithm-ninja/task-wizard/internal/common/cache"
	"github.com/algorithm-ninja/task-wizard/internal/common/db"
	"github.com/algorithm-ninja/task-wizard/internal/common/mq"
	"github.com/algorithm-ninja/task-wizard/internal/common/storage"
	"github.com/algorithm-ninja/task-wizard/internal/judge"
	"github.com/algorithm-ninja/task-wizard/pkg/utils/logger"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8080"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second

	defaultStatusTopic = "evaluation.status.final"

	artifactBackendSQL   = "sql"
	artifactBackendMinIO = "minio"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// AuthConfig holds contest access settings. An empty secret disables
// authentication entirely.
type AuthConfig struct {
	Secret   string        `yaml:"secret"`
	SkipAuth bool          `yaml:"skipAuth"`
	TokenTTL time.Duration `yaml:"tokenTTL"`
}

// ArtifactConfig selects the blob backend and the workspace root.
type ArtifactConfig struct {
	// Backend is "sql" (blobs table) or "minio".
	Backend string `yaml:"backend"`
	// WorkspaceDir overrides the extraction root. Default os.TempDir().
	WorkspaceDir string `yaml:"workspaceDir"`
}

// EvaluationConfig tunes the orchestrator.
type EvaluationConfig struct {
	MaxActive   int           `yaml:"maxActive"`
	RunTimeout  time.Duration `yaml:"runTimeout"`
	StatusTopic string        `yaml:"statusTopic"`
	// PublishStatus enables the Kafka terminal-status publisher.
	PublishStatus bool `yaml:"publishStatus"`
}

// SubmitConfig bounds submission uploads.
type SubmitConfig struct {
	MaxFileSize int64 `yaml:"maxFileSize"`
}

// AppConfig holds contest-server configuration.
type AppConfig struct {
	Server     ServerConfig        `yaml:"server"`
	Logger     logger.Config       `yaml:"logger"`
	Database   db.MySQLConfig      `yaml:"database"`
	Redis      cache.RedisConfig   `yaml:"redis"`
	Kafka      mq.KafkaConfig      `yaml:"kafka"`
	MinIO      storage.MinIOConfig `yaml:"minio"`
	Auth       AuthConfig          `yaml:"auth"`
	Judge      judge.HarnessConfig `yaml:"judge"`
	Artifact   ArtifactConfig      `yaml:"artifact"`
	Evaluation EvaluationConfig    `yaml:"evaluation"`
	Submit     SubmitConfig        `yaml:"submit"`
}

func loadAppConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file failed: %w", err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file failed: %w", err)
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}

	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	if cfg.Judge.Binary == "" {
		return nil, fmt.Errorf("judge binary is required")
	}

	switch cfg.Artifact.Backend {
	case "":
		cfg.Artifact.Backend = artifactBackendSQL
	case artifactBackendSQL, artifactBackendMinIO:
	default:
		return nil, fmt.Errorf("unknown artifact backend %q", cfg.Artifact.Backend)
	}
	if cfg.Artifact.Backend == artifactBackendMinIO && cfg.MinIO.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required for the minio artifact backend")
	}

	if cfg.Evaluation.StatusTopic == "" {
		cfg.Evaluation.StatusTopic = defaultStatusTopic
	}
	if cfg.Evaluation.PublishStatus && len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required to publish status events")
	}

	return &cfg, nil
}
