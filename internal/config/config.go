package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Workflow  WorkflowConfig
	Render    RenderConfig
	Logs      LogsConfig
	Transport TransportConfig
	Monitor   MonitorConfig
	Job       JobConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// WorkflowConfig points at the workflow engine's status API (pull) and
// stream endpoint (push).
type WorkflowConfig struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

// RenderConfig points at the external compositing service's status endpoint.
type RenderConfig struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

// LogsConfig covers both log stores: the durable Redis journal and the live
// in-memory buffer behind HTTP.
type LogsConfig struct {
	KeyPrefix      string
	LiveBaseURL    string
	TimeoutSeconds int
}

// TransportConfig tunes the push backoff and the pull interval tiers.
type TransportConfig struct {
	MaxPushFailures        int
	BackoffBaseMs          int
	BackoffCapMs           int
	PullFastMs             int
	PullNormalMs           int
	PullSlowMs             int
	PullSlowestMs          int
	LatencySlowThresholdMs int
}

// MonitorConfig tunes the render sub-monitor's poll loop.
type MonitorConfig struct {
	IntervalSeconds int
	MaxAttempts     int
}

// JobConfig carries the workflow shape: how many steps and how many retries.
type JobConfig struct {
	StepTotal  int
	MaxRetries int
}

func Load() (*Config, error) {
	readSecret("REDIS_PASSWORD")
	readSecret("WORKFLOW_API_KEY")
	readSecret("RENDER_API_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("workflow.base_url", "WORKFLOW_BASE_URL")
	_ = viper.BindEnv("workflow.api_key", "WORKFLOW_API_KEY")
	_ = viper.BindEnv("workflow.timeout", "WORKFLOW_TIMEOUT")
	_ = viper.BindEnv("render.base_url", "RENDER_BASE_URL")
	_ = viper.BindEnv("render.api_key", "RENDER_API_KEY")
	_ = viper.BindEnv("render.timeout", "RENDER_TIMEOUT")
	_ = viper.BindEnv("logs.key_prefix", "LOGS_KEY_PREFIX")
	_ = viper.BindEnv("logs.live_base_url", "LOGS_LIVE_BASE_URL")
	_ = viper.BindEnv("logs.timeout", "LOGS_TIMEOUT")
	_ = viper.BindEnv("transport.max_push_failures", "TRANSPORT_MAX_PUSH_FAILURES")
	_ = viper.BindEnv("transport.backoff_base_ms", "TRANSPORT_BACKOFF_BASE_MS")
	_ = viper.BindEnv("transport.backoff_cap_ms", "TRANSPORT_BACKOFF_CAP_MS")
	_ = viper.BindEnv("transport.pull_fast_ms", "TRANSPORT_PULL_FAST_MS")
	_ = viper.BindEnv("transport.pull_normal_ms", "TRANSPORT_PULL_NORMAL_MS")
	_ = viper.BindEnv("transport.pull_slow_ms", "TRANSPORT_PULL_SLOW_MS")
	_ = viper.BindEnv("transport.pull_slowest_ms", "TRANSPORT_PULL_SLOWEST_MS")
	_ = viper.BindEnv("transport.latency_slow_threshold_ms", "TRANSPORT_LATENCY_SLOW_THRESHOLD_MS")
	_ = viper.BindEnv("monitor.interval_seconds", "MONITOR_INTERVAL_SECONDS")
	_ = viper.BindEnv("monitor.max_attempts", "MONITOR_MAX_ATTEMPTS")
	_ = viper.BindEnv("job.step_total", "JOB_STEP_TOTAL")
	_ = viper.BindEnv("job.max_retries", "JOB_MAX_RETRIES")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("workflow.base_url", "http://localhost:8080")
	viper.SetDefault("workflow.timeout", 30)
	viper.SetDefault("render.base_url", "")
	viper.SetDefault("render.timeout", 30)
	viper.SetDefault("logs.key_prefix", "job:logs:")
	viper.SetDefault("logs.live_base_url", "http://localhost:8080")
	viper.SetDefault("logs.timeout", 15)
	viper.SetDefault("transport.max_push_failures", 5)
	viper.SetDefault("transport.backoff_base_ms", 1000)
	viper.SetDefault("transport.backoff_cap_ms", 30000)
	viper.SetDefault("transport.pull_fast_ms", 2000)
	viper.SetDefault("transport.pull_normal_ms", 5000)
	viper.SetDefault("transport.pull_slow_ms", 15000)
	viper.SetDefault("transport.pull_slowest_ms", 60000)
	viper.SetDefault("transport.latency_slow_threshold_ms", 2000)
	viper.SetDefault("monitor.interval_seconds", 10)
	viper.SetDefault("monitor.max_attempts", 90)
	viper.SetDefault("job.step_total", 7)
	viper.SetDefault("job.max_retries", 3)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Workflow: WorkflowConfig{
			BaseURL:        viper.GetString("workflow.base_url"),
			APIKey:         viper.GetString("workflow.api_key"),
			TimeoutSeconds: viper.GetInt("workflow.timeout"),
		},
		Render: RenderConfig{
			BaseURL:        viper.GetString("render.base_url"),
			APIKey:         viper.GetString("render.api_key"),
			TimeoutSeconds: viper.GetInt("render.timeout"),
		},
		Logs: LogsConfig{
			KeyPrefix:      viper.GetString("logs.key_prefix"),
			LiveBaseURL:    viper.GetString("logs.live_base_url"),
			TimeoutSeconds: viper.GetInt("logs.timeout"),
		},
		Transport: TransportConfig{
			MaxPushFailures:        viper.GetInt("transport.max_push_failures"),
			BackoffBaseMs:          viper.GetInt("transport.backoff_base_ms"),
			BackoffCapMs:           viper.GetInt("transport.backoff_cap_ms"),
			PullFastMs:             viper.GetInt("transport.pull_fast_ms"),
			PullNormalMs:           viper.GetInt("transport.pull_normal_ms"),
			PullSlowMs:             viper.GetInt("transport.pull_slow_ms"),
			PullSlowestMs:          viper.GetInt("transport.pull_slowest_ms"),
			LatencySlowThresholdMs: viper.GetInt("transport.latency_slow_threshold_ms"),
		},
		Monitor: MonitorConfig{
			IntervalSeconds: viper.GetInt("monitor.interval_seconds"),
			MaxAttempts:     viper.GetInt("monitor.max_attempts"),
		},
		Job: JobConfig{
			StepTotal:  viper.GetInt("job.step_total"),
			MaxRetries: viper.GetInt("job.max_retries"),
		},
	}

	return cfg, nil
}
