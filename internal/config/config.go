package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Http    HttpConfig    `yaml:"http"`
	Db      DbConfig      `yaml:"db"`
	Slack   SlackConfig   `yaml:"slack"`
	Jira    JiraConfig    `yaml:"jira"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Tracing TracingConfig `yaml:"tracing"`
	Monitor MonitorConfig `yaml:"monitor"`
}

type HttpConfig struct {
	Port int `yaml:"port"`
}

type DbConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"` // sqlite only
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	// TimeoutSeconds bounds every storage operation.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

type SlackConfig struct {
	Enabled        bool                 `yaml:"enabled"`
	Channels       map[string]string    `yaml:"channels"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	FailureThreshold    int `yaml:"failure_threshold"`
	TimeoutDuration     int `yaml:"timeout_duration"`
	HalfOpenMaxRequests int `yaml:"half_open_max_requests"`
}

type JiraConfig struct {
	Enabled   bool   `yaml:"enabled"`
	URL       string `yaml:"url"`
	Project   string `yaml:"project"`
	IssueType string `yaml:"issue_type"`
	Assignee  string `yaml:"assignee"`
}

type KafkaConfig struct {
	Enabled bool   `yaml:"enabled"`
	Broker  string `yaml:"broker"`
	Topic   string `yaml:"topic"`
}

type TracingConfig struct {
	Enabled           bool   `yaml:"enabled"`
	ServiceName       string `yaml:"service_name"`
	CollectorEndpoint string `yaml:"collector_endpoint"`
}

type MonitorConfig struct {
	WebhookURL      string     `yaml:"webhook_url"`
	IntervalSeconds int        `yaml:"interval_seconds"`
	CooldownMinutes int        `yaml:"cooldown_minutes"`
	Thresholds      Thresholds `yaml:"thresholds"`
}

type Thresholds struct {
	DiskUsageWarning    float64 `yaml:"disk_usage_warning"`
	DiskUsageCritical   float64 `yaml:"disk_usage_critical"`
	InodeUsageWarning   float64 `yaml:"inode_usage_warning"`
	InodeUsageCritical  float64 `yaml:"inode_usage_critical"`
	LoadAverageWarning  float64 `yaml:"load_average_warning"`
	LoadAverageCritical float64 `yaml:"load_average_critical"`
}

func Load() (Config, error) {
	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		// Default: try relative path from project root
		configPath = "configs/prod.yaml"

		// If that doesn't exist, try from cmd/alerter
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "../../configs/prod.yaml"
		}
	}

	byteYaml, err := os.ReadFile(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("could not read %s: %w", configPath, err)
	}

	var config Config
	if err := yaml.Unmarshal(byteYaml, &config); err != nil {
		return Config{}, fmt.Errorf("could not unmarshal config: %w", err)
	}

	return config, nil
}

func GetSlackToken() string {
	return os.Getenv("SLACK_BOT_TOKEN")
}

func GetJiraUsername() string {
	return os.Getenv("JIRA_USERNAME")
}

func GetJiraAPIToken() string {
	return os.Getenv("JIRA_API_TOKEN")
}
