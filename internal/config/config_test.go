package config

import (
	"os"
	"path/filepath"
	"testing"
)

const testYaml = `
http:
  port: 5000
db:
  driver: sqlite
  path: alerts.db
  timeout_seconds: 5
slack:
  enabled: true
  channels:
    default: "#alerts"
    critical: "#alerts-critical"
  circuit_breaker:
    failure_threshold: 5
    timeout_duration: 60
    half_open_max_requests: 3
jira:
  enabled: true
  url: https://example.atlassian.net
  project: DCOPS
  issue_type: Task
  assignee: datacenter.ops
kafka:
  enabled: false
  broker: localhost:9092
  topic: alert-events
monitor:
  webhook_url: http://localhost:5000/webhook/alert
  interval_seconds: 300
  cooldown_minutes: 15
  thresholds:
    disk_usage_warning: 80
    disk_usage_critical: 90
    inode_usage_warning: 80
    inode_usage_critical: 90
    load_average_warning: 5
    load_average_critical: 10
`

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yaml")
	if err := os.WriteFile(path, []byte(testYaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Http.Port != 5000 {
		t.Errorf("Expected port 5000, got %d", cfg.Http.Port)
	}
	if cfg.Db.Driver != "sqlite" {
		t.Errorf("Expected sqlite driver, got %s", cfg.Db.Driver)
	}
	if cfg.Slack.CircuitBreaker.FailureThreshold != 5 {
		t.Errorf("Expected FailureThreshold=5, got %d", cfg.Slack.CircuitBreaker.FailureThreshold)
	}
	if cfg.Slack.Channels["critical"] != "#alerts-critical" {
		t.Errorf("Expected critical channel, got %v", cfg.Slack.Channels)
	}
	if cfg.Jira.Project != "DCOPS" {
		t.Errorf("Expected project DCOPS, got %s", cfg.Jira.Project)
	}
	if cfg.Monitor.CooldownMinutes != 15 {
		t.Errorf("Expected cooldown 15m, got %d", cfg.Monitor.CooldownMinutes)
	}
	if cfg.Monitor.Thresholds.DiskUsageCritical != 90 {
		t.Errorf("Expected disk critical threshold 90, got %v", cfg.Monitor.Thresholds.DiskUsageCritical)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
