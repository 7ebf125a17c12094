// Package generator watches local storage health and posts webhook alerts
// when thresholds are crossed. Repeated breaches of the same condition are
// throttled by the cooldown tracker.
package generator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"

	"alertmon/internal/config"
	"alertmon/internal/cooldown"
	"alertmon/internal/normalize"
)

type Generator struct {
	cfg        config.MonitorConfig
	tracker    *cooldown.Tracker
	httpClient *http.Client
	hostname   string

	// Collection hooks, swapped in tests.
	partitions func(all bool) ([]disk.PartitionStat, error)
	usage      func(path string) (*disk.UsageStat, error)
	loadAvg    func() (*load.AvgStat, error)
}

func New(cfg config.MonitorConfig) *Generator {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	return &Generator{
		cfg:        cfg,
		tracker:    cooldown.NewTracker(),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		hostname:   hostname,
		partitions: disk.Partitions,
		usage:      disk.Usage,
		loadAvg:    load.Avg,
	}
}

func (g *Generator) cooldownPeriod() time.Duration {
	if g.cfg.CooldownMinutes <= 0 {
		return cooldown.DefaultCooldown
	}
	return time.Duration(g.cfg.CooldownMinutes) * time.Minute
}

// severityFor grades a reading against a warning/critical threshold pair.
// Empty severity means the reading is fine.
func severityFor(value, warning, critical float64) string {
	switch {
	case value >= critical:
		return "critical"
	case value >= warning:
		return "warning"
	default:
		return ""
	}
}

// CheckDiskUsage inspects every mounted partition for space pressure.
func (g *Generator) CheckDiskUsage() []normalize.PayloadAlert {
	var alerts []normalize.PayloadAlert

	parts, err := g.partitions(false)
	if err != nil {
		log.Printf("Error listing partitions: %v", err)
		return nil
	}

	for _, part := range parts {
		stat, err := g.usage(part.Mountpoint)
		if err != nil {
			continue
		}
		// Virtual filesystems report near-zero usage.
		if stat.UsedPercent < 1.0 {
			continue
		}

		severity := severityFor(stat.UsedPercent, g.cfg.Thresholds.DiskUsageWarning, g.cfg.Thresholds.DiskUsageCritical)
		if severity == "" {
			continue
		}

		key := fmt.Sprintf("disk_usage_%s_%s", part.Device, severity)
		if !g.tracker.ShouldFire(key, g.cooldownPeriod()) {
			continue
		}

		threshold := g.cfg.Thresholds.DiskUsageWarning
		if severity == "critical" {
			threshold = g.cfg.Thresholds.DiskUsageCritical
		}

		alerts = append(alerts, normalize.PayloadAlert{
			Status: "firing",
			Labels: map[string]string{
				"alertname":  "DiskSpaceUsage",
				"severity":   severity,
				"instance":   g.hostname,
				"device":     part.Device,
				"mountpoint": part.Mountpoint,
				"fstype":     part.Fstype,
				"alerttype":  "storage",
			},
			Annotations: map[string]string{
				"summary": fmt.Sprintf("Disk space usage is %s on %s", severity, part.Mountpoint),
				"description": fmt.Sprintf("Disk usage on %s (%s) is %.1f%%, which exceeds the %s threshold of %.1f%%. Used: %s, Total: %s, Free: %s",
					part.Mountpoint, part.Device, stat.UsedPercent, severity, threshold,
					formatBytes(stat.Used), formatBytes(stat.Total), formatBytes(stat.Free)),
			},
			StartsAt: time.Now().Format(time.RFC3339),
		})
	}

	return alerts
}

// CheckInodeUsage inspects mounted partitions for inode exhaustion.
func (g *Generator) CheckInodeUsage() []normalize.PayloadAlert {
	var alerts []normalize.PayloadAlert

	parts, err := g.partitions(false)
	if err != nil {
		log.Printf("Error listing partitions: %v", err)
		return nil
	}

	for _, part := range parts {
		stat, err := g.usage(part.Mountpoint)
		if err != nil || stat.InodesTotal == 0 {
			continue
		}

		severity := severityFor(stat.InodesUsedPercent, g.cfg.Thresholds.InodeUsageWarning, g.cfg.Thresholds.InodeUsageCritical)
		if severity == "" {
			continue
		}

		key := fmt.Sprintf("inode_usage_%s_%s", part.Mountpoint, severity)
		if !g.tracker.ShouldFire(key, g.cooldownPeriod()) {
			continue
		}

		alerts = append(alerts, normalize.PayloadAlert{
			Status: "firing",
			Labels: map[string]string{
				"alertname":  "InodeUsage",
				"severity":   severity,
				"instance":   g.hostname,
				"mountpoint": part.Mountpoint,
				"alerttype":  "storage",
			},
			Annotations: map[string]string{
				"summary": fmt.Sprintf("Inode usage is %s on %s", severity, part.Mountpoint),
				"description": fmt.Sprintf("Inode usage on %s is %.1f%%. Used inodes: %d, Total inodes: %d",
					part.Mountpoint, stat.InodesUsedPercent, stat.InodesUsed, stat.InodesTotal),
			},
			StartsAt: time.Now().Format(time.RFC3339),
		})
	}

	return alerts
}

// CheckLoadAverage watches the 1-minute load average.
func (g *Generator) CheckLoadAverage() []normalize.PayloadAlert {
	avg, err := g.loadAvg()
	if err != nil {
		log.Printf("Error reading load average: %v", err)
		return nil
	}

	severity := severityFor(avg.Load1, g.cfg.Thresholds.LoadAverageWarning, g.cfg.Thresholds.LoadAverageCritical)
	if severity == "" {
		return nil
	}

	key := "load_average_" + severity
	if !g.tracker.ShouldFire(key, g.cooldownPeriod()) {
		return nil
	}

	return []normalize.PayloadAlert{{
		Status: "firing",
		Labels: map[string]string{
			"alertname": "HighSystemLoad",
			"severity":  severity,
			"instance":  g.hostname,
			"alerttype": "performance",
		},
		Annotations: map[string]string{
			"summary": fmt.Sprintf("System load average is %s", severity),
			"description": fmt.Sprintf("1-minute load average is %.2f. Load averages: %.2f, %.2f, %.2f",
				avg.Load1, avg.Load1, avg.Load5, avg.Load15),
		},
		StartsAt: time.Now().Format(time.RFC3339),
	}}
}

// RunCycle collects one round of checks and posts each alert. Returns the
// number of alerts successfully delivered.
func (g *Generator) RunCycle() int {
	log.Printf("Starting storage monitoring cycle")

	var alerts []normalize.PayloadAlert
	alerts = append(alerts, g.CheckDiskUsage()...)
	alerts = append(alerts, g.CheckInodeUsage()...)
	alerts = append(alerts, g.CheckLoadAverage()...)

	sent := 0
	for _, alert := range alerts {
		if err := g.SendAlert(alert); err != nil {
			log.Printf("Failed to send alert %s: %v", alert.Labels["alertname"], err)
			continue
		}
		sent++
	}

	if sent > 0 {
		log.Printf("Monitoring cycle complete: %d alerts sent", sent)
	} else {
		log.Printf("Monitoring cycle complete: no alerts triggered")
	}
	return sent
}

// RunContinuous runs cycles forever at the configured interval.
func (g *Generator) RunContinuous() {
	interval := time.Duration(g.cfg.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log.Printf("Starting continuous storage monitoring (interval: %s)", interval)
	for {
		g.RunCycle()
		time.Sleep(interval)
	}
}

// SendAlert wraps one alert in an Alertmanager-style payload and posts it.
func (g *Generator) SendAlert(alert normalize.PayloadAlert) error {
	payload := normalize.Payload{
		Version:           "4",
		GroupKey:          fmt.Sprintf("%s:%s", alert.Labels["alertname"], alert.Labels["severity"]),
		Status:            alert.Status,
		Receiver:          "storage-webhook",
		GroupLabels:       map[string]string{"alertname": alert.Labels["alertname"]},
		CommonLabels:      alert.Labels,
		CommonAnnotations: alert.Annotations,
		Alerts:            []normalize.PayloadAlert{alert},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := g.httpClient.Post(g.cfg.WebhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}

	log.Printf("Successfully sent alert: %s", alert.Labels["alertname"])
	return nil
}

func formatBytes(n uint64) string {
	value := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB", "TB"} {
		if value < 1024.0 {
			return fmt.Sprintf("%.1f %s", value, unit)
		}
		value /= 1024.0
	}
	return fmt.Sprintf("%.1f PB", value)
}
