package generator

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"

	"alertmon/internal/config"
	"alertmon/internal/normalize"
)

func testConfig(webhookURL string) config.MonitorConfig {
	return config.MonitorConfig{
		WebhookURL:      webhookURL,
		IntervalSeconds: 300,
		CooldownMinutes: 15,
		Thresholds: config.Thresholds{
			DiskUsageWarning:    80,
			DiskUsageCritical:   90,
			InodeUsageWarning:   80,
			InodeUsageCritical:  90,
			LoadAverageWarning:  5,
			LoadAverageCritical: 10,
		},
	}
}

func newTestGenerator(webhookURL string, usedPercent, inodePercent, load1 float64) *Generator {
	g := New(testConfig(webhookURL))
	g.hostname = "test-host"
	g.partitions = func(bool) ([]disk.PartitionStat, error) {
		return []disk.PartitionStat{
			{Device: "/dev/sda1", Mountpoint: "/", Fstype: "ext4"},
		}, nil
	}
	g.usage = func(string) (*disk.UsageStat, error) {
		return &disk.UsageStat{
			Total:             100 << 30,
			Used:              uint64(usedPercent) << 30,
			Free:              (100 - uint64(usedPercent)) << 30,
			UsedPercent:       usedPercent,
			InodesTotal:       1000000,
			InodesUsed:        uint64(inodePercent * 10000),
			InodesUsedPercent: inodePercent,
		}, nil
	}
	g.loadAvg = func() (*load.AvgStat, error) {
		return &load.AvgStat{Load1: load1, Load5: load1, Load15: load1}, nil
	}
	return g
}

func TestCheckDiskUsageSeverity(t *testing.T) {
	cases := []struct {
		usedPercent float64
		severity    string
	}{
		{50, ""},
		{85, "warning"},
		{95, "critical"},
	}

	for _, tc := range cases {
		g := newTestGenerator("", tc.usedPercent, 0, 0)
		alerts := g.CheckDiskUsage()

		if tc.severity == "" {
			if len(alerts) != 0 {
				t.Errorf("usage %.0f%%: expected no alerts, got %d", tc.usedPercent, len(alerts))
			}
			continue
		}
		if len(alerts) != 1 {
			t.Fatalf("usage %.0f%%: expected 1 alert, got %d", tc.usedPercent, len(alerts))
		}
		if got := alerts[0].Labels["severity"]; got != tc.severity {
			t.Errorf("usage %.0f%%: severity = %q, want %q", tc.usedPercent, got, tc.severity)
		}
		if alerts[0].Labels["alertname"] != "DiskSpaceUsage" {
			t.Errorf("alertname = %q", alerts[0].Labels["alertname"])
		}
	}
}

func TestCheckDiskUsageCooldown(t *testing.T) {
	g := newTestGenerator("", 95, 0, 0)

	if len(g.CheckDiskUsage()) != 1 {
		t.Fatal("first check must alert")
	}
	if len(g.CheckDiskUsage()) != 0 {
		t.Error("second check within cooldown must be suppressed")
	}
}

func TestCheckInodeUsage(t *testing.T) {
	g := newTestGenerator("", 10, 85, 0)

	alerts := g.CheckInodeUsage()
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].Labels["alertname"] != "InodeUsage" || alerts[0].Labels["severity"] != "warning" {
		t.Errorf("alert = %v", alerts[0].Labels)
	}
}

func TestCheckLoadAverage(t *testing.T) {
	g := newTestGenerator("", 10, 0, 12)

	alerts := g.CheckLoadAverage()
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].Labels["alertname"] != "HighSystemLoad" || alerts[0].Labels["severity"] != "critical" {
		t.Errorf("alert = %v", alerts[0].Labels)
	}

	g = newTestGenerator("", 10, 0, 1)
	if len(g.CheckLoadAverage()) != 0 {
		t.Error("load 1 must not alert")
	}
}

func TestRunCyclePostsWebhookPayloads(t *testing.T) {
	var received []normalize.Payload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var p normalize.Payload
		if err := json.Unmarshal(body, &p); err != nil {
			t.Errorf("invalid payload: %v", err)
		}
		received = append(received, p)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	// Disk and load both breach critical; inodes are fine.
	g := newTestGenerator(server.URL, 95, 10, 20)

	if sent := g.RunCycle(); sent != 2 {
		t.Fatalf("sent = %d, want 2", sent)
	}

	for _, p := range received {
		if p.Version != "4" || p.Status != "firing" || len(p.Alerts) != 1 {
			t.Errorf("malformed payload: %+v", p)
		}
		if p.Alerts[0].Labels["instance"] != "test-host" {
			t.Errorf("instance = %q", p.Alerts[0].Labels["instance"])
		}
	}

	// The whole cycle is inside the cooldown window now.
	if sent := g.RunCycle(); sent != 0 {
		t.Errorf("second cycle sent = %d, want 0", sent)
	}
}

func TestSendAlertWebhookFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	g := newTestGenerator(server.URL, 95, 0, 0)
	alerts := g.CheckDiskUsage()
	if len(alerts) != 1 {
		t.Fatal("expected an alert")
	}
	if err := g.SendAlert(alerts[0]); err == nil {
		t.Error("expected error on HTTP 500")
	}
}
