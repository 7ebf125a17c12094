package normalize

import (
	"testing"

	"alertmon/internal/models"
)

func TestNormalizeFiring(t *testing.T) {
	p := &Payload{
		Version:  "4",
		GroupKey: "{}:{alertname=\"DiskSpaceUsage\"}",
		Status:   "firing",
		Alerts: []PayloadAlert{
			{
				Status: "firing",
				Labels: map[string]string{
					"alertname":  "DiskSpaceUsage",
					"instance":   "host-1",
					"severity":   "critical",
					"mountpoint": "/",
				},
				Annotations: map[string]string{
					"summary": "Disk space usage is critical on /",
				},
				StartsAt: "2024-01-01T12:00:00Z",
			},
		},
	}

	draft := Normalize(p)
	if draft == nil {
		t.Fatal("expected a draft, got nil")
	}

	if draft.ConditionName != "DiskSpaceUsage" {
		t.Errorf("ConditionName = %q", draft.ConditionName)
	}
	if draft.Target != "host-1" {
		t.Errorf("Target = %q", draft.Target)
	}
	if draft.Severity != models.SeverityCritical {
		t.Errorf("Severity = %q", draft.Severity)
	}
	if draft.Status != models.StatusFiring {
		t.Errorf("Status = %q", draft.Status)
	}
	if draft.Labels["mountpoint"] != "/" {
		t.Errorf("labels not carried over: %v", draft.Labels)
	}
	if draft.Annotations["summary"] == "" {
		t.Errorf("annotations not carried over: %v", draft.Annotations)
	}
	if draft.StartsAt != "2024-01-01T12:00:00Z" {
		t.Errorf("StartsAt = %q", draft.StartsAt)
	}
	if len(draft.RawPayload) == 0 {
		t.Error("raw payload not retained")
	}
}

func TestNormalizeDefaults(t *testing.T) {
	p := &Payload{
		Status: "firing",
		Alerts: []PayloadAlert{{}},
	}

	draft := Normalize(p)
	if draft == nil {
		t.Fatal("expected a draft, got nil")
	}

	if draft.ConditionName != "unknown" || draft.Target != "unknown" {
		t.Errorf("missing labels should default to unknown, got %q/%q", draft.ConditionName, draft.Target)
	}
	if draft.Severity != models.SeverityUnknown {
		t.Errorf("Severity = %q, want unknown", draft.Severity)
	}
	if draft.Labels == nil || draft.Annotations == nil {
		t.Error("label/annotation maps must be non-nil")
	}
}

func TestNormalizeResolved(t *testing.T) {
	p := &Payload{
		Status: "resolved",
		Alerts: []PayloadAlert{
			{
				Status: "resolved",
				Labels: map[string]string{"alertname": "DiskFull", "instance": "host-1", "severity": "warning"},
				EndsAt: "2024-01-01T13:00:00Z",
			},
		},
	}

	draft := Normalize(p)
	if draft == nil {
		t.Fatal("expected a draft, got nil")
	}
	if draft.Status != models.StatusResolved {
		t.Errorf("Status = %q, want resolved", draft.Status)
	}
	if draft.EndsAt != "2024-01-01T13:00:00Z" {
		t.Errorf("EndsAt = %q", draft.EndsAt)
	}
}

func TestNormalizeNothingToProcess(t *testing.T) {
	if Normalize(nil) != nil {
		t.Error("nil payload should yield nil draft")
	}
	if Normalize(&Payload{Status: "firing"}) != nil {
		t.Error("payload with zero sub-alerts should yield nil draft")
	}
}
