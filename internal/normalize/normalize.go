// Package normalize turns loosely-structured webhook payloads into canonical
// alert drafts. All functions are pure.
package normalize

import (
	"encoding/json"

	"alertmon/internal/models"
)

// Payload is an Alertmanager-style webhook body: a group status plus zero or
// more grouped sub-alerts.
type Payload struct {
	Version           string            `json:"version"`
	GroupKey          string            `json:"groupKey"`
	Status            string            `json:"status"`
	Receiver          string            `json:"receiver"`
	GroupLabels       map[string]string `json:"groupLabels"`
	CommonLabels      map[string]string `json:"commonLabels"`
	CommonAnnotations map[string]string `json:"commonAnnotations"`
	ExternalURL       string            `json:"externalURL"`
	Alerts            []PayloadAlert    `json:"alerts"`
}

// PayloadAlert is one grouped sub-alert inside a Payload.
type PayloadAlert struct {
	Status       string            `json:"status"`
	Labels       map[string]string `json:"labels"`
	Annotations  map[string]string `json:"annotations"`
	StartsAt     string            `json:"startsAt"`
	EndsAt       string            `json:"endsAt"`
	GeneratorURL string            `json:"generatorURL"`
	Fingerprint  string            `json:"fingerprint,omitempty"`
}

const unknown = "unknown"

// Normalize converts a payload into exactly one canonical draft, built from
// the first sub-alert. A payload with zero sub-alerts yields nil: nothing to
// process, not an error. Missing alertname/instance/severity labels default
// to "unknown" so partial observability data is still recorded.
func Normalize(p *Payload) *models.Draft {
	if p == nil || len(p.Alerts) == 0 {
		return nil
	}

	primary := p.Alerts[0]

	labels := primary.Labels
	if labels == nil {
		labels = map[string]string{}
	}
	annotations := primary.Annotations
	if annotations == nil {
		annotations = map[string]string{}
	}

	status := models.StatusFiring
	if p.Status == string(models.StatusResolved) {
		status = models.StatusResolved
	}

	raw, err := json.Marshal(p)
	if err != nil {
		// Payload came from json.Unmarshal, so this cannot fail in
		// practice; an empty raw payload is still a valid draft.
		raw = nil
	}

	return &models.Draft{
		ConditionName: labelOr(labels, "alertname", unknown),
		Target:        labelOr(labels, "instance", unknown),
		Severity:      models.Severity(labelOr(labels, "severity", unknown)),
		Status:        status,
		Labels:        labels,
		Annotations:   annotations,
		StartsAt:      primary.StartsAt,
		EndsAt:        primary.EndsAt,
		RawPayload:    raw,
	}
}

func labelOr(labels map[string]string, key, fallback string) string {
	if v, ok := labels[key]; ok && v != "" {
		return v
	}
	return fallback
}
