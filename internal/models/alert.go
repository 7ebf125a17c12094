package models

import (
	"encoding/json"
	"time"
)

// Severity of an alert, fixed at creation. Escalating severity means a new
// alert, never a mutation of an existing one.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
	SeverityUnknown  Severity = "unknown"
)

// Status is the lifecycle state of an alert.
type Status string

const (
	StatusFiring    Status = "firing"
	StatusResolved  Status = "resolved"
	StatusAssigned  Status = "assigned"
	StatusEscalated Status = "escalated"
)

// transitions lists the legal lifecycle edges. resolved is terminal.
var transitions = map[Status][]Status{
	StatusFiring:    {StatusAssigned, StatusEscalated, StatusResolved},
	StatusAssigned:  {StatusEscalated, StatusResolved},
	StatusEscalated: {StatusResolved},
	StatusResolved:  {},
}

// CanTransitionTo reports whether s -> next is a legal lifecycle edge.
// Self-transitions are never legal.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Signature correlates repeated occurrences of the same underlying fault
// for ticket deduplication.
func Signature(conditionName, target string) string {
	return conditionName + "_" + target
}

// Draft is a normalized alert before the store assigns identity and
// timestamps.
type Draft struct {
	ConditionName string            `json:"condition_name"`
	Target        string            `json:"target"`
	Severity      Severity          `json:"severity"`
	Status        Status            `json:"status"`
	Labels        map[string]string `json:"labels"`
	Annotations   map[string]string `json:"annotations"`
	StartsAt      string            `json:"starts_at,omitempty"`
	EndsAt        string            `json:"ends_at,omitempty"`
	RawPayload    json.RawMessage   `json:"raw_payload,omitempty"`
}

// TicketRef links an alert to an external ticket. Once set it is never
// cleared.
type TicketRef struct {
	Key       string    `json:"ticket_key"`
	URL       string    `json:"ticket_url"`
	CreatedAt time.Time `json:"created_at"`
}

// Alert is a durable fault record. Everything except Status, Metadata and
// Ticket is immutable after creation.
type Alert struct {
	AlertID       string                 `json:"alert_id"`
	ConditionName string                 `json:"condition_name"`
	Target        string                 `json:"target"`
	Severity      Severity               `json:"severity"`
	Status        Status                 `json:"status"`
	Labels        map[string]string      `json:"labels"`
	Annotations   map[string]string      `json:"annotations"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	StartsAt      string                 `json:"starts_at,omitempty"`
	EndsAt        string                 `json:"ends_at,omitempty"`
	RawPayload    json.RawMessage        `json:"raw_payload,omitempty"`
	Ticket        *TicketRef             `json:"ticket,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// Signature returns the dedup key for this alert.
func (a *Alert) Signature() string {
	return Signature(a.ConditionName, a.Target)
}

// HistoryEntry is one append-only ledger record. Entries are never updated
// or deleted; every alert mutation produces exactly one entry.
type HistoryEntry struct {
	AlertID   string          `json:"alert_id"`
	Timestamp time.Time       `json:"timestamp"`
	Action    string          `json:"action"`
	Snapshot  json.RawMessage `json:"snapshot,omitempty"`
}

// TicketLink is the correlator's view of an existing open ticket for a
// signature.
type TicketLink struct {
	TicketKey string    `json:"ticket_key"`
	TicketURL string    `json:"ticket_url"`
	AlertID   string    `json:"alert_id"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats is the read-side rollup over the store.
type Stats struct {
	TotalAlerts int            `json:"total_alerts"`
	BySeverity  map[string]int `json:"by_severity"`
	ByStatus    map[string]int `json:"by_status"`
	Recent24h   int            `json:"recent_24h"`
	TicketCount int            `json:"jira_tickets"`
}

// Request/Response DTOs

type UpdateStatusRequest struct {
	Status   string                 `json:"status" binding:"required"`
	Metadata map[string]interface{} `json:"metadata"`
}

type AlertListResponse struct {
	Alerts []Alert `json:"alerts"`
	Total  int     `json:"total"`
}
