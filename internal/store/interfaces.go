package store

import (
	"context"

	"alertmon/internal/models"
)

// ListFilter narrows List results. Empty fields match everything.
type ListFilter struct {
	Severity models.Severity
	Status   models.Status
}

// AlertStore defines operations for alert persistence. UpdateStatus and
// LinkTicket report illegal-but-expected outcomes (bad transition, unknown
// id, duplicate link) as false with a nil error; a non-nil error always
// means the storage layer itself failed.
type AlertStore interface {
	Store(ctx context.Context, draft *models.Draft) (string, error)
	Get(ctx context.Context, alertID string) (*models.Alert, error)
	List(ctx context.Context, filter ListFilter, limit int) ([]models.Alert, error)
	History(ctx context.Context, alertID string) ([]models.HistoryEntry, error)
	UpdateStatus(ctx context.Context, alertID string, next models.Status, metadata map[string]interface{}) (bool, error)
	LinkTicket(ctx context.Context, alertID string, ref models.TicketRef) (bool, error)
	FindOpenTicket(ctx context.Context, signature string) (*models.TicketLink, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

// HealthChecker defines health check operations
type HealthChecker interface {
	CheckHealth() error
}
