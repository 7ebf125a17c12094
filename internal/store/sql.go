package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"alertmon/internal/models"
)

const (
	defaultTimeout   = 5 * time.Second
	defaultListLimit = 50
	recentWindow     = 24 * time.Hour
)

// SQLAlertStore implements AlertStore on database/sql. It works against
// sqlite and postgres; queries are written with ? placeholders and rebound
// for postgres.
type SQLAlertStore struct {
	db      *sql.DB
	driver  string
	timeout time.Duration
	locks   *keyedMutex

	now func() time.Time
}

// NewSQLAlertStore wraps db. driver is "sqlite" or "postgres". timeout
// bounds every operation; zero means the 5s default.
func NewSQLAlertStore(db *sql.DB, driver string, timeout time.Duration) *SQLAlertStore {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &SQLAlertStore{
		db:      db,
		driver:  driver,
		timeout: timeout,
		locks:   newKeyedMutex(),
		now:     time.Now,
	}
}

func (s *SQLAlertStore) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// q rebinds ? placeholders to $1..$n for postgres.
func (s *SQLAlertStore) q(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// forUpdate returns the row-lock suffix for drivers that need one. SQLite
// runs single-writer, so the CAS update alone is enough there.
func (s *SQLAlertStore) forUpdate() string {
	if s.driver == "postgres" {
		return " FOR UPDATE"
	}
	return ""
}

// Store assigns an alert_id, persists the draft and appends the created
// history entry as one transaction. The id scheme is
// <condition>_<target>_<unix-nanos>; nanosecond resolution keeps two alerts
// with the same signature in the same second from colliding.
func (s *SQLAlertStore) Store(ctx context.Context, draft *models.Draft) (string, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	now := s.now().UTC()

	alert := models.Alert{
		AlertID:       fmt.Sprintf("%s_%s_%d", draft.ConditionName, draft.Target, now.UnixNano()),
		ConditionName: draft.ConditionName,
		Target:        draft.Target,
		Severity:      draft.Severity,
		Status:        draft.Status,
		Labels:        draft.Labels,
		Annotations:   draft.Annotations,
		StartsAt:      draft.StartsAt,
		EndsAt:        draft.EndsAt,
		RawPayload:    draft.RawPayload,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if alert.Severity == "" {
		alert.Severity = models.SeverityUnknown
	}
	if alert.Status != models.StatusResolved {
		alert.Status = models.StatusFiring
	}
	if alert.Labels == nil {
		alert.Labels = map[string]string{}
	}
	if alert.Annotations == nil {
		alert.Annotations = map[string]string{}
	}

	labelsJSON, err := json.Marshal(alert.Labels)
	if err != nil {
		return "", fmt.Errorf("failed to marshal labels: %w", err)
	}
	annotationsJSON, err := json.Marshal(alert.Annotations)
	if err != nil {
		return "", fmt.Errorf("failed to marshal annotations: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", persistErr("begin store", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO alerts (
		alert_id, condition_name, target, severity, status,
		labels, annotations, starts_at, ends_at, raw_payload,
		created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = tx.ExecContext(ctx, s.q(query),
		alert.AlertID,
		alert.ConditionName,
		alert.Target,
		string(alert.Severity),
		string(alert.Status),
		string(labelsJSON),
		string(annotationsJSON),
		nullString(alert.StartsAt),
		nullString(alert.EndsAt),
		nullString(string(alert.RawPayload)),
		alert.CreatedAt,
		alert.UpdatedAt,
	)
	if err != nil {
		return "", persistErr("insert alert", err)
	}

	snapshot, _ := json.Marshal(alert)
	if err := s.appendHistory(ctx, tx, alert.AlertID, "created", snapshot, now); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", persistErr("commit store", err)
	}

	return alert.AlertID, nil
}

func (s *SQLAlertStore) appendHistory(ctx context.Context, tx *sql.Tx, alertID, action string, snapshot []byte, ts time.Time) error {
	query := `INSERT INTO alert_history (alert_id, timestamp, action, snapshot) VALUES (?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, s.q(query), alertID, ts, action, nullString(string(snapshot)))
	if err != nil {
		return persistErr("insert history", err)
	}
	return nil
}

const alertColumns = `alert_id, condition_name, target, severity, status,
	labels, annotations, metadata, starts_at, ends_at, raw_payload,
	ticket_key, ticket_url, ticket_linked_at, created_at, updated_at`

// Get returns the alert or nil when no alert with that id exists.
func (s *SQLAlertStore) Get(ctx context.Context, alertID string) (*models.Alert, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+alertColumns+` FROM alerts WHERE alert_id = ?`), alertID)
	return s.scanAlert(row)
}

// List returns alerts newest-first. limit bounds the scan; non-positive
// values clamp to the default of 50 so no call is ever unbounded.
func (s *SQLAlertStore) List(ctx context.Context, filter ListFilter, limit int) ([]models.Alert, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT ` + alertColumns + ` FROM alerts`
	var args []interface{}
	var where []string

	if filter.Severity != "" {
		where = append(where, "severity = ?")
		args = append(args, string(filter.Severity))
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, persistErr("query alerts", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		alert, err := s.scanAlertRow(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *alert)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate alerts", err)
	}

	return alerts, nil
}

// History returns the ledger for one alert, newest-first.
func (s *SQLAlertStore) History(ctx context.Context, alertID string) ([]models.HistoryEntry, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	query := `SELECT alert_id, timestamp, action, snapshot
		FROM alert_history WHERE alert_id = ?
		ORDER BY timestamp DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, s.q(query), alertID)
	if err != nil {
		return nil, persistErr("query history", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		var snapshot sql.NullString
		if err := rows.Scan(&e.AlertID, &e.Timestamp, &e.Action, &snapshot); err != nil {
			return nil, persistErr("scan history", err)
		}
		if snapshot.Valid {
			e.Snapshot = json.RawMessage(snapshot.String)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate history", err)
	}

	return entries, nil
}

// UpdateStatus applies a lifecycle transition. Returns false without writing
// anything when the alert does not exist or the transition is illegal; both
// are normal outcomes of racing or stale callers, not errors. The
// check-then-set is atomic per alert_id: a keyed mutex serializes in-process
// callers and the UPDATE re-checks the old status as a guard.
func (s *SQLAlertStore) UpdateStatus(ctx context.Context, alertID string, next models.Status, metadata map[string]interface{}) (bool, error) {
	if !next.Valid() {
		return false, nil
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	unlock := s.locks.lock(alertID)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, persistErr("begin update", err)
	}
	defer tx.Rollback()

	var currentStr string
	var metadataJSON sql.NullString
	row := tx.QueryRowContext(ctx,
		s.q(`SELECT status, metadata FROM alerts WHERE alert_id = ?`+s.forUpdate()), alertID)
	if err := row.Scan(&currentStr, &metadataJSON); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, persistErr("read status", err)
	}

	current := models.Status(currentStr)
	if !current.CanTransitionTo(next) {
		return false, nil
	}

	merged := map[string]interface{}{}
	if metadataJSON.Valid && metadataJSON.String != "" {
		// Unparseable stored metadata starts the merge from empty rather
		// than blocking the transition.
		_ = json.Unmarshal([]byte(metadataJSON.String), &merged)
	}
	for k, v := range metadata {
		merged[k] = v
	}
	mergedJSON, err := json.Marshal(merged)
	if err != nil {
		return false, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	now := s.now().UTC()
	res, err := tx.ExecContext(ctx,
		s.q(`UPDATE alerts SET status = ?, metadata = ?, updated_at = ? WHERE alert_id = ? AND status = ?`),
		string(next), string(mergedJSON), now, alertID, currentStr)
	if err != nil {
		return false, persistErr("update status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	snapshot, _ := json.Marshal(map[string]interface{}{
		"status":   next,
		"metadata": merged,
	})
	if err := s.appendHistory(ctx, tx, alertID, "status_changed_to_"+string(next), snapshot, now); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, persistErr("commit update", err)
	}

	return true, nil
}

// LinkTicket attaches an external ticket to an alert. One ticket per alert
// occurrence: a second link attempt returns false and leaves the first
// linkage intact. A ticket_key already attached to a different alert also
// returns false (unique index).
func (s *SQLAlertStore) LinkTicket(ctx context.Context, alertID string, ref models.TicketRef) (bool, error) {
	if ref.Key == "" {
		return false, nil
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	unlock := s.locks.lock(alertID)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, persistErr("begin link", err)
	}
	defer tx.Rollback()

	now := s.now().UTC()
	linkedAt := ref.CreatedAt
	if linkedAt.IsZero() {
		linkedAt = now
	}

	res, err := tx.ExecContext(ctx,
		s.q(`UPDATE alerts SET ticket_key = ?, ticket_url = ?, ticket_linked_at = ?, updated_at = ?
			WHERE alert_id = ? AND ticket_key IS NULL`),
		ref.Key, ref.URL, linkedAt, now, alertID)
	if err != nil {
		if isConstraintError(err) {
			return false, nil
		}
		return false, persistErr("link ticket", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	snapshot, _ := json.Marshal(ref)
	if err := s.appendHistory(ctx, tx, alertID, "ticket_linked", snapshot, now); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, persistErr("commit link", err)
	}

	return true, nil
}

// FindOpenTicket returns the most recent ticket for a signature whose alert
// has not reached the terminal resolved state, or nil. This is a read-time
// scan, trivially consistent with store mutations; ticket creation is a
// low-frequency path, so the filtered scan is acceptable.
func (s *SQLAlertStore) FindOpenTicket(ctx context.Context, signature string) (*models.TicketLink, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	query := `SELECT ticket_key, ticket_url, ticket_linked_at, alert_id, status
		FROM alerts
		WHERE condition_name || '_' || target = ?
		  AND ticket_key IS NOT NULL
		  AND status != 'resolved'
		ORDER BY created_at DESC
		LIMIT 1`

	var link models.TicketLink
	var url sql.NullString
	var linkedAt sql.NullTime
	var status string

	row := s.db.QueryRowContext(ctx, s.q(query), signature)
	if err := row.Scan(&link.TicketKey, &url, &linkedAt, &link.AlertID, &status); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, persistErr("query open ticket", err)
	}

	link.TicketURL = url.String
	if linkedAt.Valid {
		link.CreatedAt = linkedAt.Time
	}
	link.Status = models.Status(status)

	return &link, nil
}

// Stats computes the read-side rollup. An empty store yields zeroed fields.
func (s *SQLAlertStore) Stats(ctx context.Context) (*models.Stats, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	stats := &models.Stats{
		BySeverity: map[string]int{},
		ByStatus:   map[string]int{},
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts`).Scan(&stats.TotalAlerts); err != nil {
		return nil, persistErr("count alerts", err)
	}

	if err := s.countGroups(ctx, `SELECT severity, COUNT(*) FROM alerts GROUP BY severity`, stats.BySeverity); err != nil {
		return nil, err
	}
	if err := s.countGroups(ctx, `SELECT status, COUNT(*) FROM alerts GROUP BY status`, stats.ByStatus); err != nil {
		return nil, err
	}

	cutoff := s.now().UTC().Add(-recentWindow)
	if err := s.db.QueryRowContext(ctx,
		s.q(`SELECT COUNT(*) FROM alerts WHERE created_at >= ?`), cutoff).Scan(&stats.Recent24h); err != nil {
		return nil, persistErr("count recent alerts", err)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM alerts WHERE ticket_key IS NOT NULL`).Scan(&stats.TicketCount); err != nil {
		return nil, persistErr("count tickets", err)
	}

	return stats, nil
}

func (s *SQLAlertStore) countGroups(ctx context.Context, query string, into map[string]int) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return persistErr("group count", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return persistErr("scan group count", err)
		}
		into[key] = count
	}
	return rows.Err()
}

// Helper functions to reduce duplication
func (s *SQLAlertStore) scanAlert(row interface {
	Scan(dest ...interface{}) error
}) (*models.Alert, error) {
	var alert models.Alert
	var severity, status string
	var labelsJSON, annotationsJSON string
	var metadataJSON, startsAt, endsAt, rawPayload, ticketKey, ticketURL sql.NullString
	var ticketLinkedAt sql.NullTime

	err := row.Scan(
		&alert.AlertID,
		&alert.ConditionName,
		&alert.Target,
		&severity,
		&status,
		&labelsJSON,
		&annotationsJSON,
		&metadataJSON,
		&startsAt,
		&endsAt,
		&rawPayload,
		&ticketKey,
		&ticketURL,
		&ticketLinkedAt,
		&alert.CreatedAt,
		&alert.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil // not found is not an error
	}
	if err != nil {
		return nil, persistErr("scan alert", err)
	}

	alert.Severity = models.Severity(severity)
	alert.Status = models.Status(status)
	alert.StartsAt = startsAt.String
	alert.EndsAt = endsAt.String
	if rawPayload.Valid {
		alert.RawPayload = json.RawMessage(rawPayload.String)
	}

	if err := json.Unmarshal([]byte(labelsJSON), &alert.Labels); err != nil {
		alert.Labels = map[string]string{}
	}
	if err := json.Unmarshal([]byte(annotationsJSON), &alert.Annotations); err != nil {
		alert.Annotations = map[string]string{}
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		_ = json.Unmarshal([]byte(metadataJSON.String), &alert.Metadata)
	}

	if ticketKey.Valid {
		alert.Ticket = &models.TicketRef{
			Key:       ticketKey.String,
			URL:       ticketURL.String,
			CreatedAt: ticketLinkedAt.Time,
		}
	}

	return &alert, nil
}

func (s *SQLAlertStore) scanAlertRow(rows *sql.Rows) (*models.Alert, error) {
	alert, err := s.scanAlert(rows)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, persistErr("scan alert", sql.ErrNoRows)
	}
	return alert, nil
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

// SQLHealthChecker implements health checking
type SQLHealthChecker struct {
	db *sql.DB
}

func NewSQLHealthChecker(db *sql.DB) *SQLHealthChecker {
	return &SQLHealthChecker{db: db}
}

func (h *SQLHealthChecker) CheckHealth() error {
	return h.db.Ping()
}
