package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"alertmon/internal/config"
	"alertmon/internal/database"
	"alertmon/internal/models"
	"alertmon/internal/store"
)

func newTestRouter(t *testing.T) (*gin.Engine, *store.SQLAlertStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewConnection(config.DbConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "alerts.db"),
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	alertStore := store.NewSQLAlertStore(db, "sqlite", 5*time.Second)

	webhookHandler := NewWebhookHandler(alertStore, nil, nil, nil, nil)
	alertHandler := NewAlertHandler(alertStore)
	healthHandler := NewHealthHandler(store.NewSQLHealthChecker(db), nil)

	router := gin.New()
	router.GET("/health", healthHandler.Check)
	router.POST("/webhook/alert", webhookHandler.HandleAlert)
	router.GET("/api/alerts", alertHandler.List)
	router.GET("/api/alerts/:id", alertHandler.GetByID)
	router.PUT("/api/alerts/:id/status", alertHandler.UpdateStatus)
	router.GET("/api/stats", alertHandler.Stats)

	return router, alertStore
}

func firingPayload(alertname, instance, severity string) string {
	return fmt.Sprintf(`{
		"version": "4",
		"status": "firing",
		"alerts": [{
			"status": "firing",
			"labels": {"alertname": %q, "instance": %q, "severity": %q},
			"annotations": {"summary": "usage is high"},
			"startsAt": "2024-01-01T12:00:00Z"
		}]
	}`, alertname, instance, severity)
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWebhookStoresAlert(t *testing.T) {
	router, alertStore := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/webhook/alert", firingPayload("disk_usage", "host-1", "critical"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	alertID, _ := resp["alert_id"].(string)
	if alertID == "" {
		t.Fatalf("response missing alert_id: %v", resp)
	}

	alert, err := alertStore.Get(context.Background(), alertID)
	if err != nil || alert == nil {
		t.Fatalf("stored alert not found: %v", err)
	}
	if alert.ConditionName != "disk_usage" || alert.Target != "host-1" {
		t.Errorf("alert = %s/%s", alert.ConditionName, alert.Target)
	}
	if alert.Severity != models.SeverityCritical || alert.Status != models.StatusFiring {
		t.Errorf("severity/status = %s/%s", alert.Severity, alert.Status)
	}
}

func TestWebhookNoAlerts(t *testing.T) {
	router, alertStore := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/webhook/alert", `{"status": "firing", "alerts": []}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if want := "No valid alerts to process"; !bytes.Contains(w.Body.Bytes(), []byte(want)) {
		t.Errorf("body = %s, want %q", w.Body.String(), want)
	}

	stats, err := alertStore.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalAlerts != 0 {
		t.Errorf("empty payload must store nothing, got %d alerts", stats.TotalAlerts)
	}
}

func TestWebhookInvalidJSON(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/webhook/alert", `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestWebhookDefaultsMissingLabels(t *testing.T) {
	router, alertStore := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/webhook/alert", `{
		"status": "firing",
		"alerts": [{"status": "firing", "labels": {}, "annotations": {}}]
	}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	alerts, err := alertStore.List(context.Background(), store.ListFilter{}, 10)
	if err != nil || len(alerts) != 1 {
		t.Fatalf("list: %v (%d alerts)", err, len(alerts))
	}
	if alerts[0].ConditionName != "unknown" || alerts[0].Target != "unknown" || alerts[0].Severity != models.SeverityUnknown {
		t.Errorf("defaults not applied: %+v", alerts[0])
	}
}

func TestWebhookSuppressesDuplicateTicket(t *testing.T) {
	router, alertStore := newTestRouter(t)

	// First occurrence, ticketed out of band.
	w := doJSON(router, http.MethodPost, "/webhook/alert", firingPayload("disk_usage", "host-1", "critical"))
	var first map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &first)
	firstID := first["alert_id"].(string)

	linked, err := alertStore.LinkTicket(context.Background(), firstID, models.TicketRef{
		Key: "OPS-1", URL: "https://jira.example.com/browse/OPS-1", CreatedAt: time.Now(),
	})
	if err != nil || !linked {
		t.Fatalf("link ticket: linked=%v err=%v", linked, err)
	}

	// Second occurrence of the same fault rides the open ticket.
	w = doJSON(router, http.MethodPost, "/webhook/alert", firingPayload("disk_usage", "host-1", "critical"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var second map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &second)

	if second["ticket_key"] != "OPS-1" {
		t.Errorf("ticket_key = %v, want OPS-1", second["ticket_key"])
	}
	if second["alert_id"] == firstID {
		t.Error("second occurrence must get its own alert_id")
	}

	// A different target is a different fault.
	w = doJSON(router, http.MethodPost, "/webhook/alert", firingPayload("disk_usage", "host-2", "critical"))
	var third map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &third)
	if _, ok := third["ticket_key"]; ok {
		t.Errorf("host-2 must not correlate with host-1 ticket: %v", third)
	}
}

func TestUpdateStatusEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/webhook/alert", firingPayload("disk_usage", "host-1", "warning"))
	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	alertID := resp["alert_id"].(string)

	w = doJSON(router, http.MethodPut, "/api/alerts/"+alertID+"/status", `{"status": "assigned", "metadata": {"assignee": "oncall"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("assign status = %d, body = %s", w.Code, w.Body.String())
	}

	// firing is no longer reachable once assigned.
	w = doJSON(router, http.MethodPut, "/api/alerts/"+alertID+"/status", `{"status": "firing"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("illegal transition status = %d, want 409", w.Code)
	}

	w = doJSON(router, http.MethodPut, "/api/alerts/unknown_id/status", `{"status": "resolved"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("unknown alert status = %d, want 409", w.Code)
	}

	w = doJSON(router, http.MethodPut, "/api/alerts/"+alertID+"/status", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing status = %d, want 400", w.Code)
	}
}

func TestGetAlertWithHistory(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/webhook/alert", firingPayload("inode_usage", "host-9", "warning"))
	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	alertID := resp["alert_id"].(string)

	doJSON(router, http.MethodPut, "/api/alerts/"+alertID+"/status", `{"status": "resolved"}`)

	w = doJSON(router, http.MethodGet, "/api/alerts/"+alertID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var body struct {
		Alert   models.Alert          `json:"alert"`
		History []models.HistoryEntry `json:"history"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Alert.Status != models.StatusResolved {
		t.Errorf("status = %s, want resolved", body.Alert.Status)
	}
	if len(body.History) != 2 {
		t.Errorf("history length = %d, want 2", len(body.History))
	}

	w = doJSON(router, http.MethodGet, "/api/alerts/does_not_exist", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown alert status = %d, want 404", w.Code)
	}
}

func TestListAndStatsEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	doJSON(router, http.MethodPost, "/webhook/alert", firingPayload("disk_usage", "host-1", "critical"))
	doJSON(router, http.MethodPost, "/webhook/alert", firingPayload("load_average", "host-2", "warning"))

	w := doJSON(router, http.MethodGet, "/api/alerts?severity=critical", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list models.AlertListResponse
	json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 1 || list.Alerts[0].ConditionName != "disk_usage" {
		t.Errorf("filtered list = %+v", list)
	}

	w = doJSON(router, http.MethodGet, "/api/alerts?limit=nope", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", w.Code)
	}

	w = doJSON(router, http.MethodGet, "/api/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("stats status = %d", w.Code)
	}
	var stats models.Stats
	json.Unmarshal(w.Body.Bytes(), &stats)
	if stats.TotalAlerts != 2 || stats.BySeverity["critical"] != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("healthy")) {
		t.Errorf("body = %s", w.Body.String())
	}
}
