package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"alertmon/internal/jira"
	"alertmon/internal/metrics"
	"alertmon/internal/models"
	"alertmon/internal/normalize"
	"alertmon/internal/publish"
	"alertmon/internal/slack"
	"alertmon/internal/store"
)

type WebhookHandler struct {
	store       store.AlertStore
	jiraClient  *jira.Client
	slackClient *slack.Client
	producer    *publish.Producer
	metrics     *metrics.Metrics
}

func NewWebhookHandler(alertStore store.AlertStore, jiraClient *jira.Client, slackClient *slack.Client, producer *publish.Producer, m *metrics.Metrics) *WebhookHandler {
	return &WebhookHandler{
		store:       alertStore,
		jiraClient:  jiraClient,
		slackClient: slackClient,
		producer:    producer,
		metrics:     m,
	}
}

// HandleAlert ingests one monitoring webhook: normalize, persist, correlate
// against open tickets, and fan out notifications.
func (h *WebhookHandler) HandleAlert(c *gin.Context) {
	started := time.Now()
	defer func() {
		if h.metrics != nil {
			h.metrics.ObserveIngestDuration(time.Since(started).Seconds())
		}
	}()

	span := opentracing.StartSpan("handle-alert")
	defer span.Finish()

	var payload normalize.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.Printf("Failed to parse webhook: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload", "details": err.Error()})
		return
	}

	log.Printf("📨 Webhook: %d alerts, status: %s", len(payload.Alerts), payload.Status)

	draft := normalize.Normalize(&payload)
	if draft == nil {
		c.JSON(http.StatusOK, gin.H{"message": "No valid alerts to process"})
		return
	}

	ctx := c.Request.Context()

	alertID, err := h.store.Store(ctx, draft)
	if err != nil {
		log.Printf("❌ Failed to store alert: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database operation failed", "details": err.Error()})
		return
	}

	span.SetTag("alert_id", alertID)

	if h.metrics != nil {
		h.metrics.IncAlertsStored(string(draft.Severity), string(draft.Status))
	}

	alert, err := h.store.Get(ctx, alertID)
	if err != nil || alert == nil {
		log.Printf("❌ Could not read back alert %s: %v", alertID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database operation failed"})
		return
	}

	// Resolutions never open tickets.
	if alert.Status == models.StatusResolved {
		h.fanOut(alert, true)
		c.JSON(http.StatusOK, gin.H{
			"message":  "Alert processed and stored",
			"alert_id": alertID,
		})
		return
	}

	// Correlate before ticketing: a still-open ticket for the same
	// condition/target pair means this occurrence rides along.
	link, err := h.store.FindOpenTicket(ctx, alert.Signature())
	if err != nil {
		log.Printf("❌ Correlator lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database operation failed", "details": err.Error()})
		return
	}
	if link != nil {
		if h.metrics != nil {
			h.metrics.IncDuplicatesSuppressed()
		}
		log.Printf("Duplicate of open ticket %s (via alert %s), suppressing ticket creation", link.TicketKey, link.AlertID)
		h.fanOut(alert, false)
		c.JSON(http.StatusOK, gin.H{
			"message":    "Duplicate alert, existing ticket still open",
			"ticket_key": link.TicketKey,
			"ticket_url": link.TicketURL,
			"alert_id":   alertID,
		})
		return
	}

	if h.jiraClient == nil || !h.jiraClient.IsConfigured() {
		h.fanOut(alert, false)
		c.JSON(http.StatusOK, gin.H{
			"message":  "Alert processed and stored",
			"alert_id": alertID,
		})
		return
	}

	created, err := h.jiraClient.CreateTicket(ctx, jira.FormatTicket(alert))
	if err != nil {
		if h.metrics != nil {
			h.metrics.IncTicketsCreated("failed")
		}
		log.Printf("❌ Failed to create JIRA ticket: %v (alert %s stored)", err, alertID)
		h.fanOut(alert, false)
		c.JSON(http.StatusOK, gin.H{
			"message":    "Alert processed and stored",
			"alert_id":   alertID,
			"jira_error": err.Error(),
		})
		return
	}

	if h.metrics != nil {
		h.metrics.IncTicketsCreated("created")
	}

	ref := models.TicketRef{Key: created.Key, URL: created.URL, CreatedAt: time.Now().UTC()}
	if ok, err := h.store.LinkTicket(ctx, alertID, ref); err != nil {
		log.Printf("❌ Failed to link ticket %s to alert %s: %v", created.Key, alertID, err)
	} else if !ok {
		log.Printf("Ticket %s not linked to alert %s (already linked or key in use)", created.Key, alertID)
	} else {
		escalated, err := h.store.UpdateStatus(ctx, alertID, models.StatusEscalated, map[string]interface{}{
			"ticket_key": created.Key,
		})
		if err != nil {
			log.Printf("❌ Failed to escalate alert %s: %v", alertID, err)
		} else if escalated {
			alert.Status = models.StatusEscalated
		}
		alert.Ticket = &ref
	}

	h.fanOut(alert, false)

	c.JSON(http.StatusOK, gin.H{
		"message":    "JIRA ticket created successfully",
		"ticket_key": created.Key,
		"ticket_url": created.URL,
		"alert_id":   alertID,
	})
}

// fanOut sends best-effort notifications off the request path.
func (h *WebhookHandler) fanOut(alert *models.Alert, resolution bool) {
	if h.slackClient != nil {
		go func(a models.Alert) {
			var err error
			if resolution {
				err = h.slackClient.NotifyResolution(&a)
			} else {
				err = h.slackClient.NotifyAlert(&a)
			}
			if err != nil {
				log.Printf("Slack notification failed for %s: %v", a.AlertID, err)
			}
		}(*alert)
	}

	if h.producer != nil {
		go func(a models.Alert) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := h.producer.PublishAlert(ctx, &a); err != nil {
				log.Printf("Kafka publish failed for %s: %v", a.AlertID, err)
			}
		}(*alert)
	}
}
