package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"alertmon/internal/jira"
	"alertmon/internal/store"
)

type HealthHandler struct {
	checker    store.HealthChecker
	jiraClient *jira.Client
}

func NewHealthHandler(checker store.HealthChecker, jiraClient *jira.Client) *HealthHandler {
	return &HealthHandler{checker: checker, jiraClient: jiraClient}
}

func (h *HealthHandler) Check(ctx *gin.Context) {
	jiraConfigured := h.jiraClient != nil && h.jiraClient.IsConfigured()

	if err := h.checker.CheckHealth(); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"status":          "unhealthy",
			"database":        "disconnected",
			"jira_configured": jiraConfigured,
			"error":           err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"database":        "connected",
		"jira_configured": jiraConfigured,
		"timestamp":       time.Now().Format(time.RFC3339),
	})
}
