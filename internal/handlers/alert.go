package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"alertmon/internal/models"
	"alertmon/internal/store"
)

type AlertHandler struct {
	store store.AlertStore
}

func NewAlertHandler(alertStore store.AlertStore) *AlertHandler {
	return &AlertHandler{store: alertStore}
}

func (h *AlertHandler) List(ctx *gin.Context) {
	limit := 50
	if raw := ctx.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = parsed
	}

	filter := store.ListFilter{
		Severity: models.Severity(ctx.Query("severity")),
		Status:   models.Status(ctx.Query("status")),
	}

	alerts, err := h.store.List(ctx.Request.Context(), filter, limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve alerts", "details": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, models.AlertListResponse{
		Alerts: alerts,
		Total:  len(alerts),
	})
}

func (h *AlertHandler) GetByID(ctx *gin.Context) {
	alertID := ctx.Param("id")

	alert, err := h.store.Get(ctx.Request.Context(), alertID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve alert", "details": err.Error()})
		return
	}
	if alert == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}

	history, err := h.store.History(ctx.Request.Context(), alertID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve alert history", "details": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"alert":   alert,
		"history": history,
	})
}

func (h *AlertHandler) UpdateStatus(ctx *gin.Context) {
	alertID := ctx.Param("id")

	var request models.UpdateStatusRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Status is required", "details": err.Error()})
		return
	}

	ok, err := h.store.UpdateStatus(ctx.Request.Context(), alertID, models.Status(request.Status), request.Metadata)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Database operation failed", "details": err.Error()})
		return
	}
	if !ok {
		// Unknown alert, unknown status, or an illegal lifecycle edge.
		ctx.JSON(http.StatusConflict, gin.H{"error": "Failed to update alert status"})
		return
	}

	log.Printf("Alert %s moved to %s", alertID, request.Status)
	ctx.JSON(http.StatusOK, gin.H{"message": "Alert status updated successfully"})
}

func (h *AlertHandler) Stats(ctx *gin.Context) {
	stats, err := h.store.Stats(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve stats", "details": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, stats)
}
