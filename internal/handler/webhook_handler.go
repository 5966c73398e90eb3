package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kjlinux/pourier-back/internal/domain"
	"github.com/kjlinux/pourier-back/internal/service"
	"go.uber.org/zap"
)

// WebhookHandler receives payment provider callbacks. Providers retry
// on non-2xx, so duplicates and late arrivals are expected traffic.
type WebhookHandler struct {
	orderService *service.OrderService
	logger       *zap.Logger
}

func NewWebhookHandler(orderService *service.OrderService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		orderService: orderService,
		logger:       logger,
	}
}

func (h *WebhookHandler) PaymentCallback(c *gin.Context) {
	// TODO: verify the provider signature header once the gateway
	// contract documents the signing scheme.
	var req domain.PaymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid callback format",
			"details": err.Error(),
		})
		return
	}

	order, err := h.orderService.HandleCallback(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		if errors.Is(err, domain.ErrInvalidState) {
			// Late callback against a terminal order. Acknowledge so the
			// provider stops retrying.
			h.logger.Warn("Callback for order in terminal state",
				zap.String("order_id", req.OrderID),
				zap.String("status", req.Status))
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}
		h.logger.Error("Failed to process payment callback",
			zap.String("order_id", req.OrderID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "processed",
		"order_id":     order.OrderID,
		"order_status": order.Status,
	})
}
