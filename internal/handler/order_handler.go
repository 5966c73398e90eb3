package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kjlinux/pourier-back/internal/domain"
	"github.com/kjlinux/pourier-back/internal/service"
	"github.com/kjlinux/pourier-back/pkg/middleware"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orderService *service.OrderService
	logger       *zap.Logger
}

func NewOrderHandler(orderService *service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req domain.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
		return
	}

	requestID := c.GetString(middleware.RequestIDKey)
	order, err := h.orderService.CreateOrder(c.Request.Context(), middleware.PrincipalFrom(c), req, requestID)
	if err != nil {
		h.respondError(c, err, requestID)
		return
	}

	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err, c.GetString(middleware.RequestIDKey))
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) PayOrder(c *gin.Context) {
	var req domain.PayOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
		return
	}

	order, err := h.orderService.Pay(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"), req)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentDeclined) && order != nil {
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error": "payment declined",
				"order": order,
			})
			return
		}
		h.respondError(c, err, c.GetString(middleware.RequestIDKey))
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	order, err := h.orderService.Cancel(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err, c.GetString(middleware.RequestIDKey))
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) FulfillOrder(c *gin.Context) {
	order, err := h.orderService.Fulfill(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err, c.GetString(middleware.RequestIDKey))
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) RefundOrder(c *gin.Context) {
	order, err := h.orderService.Refund(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err, c.GetString(middleware.RequestIDKey))
		return
	}
	c.JSON(http.StatusOK, order)
}

// respondError maps the domain taxonomy onto HTTP statuses.
func (h *OrderHandler) respondError(c *gin.Context, err error, requestID string) {
	if ve, ok := domain.AsValidationError(err); ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "validation failed",
			"fields": ve.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrPhotoNotFound), errors.Is(err, domain.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrGatewayUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway unavailable, please retry"})
	default:
		h.logger.Error("Request failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "internal error",
			"request_id": requestID,
		})
	}
}
