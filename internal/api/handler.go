package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/service"
	"pos-service/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	authService     *service.AuthService
	productService  *service.ProductService
	checkoutService *service.CheckoutService
	hub             *ws.Hub
}

// NewHandler creates a new HTTP handler
func NewHandler(
	authService *service.AuthService,
	productService *service.ProductService,
	checkoutService *service.CheckoutService,
	hub *ws.Hub,
) *Handler {
	return &Handler{
		authService:     authService,
		productService:  productService,
		checkoutService: checkoutService,
		hub:             hub,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/api/auth/login", h.login)

	authed := router.Group("/api", authMiddleware(h.authService))
	{
		authed.GET("/products", h.listProducts)
		authed.POST("/orders", h.createOrder)
		authed.GET("/orders", h.listOrders)
		authed.GET("/orders/:orderId", h.getOrder)
	}

	router.GET("/ws", authTokenQueryMiddleware(h.authService), h.serveWS)
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// login handles credential verification and token issuance
func (h *Handler) login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if errors.Is(err, service.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid username or password."})
		return
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Login temporarily unavailable"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// listProducts handles paged catalog reads
func (h *Handler) listProducts(c *gin.Context) {
	page, pageSize := pagingParams(c)

	result, err := h.productService.ListProducts(c.Request.Context(), page, pageSize)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Failed to list products"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// createOrder handles a checkout
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"message":   "Invalid request body",
			"errorCode": "VALIDATION",
		})
		return
	}

	userID := actorID(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}

	order, err := h.checkoutService.CreateOrder(c.Request.Context(), userID, &req)
	if err != nil {
		writeCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Order created successfully",
		"orderId":   order.OrderID,
		"orderCode": order.OrderCode,
	})
}

// getOrder handles order reads by id
func (h *Handler) getOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid order ID"})
		return
	}

	order, err := h.checkoutService.GetOrder(c.Request.Context(), orderID)
	if errors.Is(err, models.ErrOrderNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Failed to load order"})
		return
	}

	c.JSON(http.StatusOK, order)
}

// listOrders handles paged order history reads
func (h *Handler) listOrders(c *gin.Context) {
	page, pageSize := pagingParams(c)

	result, err := h.checkoutService.ListOrders(c.Request.Context(), page, pageSize)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Failed to list orders"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// serveWS upgrades the connection and hands it to the fanout hub
func (h *Handler) serveWS(c *gin.Context) {
	h.hub.ServeWS(c.Writer, c.Request)
}

// writeCheckoutError maps the checkout error taxonomy onto HTTP codes.
func writeCheckoutError(c *gin.Context, err error) {
	var notFound *models.ProductNotFoundError
	var insufficient *models.InsufficientStockError

	switch {
	case models.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{
			"message":   err.Error(),
			"errorCode": "VALIDATION",
		})
	case errors.As(err, &notFound):
		c.JSON(http.StatusBadRequest, gin.H{
			"message":   err.Error(),
			"errorCode": "PRODUCT_NOT_FOUND",
			"productId": notFound.ProductID,
		})
	case errors.As(err, &insufficient):
		c.JSON(http.StatusConflict, gin.H{
			"message":   err.Error(),
			"errorCode": "INSUFFICIENT_STOCK",
			"productId": insufficient.ProductID,
			"requested": insufficient.Requested,
			"available": insufficient.Available,
		})
	case errors.Is(err, models.ErrConcurrencyConflict):
		// Nothing committed; the client may retry with identical input.
		c.JSON(http.StatusConflict, gin.H{
			"message":   "Checkout conflicted with concurrent activity, please retry",
			"errorCode": "CONCURRENCY_CONFLICT",
		})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"message":   "Failed to create order",
			"errorCode": "PERSISTENCE_FAILURE",
		})
	}
}

// pagingParams reads pageNumber/pageSize query params with the listing
// defaults.
func pagingParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("pageNumber", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "10"))
	return page, pageSize
}
