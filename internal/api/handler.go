package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"bazaar-service/internal/models"
	"bazaar-service/internal/service"
	"bazaar-service/internal/store"
	"bazaar-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	listingService    *service.ListingService
	settlementService *service.SettlementService
	earningsService   *service.EarningsService
	buyOrderService   *service.BuyOrderService
	store             *store.Store
	gmStatusThreshold int
}

// NewHandler creates a new HTTP handler
func NewHandler(
	listingService *service.ListingService,
	settlementService *service.SettlementService,
	earningsService *service.EarningsService,
	buyOrderService *service.BuyOrderService,
	store *store.Store,
	gmStatusThreshold int,
) *Handler {
	return &Handler{
		listingService:    listingService,
		settlementService: settlementService,
		earningsService:   earningsService,
		buyOrderService:   buyOrderService,
		store:             store,
		gmStatusThreshold: gmStatusThreshold,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/listings", h.browseListings)
		v1.GET("/listings/:id", h.getListing)
		v1.POST("/listings", h.createListing)
		v1.POST("/listings/:id/purchase", h.purchaseListing)
		v1.POST("/listings/:id/cancel", h.cancelListing)

		v1.GET("/accounts/:account_id/listings", h.myListings)
		v1.GET("/accounts/:account_id/pending", h.pendingPayments)
		v1.POST("/payments/:id/complete", h.completePayment)
		v1.GET("/accounts/:account_id/history", h.purchaseHistory)
		v1.GET("/accounts/:account_id/earnings", h.earningsSummary)
		v1.POST("/earnings/claim", h.claimEarnings)

		v1.GET("/buy-orders", h.listBuyOrders)
		v1.POST("/buy-orders", h.createBuyOrder)
		v1.GET("/accounts/:account_id/buy-orders", h.myBuyOrders)
		v1.POST("/buy-orders/:id/cancel", h.cancelBuyOrder)
	}

	admin := router.Group("/api/v1/admin")
	admin.Use(h.gmAuth())
	{
		admin.GET("/listings", h.adminListings)
		admin.GET("/stats", h.adminStats)
		admin.POST("/listings/:id/restore", h.restoreListing)
		admin.POST("/listings/:id/cancel", h.adminCancelListing)
		admin.DELETE("/listings/:id", h.deleteListing)
		admin.DELETE("/buy-orders/:id", h.deleteBuyOrder)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	if err := h.store.GetDB().PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// browseListings handles the public browse page
func (h *Handler) browseListings(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	search := c.Query("search")

	listings, err := h.listingService.Browse(c.Request.Context(), search, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": listings})
}

// getListing handles get listing by ID
func (h *Handler) getListing(c *gin.Context) {
	listingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	listing, err := h.listingService.Get(c.Request.Context(), listingID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// createListing handles listing creation
func (h *Handler) createListing(c *gin.Context) {
	var req service.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	listing, err := h.listingService.CreateListing(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

// purchaseListing handles a purchase attempt
func (h *Handler) purchaseListing(c *gin.Context) {
	listingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	req.ListingID = listingID
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	resp, err := h.settlementService.Purchase(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// cancelListing handles seller-initiated cancellation
func (h *Handler) cancelListing(c *gin.Context) {
	listingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		AccountID int64 `json:"account_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.listingService.Cancel(c.Request.Context(), listingID, req.AccountID, false); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// myListings lists an account's listings across linked accounts
func (h *Handler) myListings(c *gin.Context) {
	accountID, ok := pathID(c, "account_id")
	if !ok {
		return
	}
	listings, err := h.listingService.MyListings(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": listings})
}

// pendingPayments lists unpaid reservations for an account
func (h *Handler) pendingPayments(c *gin.Context) {
	accountID, ok := pathID(c, "account_id")
	if !ok {
		return
	}
	pending, err := h.settlementService.PendingPayments(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": pending})
}

// completePayment finishes a pending transaction after the broker NPC
// collected payment. Called by the game-side quest script; the same
// path also runs from the kafka worker.
func (h *Handler) completePayment(c *gin.Context) {
	transactionID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		CharacterID int64 `json:"character_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.settlementService.CompletePendingPayment(c.Request.Context(), transactionID, req.CharacterID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "paid"})
}

// purchaseHistory lists an account's past purchases
func (h *Handler) purchaseHistory(c *gin.Context) {
	accountID, ok := pathID(c, "account_id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	history, err := h.settlementService.PurchaseHistory(c.Request.Context(), accountID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

// earningsSummary shows unclaimed earnings per character
func (h *Handler) earningsSummary(c *gin.Context) {
	accountID, ok := pathID(c, "account_id")
	if !ok {
		return
	}
	summary, err := h.earningsService.Summary(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// claimEarnings pays out unclaimed earnings
func (h *Handler) claimEarnings(c *gin.Context) {
	var req struct {
		AccountID int64 `json:"account_id" binding:"required"`
		CharID    int64 `json:"char_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	resp, err := h.earningsService.Claim(c.Request.Context(), req.AccountID, req.CharID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// listBuyOrders lists open buy orders
func (h *Handler) listBuyOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	orders, err := h.buyOrderService.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"buy_orders": orders})
}

// createBuyOrder posts a want-to-buy order
func (h *Handler) createBuyOrder(c *gin.Context) {
	var req service.CreateBuyOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	order, err := h.buyOrderService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// myBuyOrders lists an account's buy orders
func (h *Handler) myBuyOrders(c *gin.Context) {
	accountID, ok := pathID(c, "account_id")
	if !ok {
		return
	}
	orders, err := h.buyOrderService.MyOrders(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"buy_orders": orders})
}

// cancelBuyOrder withdraws a buy order
func (h *Handler) cancelBuyOrder(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		AccountID int64 `json:"account_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.buyOrderService.Cancel(c.Request.Context(), orderID, req.AccountID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// adminListings lists all listings, any status
func (h *Handler) adminListings(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	listings, err := h.listingService.AllListings(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": listings})
}

// adminStats returns listing counts by status
func (h *Handler) adminStats(c *gin.Context) {
	counts, err := h.listingService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings_by_status": counts})
}

// restoreListing reverts a sold listing to active
func (h *Handler) restoreListing(c *gin.Context) {
	listingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.listingService.Restore(c.Request.Context(), listingID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// adminCancelListing cancels any active listing
func (h *Handler) adminCancelListing(c *gin.Context) {
	listingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.listingService.Cancel(c.Request.Context(), listingID, 0, true); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// deleteListing removes a listing row
func (h *Handler) deleteListing(c *gin.Context) {
	listingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.listingService.Delete(c.Request.Context(), listingID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// deleteBuyOrder removes a buy order row
func (h *Handler) deleteBuyOrder(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.buyOrderService.Delete(c.Request.Context(), orderID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// gmAuth gates admin routes on game account status.
func (h *Handler) gmAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, err := strconv.ParseInt(c.GetHeader("X-Admin-Account-ID"), 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing admin account"})
			return
		}

		account, err := h.store.GetAccount(c.Request.Context(), accountID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unknown admin account"})
			return
		}
		if account.Status < h.gmStatusThreshold {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient account status"})
			return
		}

		c.Next()
	}
}

// pathID parses a numeric path parameter, responding 400 on failure.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

// respondError maps the failure taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var insufficient *models.InsufficientFundsError
	if errors.As(err, &insufficient) {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":            insufficient.Error(),
			"price_copper":     insufficient.PriceCopper,
			"available_copper": insufficient.AvailableCopper,
			"pending_copper":   insufficient.PendingCopper,
			"alt_available":    insufficient.AltAvailable,
		})
		return
	}

	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrAlreadySold),
		errors.Is(err, models.ErrInvalidOperation),
		errors.Is(err, models.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrLedgerNotInitialized):
		// Setup problem, not a runtime one: the operator has to run
		// migrations before claims can work.
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":          models.ErrLedgerNotInitialized.Error(),
			"setup_required": true,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
