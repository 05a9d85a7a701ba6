package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/flashsale-engine/internal/core/domain"
	"github.com/rl1809/flashsale-engine/internal/core/observer"
	"github.com/rl1809/flashsale-engine/internal/core/service"
	"github.com/rl1809/flashsale-engine/internal/pkg/clock"
	"github.com/rl1809/flashsale-engine/internal/pkg/countdown"
)

type HTTPHandler struct {
	store       *service.FlashSaleStore
	checkout    *service.CheckoutService
	coordinator *service.ExpirationCoordinator
	clock       clock.Clock
	logger      *zap.Logger
}

type PurchaseHTTPRequest struct {
	RequestID    string `json:"request_id"`
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	Quantity     int    `json:"quantity"`
	Address      string `json:"address"`
}

type PurchaseHTTPResponse struct {
	Success    bool         `json:"success"`
	Message    string       `json:"message"`
	Sale       *domain.Sale `json:"sale,omitempty"`
	DeliveryID string       `json:"delivery_id,omitempty"`
}

type CartHTTPRequest struct {
	CustomerID string `json:"customer_id"`
	SaleID     string `json:"sale_id"`
	Quantity   int    `json:"quantity"`
}

// CreateSaleHTTPRequest takes endTime either as an RFC 3339 string or as unix
// milliseconds.
type CreateSaleHTTPRequest struct {
	ID           string          `json:"id"`
	Product      string          `json:"product"`
	Supplier     string          `json:"supplier"`
	SupplierID   string          `json:"supplierId"`
	Image        string          `json:"image"`
	Category     string          `json:"category"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	OldPrice     decimal.Decimal `json:"oldPrice"`
	Discount     decimal.Decimal `json:"discount"`
	Total        int             `json:"total"`
	EndTime      json.RawMessage `json:"endTime"`
	QuantityUnit string          `json:"quantityUnit"`
}

func NewHTTPHandler(
	store *service.FlashSaleStore,
	checkout *service.CheckoutService,
	coordinator *service.ExpirationCoordinator,
	clk clock.Clock,
	logger *zap.Logger,
) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{
		store:       store,
		checkout:    checkout,
		coordinator: coordinator,
		clock:       clk,
		logger:      logger,
	}
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListSales returns every listed sale with its countdown. ?unexpired=true
// drops sales whose end time has passed.
func (h *HTTPHandler) ListSales(c *gin.Context) {
	now := h.clock.Now()
	sales := h.store.ListActive()
	if unexpired, _ := strconv.ParseBool(c.Query("unexpired")); unexpired {
		sales = domain.FilterUnexpired(sales, now)
	}

	entries := make([]observer.Entry, 0, len(sales))
	for _, sale := range sales {
		entries = append(entries, observer.Entry{Sale: sale, Countdown: countdown.DisplayAt(now, sale.EndTime)})
	}
	c.JSON(http.StatusOK, gin.H{"data": entries, "count": len(entries)})
}

func (h *HTTPHandler) GetSale(c *gin.Context) {
	sale, err := h.store.Get(c.Param("id"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": observer.Entry{Sale: sale, Countdown: countdown.DisplayAt(h.clock.Now(), sale.EndTime)},
	})
}

func (h *HTTPHandler) CreateSale(c *gin.Context) {
	var req CreateSaleHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, PurchaseHTTPResponse{Message: "invalid request body"})
		return
	}

	endTime, err := domain.ParseEndTimeJSON(req.EndTime)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	sale, err := h.store.Add(domain.Sale{
		ID:           req.ID,
		Product:      req.Product,
		Supplier:     req.Supplier,
		SupplierID:   req.SupplierID,
		Image:        req.Image,
		Category:     req.Category,
		Description:  req.Description,
		Price:        req.Price,
		OldPrice:     req.OldPrice,
		Discount:     req.Discount,
		Total:        req.Total,
		EndTime:      endTime,
		QuantityUnit: req.QuantityUnit,
	})
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": sale})
}

func (h *HTTPHandler) Purchase(c *gin.Context) {
	var req PurchaseHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, PurchaseHTTPResponse{Message: "invalid request body"})
		return
	}
	if req.RequestID == "" {
		req.RequestID = c.GetHeader("Idempotency-Key")
	}
	if req.CustomerID == "" || req.Quantity <= 0 {
		c.JSON(http.StatusBadRequest, PurchaseHTTPResponse{Message: "missing required fields"})
		return
	}

	res, err := h.checkout.Purchase(c.Request.Context(), service.PurchaseRequest{
		RequestID:    req.RequestID,
		CustomerID:   req.CustomerID,
		CustomerName: req.CustomerName,
		SaleID:       c.Param("id"),
		Quantity:     req.Quantity,
		Address:      req.Address,
	})
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, PurchaseHTTPResponse{
		Success:    true,
		Message:    "order placed successfully",
		Sale:       &res.Sale,
		DeliveryID: res.DeliveryID,
	})
}

// Expire forwards an observer's expiry signal. Signals for sales that have
// not ended are ignored and reported as not accepted.
func (h *HTTPHandler) Expire(c *gin.Context) {
	saleID := c.Param("id")
	if _, err := h.store.Get(saleID); err != nil {
		h.abortWithError(c, err)
		return
	}

	accepted := h.coordinator.MarkExpired(saleID)
	c.JSON(http.StatusOK, gin.H{
		"accepted": accepted,
		"state":    h.coordinator.State(saleID),
	})
}

func (h *HTTPHandler) AddToCart(c *gin.Context) {
	var req CartHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, PurchaseHTTPResponse{Message: "invalid request body"})
		return
	}
	if req.CustomerID == "" || req.SaleID == "" {
		c.JSON(http.StatusBadRequest, PurchaseHTTPResponse{Message: "missing required fields"})
		return
	}

	err := h.checkout.AddToCart(c.Request.Context(), service.CartRequest{
		CustomerID: req.CustomerID,
		SaleID:     req.SaleID,
		Quantity:   req.Quantity,
	})
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, PurchaseHTTPResponse{Success: true, Message: "added to cart"})
}

func (h *HTTPHandler) abortWithError(c *gin.Context, err error) {
	status, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, PurchaseHTTPResponse{Message: message})
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrDuplicateRequest):
		return http.StatusConflict, "duplicate request"
	case errors.Is(err, domain.ErrDuplicateSale):
		return http.StatusConflict, "sale already exists"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "sale not found"
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusGone, "sold out"
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidSale),
		errors.Is(err, domain.ErrInvalidSchedule):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "failed to update inventory"
	}
}
