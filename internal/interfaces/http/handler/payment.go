package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	allocationapp "github.com/pharmaerp/receivables/internal/application/allocation"
	"github.com/pharmaerp/receivables/internal/domain/allocation"
	"github.com/pharmaerp/receivables/internal/interfaces/http/dto"
	"github.com/pharmaerp/receivables/internal/interfaces/http/middleware"
)

// PaymentHandler handles payment submission and receipts
type PaymentHandler struct {
	BaseHandler
	service PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(service PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// Submit handles POST /payments. A new payment answers 201; a replayed
// idempotency key answers 200 with the original receipt.
func (h *PaymentHandler) Submit(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req dto.SubmitPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	customerID, err := dto.ParseCustomerID(req.CustomerID)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	paymentDate, err := dto.ParseDate(req.PaymentDate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	key := req.IdempotencyKey
	if header := strings.TrimSpace(c.GetHeader(middleware.IdempotencyKeyHeader)); header != "" {
		key = header
	}

	in := allocationapp.SubmitPaymentInput{
		CustomerID:     customerID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Method:         allocation.PaymentMethod(req.Method),
		Reference:      req.Reference,
		IdempotencyKey: key,
		Allocations:    dto.ToAllocations(req.Allocations),
	}
	if paymentDate != nil {
		in.PaymentDate = *paymentDate
	}

	result, err := h.service.SubmitPayment(c.Request.Context(), tenantID, in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.Replayed {
		h.Success(c, result)
		return
	}
	h.Created(c, result)
}

// Get handles GET /payments/:id
func (h *PaymentHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	view, err := h.service.GetPayment(c.Request.Context(), tenantID, paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// List handles GET /payments?customer_id=&limit=
func (h *PaymentHandler) List(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var query dto.ListPaymentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	customerID, err := dto.ParseCustomerID(query.CustomerID)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	receipts, err := h.service.ListPayments(c.Request.Context(), tenantID, customerID, query.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, receipts, int64(len(receipts)), 1, len(receipts))
}
