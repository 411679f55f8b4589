package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	allocationapp "github.com/pharmaerp/receivables/internal/application/allocation"
	"github.com/pharmaerp/receivables/internal/interfaces/http/dto"
)

// LedgerHandler handles invoice ledger endpoints
type LedgerHandler struct {
	BaseHandler
	service LedgerService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(service LedgerService) *LedgerHandler {
	return &LedgerHandler{service: service}
}

// RecordInvoice handles POST /ledger/invoices
func (h *LedgerHandler) RecordInvoice(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	var req dto.RecordInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	customerID, err := dto.ParseCustomerID(req.CustomerID)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	issueDate, err := dto.ParseDate(req.IssueDate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	dueDate, err := dto.ParseDate(req.DueDate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	view, err := h.service.RecordInvoice(c.Request.Context(), tenantID, allocationapp.RecordInvoiceInput{
		ID:            req.ID,
		InvoiceNumber: req.InvoiceNumber,
		CustomerID:    customerID,
		IssueDate:     *issueDate,
		DueDate:       dueDate,
		TotalAmount:   req.TotalAmount,
		AmountDue:     req.AmountDue,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, view)
}

// ListOutstanding handles GET /ledger/customers/:customer_id/invoices
func (h *LedgerHandler) ListOutstanding(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	customerID, err := uuid.Parse(c.Param("customer_id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	invoices, err := h.service.ListOutstanding(c.Request.Context(), tenantID, customerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, invoices, int64(len(invoices)), 1, len(invoices))
}
