package handler

import (
	"github.com/gin-gonic/gin"
	allocationapp "github.com/pharmaerp/receivables/internal/application/allocation"
	"github.com/pharmaerp/receivables/internal/domain/allocation"
	"github.com/pharmaerp/receivables/internal/interfaces/http/dto"
)

// AllocationHandler serves allocation sessions. Sessions are stateless: the
// client sends its current set with every edit.
type AllocationHandler struct {
	BaseHandler
	service AllocationService
}

// NewAllocationHandler creates a new AllocationHandler
func NewAllocationHandler(service AllocationService) *AllocationHandler {
	return &AllocationHandler{service: service}
}

// Draft handles POST /allocations/draft
func (h *AllocationHandler) Draft(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req dto.SessionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	customerID, err := dto.ParseCustomerID(req.CustomerID)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Draft(c.Request.Context(), tenantID, allocationapp.DraftInput{
		CustomerID:    customerID,
		PaymentAmount: req.PaymentAmount,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// AutoAllocate handles POST /allocations/auto
func (h *AllocationHandler) AutoAllocate(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req dto.SessionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	customerID, err := dto.ParseCustomerID(req.CustomerID)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.AutoAllocate(c.Request.Context(), tenantID, allocationapp.AutoAllocateInput{
		CustomerID:    customerID,
		PaymentAmount: req.PaymentAmount,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// EditAllocation handles POST /allocations/manual. A refused edit is not an
// error: the unchanged set comes back with rejected set to true.
func (h *AllocationHandler) EditAllocation(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req dto.ManualAllocationRequest
	if !h.bindJSON(c, &req) {
		return
	}
	customerID, err := dto.ParseCustomerID(req.CustomerID)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.EditAllocation(c.Request.Context(), tenantID, allocationapp.EditAllocationInput{
		CustomerID:    customerID,
		PaymentAmount: req.PaymentAmount,
		Current:       dto.ToAllocations(req.Allocations),
		InvoiceID:     allocation.InvoiceID(req.InvoiceID),
		Amount:        req.Amount,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Validate handles POST /allocations/validate
func (h *AllocationHandler) Validate(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req dto.ValidateRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.Success(c, h.service.Validate(c.Request.Context(), tenantID, allocationapp.ValidateInput{
		PaymentAmount: req.PaymentAmount,
		Allocations:   dto.ToAllocations(req.Allocations),
	}))
}

// Clear handles POST /allocations/clear
func (h *AllocationHandler) Clear(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req dto.ClearRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.Success(c, h.service.Clear(c.Request.Context(), tenantID, req.PaymentAmount))
}
