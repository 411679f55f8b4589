package router

import (
	"github.com/gin-gonic/gin"
	"github.com/pharmaerp/receivables/internal/interfaces/http/handler"
)

// Handlers bundles the receivables API handlers.
type Handlers struct {
	Ledger     *handler.LedgerHandler
	Allocation *handler.AllocationHandler
	Payment    *handler.PaymentHandler
	Settings   *handler.SettingsHandler
	System     *handler.SystemHandler
}

// RegisterReceivables registers every receivables route on r and the
// unversioned health probes on engine.
func RegisterReceivables(engine *gin.Engine, r *Router, h Handlers) {
	engine.GET("/health", h.System.Health)
	engine.GET("/health/ready", h.System.Ready)

	r.Register(NewDomainGroup("system", "/health").
		GET("", h.System.Health).
		GET("/ready", h.System.Ready))

	r.Register(NewDomainGroup("ledger", "/ledger").
		POST("/invoices", h.Ledger.RecordInvoice).
		GET("/customers/:customer_id/invoices", h.Ledger.ListOutstanding))

	r.Register(NewDomainGroup("allocations", "/allocations").
		POST("/draft", h.Allocation.Draft).
		POST("/auto", h.Allocation.AutoAllocate).
		POST("/manual", h.Allocation.EditAllocation).
		POST("/validate", h.Allocation.Validate).
		POST("/clear", h.Allocation.Clear))

	r.Register(NewDomainGroup("payments", "/payments").
		POST("", h.Payment.Submit).
		GET("", h.Payment.List).
		GET("/:id", h.Payment.Get))

	r.Register(NewDomainGroup("settings", "/settings").
		GET("", h.Settings.Get).
		PUT("/:key", h.Settings.Update))

	r.Setup()
}
