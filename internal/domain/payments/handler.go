// Package payments proxies payment records, aggregates and receipts.
package payments

import (
	"github.com/labstack/echo/v4"

	"github.com/cimef/portal/internal/platform/auth"
	"github.com/cimef/portal/internal/upstream"
)

type Handler struct {
	client *upstream.Client
	guard  *auth.Guard
}

func NewHandler(client *upstream.Client, guard *auth.Guard) *Handler {
	return &Handler{client: client, guard: guard}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/payments", h.guard.RequireStaff(auth.CapPayments))
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/summary", h.Summary)
	g.GET("/by_invoice", h.ByInvoice)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/receipt", h.Receipt)
}

func (h *Handler) forward(c echo.Context, path string) error {
	sid := auth.SessionIDFromContext(c.Request().Context())
	if err := h.client.Forward(c, sid, path); err != nil {
		return h.guard.UpstreamError(c, err)
	}
	return nil
}

func (h *Handler) List(c echo.Context) error   { return h.forward(c, "/payments/") }
func (h *Handler) Create(c echo.Context) error { return h.forward(c, "/payments/") }
func (h *Handler) Get(c echo.Context) error    { return h.forward(c, "/payments/"+c.Param("id")+"/") }
func (h *Handler) Update(c echo.Context) error { return h.forward(c, "/payments/"+c.Param("id")+"/") }
func (h *Handler) Delete(c echo.Context) error { return h.forward(c, "/payments/"+c.Param("id")+"/") }

// Summary aggregates collected amounts for the accounting dashboard.
func (h *Handler) Summary(c echo.Context) error { return h.forward(c, "/payments/summary/") }

// ByInvoice groups payments under their invoice, query-filtered upstream.
func (h *Handler) ByInvoice(c echo.Context) error { return h.forward(c, "/payments/by_invoice/") }

func (h *Handler) Receipt(c echo.Context) error {
	return h.forward(c, "/payments/"+c.Param("id")+"/receipt/")
}
