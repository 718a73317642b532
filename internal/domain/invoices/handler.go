// Package invoices proxies billing documents. Read access ("invoices") and
// mutation/full-ledger access ("invoices_full") are distinct capabilities:
// a secretary can consult and print an invoice but never rewrite the ledger.
package invoices

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
	read := api.Group("/invoices", h.guard.RequireStaff(auth.CapInvoices))
	read.GET("", h.List)
	read.GET("/:id", h.Get)
	read.GET("/:id/pdf", h.PDF)

	full := api.Group("/invoices", h.guard.RequireStaff(auth.CapInvoicesFull))
	full.POST("", h.Create)
	full.PUT("/:id", h.Update)
	full.DELETE("/:id", h.Delete)
	full.GET("/ledger", h.Ledger)
}

func (h *Handler) forward(c echo.Context, path string) error {
	sid := auth.SessionIDFromContext(c.Request().Context())
	if err := h.client.Forward(c, sid, path); err != nil {
		return h.guard.UpstreamError(c, err)
	}
	return nil
}

func (h *Handler) List(c echo.Context) error { return h.forward(c, "/invoices/") }
func (h *Handler) Get(c echo.Context) error  { return h.forward(c, "/invoices/"+c.Param("id")+"/") }
func (h *Handler) PDF(c echo.Context) error {
	return h.forward(c, "/invoices/"+c.Param("id")+"/download_pdf/")
}

func (h *Handler) Create(c echo.Context) error { return h.forward(c, "/invoices/") }
func (h *Handler) Update(c echo.Context) error { return h.forward(c, "/invoices/"+c.Param("id")+"/") }
func (h *Handler) Delete(c echo.Context) error { return h.forward(c, "/invoices/"+c.Param("id")+"/") }

// Ledger is the accountant's full billing view. The backend serves it from
// the same list endpoint; the separate route exists so the complete ledger
// sits behind the stricter capability.
func (h *Handler) Ledger(c echo.Context) error { return h.forward(c, "/invoices/") }
