package httpapi

import (
	"net/http"

	"github.com/Freeeeeet/studio_manager/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type invoiceStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) listInvoices(c *gin.Context) {
	invs, err := s.svc.Invoices.ListInvoices(c.Request.Context(), currentSession(c), c.Query("status"), c.Query("search"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list(invs))
}

func (s *Server) listPayments(c *gin.Context) {
	paid, err := s.svc.Invoices.ListPayments(c.Request.Context(), currentSession(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list(paid))
}

func (s *Server) createInvoice(c *gin.Context) {
	var in service.InvoiceInput
	if !bindJSON(c, &in) {
		return
	}
	inv, err := s.svc.Invoices.CreateInvoice(c.Request.Context(), currentSession(c), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

func (s *Server) invoiceCounts(c *gin.Context) {
	counts, err := s.svc.Invoices.StatusCounts(c.Request.Context(), currentSession(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (s *Server) suggestItems(c *gin.Context) {
	parentID, err := uuid.Parse(c.Query("parent_id"))
	if err != nil {
		badRequest(c, "invalid parent_id")
		return
	}
	items, err := s.svc.Invoices.SuggestItems(c.Request.Context(), currentSession(c), parentID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list(items))
}

func (s *Server) getInvoice(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	inv, err := s.svc.Invoices.GetInvoice(c.Request.Context(), currentSession(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (s *Server) updateInvoiceStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req invoiceStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	inv, err := s.svc.Invoices.UpdateStatus(c.Request.Context(), currentSession(c), id, req.Status)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (s *Server) exportInvoice(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	inv, data, err := s.svc.Invoices.ExportInvoice(c.Request.Context(), currentSession(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	attachment(c, inv.Number+".xlsx", data)
}
