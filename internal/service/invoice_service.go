package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/studio_manager/internal/export"
	"github.com/Freeeeeet/studio_manager/internal/model"
	"github.com/Freeeeeet/studio_manager/internal/schedule"
	"github.com/Freeeeeet/studio_manager/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const invoiceNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type InvoiceService struct {
	invoices InvoiceStore
	studios  StudioStore
	logger   *zap.Logger
	now      func() time.Time
}

func NewInvoiceService(invoices InvoiceStore, studios StudioStore, logger *zap.Logger) *InvoiceService {
	return &InvoiceService{
		invoices: invoices,
		studios:  studios,
		logger:   logger,
		now:      time.Now,
	}
}

// Totals are the computed amounts of an invoice.
type Totals struct {
	Subtotal model.Cents `json:"subtotal"`
	Tax      model.Cents `json:"tax"`
	Total    model.Cents `json:"total"`
}

// ComputeTotals fills each item's amounts and sums them. No tax applies.
func ComputeTotals(items []model.InvoiceItem) Totals {
	var t Totals
	for i := range items {
		line := model.Cents(items[i].Quantity) * items[i].UnitPrice
		items[i].Subtotal = line
		items[i].Total = line
		t.Subtotal += line
	}
	t.Total = t.Subtotal + t.Tax
	return t
}

type InvoiceInput struct {
	ParentID uuid.UUID           `json:"parent_id"`
	DueDate  string              `json:"due_date"`
	Notes    string              `json:"notes" validate:"max=2000"`
	Items    []model.InvoiceItem `json:"items" validate:"max=100"`
}

// CreateInvoice drafts an invoice for a parent of the studio.
func (s *InvoiceService) CreateInvoice(ctx context.Context, sess *session.Session, in InvoiceInput) (*model.Invoice, error) {
	if sess.Role != model.RoleOwner {
		return nil, forbidden("only owners can create invoices")
	}
	if in.ParentID == uuid.Nil {
		return nil, invalid("parent_id", "please select a parent")
	}
	if in.DueDate == "" {
		return nil, invalid("due_date", "please select a due date")
	}
	due, err := ParseDate("due_date", in.DueDate)
	if err != nil {
		return nil, err
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if len(in.Items) == 0 {
		return nil, invalid("items", "please add at least one item")
	}
	for i := range in.Items {
		it := &in.Items[i]
		it.Description = strings.TrimSpace(it.Description)
		if err := validateStruct(*it); err != nil {
			return nil, err
		}
		if !it.Type.Valid() {
			return nil, invalid("type", "unknown item type %q", it.Type)
		}
	}

	parent, err := s.studios.GetParent(ctx, in.ParentID)
	if err != nil {
		return nil, fmt.Errorf("get parent: %w", err)
	}
	if parent == nil || parent.StudioID != sess.StudioID {
		return nil, notFound("parent")
	}

	number, err := s.nextNumber()
	if err != nil {
		return nil, err
	}

	totals := ComputeTotals(in.Items)
	inv := &model.Invoice{
		StudioID:    sess.StudioID,
		ParentID:    parent.ID,
		ParentName:  parent.Name,
		ParentEmail: parent.Email,
		Number:      number,
		Status:      model.InvoiceDraft,
		DueDate:     due,
		Notes:       strings.TrimSpace(in.Notes),
		Subtotal:    totals.Subtotal,
		Tax:         totals.Tax,
		Total:       totals.Total,
		Items:       in.Items,
	}
	if err := s.invoices.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	s.logger.Info("Invoice created",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("number", inv.Number),
		zap.String("total", inv.Total.String()))
	return inv, nil
}

// nextNumber builds INV-YYYYMMDD-XXXXXX.
func (s *InvoiceService) nextNumber() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate invoice number: %w", err)
	}
	for i, b := range buf {
		buf[i] = invoiceNumberAlphabet[int(b)%len(invoiceNumberAlphabet)]
	}
	return fmt.Sprintf("INV-%s-%s", s.now().Format("20060102"), buf), nil
}

func (s *InvoiceService) ListInvoices(ctx context.Context, sess *session.Session, status, search string) ([]model.Invoice, error) {
	if sess.Role != model.RoleOwner {
		return nil, forbidden("only owners can see invoices")
	}
	f := model.InvoiceFilter{Search: strings.TrimSpace(search)}
	if status != "" {
		st, err := model.ParseInvoiceStatus(status)
		if err != nil {
			return nil, invalid("status", "unknown invoice status %q", status)
		}
		f.Status = &st
	}

	invs, err := s.invoices.List(ctx, sess.StudioID, f)
	if err != nil {
		return nil, fmt.Errorf("get invoices: %w", err)
	}
	if invs == nil {
		invs = []model.Invoice{}
	}
	return invs, nil
}

// ListPayments returns the invoices that have been paid.
func (s *InvoiceService) ListPayments(ctx context.Context, sess *session.Session) ([]model.Invoice, error) {
	return s.ListInvoices(ctx, sess, string(model.InvoicePaid), "")
}

func (s *InvoiceService) GetInvoice(ctx context.Context, sess *session.Session, id uuid.UUID) (*model.Invoice, error) {
	if sess.Role != model.RoleOwner {
		return nil, forbidden("only owners can see invoices")
	}
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	if inv == nil || inv.StudioID != sess.StudioID {
		return nil, notFound("invoice")
	}
	return inv, nil
}

func (s *InvoiceService) StatusCounts(ctx context.Context, sess *session.Session) (map[model.InvoiceStatus]int, error) {
	if sess.Role != model.RoleOwner {
		return nil, forbidden("only owners can see invoices")
	}
	return s.invoices.StatusCounts(ctx, sess.StudioID)
}

// UpdateStatus moves the invoice along its lifecycle.
func (s *InvoiceService) UpdateStatus(ctx context.Context, sess *session.Session, id uuid.UUID, status string) (*model.Invoice, error) {
	next, err := model.ParseInvoiceStatus(status)
	if err != nil {
		return nil, invalid("status", "unknown invoice status %q", status)
	}
	inv, err := s.GetInvoice(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if !inv.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: cannot move a %s invoice to %s", ErrConflict, inv.Status, next)
	}

	if err := s.invoices.UpdateStatus(ctx, id, next); err != nil {
		return nil, fmt.Errorf("update invoice status: %w", err)
	}
	s.logger.Info("Invoice status changed",
		zap.String("invoice_id", id.String()),
		zap.String("from", string(inv.Status)),
		zap.String("to", string(next)))

	inv.Status = next
	return inv, nil
}

// SuggestItems proposes one tuition line per plan enrollment of the
// parent's children.
func (s *InvoiceService) SuggestItems(ctx context.Context, sess *session.Session, parentID uuid.UUID) ([]model.InvoiceItem, error) {
	if sess.Role != model.RoleOwner {
		return nil, forbidden("only owners can create invoices")
	}
	parent, err := s.studios.GetParent(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("get parent: %w", err)
	}
	if parent == nil || parent.StudioID != sess.StudioID {
		return nil, notFound("parent")
	}

	enrollments, err := s.invoices.PlanEnrollments(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("get plan enrollments: %w", err)
	}

	items := make([]model.InvoiceItem, 0, len(enrollments))
	for _, pe := range enrollments {
		studentID, enrollmentID := pe.StudentID, pe.ID
		items = append(items, model.InvoiceItem{
			StudentID:        &studentID,
			Description:      pe.Plan.Name + " Tuition",
			Quantity:         1,
			UnitPrice:        pe.Plan.Amount,
			Type:             model.ItemTuition,
			PlanEnrollmentID: &enrollmentID,
		})
	}
	ComputeTotals(items)
	return items, nil
}

// ExportInvoice renders the invoice as a workbook.
func (s *InvoiceService) ExportInvoice(ctx context.Context, sess *session.Session, id uuid.UUID) (*model.Invoice, []byte, error) {
	inv, err := s.GetInvoice(ctx, sess, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := export.InvoiceXLSX(inv)
	if err != nil {
		return nil, nil, fmt.Errorf("export invoice: %w", err)
	}
	return inv, data, nil
}

// SweepOverdue marks sent invoices past their due date as overdue.
func (s *InvoiceService) SweepOverdue(ctx context.Context) (int64, error) {
	n, err := s.invoices.MarkOverdue(ctx, schedule.DateOnly(s.now()))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("Invoices marked overdue", zap.Int64("count", n))
	}
	return n, nil
}
