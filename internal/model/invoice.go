package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoiceSent      InvoiceStatus = "sent"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

var InvoiceStatuses = []InvoiceStatus{InvoiceDraft, InvoiceSent, InvoicePaid, InvoiceOverdue, InvoiceCancelled}

func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	for _, st := range InvoiceStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown invoice status %q", s)
}

// CanTransition reports whether an invoice may move from s to next.
func (s InvoiceStatus) CanTransition(next InvoiceStatus) bool {
	switch next {
	case InvoiceSent:
		return s == InvoiceDraft
	case InvoicePaid:
		return s == InvoiceSent || s == InvoiceOverdue
	case InvoiceOverdue:
		return s == InvoiceSent
	case InvoiceCancelled:
		return s != InvoicePaid && s != InvoiceCancelled
	case InvoiceDraft:
		return false
	}
	return false
}

type InvoiceItemType string

const (
	ItemTuition      InvoiceItemType = "tuition"
	ItemCostume      InvoiceItemType = "costume"
	ItemRegistration InvoiceItemType = "registration"
	ItemOther        InvoiceItemType = "other"
)

func (t InvoiceItemType) Valid() bool {
	switch t {
	case ItemTuition, ItemCostume, ItemRegistration, ItemOther:
		return true
	}
	return false
}

// Cents is a money amount in minor units.
type Cents int64

func (c Cents) String() string {
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// Float is the amount in major units, for spreadsheets.
func (c Cents) Float() float64 { return float64(c) / 100 }

type Invoice struct {
	ID          uuid.UUID     `json:"id"`
	StudioID    uuid.UUID     `json:"studio_id"`
	ParentID    uuid.UUID     `json:"parent_id"`
	ParentName  string        `json:"parent_name,omitempty"`
	ParentEmail string        `json:"parent_email,omitempty"`
	Number      string        `json:"number"`
	Status      InvoiceStatus `json:"status"`
	DueDate     time.Time     `json:"due_date"`
	Notes       string        `json:"notes"`
	Subtotal    Cents         `json:"subtotal"`
	Tax         Cents         `json:"tax"`
	Total       Cents         `json:"total"`
	CreatedAt   time.Time     `json:"created_at"`
	Items       []InvoiceItem `json:"items,omitempty"`
}

type InvoiceItem struct {
	ID               uuid.UUID       `json:"id"`
	InvoiceID        uuid.UUID       `json:"invoice_id"`
	StudentID        *uuid.UUID      `json:"student_id,omitempty"`
	Description      string          `json:"description" validate:"required,max=500"`
	Quantity         int64           `json:"quantity" validate:"gte=1,lte=10000"`
	UnitPrice        Cents           `json:"unit_price" validate:"gte=0,lte=100000000"`
	Subtotal         Cents           `json:"subtotal"`
	Total            Cents           `json:"total"`
	Type             InvoiceItemType `json:"type" validate:"required"`
	PlanEnrollmentID *uuid.UUID      `json:"plan_enrollment_id,omitempty"`
}

// InvoiceFilter narrows the invoice list.
type InvoiceFilter struct {
	Status *InvoiceStatus
	Search string
}

type PricingPlan struct {
	ID       uuid.UUID `json:"id"`
	StudioID uuid.UUID `json:"studio_id"`
	Name     string    `json:"name"`
	Amount   Cents     `json:"amount"`
}

// PlanEnrollment is a student's subscription to a pricing plan.
type PlanEnrollment struct {
	ID          uuid.UUID   `json:"id"`
	StudentID   uuid.UUID   `json:"student_id"`
	StudentName string      `json:"student_name"`
	Plan        PricingPlan `json:"plan"`
}
