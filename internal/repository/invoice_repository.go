package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_manager/internal/model"
	"github.com/Freeeeeet/studio_manager/internal/repository/base"
	"github.com/google/uuid"
)

const invoiceSelect = `
	SELECT i.id, i.studio_id, i.parent_id, p.name, p.email, i.number, i.status, i.due_date,
		i.notes, i.subtotal, i.tax, i.total, i.created_at
	FROM invoices i
	JOIN parents p ON p.id = i.parent_id`

type InvoiceRepository struct {
	*base.Repository
}

func NewInvoiceRepository(b *base.Repository) *InvoiceRepository {
	return &InvoiceRepository{Repository: b}
}

// Create writes the header and then its items. Both writes share a
// transaction so a failed item insert leaves no draft behind.
func (r *InvoiceRepository) Create(ctx context.Context, inv *model.Invoice) error {
	return r.InTx(ctx, func(q base.Querier) error {
		err := q.QueryRow(ctx, `
			INSERT INTO invoices (studio_id, parent_id, number, status, due_date, notes, subtotal, tax, total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at
		`,
			inv.StudioID, inv.ParentID, inv.Number, string(inv.Status), inv.DueDate, inv.Notes,
			int64(inv.Subtotal), int64(inv.Tax), int64(inv.Total),
		).Scan(&inv.ID, &inv.CreatedAt)
		if err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}

		for i := range inv.Items {
			item := &inv.Items[i]
			item.InvoiceID = inv.ID
			err := q.QueryRow(ctx, `
				INSERT INTO invoice_items (invoice_id, student_id, description, quantity, unit_price,
					subtotal, total, type, plan_enrollment_id)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				RETURNING id
			`,
				item.InvoiceID, item.StudentID, item.Description, item.Quantity, int64(item.UnitPrice),
				int64(item.Subtotal), int64(item.Total), string(item.Type), item.PlanEnrollmentID,
			).Scan(&item.ID)
			if err != nil {
				return fmt.Errorf("create invoice item: %w", err)
			}
		}
		return nil
	})
}

// List returns the studio's invoices, newest first. Search matches the
// number and the parent's name or email.
func (r *InvoiceRepository) List(ctx context.Context, studioID uuid.UUID, f model.InvoiceFilter) ([]model.Invoice, error) {
	var status *string
	if f.Status != nil {
		s := string(*f.Status)
		status = &s
	}

	rows, err := r.Pool().Query(ctx, invoiceSelect+`
		WHERE i.studio_id = $1
			AND ($2::text IS NULL OR i.status = $2)
			AND ($3 = '' OR i.number ILIKE '%' || $3 || '%' OR p.name ILIKE '%' || $3 || '%' OR p.email ILIKE '%' || $3 || '%')
		ORDER BY i.created_at DESC
	`, studioID, status, f.Search)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []model.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

// GetByID returns the invoice with its items, or nil when missing.
func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	inv, err := scanInvoice(r.Pool().QueryRow(ctx, invoiceSelect+` WHERE i.id = $1`, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.Pool().Query(ctx, `
		SELECT id, invoice_id, student_id, description, quantity, unit_price, subtotal, total, type, plan_enrollment_id
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY description
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list invoice items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it model.InvoiceItem
		var unit, sub, total int64
		var typ string
		err := rows.Scan(&it.ID, &it.InvoiceID, &it.StudentID, &it.Description, &it.Quantity,
			&unit, &sub, &total, &typ, &it.PlanEnrollmentID)
		if err != nil {
			return nil, fmt.Errorf("scan invoice item: %w", err)
		}
		it.UnitPrice, it.Subtotal, it.Total = model.Cents(unit), model.Cents(sub), model.Cents(total)
		it.Type = model.InvoiceItemType(typ)
		inv.Items = append(inv.Items, it)
	}
	return inv, rows.Err()
}

// StatusCounts counts the studio's invoices per status.
func (r *InvoiceRepository) StatusCounts(ctx context.Context, studioID uuid.UUID) (map[model.InvoiceStatus]int, error) {
	rows, err := r.Pool().Query(ctx, `
		SELECT status, count(*) FROM invoices WHERE studio_id = $1 GROUP BY status
	`, studioID)
	if err != nil {
		return nil, fmt.Errorf("count invoices: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.InvoiceStatus]int, len(model.InvoiceStatuses))
	for _, s := range model.InvoiceStatuses {
		counts[s] = 0
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan invoice count: %w", err)
		}
		counts[model.InvoiceStatus(status)] = n
	}
	return counts, rows.Err()
}

// UpdateStatus overwrites the invoice status.
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.InvoiceStatus) error {
	n, err := base.ExecAffected(ctx, r.Pool(), `UPDATE invoices SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("invoice not found")
	}
	return nil
}

// MarkOverdue flips sent invoices due before today to overdue.
func (r *InvoiceRepository) MarkOverdue(ctx context.Context, today time.Time) (int64, error) {
	n, err := base.ExecAffected(ctx, r.Pool(), `
		UPDATE invoices SET status = 'overdue' WHERE status = 'sent' AND due_date < $1
	`, today)
	if err != nil {
		return 0, fmt.Errorf("mark overdue invoices: %w", err)
	}
	return n, nil
}

// PlanEnrollments lists the pricing plans the parent's children are on.
func (r *InvoiceRepository) PlanEnrollments(ctx context.Context, parentID uuid.UUID) ([]model.PlanEnrollment, error) {
	rows, err := r.Pool().Query(ctx, `
		SELECT pe.id, s.id, s.name, pp.id, pp.studio_id, pp.name, pp.amount
		FROM plan_enrollments pe
		JOIN students s ON s.id = pe.student_id
		JOIN pricing_plans pp ON pp.id = pe.plan_id
		WHERE s.parent_id = $1
		ORDER BY s.name, pp.name
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list plan enrollments: %w", err)
	}
	defer rows.Close()

	var out []model.PlanEnrollment
	for rows.Next() {
		var pe model.PlanEnrollment
		var amount int64
		err := rows.Scan(&pe.ID, &pe.StudentID, &pe.StudentName, &pe.Plan.ID, &pe.Plan.StudioID, &pe.Plan.Name, &amount)
		if err != nil {
			return nil, fmt.Errorf("scan plan enrollment: %w", err)
		}
		pe.Plan.Amount = model.Cents(amount)
		out = append(out, pe)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*model.Invoice, error) {
	var inv model.Invoice
	var status string
	var sub, tax, total int64
	err := row.Scan(
		&inv.ID, &inv.StudioID, &inv.ParentID, &inv.ParentName, &inv.ParentEmail, &inv.Number, &status,
		&inv.DueDate, &inv.Notes, &sub, &tax, &total, &inv.CreatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan invoice: %w", err)
	}
	inv.Status = model.InvoiceStatus(status)
	inv.Subtotal, inv.Tax, inv.Total = model.Cents(sub), model.Cents(tax), model.Cents(total)
	return &inv, nil
}
