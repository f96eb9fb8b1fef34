// Package recordstore persists customers, orders, invoices and inscriptions
// in Postgres. Writes are best-effort bookkeeping for the workshop; a failed
// write is logged by the caller and never rolls back earlier steps.
package recordstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("record not found")

// StoreError wraps a failed record store operation with the operation name so
// integration logging can say which write was lost.
type StoreError struct {
	Operation string
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("record store %s: %v", e.Operation, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Customer is one row in the customers table, keyed by email.
type Customer struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Phone     string
	Location  string
	CreatedAt time.Time
}

// Order records one initiated order or enquiry for a customer.
type Order struct {
	ID            uuid.UUID
	CustomerID    uuid.UUID
	OrderType     string
	ProductName   string
	ProductType   string
	Colour        string
	Size          string
	TotalAmount   float64
	DepositPaid   bool
	DepositAmount float64
	CreatedAt     time.Time
}

// Invoice records an issued invoice against an order.
type Invoice struct {
	ID                uuid.UUID
	OrderID           uuid.UUID
	ProviderInvoiceID string
	AmountMinorUnits  int64
	Status            string
	DueDate           time.Time
	CreatedAt         time.Time
}

// UpsertCustomer inserts the customer or, when the email already exists,
// refreshes the contact details and returns the existing row's ID.
func (r *Repository) UpsertCustomer(ctx context.Context, name, email, phone, location string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		INSERT INTO customers (id, name, email, phone, location)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE SET
			name = EXCLUDED.name,
			phone = CASE WHEN EXCLUDED.phone <> '' THEN EXCLUDED.phone ELSE customers.phone END,
			location = CASE WHEN EXCLUDED.location <> '' THEN EXCLUDED.location ELSE customers.location END,
			updated_at = NOW()
		RETURNING id
	`, uuid.New(), name, email, phone, location).Scan(&id)
	if err != nil {
		return uuid.Nil, &StoreError{Operation: "upsert customer", Err: err}
	}
	return id, nil
}

// CreateOrderParams carries the fields persisted for a new order row.
type CreateOrderParams struct {
	CustomerID  uuid.UUID
	OrderType   string
	ProductName string
	ProductType string
	Colour      string
	Size        string
	TotalAmount float64
}

// CreateOrder inserts a new order row and returns its ID.
func (r *Repository) CreateOrder(ctx context.Context, params CreateOrderParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		INSERT INTO orders (id, customer_id, order_type, product_name, product_type, colour, size, total_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, uuid.New(), params.CustomerID, params.OrderType, params.ProductName, params.ProductType,
		params.Colour, params.Size, params.TotalAmount).Scan(&id)
	if err != nil {
		return uuid.Nil, &StoreError{Operation: "create order", Err: err}
	}
	return id, nil
}

// RecordInscription stores the memorial inscription text for an order.
func (r *Repository) RecordInscription(ctx context.Context, orderID uuid.UUID, text string) error {
	if _, err := r.pool.Exec(ctx, `
		INSERT INTO inscriptions (id, order_id, text)
		VALUES ($1, $2, $3)
	`, uuid.New(), orderID, text); err != nil {
		return &StoreError{Operation: "record inscription", Err: err}
	}
	return nil
}

// CreateInvoice records an issued invoice against an order.
func (r *Repository) CreateInvoice(ctx context.Context, orderID uuid.UUID, providerInvoiceID string, amountMinorUnits int64, status string, dueDate time.Time) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		INSERT INTO invoices (id, order_id, provider_invoice_id, amount_minor_units, status, due_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, uuid.New(), orderID, providerInvoiceID, amountMinorUnits, status, dueDate).Scan(&id)
	if err != nil {
		return uuid.Nil, &StoreError{Operation: "create invoice", Err: err}
	}
	return id, nil
}

// MarkDepositPaid flags the customer's most recent order as deposit-paid.
// Correlation is by email only; if the customer has placed two orders, the
// newer one is credited. Returns ErrNotFound when no order exists for the
// email.
func (r *Repository) MarkDepositPaid(ctx context.Context, email string, amountMinorUnits int64) (uuid.UUID, error) {
	var orderID uuid.UUID
	err := r.pool.QueryRow(ctx, `
		UPDATE orders
		SET deposit_paid = true,
			deposit_amount = $2::bigint / 100.0,
			updated_at = NOW()
		WHERE id = (
			SELECT o.id
			FROM orders o
			JOIN customers c ON c.id = o.customer_id
			WHERE c.email = $1
			ORDER BY o.created_at DESC
			LIMIT 1
		)
		RETURNING id
	`, email, amountMinorUnits).Scan(&orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, &StoreError{Operation: "mark deposit paid", Err: ErrNotFound}
	}
	if err != nil {
		return uuid.Nil, &StoreError{Operation: "mark deposit paid", Err: err}
	}
	return orderID, nil
}
