package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order. The set is closed and mirrors
// the order_status enum in the database.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
)

// Valid reports whether s is a member of the order_status enum.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted:
		return true
	}
	return false
}

// Order is a persisted purchase order together with its line items.
type Order struct {
	ID            string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Status        Status
	IssueDate     time.Time
	ShippingTotal decimal.Decimal
	LineItems     []LineItem
}

// LineItem is a single product entry within an order. Line items have no
// lifecycle of their own: they are created with their order and only ever
// read through it.
type LineItem struct {
	ID                string
	OrderID           string
	ProductID         string
	Name              string
	Quantity          decimal.Decimal
	Unit              string
	UnitPrice         decimal.Decimal
	TaxRatePercentage decimal.Decimal
	Discount          decimal.Decimal
}

// Draft is a candidate order as decoded from a request. Nil fields were
// absent from the input and take their column defaults at insert time.
// ID is assigned by the service, never taken from client input.
type Draft struct {
	ID            string
	Status        *Status
	IssueDate     *time.Time
	ShippingTotal *decimal.Decimal
}

// LineItemDraft is a candidate line item. OrderID is deliberately missing:
// the writer assigns it from the freshly inserted order, overriding
// anything a client may have sent.
type LineItemDraft struct {
	ID                string
	ProductID         string
	Name              string
	Quantity          decimal.Decimal
	Unit              string
	UnitPrice         decimal.Decimal
	TaxRatePercentage *decimal.Decimal
	Discount          *decimal.Decimal
}

// Repository persists an order and its line items as one atomic unit.
// Implementations must guarantee that on any error neither the order row
// nor any line-item row survives.
type Repository interface {
	Create(ctx context.Context, draft Draft, items []LineItemDraft) (*Order, error)
}
