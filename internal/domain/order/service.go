package order

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// InvalidStatusError indicates a status value outside the closed enum.
type InvalidStatusError struct {
	Status string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid order status %q", e.Status)
}

// InvalidFieldError indicates an order-level field that fails validation.
type InvalidFieldError struct {
	Field  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvalidLineItemError indicates a line item that fails validation.
// Index is the zero-based position of the item in the request.
type InvalidLineItemError struct {
	Index  int
	Field  string
	Reason string
}

func (e *InvalidLineItemError) Error() string {
	return fmt.Sprintf("invalid line item %d: %s %s", e.Index, e.Field, e.Reason)
}

// CreateOrderRequest holds the decoded candidates for one order creation.
type CreateOrderRequest struct {
	Order Draft
	Items []LineItemDraft
}

// Service encapsulates order creation business logic: draft validation,
// identifier generation, and delegation to the transactional repository.
type Service struct {
	orders Repository
}

// NewService creates an order Service backed by the given repository.
func NewService(orders Repository) *Service {
	return &Service{orders: orders}
}

// CreateOrder validates the drafts, assigns fresh identifiers to the order
// and every line item, and persists everything in a single transaction.
// An empty item list is allowed and creates an order with no line items.
// There is no idempotency: resubmitting an identical request creates a
// new order with a new identifier.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if err := validateDraft(req.Order); err != nil {
		return nil, err
	}
	for i, item := range req.Items {
		if err := validateLineItem(i, item); err != nil {
			return nil, err
		}
	}

	draft := req.Order
	draft.ID = uuid.New().String()

	items := make([]LineItemDraft, len(req.Items))
	for i, item := range req.Items {
		item.ID = uuid.New().String()
		items[i] = item
	}

	created, err := s.orders.Create(ctx, draft, items)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return created, nil
}

func validateDraft(draft Draft) error {
	if draft.Status != nil && !draft.Status.Valid() {
		return &InvalidStatusError{Status: string(*draft.Status)}
	}
	if draft.ShippingTotal != nil && draft.ShippingTotal.IsNegative() {
		return &InvalidFieldError{Field: "shippingTotal", Reason: "must not be negative"}
	}
	return nil
}

func validateLineItem(i int, item LineItemDraft) error {
	if item.ProductID == "" {
		return &InvalidLineItemError{Index: i, Field: "productId", Reason: "required"}
	}
	if item.Name == "" {
		return &InvalidLineItemError{Index: i, Field: "name", Reason: "required"}
	}
	if item.Unit == "" {
		return &InvalidLineItemError{Index: i, Field: "unit", Reason: "required"}
	}
	if !item.Quantity.IsPositive() {
		return &InvalidLineItemError{Index: i, Field: "quantity", Reason: "must be greater than 0"}
	}
	if !item.UnitPrice.IsPositive() {
		return &InvalidLineItemError{Index: i, Field: "unitPrice", Reason: "must be greater than 0"}
	}
	if item.TaxRatePercentage != nil && item.TaxRatePercentage.IsNegative() {
		return &InvalidLineItemError{Index: i, Field: "taxRatePercentage", Reason: "must not be negative"}
	}
	if item.Discount != nil && item.Discount.IsNegative() {
		return &InvalidLineItemError{Index: i, Field: "discount", Reason: "must not be negative"}
	}
	return nil
}
