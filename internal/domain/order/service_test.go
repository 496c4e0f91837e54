package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockRepo struct {
	lastDraft Draft
	lastItems []LineItemDraft
	result    *Order
	err       error
}

func (m *mockRepo) Create(_ context.Context, draft Draft, items []LineItemDraft) (*Order, error) {
	m.lastDraft = draft
	m.lastItems = items
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	// Echo a plausible persisted order.
	o := &Order{
		ID:            draft.ID,
		Status:        StatusPending,
		ShippingTotal: decimal.Zero,
	}
	for _, item := range items {
		o.LineItems = append(o.LineItems, LineItem{
			ID:        item.ID,
			OrderID:   draft.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Unit:      item.Unit,
			UnitPrice: item.UnitPrice,
		})
	}
	return o, nil
}

// --- Helpers ---

func validItem() LineItemDraft {
	return LineItemDraft{
		ProductID: "p1",
		Name:      "Widget",
		Quantity:  decimal.NewFromInt(2),
		Unit:      "ea",
		UnitPrice: decimal.RequireFromString("9.99"),
	}
}

func ptr[T any](v T) *T { return &v }

// --- Tests ---

func TestCreateOrder_AssignsIdentifiers(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	result, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		Items: []LineItemDraft{validItem(), validItem()},
	})
	require.NoError(t, err)

	_, err = uuid.Parse(repo.lastDraft.ID)
	require.NoError(t, err, "order id must be a generated uuid")

	require.Len(t, repo.lastItems, 2)
	_, err = uuid.Parse(repo.lastItems[0].ID)
	require.NoError(t, err)
	assert.NotEqual(t, repo.lastItems[0].ID, repo.lastItems[1].ID)

	require.Len(t, result.LineItems, 2)
	for _, item := range result.LineItems {
		assert.Equal(t, result.ID, item.OrderID)
	}
}

func TestCreateOrder_PassesDraftThrough(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	issueDate := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	shipping := decimal.RequireFromString("4.20")

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		Order: Draft{
			Status:        ptr(StatusCompleted),
			IssueDate:     &issueDate,
			ShippingTotal: &shipping,
		},
		Items: []LineItemDraft{validItem()},
	})
	require.NoError(t, err)

	require.NotNil(t, repo.lastDraft.Status)
	assert.Equal(t, StatusCompleted, *repo.lastDraft.Status)
	require.NotNil(t, repo.lastDraft.IssueDate)
	assert.Equal(t, issueDate, *repo.lastDraft.IssueDate)
	require.NotNil(t, repo.lastDraft.ShippingTotal)
	assert.True(t, repo.lastDraft.ShippingTotal.Equal(shipping))
}

func TestCreateOrder_EmptyItemsAllowed(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	result, err := svc.CreateOrder(context.Background(), CreateOrderRequest{})
	require.NoError(t, err)
	assert.Empty(t, result.LineItems)
	assert.Empty(t, repo.lastItems)
}

func TestCreateOrder_NoIdempotency(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	req := CreateOrderRequest{Items: []LineItemDraft{validItem()}}

	first, err := svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreateOrder_InvalidStatus(t *testing.T) {
	svc := NewService(&mockRepo{})

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		Order: Draft{Status: ptr(Status("SHIPPED"))},
	})
	require.Error(t, err)

	var statusErr *InvalidStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "SHIPPED", statusErr.Status)
}

func TestCreateOrder_NegativeShippingTotal(t *testing.T) {
	svc := NewService(&mockRepo{})

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		Order: Draft{ShippingTotal: ptr(decimal.RequireFromString("-1"))},
	})
	require.Error(t, err)

	var fieldErr *InvalidFieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "shippingTotal", fieldErr.Field)
}

func TestCreateOrder_InvalidLineItems(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*LineItemDraft)
		field  string
	}{
		{"missing productId", func(i *LineItemDraft) { i.ProductID = "" }, "productId"},
		{"missing name", func(i *LineItemDraft) { i.Name = "" }, "name"},
		{"missing unit", func(i *LineItemDraft) { i.Unit = "" }, "unit"},
		{"zero quantity", func(i *LineItemDraft) { i.Quantity = decimal.Zero }, "quantity"},
		{"negative quantity", func(i *LineItemDraft) { i.Quantity = decimal.NewFromInt(-1) }, "quantity"},
		{"zero unitPrice", func(i *LineItemDraft) { i.UnitPrice = decimal.Zero }, "unitPrice"},
		{"negative taxRate", func(i *LineItemDraft) { i.TaxRatePercentage = ptr(decimal.NewFromInt(-5)) }, "taxRatePercentage"},
		{"negative discount", func(i *LineItemDraft) { i.Discount = ptr(decimal.NewFromInt(-5)) }, "discount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := validItem()
			tt.mutate(&item)

			svc := NewService(&mockRepo{})
			_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
				Items: []LineItemDraft{validItem(), item},
			})
			require.Error(t, err)

			var itemErr *InvalidLineItemError
			require.ErrorAs(t, err, &itemErr)
			assert.Equal(t, 1, itemErr.Index)
			assert.Equal(t, tt.field, itemErr.Field)
		})
	}
}

func TestCreateOrder_RepositoryError(t *testing.T) {
	repoErr := errors.New("constraint violated")
	svc := NewService(&mockRepo{err: repoErr})

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		Items: []LineItemDraft{validItem()},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, repoErr)
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusCompleted.Valid())
	assert.False(t, Status("SHIPPED").Valid())
	assert.False(t, Status("").Valid())
}
