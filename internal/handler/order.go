package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/orders-api/internal/codec"
	"github.com/xenking/orders-api/internal/domain/order"
)

// OrderService is the part of the order domain the HTTP layer needs.
type OrderService interface {
	CreateOrder(ctx context.Context, req order.CreateOrderRequest) (*order.Order, error)
}

// CreateOrder decodes the request body, delegates to the order service,
// and writes the full persisted order back. Decode failures are client
// errors; validation failures are unprocessable; anything that escapes
// the transaction is a server error carrying the underlying message.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lg := zctx.From(ctx)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		lg.Warn("read request body", zap.Error(err))
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return
	}

	draft, items, err := codec.DecodeOrderRequest(body)
	if err != nil {
		lg.Warn("decode order request", zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.orders.CreateOrder(ctx, order.CreateOrderRequest{
		Order: draft,
		Items: items,
	})
	if err != nil {
		status := statusForError(err)
		if status >= http.StatusInternalServerError {
			lg.Error("create order", zap.Error(err))
		} else {
			lg.Warn("create order rejected", zap.Error(err))
		}
		writeError(w, status, err.Error())
		return
	}

	e := &jx.Encoder{}
	codec.EncodeOrder(e, created)
	writeJSON(w, http.StatusOK, e)
}

// statusForError maps domain errors to HTTP statuses. Unknown errors —
// constraint violations, dead connections, aborted transactions — stay 500.
func statusForError(err error) int {
	var (
		statusErr *order.InvalidStatusError
		fieldErr  *order.InvalidFieldError
		itemErr   *order.InvalidLineItemError
	)
	switch {
	case errors.As(err, &statusErr), errors.As(err, &fieldErr), errors.As(err, &itemErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
