// Package codec translates order payloads between JSON and domain
// candidates. Decoding applies a strict whitelist: only the declared
// order and line-item fields are read, everything else is skipped, and
// client-supplied identifiers are never trusted.
package codec

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/orders-api/internal/domain/order"
)

const dateLayout = "2006-01-02"

// DecodeError indicates a request body that could not be decoded into
// order candidates. It maps to a client error at the HTTP layer.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode: %s: %v", e.Reason, e.Err)
	}
	return "decode: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DecodeOrderRequest decodes an HTTP request body into an order draft and
// its line-item drafts. The lineItems field is required and must be an
// array; it may be empty. Client-supplied id values are ignored.
func DecodeOrderRequest(data []byte) (order.Draft, []order.LineItemDraft, error) {
	return decodeOrder(data, false)
}

// DecodeOrderRecord is DecodeOrderRequest for export records: it
// additionally accepts a top-level id, used by bulk import tooling.
func DecodeOrderRecord(data []byte) (order.Draft, []order.LineItemDraft, error) {
	return decodeOrder(data, true)
}

func decodeOrder(data []byte, allowID bool) (order.Draft, []order.LineItemDraft, error) {
	var (
		draft     order.Draft
		items     []order.LineItemDraft
		seenItems bool
	)

	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return draft, nil, &DecodeError{Reason: "body must be a JSON object"}
	}

	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			if !allowID {
				return d.Skip()
			}
			if d.Next() == jx.Null {
				return d.Skip()
			}
			s, err := d.Str()
			if err != nil {
				return err
			}
			draft.ID = s
			return nil
		case "status":
			if d.Next() == jx.Null {
				return d.Skip()
			}
			s, err := d.Str()
			if err != nil {
				return err
			}
			st := order.Status(s)
			draft.Status = &st
			return nil
		case "issueDate":
			if d.Next() == jx.Null {
				return d.Skip()
			}
			s, err := d.Str()
			if err != nil {
				return err
			}
			t, err := time.Parse(dateLayout, s)
			if err != nil {
				return &DecodeError{Reason: fmt.Sprintf("issueDate %q is not a valid date", s)}
			}
			draft.IssueDate = &t
			return nil
		case "shippingTotal":
			if d.Next() == jx.Null {
				return d.Skip()
			}
			v, err := decodeDecimal(d, "shippingTotal")
			if err != nil {
				return err
			}
			draft.ShippingTotal = &v
			return nil
		case "lineItems":
			if d.Next() != jx.Array {
				return &DecodeError{Reason: "lineItems must be an array"}
			}
			seenItems = true
			items = []order.LineItemDraft{}
			return d.Arr(func(d *jx.Decoder) error {
				item, err := decodeLineItem(d)
				if err != nil {
					return err
				}
				items = append(items, item)
				return nil
			})
		default:
			// Whitelist policy: unknown fields are dropped, never
			// forwarded to the writer.
			return d.Skip()
		}
	})
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			return draft, nil, de
		}
		return draft, nil, &DecodeError{Reason: "malformed JSON body", Err: err}
	}

	if !seenItems {
		return draft, nil, &DecodeError{Reason: "lineItems is required"}
	}
	return draft, items, nil
}

func decodeLineItem(d *jx.Decoder) (order.LineItemDraft, error) {
	var item order.LineItemDraft

	if d.Next() != jx.Object {
		return item, &DecodeError{Reason: "line item must be a JSON object"}
	}

	err := d.Obj(func(d *jx.Decoder, key string) error {
		if d.Next() == jx.Null {
			return d.Skip()
		}
		switch key {
		case "productId":
			s, err := d.Str()
			item.ProductID = s
			return err
		case "name":
			s, err := d.Str()
			item.Name = s
			return err
		case "unit":
			s, err := d.Str()
			item.Unit = s
			return err
		case "quantity":
			v, err := decodeDecimal(d, "quantity")
			item.Quantity = v
			return err
		case "unitPrice":
			v, err := decodeDecimal(d, "unitPrice")
			item.UnitPrice = v
			return err
		case "taxRatePercentage":
			v, err := decodeDecimal(d, "taxRatePercentage")
			if err != nil {
				return err
			}
			item.TaxRatePercentage = &v
			return nil
		case "discount":
			v, err := decodeDecimal(d, "discount")
			if err != nil {
				return err
			}
			item.Discount = &v
			return nil
		default:
			// Includes id and orderId: both are assigned by the writer.
			return d.Skip()
		}
	})
	return item, err
}

// decodeDecimal accepts either a JSON string or a JSON number, matching
// the wire format produced by clients of the original endpoint.
func decodeDecimal(d *jx.Decoder, field string) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		v, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, &DecodeError{Reason: fmt.Sprintf("%s %q is not a valid decimal", field, s)}
		}
		return v, nil
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		v, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero, &DecodeError{Reason: fmt.Sprintf("%s is not a valid decimal", field)}
		}
		return v, nil
	default:
		return decimal.Zero, &DecodeError{Reason: field + " must be a string or number"}
	}
}

// EncodeOrder writes the full persisted order, line items included, in
// the response wire format: decimals as strings, issueDate as a calendar
// date, timestamps as RFC 3339.
func EncodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("createdAt")
	e.Str(o.CreatedAt.Format(time.RFC3339Nano))
	e.FieldStart("updatedAt")
	e.Str(o.UpdatedAt.Format(time.RFC3339Nano))
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("issueDate")
	e.Str(o.IssueDate.Format(dateLayout))
	e.FieldStart("shippingTotal")
	e.Str(o.ShippingTotal.String())
	e.FieldStart("lineItems")
	e.ArrStart()
	for i := range o.LineItems {
		encodeLineItem(e, &o.LineItems[i])
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeLineItem(e *jx.Encoder, item *order.LineItem) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(item.ID)
	e.FieldStart("orderId")
	e.Str(item.OrderID)
	e.FieldStart("productId")
	e.Str(item.ProductID)
	e.FieldStart("name")
	e.Str(item.Name)
	e.FieldStart("quantity")
	e.Str(item.Quantity.String())
	e.FieldStart("unit")
	e.Str(item.Unit)
	e.FieldStart("unitPrice")
	e.Str(item.UnitPrice.String())
	e.FieldStart("taxRatePercentage")
	e.Str(item.TaxRatePercentage.String())
	e.FieldStart("discount")
	e.Str(item.Discount.String())
	e.ObjEnd()
}
