package api

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/market-teller/internal/cart"
	"github.com/xenking/market-teller/internal/checkout"
	"github.com/xenking/market-teller/internal/coupon"
	"github.com/xenking/market-teller/internal/loyalty"
)

const maxCheckoutBody = 1 << 20

type checkoutItem struct {
	productID string
	quantity  decimal.Decimal
}

type checkoutRequest struct {
	items        []checkoutItem
	couponCode   string
	customerID   string
	redeemPoints int64
}

// Checkout prices a cart through the teller and returns the receipt, the
// printed receipt text, and the loyalty summary when a customer was given.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "Checkout")
	defer span.End()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCheckoutBody))
	if err != nil {
		h.metrics.record(ctx, span, "bad_request")
		writeError(w, http.StatusBadRequest, "read body")
		return
	}

	req, err := decodeCheckoutRequest(body)
	if err != nil {
		h.metrics.record(ctx, span, "bad_request")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.items) == 0 {
		h.metrics.record(ctx, span, "bad_request")
		writeError(w, http.StatusBadRequest, "items required")
		return
	}

	c := cart.New()
	for _, item := range req.items {
		c.AddItemQuantity(item.productID, item.quantity)
	}

	res, err := h.teller.Checkout(ctx, c, checkout.Options{
		CouponCode:   req.couponCode,
		CustomerID:   req.customerID,
		RedeemPoints: req.redeemPoints,
	})
	if err != nil {
		h.metrics.record(ctx, span, "rejected")
		h.writeCheckoutError(w, r, err)
		return
	}

	h.metrics.record(ctx, span, "ok")
	e := &jx.Encoder{}
	h.encodeResult(e, res)
	writeJSON(w, r, e)
}

// writeCheckoutError maps domain failures to HTTP statuses: client mistakes
// in the cart or the discount options are 422, everything else is 500.
func (h *Handler) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound   *checkout.ProductNotFoundError
		badQty     *checkout.InvalidQuantityError
		couponErrs = []error{
			coupon.ErrNotFound, coupon.ErrExpired, coupon.ErrNotYetValid,
			coupon.ErrExhausted, coupon.ErrMinimumPurchaseNotMet,
		}
	)
	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusUnprocessableEntity, notFound.Error())
		return
	case errors.As(err, &badQty):
		writeError(w, http.StatusUnprocessableEntity, badQty.Error())
		return
	case errors.Is(err, loyalty.ErrInsufficientBalance):
		writeError(w, http.StatusUnprocessableEntity, "insufficient loyalty balance")
		return
	}
	for _, ce := range couponErrs {
		if errors.Is(err, ce) {
			writeError(w, http.StatusUnprocessableEntity, ce.Error())
			return
		}
	}

	zctx.From(r.Context()).Error("Checkout", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func (h *Handler) encodeResult(e *jx.Encoder, res *checkout.Result) {
	rec := res.Receipt

	e.ObjStart()
	e.FieldStart("id")
	e.Str(rec.ID)

	e.FieldStart("items")
	e.ArrStart()
	for _, item := range rec.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(item.Product.ID)
		e.FieldStart("name")
		e.Str(item.Product.Name)
		e.FieldStart("quantity")
		e.Str(item.Quantity.String())
		e.FieldStart("price")
		e.Str(item.Price.StringFixed(2))
		e.FieldStart("total")
		e.Str(item.Total.StringFixed(2))
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("discounts")
	e.ArrStart()
	for _, d := range rec.Discounts {
		e.ObjStart()
		if d.ProductID != "" {
			e.FieldStart("productId")
			e.Str(d.ProductID)
		}
		e.FieldStart("description")
		e.Str(d.Description)
		e.FieldStart("amount")
		e.Str(d.Amount.StringFixed(2))
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("subtotal")
	e.Str(rec.Subtotal().StringFixed(2))
	e.FieldStart("total")
	e.Str(rec.Total().StringFixed(2))
	if rec.TotalClamped() {
		e.FieldStart("totalClamped")
		e.Bool(true)
	}

	if res.Loyalty != nil {
		e.FieldStart("loyalty")
		e.ObjStart()
		e.FieldStart("customerId")
		e.Str(res.Loyalty.CustomerID)
		e.FieldStart("pointsEarned")
		e.Int64(res.Loyalty.PointsEarned)
		e.FieldStart("pointsRedeemed")
		e.Int64(res.Loyalty.PointsRedeemed)
		e.FieldStart("balance")
		e.Int64(res.Loyalty.Balance)
		e.ObjEnd()
	}

	if h.printer != nil {
		e.FieldStart("receipt")
		e.Str(h.printer.Print(rec))
	}
	e.ObjEnd()
}

func decodeCheckoutRequest(body []byte) (*checkoutRequest, error) {
	var req checkoutRequest
	d := jx.DecodeBytes(body)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				item, err := decodeCheckoutItem(d)
				if err != nil {
					return err
				}
				req.items = append(req.items, item)
				return nil
			})
		case "couponCode":
			v, err := d.Str()
			req.couponCode = v
			return err
		case "customerId":
			v, err := d.Str()
			req.customerID = v
			return err
		case "redeemPoints":
			v, err := d.Int64()
			req.redeemPoints = v
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "invalid request body")
	}
	return &req, nil
}

func decodeCheckoutItem(d *jx.Decoder) (checkoutItem, error) {
	var item checkoutItem
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "productId":
			v, err := d.Str()
			item.productID = v
			return err
		case "quantity":
			v, err := decodeDecimal(d)
			item.quantity = v
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return item, err
	}
	if item.quantity.IsZero() {
		item.quantity = decimal.NewFromInt(1)
	}
	return item, nil
}

// decodeDecimal accepts quantities as JSON numbers or numeric strings, so
// clients can send exact values like "1.5" without float round-tripping.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	default:
		return decimal.Zero, errors.New("quantity must be a number or numeric string")
	}
}
