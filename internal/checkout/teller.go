package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/market-teller/internal/bundle"
	"github.com/xenking/market-teller/internal/cart"
	"github.com/xenking/market-teller/internal/catalog"
	"github.com/xenking/market-teller/internal/coupon"
	"github.com/xenking/market-teller/internal/loyalty"
	"github.com/xenking/market-teller/internal/offer"
)

// ProductNotFoundError indicates a cart line references an unknown product.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a negative quantity, or a fractional
// quantity on a product sold per item.
type InvalidQuantityError struct {
	ProductID string
	Quantity  decimal.Decimal
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %s for product %s", e.Quantity, e.ProductID)
}

// Options selects the optional discount layers for a single checkout.
// Zero values leave coupon and loyalty state untouched.
type Options struct {
	// CouponCode, when non-empty, is validated and redeemed against the
	// subtotal after offers and bundles.
	CouponCode string
	// CustomerID, when non-empty, enables loyalty processing: points are
	// earned on the final total, and RedeemPoints may be spent.
	CustomerID string
	// RedeemPoints requests spending that many points as a discount.
	RedeemPoints int64
}

// Summary reports the loyalty movements of one checkout.
type Summary struct {
	CustomerID     string
	PointsEarned   int64
	PointsRedeemed int64
	Balance        int64
}

// Result is the uniform checkout outcome: the receipt, plus loyalty detail
// when a customer was identified. Callers that ignore loyalty ignore the nil.
type Result struct {
	Receipt *Receipt
	Loyalty *Summary
}

// Teller prices carts. It composes the catalog, per-product offers, bundle
// definitions, and the optional coupon and loyalty engines into receipts.
type Teller struct {
	catalog     catalog.Repository
	calculators *offer.Registry
	offers      map[string]offer.Offer
	bundles     *bundle.Registry
	coupons     *coupon.Validator
	loyalty     *loyalty.Program
	receipts    Repository
	now         func() time.Time
}

// NewTeller creates a Teller. The coupon validator, loyalty program, and
// receipt repository may be nil; checkouts then simply skip those layers.
func NewTeller(
	cat catalog.Repository,
	coupons *coupon.Validator,
	program *loyalty.Program,
	receipts Repository,
) *Teller {
	return &Teller{
		catalog:     cat,
		calculators: offer.NewRegistry(),
		offers:      make(map[string]offer.Offer),
		bundles:     bundle.NewRegistry(),
		coupons:     coupons,
		loyalty:     program,
		receipts:    receipts,
		now:         time.Now,
	}
}

// AddOffer attaches an offer to a product. A product carries at most one
// offer; registering another replaces the previous one.
func (t *Teller) AddOffer(kind offer.Kind, productID string, argument decimal.Decimal) {
	t.offers[productID] = offer.Offer{Kind: kind, ProductID: productID, Argument: argument}
}

// RegisterBundle adds a bundle definition. Registration order decides which
// bundle wins contested units.
func (t *Teller) RegisterBundle(b bundle.Bundle) {
	t.bundles.Register(b)
}

// Checkout prices the cart through the fixed discount pipeline: catalog
// prices, per-product offers, bundles, coupon, loyalty redemption, loyalty
// earning. Validation failures return an error before any coupon or loyalty
// state is mutated.
func (t *Teller) Checkout(ctx context.Context, c *cart.Cart, opts Options) (*Result, error) {
	lines := c.Lines()

	products, err := t.resolveProducts(ctx, lines)
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{
		ID:        uuid.New().String(),
		CreatedAt: t.now(),
	}
	for _, line := range lines {
		p := products[line.ProductID]
		receipt.addItem(p, line.Quantity, p.Price)
	}

	quantities := c.Quantities()
	if err := t.applyOffers(receipt, lines, quantities, products); err != nil {
		return nil, err
	}
	t.applyBundles(receipt, quantities, products)

	subtotal := receipt.Subtotal().Add(receipt.DiscountTotal())

	// Validate the coupon before mutating anything.
	var validCoupon *coupon.Coupon
	if opts.CouponCode != "" {
		if t.coupons == nil {
			return nil, coupon.ErrNotFound
		}
		validCoupon, err = t.coupons.Validate(ctx, opts.CouponCode, subtotal)
		if err != nil {
			return nil, errors.Wrap(err, "validate coupon")
		}
	}

	// Consume the coupon use before touching the loyalty balance: if a
	// concurrent checkout exhausted the coupon since validation, the error
	// surfaces here with no points debited yet.
	if validCoupon != nil {
		receipt.addDiscount(coupon.Apply(validCoupon, subtotal))
		if err := t.coupons.Redeem(ctx, opts.CouponCode); err != nil {
			return nil, errors.Wrap(err, "redeem coupon")
		}
	}

	// Redeem points against the balance as it stood before this checkout,
	// so points earned below can never fund the redemption.
	var summary *Summary
	if opts.CustomerID != "" && t.loyalty != nil {
		summary = &Summary{CustomerID: opts.CustomerID}
		if opts.RedeemPoints > 0 {
			redemption, err := t.loyalty.Redeem(ctx, opts.CustomerID, opts.RedeemPoints)
			if err != nil {
				return nil, errors.Wrap(err, "redeem points")
			}
			receipt.addDiscount(*redemption)
			summary.PointsRedeemed = opts.RedeemPoints
		}
	}

	if summary != nil {
		earned, err := t.loyalty.Earn(ctx, opts.CustomerID, receipt.Total())
		if err != nil {
			return nil, errors.Wrap(err, "earn points")
		}
		summary.PointsEarned = earned

		acct, err := t.loyalty.Account(ctx, opts.CustomerID)
		if err != nil {
			return nil, errors.Wrap(err, "load account")
		}
		summary.Balance = acct.Balance
	}

	if t.receipts != nil {
		if err := t.receipts.Save(ctx, receipt); err != nil {
			return nil, errors.Wrap(err, "save receipt")
		}
	}

	return &Result{Receipt: receipt, Loyalty: summary}, nil
}

// resolveProducts batch-fetches every product referenced by the cart and
// validates line quantities against the product's unit kind.
func (t *Teller) resolveProducts(ctx context.Context, lines []cart.Line) (map[string]catalog.Product, error) {
	ids := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}

	fetched, err := t.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	products := make(map[string]catalog.Product, len(fetched))
	for _, p := range fetched {
		products[p.ID] = p
	}

	for _, line := range lines {
		p, ok := products[line.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: line.ProductID}
		}
		if line.Quantity.IsNegative() {
			return nil, &InvalidQuantityError{ProductID: line.ProductID, Quantity: line.Quantity}
		}
		if p.Unit == catalog.UnitEach && !line.Quantity.IsInteger() {
			return nil, &InvalidQuantityError{ProductID: line.ProductID, Quantity: line.Quantity}
		}
	}
	return products, nil
}

// applyOffers runs the matching calculator for every product that has both
// cart quantity and a registered offer, in first-appearance order.
func (t *Teller) applyOffers(
	receipt *Receipt,
	lines []cart.Line,
	quantities map[string]decimal.Decimal,
	products map[string]catalog.Product,
) error {
	applied := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := applied[line.ProductID]; ok {
			continue
		}
		applied[line.ProductID] = struct{}{}

		o, ok := t.offers[line.ProductID]
		if !ok {
			continue
		}
		calc, err := t.calculators.Calculator(o.Kind)
		if err != nil {
			return err
		}

		p := products[line.ProductID]
		if d := calc.Calculate(p.ID, quantities[p.ID], p.Price, o); d != nil {
			receipt.addDiscount(*d)
		}
	}
	return nil
}

// applyBundles appends bundle discounts computed over aggregate quantities.
func (t *Teller) applyBundles(
	receipt *Receipt,
	quantities map[string]decimal.Decimal,
	products map[string]catalog.Product,
) {
	prices := make(map[string]decimal.Decimal, len(products))
	for id, p := range products {
		prices[id] = p.Price
	}
	for _, d := range t.bundles.Compute(quantities, prices) {
		receipt.addDiscount(d)
	}
}
