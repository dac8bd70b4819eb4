// Package bundle detects complete product groups in a cart and prices a
// percentage discount for each complete instance.
package bundle

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xenking/market-teller/internal/offer"
)

var hundred = decimal.NewFromInt(100)

// Bundle names a set of products that, purchased together, earn a percentage
// discount on the combined unit prices. Each complete instance consumes one
// unit of every required product.
type Bundle struct {
	ID          string
	ProductIDs  []string
	Percent     decimal.Decimal
	Description string
}

// description falls back to "Bundle <id>" when none was configured.
func (b Bundle) description() string {
	if b.Description != "" {
		return b.Description
	}
	return fmt.Sprintf("Bundle %s", b.ID)
}

// Registry holds bundle definitions in registration order. Order matters:
// when bundles compete for the same units, earlier registrations win.
type Registry struct {
	bundles []Bundle
}

// NewRegistry creates an empty bundle registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a bundle definition.
func (r *Registry) Register(b Bundle) {
	r.bundles = append(r.bundles, b)
}

// Bundles returns the registered bundles in registration order.
func (r *Registry) Bundles() []Bundle {
	return r.bundles
}

// Compute evaluates every registered bundle against the cart quantities and
// returns one discount per bundle that completes at least once.
//
// Availability is tracked in whole units (weighed quantities are truncated)
// and decremented as bundles apply, so a unit consumed by an
// earlier-registered bundle cannot complete a later one.
func (r *Registry) Compute(quantities, unitPrices map[string]decimal.Decimal) []offer.Discount {
	available := make(map[string]int64, len(quantities))
	for id, qty := range quantities {
		available[id] = qty.IntPart()
	}

	var discounts []offer.Discount
	for _, b := range r.bundles {
		instances := completeInstances(b, available)
		if instances == 0 {
			continue
		}

		perInstance := decimal.Zero
		for _, id := range b.ProductIDs {
			perInstance = perInstance.Add(unitPrices[id])
		}

		amount := perInstance.
			Mul(b.Percent).Div(hundred).
			Mul(decimal.NewFromInt(instances)).
			Neg()

		for _, id := range b.ProductIDs {
			available[id] -= instances
		}

		discounts = append(discounts, offer.Discount{
			Description: fmt.Sprintf("%s (-%s%%)", b.description(), b.Percent),
			Amount:      amount,
		})
	}
	return discounts
}

// completeInstances returns how many full instances of the bundle the
// remaining availability supports: the minimum across required products.
func completeInstances(b Bundle, available map[string]int64) int64 {
	if len(b.ProductIDs) == 0 {
		return 0
	}
	instances := int64(-1)
	for _, id := range b.ProductIDs {
		n := available[id]
		if n <= 0 {
			return 0
		}
		if instances < 0 || n < instances {
			instances = n
		}
	}
	return instances
}
