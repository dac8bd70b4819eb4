package checkout

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/xenking/market-teller/internal/catalog"
)

// DefaultColumns is the receipt width used when none is configured.
const DefaultColumns = 40

// Printer renders receipts as fixed-width text. Money is shown with two
// decimals, weighed quantities with three.
type Printer struct {
	columns int
}

// NewPrinter creates a Printer with the given column width; zero or
// negative widths fall back to DefaultColumns.
func NewPrinter(columns int) *Printer {
	if columns <= 0 {
		columns = DefaultColumns
	}
	return &Printer{columns: columns}
}

// Print renders the receipt: one block per item, one line per discount, a
// blank separator, and the right-aligned grand total.
func (p *Printer) Print(r *Receipt) string {
	var b strings.Builder

	for _, item := range r.Items {
		b.WriteString(p.line(item.Product.Name, item.Total.StringFixed(2)))
		if !item.Quantity.Equal(decimal.NewFromInt(1)) {
			b.WriteString("  ")
			b.WriteString(item.Price.StringFixed(2))
			b.WriteString(" * ")
			b.WriteString(formatQuantity(item.Product.Unit, item.Quantity))
			b.WriteString("\n")
		}
	}

	for _, d := range r.Discounts {
		name := d.Description
		if d.ProductID != "" {
			name += "(" + d.ProductID + ")"
		}
		b.WriteString(p.line(name, d.Amount.StringFixed(2)))
	}

	b.WriteString("\n")
	b.WriteString(p.line("Total: ", r.Total().StringFixed(2)))

	return b.String()
}

// line lays out a name on the left and a value on the right, padded to the
// configured width. Names too long to fit keep a single separating space.
func (p *Printer) line(name, value string) string {
	pad := p.columns - utf8.RuneCountInString(name) - utf8.RuneCountInString(value)
	if pad < 1 {
		pad = 1
	}
	return name + strings.Repeat(" ", pad) + value + "\n"
}

// formatQuantity renders discrete quantities as integers and weighed ones
// with three decimal places.
func formatQuantity(unit catalog.Unit, quantity decimal.Decimal) string {
	if unit == catalog.UnitEach {
		return quantity.StringFixed(0)
	}
	return quantity.StringFixed(3)
}
