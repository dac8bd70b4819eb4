package offer

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestThreeForTwo(t *testing.T) {
	tests := []struct {
		name       string
		quantity   string
		unitPrice  string
		wantAmount string // empty means no discount
	}{
		{name: "one item below threshold", quantity: "1", unitPrice: "0.99"},
		{name: "two items below threshold", quantity: "2", unitPrice: "0.99"},
		{name: "exactly three", quantity: "3", unitPrice: "0.99", wantAmount: "-0.99"},
		{name: "four items one set plus remainder", quantity: "4", unitPrice: "0.99", wantAmount: "-0.99"},
		{name: "six items two sets", quantity: "6", unitPrice: "0.99", wantAmount: "-1.98"},
		{name: "seven items two sets plus remainder", quantity: "7", unitPrice: "2.00", wantAmount: "-4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := ThreeForTwo{}
			o := Offer{Kind: KindThreeForTwo, ProductID: "toothbrush"}

			got := calc.Calculate("toothbrush", d(tt.quantity), d(tt.unitPrice), o)

			if tt.wantAmount == "" {
				assert.False(t, calc.AppliesTo(d(tt.quantity), o))
				assert.Nil(t, got)
				return
			}

			require.NotNil(t, got)
			assert.Equal(t, "3 for 2", got.Description)
			assert.True(t, d(tt.wantAmount).Equal(got.Amount),
				"expected %s, got %s", tt.wantAmount, got.Amount)
		})
	}
}

// Every third item is free: discount for quantity q must equal
// -floor(q/3) * unitPrice across the whole range.
func TestThreeForTwo_FloorProperty(t *testing.T) {
	calc := ThreeForTwo{}
	unitPrice := d("1.50")
	o := Offer{Kind: KindThreeForTwo, ProductID: "p"}

	for q := int64(0); q <= 30; q++ {
		qty := decimal.NewFromInt(q)
		want := unitPrice.Mul(decimal.NewFromInt(q / 3)).Neg()

		got := calc.Calculate("p", qty, unitPrice, o)
		if q < 3 {
			assert.Nil(t, got, "quantity %d", q)
			continue
		}
		require.NotNil(t, got, "quantity %d", q)
		assert.True(t, want.Equal(got.Amount),
			"quantity %d: expected %s, got %s", q, want, got.Amount)
	}
}

func TestForAmount(t *testing.T) {
	tests := []struct {
		name       string
		size       int64
		quantity   string
		unitPrice  string
		special    string
		wantAmount string
		wantDesc   string
	}{
		{
			name: "one item below pair threshold",
			size: 2, quantity: "1", unitPrice: "0.69", special: "0.99",
		},
		{
			name: "exact pair",
			size: 2, quantity: "2", unitPrice: "0.69", special: "0.99",
			wantAmount: "-0.39", wantDesc: "2 for 0.99",
		},
		{
			// Two complete pairs at 3.00 against 4 x 1.79 undiscounted.
			name: "four items two pairs",
			size: 2, quantity: "4", unitPrice: "1.79", special: "3",
			wantAmount: "-1.16", wantDesc: "2 for 3",
		},
		{
			name: "three items one pair plus single",
			size: 2, quantity: "3", unitPrice: "1.00", special: "1.50",
			wantAmount: "-0.5", wantDesc: "2 for 1.5",
		},
		{
			name: "four items below five threshold",
			size: 5, quantity: "4", unitPrice: "1.79", special: "7.49",
		},
		{
			name: "exactly five",
			size: 5, quantity: "5", unitPrice: "1.79", special: "7.49",
			wantAmount: "-1.46", wantDesc: "5 for 7.49",
		},
		{
			name: "six items one set plus remainder",
			size: 5, quantity: "6", unitPrice: "1.79", special: "7.49",
			wantAmount: "-1.46", wantDesc: "5 for 7.49",
		},
		{
			name: "ten items two sets",
			size: 5, quantity: "10", unitPrice: "1.79", special: "7.49",
			wantAmount: "-2.92", wantDesc: "5 for 7.49",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := ForAmount{Size: tt.size}
			o := Offer{ProductID: "p", Argument: d(tt.special)}

			got := calc.Calculate("p", d(tt.quantity), d(tt.unitPrice), o)

			if tt.wantAmount == "" {
				assert.False(t, calc.AppliesTo(d(tt.quantity), o))
				assert.Nil(t, got)
				return
			}

			require.NotNil(t, got)
			assert.Equal(t, tt.wantDesc, got.Description)
			assert.True(t, d(tt.wantAmount).Equal(got.Amount),
				"expected %s, got %s", tt.wantAmount, got.Amount)
		})
	}
}

// Set counts must come from integer floor division over whole units.
// A historical defect used true division here, billing fractional sets.
func TestForAmount_FloorDivisionRegression(t *testing.T) {
	unitPrice := d("1.00")
	special := d("1.50")

	for _, size := range []int64{2, 5} {
		calc := ForAmount{Size: size}
		o := Offer{ProductID: "p", Argument: special}

		for q := size; q <= size*6+1; q++ {
			sets := q / size
			remainder := q % size
			want := special.Mul(decimal.NewFromInt(sets)).
				Add(unitPrice.Mul(decimal.NewFromInt(remainder))).
				Sub(unitPrice.Mul(decimal.NewFromInt(q)))

			got := calc.Calculate("p", decimal.NewFromInt(q), unitPrice, o)
			require.NotNil(t, got, "size %d quantity %d", size, q)
			assert.True(t, want.Equal(got.Amount),
				"size %d quantity %d: expected %s, got %s", size, q, want, got.Amount)
		}
	}
}

func TestPercentage(t *testing.T) {
	calc := Percentage{}

	t.Run("twenty percent off weighed product", func(t *testing.T) {
		o := Offer{Kind: KindPercentage, ProductID: "apples", Argument: d("20")}

		got := calc.Calculate("apples", d("1.5"), d("1.99"), o)
		require.NotNil(t, got)
		assert.Equal(t, "20% off", got.Description)
		assert.True(t, d("-0.597").Equal(got.Amount), "got %s", got.Amount)
	})

	t.Run("zero quantity does not apply", func(t *testing.T) {
		o := Offer{Kind: KindPercentage, ProductID: "p", Argument: d("10")}
		assert.Nil(t, calc.Calculate("p", decimal.Zero, d("1.00"), o))
	})

	t.Run("linear in quantity", func(t *testing.T) {
		o := Offer{Kind: KindPercentage, ProductID: "p", Argument: d("10")}
		unitPrice := d("2.35")

		for q := int64(1); q <= 10; q++ {
			single := calc.Calculate("p", decimal.NewFromInt(q), unitPrice, o)
			double := calc.Calculate("p", decimal.NewFromInt(2*q), unitPrice, o)
			require.NotNil(t, single)
			require.NotNil(t, double)
			assert.True(t, single.Amount.Mul(decimal.NewFromInt(2)).Equal(double.Amount),
				"quantity %d: 2*%s != %s", q, single.Amount, double.Amount)
		}
	})
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	for _, kind := range []Kind{KindThreeForTwo, KindPercentage, KindTwoForAmount, KindFiveForAmount} {
		t.Run(fmt.Sprintf("resolves %s", kind), func(t *testing.T) {
			c, err := r.Calculator(kind)
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}

	t.Run("unknown kind", func(t *testing.T) {
		_, err := r.Calculator(Kind("buy_one_get_one"))
		require.ErrorIs(t, err, ErrUnknownKind)
	})

	t.Run("register custom kind", func(t *testing.T) {
		r.Register(Kind("four_for_amount"), ForAmount{Size: 4})
		c, err := r.Calculator(Kind("four_for_amount"))
		require.NoError(t, err)
		assert.Equal(t, ForAmount{Size: 4}, c)
	})
}
