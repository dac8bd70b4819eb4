package offer

import "github.com/go-faster/errors"

// Registry maps offer kinds to their calculator implementations. The zero
// value is unusable; create one with NewRegistry.
type Registry struct {
	calculators map[Kind]Calculator
}

// NewRegistry returns a Registry preloaded with the built-in calculators.
func NewRegistry() *Registry {
	return &Registry{
		calculators: map[Kind]Calculator{
			KindThreeForTwo:   ThreeForTwo{},
			KindPercentage:    Percentage{},
			KindTwoForAmount:  ForAmount{Size: 2},
			KindFiveForAmount: ForAmount{Size: 5},
		},
	}
}

// Register adds or replaces the calculator for a kind.
func (r *Registry) Register(kind Kind, c Calculator) {
	r.calculators[kind] = c
}

// Calculator resolves the calculator for a kind. It returns ErrUnknownKind
// when the kind has no registered calculator.
func (r *Registry) Calculator(kind Kind) (Calculator, error) {
	c, ok := r.calculators[kind]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownKind, "kind %q", kind)
	}
	return c, nil
}

// Kinds lists all registered offer kinds.
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.calculators))
	for k := range r.calculators {
		kinds = append(kinds, k)
	}
	return kinds
}
