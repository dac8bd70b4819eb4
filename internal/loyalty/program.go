package loyalty

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/market-teller/internal/offer"
)

// Program converts purchases into points and points into discounts.
// Mutations are serialized per customer, never globally, so independent
// customers do not contend.
type Program struct {
	repo       Repository
	earnRate   decimal.Decimal // points per currency unit
	redeemRate decimal.Decimal // currency value per point
	now        func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewProgram creates a Program with the given earn and redemption rates.
func NewProgram(repo Repository, earnRate, redeemRate decimal.Decimal) *Program {
	return &Program{
		repo:       repo,
		earnRate:   earnRate,
		redeemRate: redeemRate,
		now:        time.Now,
		locks:      make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex guarding a single customer's account.
func (p *Program) lockFor(customerID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[customerID]
	if !ok {
		l = &sync.Mutex{}
		p.locks[customerID] = l
	}
	return l
}

// Account returns the customer's account, creating it on first reference.
func (p *Program) Account(ctx context.Context, customerID string) (*Account, error) {
	l := p.lockFor(customerID)
	l.Lock()
	defer l.Unlock()
	return p.account(ctx, customerID)
}

// account is Account without locking; callers hold the customer lock.
func (p *Program) account(ctx context.Context, customerID string) (*Account, error) {
	acct, err := p.repo.FindByCustomer(ctx, customerID)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, errors.Wrap(err, "find account")
	}

	acct, err = p.repo.Create(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "create account")
	}
	return acct, nil
}

// PointsEarned returns how many points a purchase total yields:
// floor(total x earn rate), never negative.
func (p *Program) PointsEarned(total decimal.Decimal) int64 {
	points := total.Mul(p.earnRate).IntPart()
	if points < 0 {
		return 0
	}
	return points
}

// RedemptionValue returns the monetary value of the given points.
func (p *Program) RedemptionValue(points int64) decimal.Decimal {
	return p.redeemRate.Mul(decimal.NewFromInt(points))
}

// Earn credits points for a purchase total and records an earn transaction.
// It returns the number of points credited.
func (p *Program) Earn(ctx context.Context, customerID string, total decimal.Decimal) (int64, error) {
	points := p.PointsEarned(total)
	if points == 0 {
		return 0, nil
	}

	l := p.lockFor(customerID)
	l.Lock()
	defer l.Unlock()

	if _, err := p.account(ctx, customerID); err != nil {
		return 0, err
	}
	if err := p.repo.AdjustBalance(ctx, customerID, points); err != nil {
		return 0, errors.Wrap(err, "credit points")
	}
	err := p.repo.AddTransaction(ctx, Transaction{
		ID:         uuid.New().String(),
		CustomerID: customerID,
		Type:       TransactionEarn,
		Points:     points,
		At:         p.now(),
	})
	if err != nil {
		return 0, errors.Wrap(err, "record earn")
	}
	return points, nil
}

// Redeem debits points from the account and returns the corresponding
// monetary discount. It fails with ErrInsufficientBalance when the account
// holds fewer points than requested.
func (p *Program) Redeem(ctx context.Context, customerID string, points int64) (*offer.Discount, error) {
	if points <= 0 {
		return nil, errors.Errorf("redeem points must be positive, got %d", points)
	}

	l := p.lockFor(customerID)
	l.Lock()
	defer l.Unlock()

	acct, err := p.account(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if acct.Balance < points {
		return nil, ErrInsufficientBalance
	}

	if err := p.repo.AdjustBalance(ctx, customerID, -points); err != nil {
		return nil, errors.Wrap(err, "debit points")
	}
	err = p.repo.AddTransaction(ctx, Transaction{
		ID:         uuid.New().String(),
		CustomerID: customerID,
		Type:       TransactionRedeem,
		Points:     points,
		At:         p.now(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "record redeem")
	}

	return &offer.Discount{
		Description: fmt.Sprintf("Loyalty points (%d pts)", points),
		Amount:      p.RedemptionValue(points).Neg(),
	}, nil
}

// CanRedeem reports whether the account holds at least the given points.
// A missing account simply cannot redeem; no account is created.
func (p *Program) CanRedeem(ctx context.Context, customerID string, points int64) (bool, error) {
	acct, err := p.repo.FindByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return false, nil
		}
		return false, errors.Wrap(err, "find account")
	}
	return acct.Balance >= points, nil
}
