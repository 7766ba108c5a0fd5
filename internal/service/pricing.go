package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/segyhp/movie-rental/internal/domain"
	"github.com/segyhp/movie-rental/internal/repository"
)

// Late fee policy names accepted in configuration
const (
	PolicyFlat   = "flat"
	PolicyPerDay = "per_day"
	PolicyTiered = "tiered"
)

// LateFeePolicy maps a number of days late to an additional charge.
type LateFeePolicy interface {
	LateFee(daysLate int) decimal.Decimal
}

// FlatFee charges Amount once for any late return.
type FlatFee struct {
	Amount decimal.Decimal
}

func (p FlatFee) LateFee(daysLate int) decimal.Decimal {
	if daysLate <= 0 {
		return decimal.Zero
	}
	return p.Amount
}

// PerDayFee charges Rate for each day late.
type PerDayFee struct {
	Rate decimal.Decimal
}

func (p PerDayFee) LateFee(daysLate int) decimal.Decimal {
	if daysLate <= 0 {
		return decimal.Zero
	}
	return p.Rate.Mul(decimal.NewFromInt(int64(daysLate)))
}

// TieredFee charges the matching rule's fee for every late day. No matching
// rule means no fee.
type TieredFee struct {
	Rules []*domain.LateFeeRule
}

func (p TieredFee) LateFee(daysLate int) decimal.Decimal {
	if daysLate <= 0 {
		return decimal.Zero
	}
	for _, rule := range p.Rules {
		if rule.Applies(daysLate) {
			return rule.FeePerDay.Mul(decimal.NewFromInt(int64(daysLate)))
		}
	}
	return decimal.Zero
}

// PolicyProvider resolves the late fee policy in force.
type PolicyProvider interface {
	Current(ctx context.Context) (LateFeePolicy, error)
}

// StaticPolicy always returns the same policy.
type StaticPolicy struct {
	Policy LateFeePolicy
}

func (p StaticPolicy) Current(context.Context) (LateFeePolicy, error) {
	return p.Policy, nil
}

// rulePolicy reads the tiered rules from the store on every call so edits apply immediately.
type rulePolicy struct {
	rules repository.LateFeeRepository
}

func (p *rulePolicy) Current(ctx context.Context) (LateFeePolicy, error) {
	rules, err := p.rules.List(ctx)
	if err != nil {
		return nil, err
	}
	return TieredFee{Rules: rules}, nil
}

// NewPolicyProvider builds the provider for a configured policy name.
func NewPolicyProvider(name string, amount decimal.Decimal, rules repository.LateFeeRepository) (PolicyProvider, error) {
	switch name {
	case PolicyFlat:
		return StaticPolicy{Policy: FlatFee{Amount: amount}}, nil
	case PolicyPerDay:
		return StaticPolicy{Policy: PerDayFee{Rate: amount}}, nil
	case PolicyTiered:
		if rules == nil {
			return nil, fmt.Errorf("tiered late fee policy needs a rule store")
		}
		return &rulePolicy{rules: rules}, nil
	default:
		return nil, fmt.Errorf("unknown late fee policy %q", name)
	}
}

// LateFeeFor is the fee owed for r: measured at the return date when returned,
// otherwise provisionally at now.
func LateFeeFor(r *domain.Rental, policy LateFeePolicy, now time.Time) decimal.Decimal {
	return policy.LateFee(r.DaysLate(now))
}

// ComputeTotalPrice is the movie's unit price plus the late fee. It never mutates r.
func ComputeTotalPrice(r *domain.Rental, movie *domain.Movie, policy LateFeePolicy, now time.Time) decimal.Decimal {
	return movie.UnitPrice.Add(LateFeeFor(r, policy, now))
}
