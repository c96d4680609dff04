package core

import "github.com/shopspring/decimal"

const (
	// DefaultApprovalThreshold is the absolute change that needs a manager ($100).
	DefaultApprovalThreshold Cents = 10000
	// DefaultApprovalPercent is the relative change that needs a manager.
	DefaultApprovalPercent = 10
)

// ApprovalPolicy decides whether an amendment must wait for manager approval.
// Either threshold alone is enough to require approval.
type ApprovalPolicy struct {
	ThresholdCents   Cents
	ThresholdPercent decimal.Decimal
}

// DefaultApprovalPolicy returns the $100 / 10% policy.
func DefaultApprovalPolicy() ApprovalPolicy {
	return ApprovalPolicy{
		ThresholdCents:   DefaultApprovalThreshold,
		ThresholdPercent: decimal.NewFromInt(DefaultApprovalPercent),
	}
}

// RequiresApproval applies the absolute-cents rule and, when the current total is
// positive, the percentage rule. With a zero base the percentage is undefined and
// only the absolute rule applies.
func (p ApprovalPolicy) RequiresApproval(difference, currentTotal Cents) bool {
	abs := difference.Abs()
	if abs > p.ThresholdCents {
		return true
	}
	if currentTotal <= 0 {
		return false
	}
	pct := decimal.NewFromInt(int64(abs)).
		Div(decimal.NewFromInt(int64(currentTotal))).
		Mul(decimal.NewFromInt(100))
	return pct.GreaterThan(p.ThresholdPercent)
}
