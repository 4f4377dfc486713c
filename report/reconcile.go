package report

import "github.com/shopspring/decimal"

// DerivedExpense computes the expense residual from the cash-flow identity
//
//	Cash = Sales + Topups + Expenses - Refunds
//
// The reporting source exposes no direct expense figure, so the residual is
// the only available measure. Negative residuals are measurement noise or a
// scope mismatch and clamp to zero; they are never surfaced as negative.
func DerivedExpense(cash, sales, topups, refunds decimal.Decimal) decimal.Decimal {
	expense := cash.Sub(sales).Sub(topups).Add(refunds)
	if expense.IsNegative() {
		return decimal.Zero
	}
	return expense
}
