package report

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/businessday"
)

// Bucket is an amount plus a transaction count for one payment method or
// refund category.
type Bucket struct {
	Amount decimal.Decimal `json:"amount"`
	Count  decimal.Decimal `json:"count"`
}

func (b Bucket) add(o Bucket) Bucket {
	return Bucket{Amount: b.Amount.Add(o.Amount), Count: b.Count.Add(o.Count)}
}

// SaleTotals breaks sales down by payment method.
type SaleTotals struct {
	Total       decimal.Decimal `json:"total"`
	Product     Bucket          `json:"product"`
	Cash        Bucket          `json:"cash"`
	ByBalance   Bucket          `json:"by_balance"`
	CreditCard  Bucket          `json:"credit_card"`
	OfferMember Bucket          `json:"offer_member"`
	Coin        Bucket          `json:"coin"`
}

// TopupTotals breaks member top-ups down by payment method.
type TopupTotals struct {
	Total      Bucket `json:"total"`
	Member     Bucket `json:"member"`
	Cash       Bucket `json:"cash"`
	CreditCard Bucket `json:"credit_card"`
	QR         Bucket `json:"qr"`
}

// TopupRefundTotals carries the per-method refund buckets alongside the
// already-inclusive Total; only Total feeds the combined refund figure.
type TopupRefundTotals struct {
	Total      Bucket `json:"total"`
	Member     Bucket `json:"member"`
	Cash       Bucket `json:"cash"`
	CreditCard Bucket `json:"credit_card"`
	Prepaid    Bucket `json:"prepaid"`
	Bonus      Bucket `json:"bonus"`
}

type RefundTotals struct {
	Topup TopupRefundTotals `json:"topup"`
	Sale  struct {
		Total Bucket `json:"total"`
	} `json:"sale"`
}

// TopEntry is one row of a top-5 leaderboard (member by top-up, PC by spend).
type TopEntry struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// ProductLine is a merged product sales line across all shifts in a window.
type ProductLine struct {
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
	Refunded decimal.Decimal `json:"refunded"`
}

// ExpenseItem is one staff-logged expense, kept individually so downstream
// consumers get the per-staff breakdown.
type ExpenseItem struct {
	Amount  decimal.Decimal `json:"amount"`
	Details string          `json:"details"`
	Staff   string          `json:"staff"`
	ShiftID string          `json:"shiftId"`
}

// ShiftBreakdown is one shift's contribution to the day.
type ShiftBreakdown struct {
	StaffName string                 `json:"staffName"`
	ShiftType businessday.ShiftType  `json:"shiftType"`
	StartTime string                 `json:"startTime"`
	EndTime   string                 `json:"endTime"`
	Cash      decimal.Decimal        `json:"cash"`
	Sales     decimal.Decimal        `json:"sales"`
	Topups    decimal.Decimal        `json:"topups"`
	Refunds   decimal.Decimal        `json:"refunds"`
	Profit    decimal.Decimal        `json:"profit"`
	Expense   decimal.Decimal        `json:"expense"`
}

// AggregatedReport is the merged financial picture of one business day.
// A day with no shifts is a fully-shaped zero report, never nil.
type AggregatedReport struct {
	BusinessDate time.Time        `json:"businessDate"`
	Cash         decimal.Decimal  `json:"cash"`
	Profit       decimal.Decimal  `json:"profit"`
	Sale         SaleTotals       `json:"sale"`
	Topup        TopupTotals      `json:"topup"`
	Refund       RefundTotals     `json:"refund"`
	TopMembers   []TopEntry       `json:"topMembers"`
	TopPCs       []TopEntry       `json:"topPCs"`
	Products     []ProductLine    `json:"products"`
	Expenses     []ExpenseItem    `json:"expenseItems"`
	ExpenseTotal decimal.Decimal  `json:"expenseTotal"`
	Shifts       []ShiftBreakdown `json:"shifts"`
	ShiftCount   int              `json:"shiftCount"`
}

// RefundTotal is the combined refund figure: the "total" bucket of each
// refund category only. Adding the per-method buckets on top would double
// count, because Total already includes them.
func (r *AggregatedReport) RefundTotal() decimal.Decimal {
	return r.Refund.Topup.Total.Amount.Add(r.Refund.Sale.Total.Amount)
}

// Revenue is the amount credited on the ledger side: sales plus top-ups.
func (r *AggregatedReport) Revenue() decimal.Decimal {
	return r.Sale.Total.Add(r.Topup.Total.Amount)
}

// NewZeroReport returns the explicit zero-valued report shape for a window
// with no shifts.
func NewZeroReport(businessDate time.Time) *AggregatedReport {
	return &AggregatedReport{
		BusinessDate: businessDate,
		TopMembers:   []TopEntry{},
		TopPCs:       []TopEntry{},
		Products:     []ProductLine{},
		Expenses:     []ExpenseItem{},
		Shifts:       []ShiftBreakdown{},
	}
}
