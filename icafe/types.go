package icafe

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Number is a money/count field as iCafeCloud returns it: sometimes a JSON
// number, sometimes a quoted string, sometimes null or missing entirely.
// Anything unparseable decodes to zero so merge logic downstream never sees
// a "maybe missing, maybe string" value.
type Number struct {
	decimal.Decimal
}

func (n *Number) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	s = strings.Trim(s, `"`)
	if s == "" || s == "null" || s == "-" {
		n.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		n.Decimal = decimal.Zero
		return nil
	}
	n.Decimal = d
	return nil
}

// OpenEndSentinel marks a shift that has not been closed out yet.
const OpenEndSentinel = "-"

// AllShiftsPseudoStaff is the synthetic "sum of all shifts" row the shift
// list includes; it is never a real shift.
const AllShiftsPseudoStaff = "All Shifts"

const shiftTimeLayout = "2006-01-02 15:04:05"

// Shift is one row of the shift list report.
type Shift struct {
	ShiftID        string `json:"shift_id"`
	ShiftStaffName string `json:"shift_staff_name"`
	ShiftStartTime string `json:"shift_start_time"`
	ShiftEndTime   string `json:"shift_end_time"`
	LogType        string `json:"log_type"`
}

// Open reports whether the shift is still running.
func (s Shift) Open() bool {
	end := strings.TrimSpace(s.ShiftEndTime)
	return end == "" || end == OpenEndSentinel
}

// StartTime parses the shift start; ok is false when the value is absent or
// malformed.
func (s Shift) StartTime() (time.Time, bool) {
	return parseShiftTime(s.ShiftStartTime)
}

// EndTime parses the shift end; ok is false for open shifts.
func (s Shift) EndTime() (time.Time, bool) {
	if s.Open() {
		return time.Time{}, false
	}
	return parseShiftTime(s.ShiftEndTime)
}

func parseShiftTime(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" || v == OpenEndSentinel {
		return time.Time{}, false
	}
	v = strings.Replace(v, "T", " ", 1)
	if t, err := time.Parse(shiftTimeLayout, v); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02 15:04", v); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// AmountNumber is the {amount, number} pair used across topup and refund
// buckets.
type AmountNumber struct {
	Amount Number `json:"amount"`
	Number Number `json:"number"`
}

// NumberTotal is the {number, total} pair used across sale buckets.
type NumberTotal struct {
	Number Number `json:"number"`
	Total  Number `json:"total"`
}

type ReportSummary struct {
	Cash   Number `json:"cash"`
	Profit Number `json:"profit"`
}

type SaleReport struct {
	Total       Number      `json:"total"`
	Product     NumberTotal `json:"product"`
	Cash        NumberTotal `json:"cash"`
	ByBalance   NumberTotal `json:"by_balance"`
	CreditCard  NumberTotal `json:"credit_card"`
	OfferMember NumberTotal `json:"offer_member"`
	Coin        NumberTotal `json:"coin"`
}

type TopupReport struct {
	Amount     Number       `json:"amount"`
	Number     Number       `json:"number"`
	Member     AmountNumber `json:"member"`
	Cash       AmountNumber `json:"cash"`
	CreditCard AmountNumber `json:"credit_card"`
	QR         AmountNumber `json:"qr"`
}

type TopupRefund struct {
	Total      AmountNumber `json:"total"`
	Member     AmountNumber `json:"member"`
	Cash       AmountNumber `json:"cash"`
	CreditCard AmountNumber `json:"credit_card"`
	Prepaid    AmountNumber `json:"prepaid"`
	Bonus      AmountNumber `json:"bonus"`
}

type SaleRefund struct {
	Total AmountNumber `json:"total"`
}

type RefundReport struct {
	Topup TopupRefund `json:"topup"`
	Sale  SaleRefund  `json:"sale"`
}

type ProductSalesItem struct {
	ProductName   string `json:"product_name"`
	OrderNumber   Number `json:"order_number"`
	OrderTotal    Number `json:"order_total"`
	OrderRefunded Number `json:"order_refunded"`
}

type TopMemberTopup struct {
	Member string `json:"member"`
	Amount Number `json:"amount"`
}

type TopPCSpend struct {
	PCName     string `json:"pc_name"`
	TotalSpend Number `json:"total_spend"`
}

// ReportData is the reportData payload for one query range.
type ReportData struct {
	Report             ReportSummary      `json:"report"`
	Sale               SaleReport         `json:"sale"`
	Topup              TopupReport        `json:"topup"`
	Refund             RefundReport       `json:"refund"`
	ProductSalesItems  []ProductSalesItem `json:"product_sales_items"`
	TopFiveMemberTopup []TopMemberTopup   `json:"top_five_members_topup"`
	TopFivePCSpend     []TopPCSpend       `json:"top_five_pc_spend"`
}

// ExpenseLogItem is one staff-logged center expense during a shift.
type ExpenseLogItem struct {
	LogMoney   Number `json:"log_money"`
	LogDetails string `json:"log_details"`
}

type ShopSale struct {
	ProductName string `json:"product_name"`
	Sold        Number `json:"sold"`
	Cash        Number `json:"cash"`
}

// ShiftDetail is the per-shift detail payload: staff-logged expenses plus
// the shop sales recorded during the shift.
type ShiftDetail struct {
	CenterExpenses      Number           `json:"center_expenses"`
	CenterExpensesItems []ExpenseLogItem `json:"center_expenses_items"`
	ShopSales           []ShopSale       `json:"shop_sales"`
}
