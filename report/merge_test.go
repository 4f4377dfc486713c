package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/icafe"
)

func num(v int64) icafe.Number {
	return icafe.Number{Decimal: decimal.NewFromInt(v)}
}

func simpleReport(cash, sales, topups int64) *icafe.ReportData {
	return &icafe.ReportData{
		Report: icafe.ReportSummary{Cash: num(cash), Profit: num(cash / 2)},
		Sale:   icafe.SaleReport{Total: num(sales)},
		Topup:  icafe.TopupReport{Amount: num(topups), Number: num(3)},
	}
}

var feb9 = time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)

func TestMergeReportDataCommutative(t *testing.T) {
	r1 := simpleReport(5000, 3000, 1350)
	r1.Refund.Topup.Total = icafe.AmountNumber{Amount: num(100), Number: num(1)}
	r2 := simpleReport(8000, 4800, 2000)
	r2.Refund.Sale.Total = icafe.AmountNumber{Amount: num(200), Number: num(2)}
	r3 := simpleReport(7476, 5000, 2000)

	orders := [][]*icafe.ReportData{
		{r1, r2, r3},
		{r3, r1, r2},
		{r2, r3, r1},
	}

	var first *AggregatedReport
	for i, order := range orders {
		agg := NewZeroReport(feb9)
		for _, r := range order {
			mergeReportData(agg, r)
		}
		if first == nil {
			first = agg
			continue
		}
		if !agg.Cash.Equal(first.Cash) || !agg.Sale.Total.Equal(first.Sale.Total) ||
			!agg.Topup.Total.Amount.Equal(first.Topup.Total.Amount) ||
			!agg.RefundTotal().Equal(first.RefundTotal()) {
			t.Fatalf("order %d produced different totals", i)
		}
	}
	if !first.Cash.Equal(decimal.NewFromInt(20476)) {
		t.Errorf("cash = %s, want 20476", first.Cash)
	}
}

func TestMergeNilReportContributesZero(t *testing.T) {
	agg := NewZeroReport(feb9)
	mergeReportData(agg, simpleReport(5000, 3000, 1350))
	mergeReportData(agg, nil)

	if !agg.Cash.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("cash = %s, want 5000", agg.Cash)
	}
}

func TestRefundTotalUsesOnlyTotalBuckets(t *testing.T) {
	agg := NewZeroReport(feb9)
	r := simpleReport(1000, 500, 300)
	r.Refund.Topup.Total = icafe.AmountNumber{Amount: num(100), Number: num(1)}
	r.Refund.Topup.Cash = icafe.AmountNumber{Amount: num(60), Number: num(1)}
	r.Refund.Topup.Member = icafe.AmountNumber{Amount: num(40), Number: num(1)}
	r.Refund.Sale.Total = icafe.AmountNumber{Amount: num(200), Number: num(2)}
	mergeReportData(agg, r)

	if !agg.RefundTotal().Equal(decimal.NewFromInt(300)) {
		t.Fatalf("refund total = %s, want 300 (sub-method buckets must not double count)", agg.RefundTotal())
	}
}

func TestMergeTopEntries(t *testing.T) {
	a := []TopEntry{
		{Name: "m1", Amount: decimal.NewFromInt(100)},
		{Name: "m2", Amount: decimal.NewFromInt(90)},
		{Name: "m3", Amount: decimal.NewFromInt(80)},
	}
	b := []TopEntry{
		{Name: "m2", Amount: decimal.NewFromInt(50)},
		{Name: "m4", Amount: decimal.NewFromInt(70)},
		{Name: "m5", Amount: decimal.NewFromInt(60)},
		{Name: "m6", Amount: decimal.NewFromInt(5)},
	}

	merged := mergeTopEntries(a, b)
	if len(merged) != 5 {
		t.Fatalf("len = %d, want 5", len(merged))
	}
	if merged[0].Name != "m2" || !merged[0].Amount.Equal(decimal.NewFromInt(140)) {
		t.Errorf("top entry = %+v, want m2/140", merged[0])
	}
	for i := 1; i < len(merged); i++ {
		if merged[i].Amount.GreaterThan(merged[i-1].Amount) {
			t.Errorf("entries not sorted descending at %d", i)
		}
	}
	for _, e := range merged {
		if e.Name == "m6" {
			t.Error("m6 should have been truncated out")
		}
	}
}

func TestMergeProductLines(t *testing.T) {
	a := []ProductLine{
		{Name: "Coke", Quantity: decimal.NewFromInt(3), Total: decimal.NewFromInt(150)},
		{Name: "Chips", Quantity: decimal.NewFromInt(2), Total: decimal.NewFromInt(100)},
	}
	b := []ProductLine{
		{Name: "Coke", Quantity: decimal.NewFromInt(1), Total: decimal.NewFromInt(50), Refunded: decimal.NewFromInt(1)},
	}

	merged := mergeProductLines(a, b)
	if len(merged) != 2 {
		t.Fatalf("len = %d, want 2", len(merged))
	}
	if merged[0].Name != "Coke" {
		t.Fatalf("first line = %q, want Coke (insertion order)", merged[0].Name)
	}
	if !merged[0].Quantity.Equal(decimal.NewFromInt(4)) || !merged[0].Total.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Coke line = %+v", merged[0])
	}
	if !merged[0].Refunded.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Coke refunded = %s, want 1", merged[0].Refunded)
	}
}

func TestDerivedExpense(t *testing.T) {
	d := func(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

	if got := DerivedExpense(d(5000), d(3000), d(1350), d(0)); !got.Equal(d(650)) {
		t.Errorf("expense = %s, want 650", got)
	}
	if got := DerivedExpense(d(1000), d(800), d(100), d(50)); !got.Equal(d(150)) {
		t.Errorf("expense with refunds = %s, want 150", got)
	}
	if got := DerivedExpense(d(100), d(200), d(0), d(0)); !got.Equal(decimal.Zero) {
		t.Errorf("negative residual = %s, want clamp to 0", got)
	}
}
