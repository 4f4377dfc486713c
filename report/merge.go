package report

import (
	"sort"

	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/icafe"
)

// mergeReportData folds one shift-scoped report into the aggregate. All
// scalar fields are plain decimal additions, so merging is commutative and
// associative: the order shifts arrive in never changes the totals.
func mergeReportData(agg *AggregatedReport, r *icafe.ReportData) {
	if r == nil {
		return
	}

	agg.Cash = agg.Cash.Add(r.Report.Cash.Decimal)
	agg.Profit = agg.Profit.Add(r.Report.Profit.Decimal)

	agg.Sale.Total = agg.Sale.Total.Add(r.Sale.Total.Decimal)
	agg.Sale.Product = agg.Sale.Product.add(bucketNT(r.Sale.Product))
	agg.Sale.Cash = agg.Sale.Cash.add(bucketNT(r.Sale.Cash))
	agg.Sale.ByBalance = agg.Sale.ByBalance.add(bucketNT(r.Sale.ByBalance))
	agg.Sale.CreditCard = agg.Sale.CreditCard.add(bucketNT(r.Sale.CreditCard))
	agg.Sale.OfferMember = agg.Sale.OfferMember.add(bucketNT(r.Sale.OfferMember))
	agg.Sale.Coin = agg.Sale.Coin.add(bucketNT(r.Sale.Coin))

	agg.Topup.Total = agg.Topup.Total.add(Bucket{Amount: r.Topup.Amount.Decimal, Count: r.Topup.Number.Decimal})
	agg.Topup.Member = agg.Topup.Member.add(bucketAN(r.Topup.Member))
	agg.Topup.Cash = agg.Topup.Cash.add(bucketAN(r.Topup.Cash))
	agg.Topup.CreditCard = agg.Topup.CreditCard.add(bucketAN(r.Topup.CreditCard))
	agg.Topup.QR = agg.Topup.QR.add(bucketAN(r.Topup.QR))

	agg.Refund.Topup.Total = agg.Refund.Topup.Total.add(bucketAN(r.Refund.Topup.Total))
	agg.Refund.Topup.Member = agg.Refund.Topup.Member.add(bucketAN(r.Refund.Topup.Member))
	agg.Refund.Topup.Cash = agg.Refund.Topup.Cash.add(bucketAN(r.Refund.Topup.Cash))
	agg.Refund.Topup.CreditCard = agg.Refund.Topup.CreditCard.add(bucketAN(r.Refund.Topup.CreditCard))
	agg.Refund.Topup.Prepaid = agg.Refund.Topup.Prepaid.add(bucketAN(r.Refund.Topup.Prepaid))
	agg.Refund.Topup.Bonus = agg.Refund.Topup.Bonus.add(bucketAN(r.Refund.Topup.Bonus))
	agg.Refund.Sale.Total = agg.Refund.Sale.Total.add(bucketAN(r.Refund.Sale.Total))
}

func bucketNT(v icafe.NumberTotal) Bucket {
	return Bucket{Amount: v.Total.Decimal, Count: v.Number.Decimal}
}

func bucketAN(v icafe.AmountNumber) Bucket {
	return Bucket{Amount: v.Amount.Decimal, Count: v.Number.Decimal}
}

// mergeTopEntries combines leaderboards by identity key, summing amounts,
// then re-sorts descending and truncates to the top five. Ties keep a
// stable name order so the result is deterministic.
func mergeTopEntries(lists ...[]TopEntry) []TopEntry {
	byName := make(map[string]TopEntry)
	for _, list := range lists {
		for _, e := range list {
			name := e.Name
			if name == "" {
				name = "unknown"
			}
			cur, ok := byName[name]
			if !ok {
				cur = TopEntry{Name: name}
			}
			cur.Amount = cur.Amount.Add(e.Amount)
			byName[name] = cur
		}
	}
	merged := make([]TopEntry, 0, len(byName))
	for _, e := range byName {
		merged = append(merged, e)
	}
	sort.Slice(merged, func(i, j int) bool {
		if !merged[i].Amount.Equal(merged[j].Amount) {
			return merged[i].Amount.GreaterThan(merged[j].Amount)
		}
		return merged[i].Name < merged[j].Name
	})
	if len(merged) > 5 {
		merged = merged[:5]
	}
	return merged
}

// mergeProductLines combines product sales by product name, summing
// quantity, revenue and refunded count.
func mergeProductLines(lists ...[]ProductLine) []ProductLine {
	byName := make(map[string]ProductLine)
	order := make([]string, 0)
	for _, list := range lists {
		for _, p := range list {
			name := p.Name
			if name == "" {
				name = "Unknown"
			}
			cur, ok := byName[name]
			if !ok {
				cur = ProductLine{Name: name}
				order = append(order, name)
			}
			cur.Quantity = cur.Quantity.Add(p.Quantity)
			cur.Total = cur.Total.Add(p.Total)
			cur.Refunded = cur.Refunded.Add(p.Refunded)
			byName[name] = cur
		}
	}
	merged := make([]ProductLine, 0, len(order))
	for _, name := range order {
		merged = append(merged, byName[name])
	}
	return merged
}

func topMembersOf(r *icafe.ReportData) []TopEntry {
	if r == nil {
		return nil
	}
	out := make([]TopEntry, 0, len(r.TopFiveMemberTopup))
	for _, m := range r.TopFiveMemberTopup {
		out = append(out, TopEntry{Name: m.Member, Amount: m.Amount.Decimal})
	}
	return out
}

func topPCsOf(r *icafe.ReportData) []TopEntry {
	if r == nil {
		return nil
	}
	out := make([]TopEntry, 0, len(r.TopFivePCSpend))
	for _, pc := range r.TopFivePCSpend {
		out = append(out, TopEntry{Name: pc.PCName, Amount: pc.TotalSpend.Decimal})
	}
	return out
}

func productLinesOf(r *icafe.ReportData) []ProductLine {
	if r == nil {
		return nil
	}
	out := make([]ProductLine, 0, len(r.ProductSalesItems))
	for _, item := range r.ProductSalesItems {
		out = append(out, ProductLine{
			Name:     item.ProductName,
			Quantity: item.OrderNumber.Decimal,
			Total:    item.OrderTotal.Decimal,
			Refunded: item.OrderRefunded.Decimal,
		})
	}
	return out
}
