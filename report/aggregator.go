// Package report turns per-shift data from the reporting source into one
// merged daily financial picture.
//
// A single range query against the source also captures off-shift
// transactions and inflates the totals, so the only correct method is to
// query each shift's exact start/end range scoped to its staff member and
// sum the results. Fetches fan out concurrently and a failed shift degrades
// to a zero contribution; aggregation never fails fast on one shift.
package report

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/businessday"
	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/config"
	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/icafe"
)

const moduleName = "report"

var errMissingStaff = errors.New("shift row has no staff name")

// ShiftSource is the slice of the reporting API the aggregator consumes.
// *icafe.Client satisfies it.
type ShiftSource interface {
	ShiftList(ctx context.Context, p icafe.ShiftListParams) ([]icafe.Shift, error)
	ReportData(ctx context.Context, p icafe.ReportDataParams) (*icafe.ReportData, error)
	ShiftDetail(ctx context.Context, shiftID string) (*icafe.ShiftDetail, error)
}

type Aggregator struct {
	source ShiftSource
	logger *logrus.Logger
	now    func() time.Time
}

func NewAggregator(source ShiftSource) *Aggregator {
	return &Aggregator{
		source: source,
		logger: config.GetLogger(),
		now:    time.Now,
	}
}

// NewAggregatorWithClock is NewAggregator with an injectable clock, used by
// tests and by callers that need a frozen "now" for open shifts.
func NewAggregatorWithClock(source ShiftSource, now func() time.Time) *Aggregator {
	a := NewAggregator(source)
	a.now = now
	return a
}

// ShiftsForBusinessDay lists the shifts belonging to a business-day window.
// The listing range brackets the window with full calendar days so a shift
// straddling the 06:00 boundary is never dropped; the window check then
// keeps a shift when its start OR its end falls inside the window. The
// "All Shifts" pseudo-row and rows without a staff identity are excluded.
func (a *Aggregator) ShiftsForBusinessDay(ctx context.Context, window businessday.Window) ([]icafe.Shift, error) {
	rows, err := a.source.ShiftList(ctx, icafe.ShiftListParams{
		DateStart: businessday.FormatDate(window.DateStart),
		DateEnd:   businessday.FormatDate(window.DateEnd),
		TimeStart: "00:00",
		TimeEnd:   "23:59",
	})
	if err != nil {
		return nil, err
	}

	winStart := window.Start()
	winEnd := window.DateEnd.Add(businessday.StartHour * time.Hour)

	shifts := make([]icafe.Shift, 0, len(rows))
	for _, s := range rows {
		staff := strings.TrimSpace(s.ShiftStaffName)
		if staff == "" {
			config.LogError(a.logger, moduleName, "ShiftsForBusinessDay", "shift missing staff identity, excluded", s.ShiftID, errMissingStaff)
			continue
		}
		if staff == icafe.AllShiftsPseudoStaff {
			continue
		}

		inWindow := false
		if start, ok := s.StartTime(); ok && !start.Before(winStart) && start.Before(winEnd) {
			inWindow = true
		}
		if end, ok := s.EndTime(); ok && !end.Before(winStart) && end.Before(winEnd) {
			inWindow = true
		}
		if inWindow {
			shifts = append(shifts, s)
		}
	}
	return shifts, nil
}

type shiftResult struct {
	shift  icafe.Shift
	report *icafe.ReportData
	detail *icafe.ShiftDetail
}

// Generate builds the aggregated report for one business-day window. A
// window with no shifts yields the zero-valued report, not an error.
func (a *Aggregator) Generate(ctx context.Context, window businessday.Window) (*AggregatedReport, error) {
	shifts, err := a.ShiftsForBusinessDay(ctx, window)
	if err != nil {
		return nil, err
	}
	if len(shifts) == 0 {
		return NewZeroReport(window.BusinessDate), nil
	}

	results := make([]shiftResult, len(shifts))
	var wg sync.WaitGroup
	for i, shift := range shifts {
		wg.Add(1)
		go func(i int, shift icafe.Shift) {
			defer wg.Done()
			results[i] = a.fetchShift(ctx, window, shift)
		}(i, shift)
	}
	wg.Wait()

	return a.merge(window, results), nil
}

// fetchShift pulls the report scoped exactly to one shift's own time range
// and staff name, plus its detail record. Either fetch failing leaves a nil
// slot; the merge treats nil as a zero contribution.
func (a *Aggregator) fetchShift(ctx context.Context, window businessday.Window, shift icafe.Shift) shiftResult {
	res := shiftResult{shift: shift}

	dateStart := businessday.FormatDate(window.DateStart)
	timeStart := window.TimeStart
	if start, ok := shift.StartTime(); ok {
		dateStart = businessday.FormatDate(start)
		timeStart = start.Format("15:04")
	}

	var dateEnd, timeEnd string
	if end, ok := shift.EndTime(); ok {
		dateEnd = businessday.FormatDate(end)
		timeEnd = end.Format("15:04")
	} else {
		// Shift is still open: report up to now, expressed in the cafe's
		// wall clock like every other shift timestamp.
		local := a.now().UTC().Add(businessday.CafeUTCOffsetHours * time.Hour)
		dateEnd = businessday.FormatDate(local)
		timeEnd = local.Format("15:04")
	}

	rep, err := a.source.ReportData(ctx, icafe.ReportDataParams{
		DateStart:    dateStart,
		DateEnd:      dateEnd,
		TimeStart:    timeStart,
		TimeEnd:      timeEnd,
		LogStaffName: shift.ShiftStaffName,
	})
	if err != nil {
		config.LogError(a.logger, moduleName, "fetchShift", "shift report fetch failed, using zero contribution", shift.ShiftStaffName, err)
	} else {
		res.report = rep
	}

	if shift.ShiftID != "" {
		detail, err := a.source.ShiftDetail(ctx, shift.ShiftID)
		if err != nil {
			config.LogError(a.logger, moduleName, "fetchShift", "shift detail fetch failed, skipping expenses", shift.ShiftID, err)
		} else {
			res.detail = detail
		}
	}
	return res
}

func (a *Aggregator) merge(window businessday.Window, results []shiftResult) *AggregatedReport {
	agg := NewZeroReport(window.BusinessDate)
	agg.ShiftCount = len(results)

	memberLists := make([][]TopEntry, 0, len(results))
	pcLists := make([][]TopEntry, 0, len(results))
	productLists := make([][]ProductLine, 0, len(results))

	for _, r := range results {
		mergeReportData(agg, r.report)
		memberLists = append(memberLists, topMembersOf(r.report))
		pcLists = append(pcLists, topPCsOf(r.report))
		productLists = append(productLists, productLinesOf(r.report))
		agg.Shifts = append(agg.Shifts, breakdownOf(r))

		// Shop sales in the shift detail duplicate the report's product
		// sales items, so Products is built from the report alone.
		if r.detail != nil {
			staff := r.shift.ShiftStaffName
			for _, item := range r.detail.CenterExpensesItems {
				agg.Expenses = append(agg.Expenses, ExpenseItem{
					Amount:  item.LogMoney.Decimal.Abs(),
					Details: item.LogDetails,
					Staff:   staff,
					ShiftID: r.shift.ShiftID,
				})
			}
		}
	}

	agg.TopMembers = mergeTopEntries(memberLists...)
	agg.TopPCs = mergeTopEntries(pcLists...)
	agg.Products = mergeProductLines(productLists...)
	agg.ExpenseTotal = DerivedExpense(agg.Cash, agg.Sale.Total, agg.Topup.Total.Amount, agg.RefundTotal())
	return agg
}

func breakdownOf(r shiftResult) ShiftBreakdown {
	b := ShiftBreakdown{
		StaffName: r.shift.ShiftStaffName,
		StartTime: r.shift.ShiftStartTime,
		EndTime:   r.shift.ShiftEndTime,
	}
	if start, ok := r.shift.StartTime(); ok {
		b.ShiftType = businessday.ClassifyShift(start.Hour())
	}
	if r.report != nil {
		b.Cash = r.report.Report.Cash.Decimal
		b.Profit = r.report.Report.Profit.Decimal
		b.Sales = r.report.Sale.Total.Decimal
		b.Topups = r.report.Topup.Amount.Decimal
		b.Refunds = r.report.Refund.Topup.Total.Amount.Decimal.Add(r.report.Refund.Sale.Total.Amount.Decimal)
		b.Expense = DerivedExpense(b.Cash, b.Sales, b.Topups, b.Refunds)
	}
	return b
}
