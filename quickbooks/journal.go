package quickbooks

import (
	"fmt"
	"regexp"
	"time"

	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/businessday"
	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/report"
)

const (
	cashAccountName     = "Cash"
	cashAccountValue    = "202"
	revenueAccountName  = "Revenue"
	revenueAccountValue = "206"

	docNumberMaxLen = 21
	docDateLayout   = "20060102"
)

type AccountRef struct {
	Name  string `json:"name,omitempty"`
	Value string `json:"value"`
}

type JournalEntryLineDetail struct {
	PostingType string     `json:"PostingType"`
	AccountRef  AccountRef `json:"AccountRef"`
}

type JournalLine struct {
	Description            string                 `json:"Description"`
	Amount                 float64                `json:"Amount"`
	DetailType             string                 `json:"DetailType"`
	JournalEntryLineDetail JournalEntryLineDetail `json:"JournalEntryLineDetail"`
}

type JournalEntry struct {
	TxnDate     string        `json:"TxnDate"`
	DocNumber   string        `json:"DocNumber"`
	PrivateNote string        `json:"PrivateNote"`
	Line        []JournalLine `json:"Line"`
}

var docNumberClean = regexp.MustCompile(`[^a-zA-Z0-9]`)

// BuildDocNumber produces the journal entry reference `{name}-{YYYYMMDD}`,
// at most 21 characters. The date suffix is never shortened; the cleaned
// cafe name absorbs all the truncation.
func BuildDocNumber(cafeName string, businessDate time.Time) string {
	shortDate := businessDate.Format(docDateLayout)
	name := docNumberClean.ReplaceAllString(cafeName, "")

	maxNameLen := docNumberMaxLen - len(shortDate) - 1
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}
	if name == "" {
		name = "CAFE"
	}
	return name + "-" + shortDate
}

// BuildJournalEntry maps a day's aggregated report to the balanced journal
// entry: revenue (sales + top-ups) debited to Cash and credited to Revenue,
// either as one aggregate pair or one pair per shift.
func BuildJournalEntry(rep *report.AggregatedReport, cafeName string, perShift bool) *JournalEntry {
	dateStr := businessday.FormatDate(rep.BusinessDate)
	entry := &JournalEntry{
		TxnDate:   dateStr,
		DocNumber: BuildDocNumber(cafeName, rep.BusinessDate),
		PrivateNote: fmt.Sprintf("Auto-generated report for %s on %s (%d shifts)",
			cafeName, dateStr, rep.ShiftCount),
	}

	if perShift && len(rep.Shifts) > 0 {
		for _, shift := range rep.Shifts {
			amount := shift.Sales.Add(shift.Topups)
			desc := fmt.Sprintf("%s (%s shift)", shift.StaffName, shift.ShiftType)
			entry.Line = append(entry.Line, linePair(desc, amount.Round(2).InexactFloat64())...)
		}
		return entry
	}

	desc := fmt.Sprintf("Daily sales and top-ups - %s", cafeName)
	entry.Line = append(entry.Line, linePair(desc, rep.Revenue().Round(2).InexactFloat64())...)
	return entry
}

func linePair(description string, amount float64) []JournalLine {
	return []JournalLine{
		{
			Description: description,
			Amount:      amount,
			DetailType:  "JournalEntryLineDetail",
			JournalEntryLineDetail: JournalEntryLineDetail{
				PostingType: "Debit",
				AccountRef:  AccountRef{Name: cashAccountName, Value: cashAccountValue},
			},
		},
		{
			Description: description,
			Amount:      amount,
			DetailType:  "JournalEntryLineDetail",
			JournalEntryLineDetail: JournalEntryLineDetail{
				PostingType: "Credit",
				AccountRef:  AccountRef{Name: revenueAccountName, Value: revenueAccountValue},
			},
		},
	}
}
