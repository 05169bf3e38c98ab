package derive

import (
	"sort"
	"strings"

	"github.com/estatetools/opsdash/internal/models"
	"github.com/estatetools/opsdash/internal/sheets"
)

// Transaction is one payment/ledger event for an apartment.
type Transaction struct {
	Date     models.Date
	TaskType string
	Specific string
}

// IsRent reports whether the event looks like a rent payment: the task type
// mentions CHECK-IN or the specific type mentions RENT COLLECT.
func (t Transaction) IsRent() bool {
	return strings.Contains(strings.ToUpper(t.TaskType), "CHECK-IN") ||
		strings.Contains(strings.ToUpper(t.Specific), "RENT COLLECT")
}

// IsCheckOut reports whether the event records the tenant leaving.
func (t Transaction) IsCheckOut() bool {
	return strings.Contains(strings.ToUpper(t.TaskType), "CHECK-OUT")
}

// TransactionIndex groups transactions by apartment code, most recent first.
type TransactionIndex map[string][]Transaction

// Latest returns the most recent transaction for an apartment.
func (idx TransactionIndex) Latest(code string) (Transaction, bool) {
	events := idx[code]
	if len(events) == 0 {
		return Transaction{}, false
	}
	return events[0], true
}

// BuildTransactionIndex reads the money table into an index. Rows with an
// empty apartment code or an unparseable submission date are skipped. Missing
// required columns abort the build.
func BuildTransactionIndex(t *sheets.Table, m sheets.Mapping) (TransactionIndex, error) {
	cols, err := m.Resolve(t, sheets.RoleCode, sheets.RoleDate, sheets.RoleType, sheets.RoleSpecific)
	if err != nil {
		return nil, err
	}

	idx := make(TransactionIndex)
	for i := range t.Rows {
		code := t.Cell(i, cols[sheets.RoleCode])
		if code == "" {
			continue
		}
		date, ok := ParseMoneyDate(t.Cell(i, cols[sheets.RoleDate]))
		if !ok {
			continue
		}
		idx[code] = append(idx[code], Transaction{
			Date:     date,
			TaskType: t.Cell(i, cols[sheets.RoleType]),
			Specific: t.Cell(i, cols[sheets.RoleSpecific]),
		})
	}

	for code := range idx {
		events := idx[code]
		sort.SliceStable(events, func(a, b int) bool {
			return events[a].Date.After(events[b].Date)
		})
	}
	return idx, nil
}

// ReadingIndex maps apartment code to the most recent meter-reading date.
type ReadingIndex map[string]models.Date

// BuildReadingIndex reads the utility table, keeping the maximum reading date
// per apartment. Unparseable dates are skipped.
func BuildReadingIndex(t *sheets.Table, m sheets.Mapping) (ReadingIndex, error) {
	cols, err := m.Resolve(t, sheets.RoleCode, sheets.RoleDate)
	if err != nil {
		return nil, err
	}

	idx := make(ReadingIndex)
	for i := range t.Rows {
		code := t.Cell(i, cols[sheets.RoleCode])
		if code == "" {
			continue
		}
		date, ok := ParseUtilityDate(t.Cell(i, cols[sheets.RoleDate]))
		if !ok {
			continue
		}
		if existing, seen := idx[code]; !seen || date.After(existing) {
			idx[code] = date
		}
	}
	return idx, nil
}
