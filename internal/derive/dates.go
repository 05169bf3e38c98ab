package derive

import (
	"strings"
	"time"

	"github.com/estatetools/opsdash/internal/models"
)

// Accepted date formats per source field, tried in order. These lists are a
// faithful carryover of what the operators actually type into the sheets;
// do not extend them speculatively.
var (
	moneyDateLayouts = []string{
		"2006-01-02 15:04",
		"02/01/2006 15:04:05",
		"2006-01-02",
		"02/01/2006",
	}
	utilityDateLayouts = []string{
		"02/01/2006 15:04:05",
		"02-01-2006",
		"02/01/2006",
	}
	contractDateLayouts = []string{
		"02-01-2006",
	}
	checkoutDateLayouts = []string{
		"02.01.2006",
	}
)

// parseDate tries each layout in order. A value no layout accepts reads as
// absent (zero Date, false) rather than an error.
func parseDate(layouts []string, s string) (models.Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.Date{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.DateOf(t), true
		}
	}
	return models.Date{}, false
}

// ParseMoneyDate parses a transaction submission date.
func ParseMoneyDate(s string) (models.Date, bool) {
	return parseDate(moneyDateLayouts, s)
}

// ParseUtilityDate parses a meter-reading date.
func ParseUtilityDate(s string) (models.Date, bool) {
	return parseDate(utilityDateLayouts, s)
}

// ParseContractDate parses a contract START/END date.
func ParseContractDate(s string) (models.Date, bool) {
	return parseDate(contractDateLayouts, s)
}

// ParseCheckoutDate parses a CHECK_OUT indicator date.
func ParseCheckoutDate(s string) (models.Date, bool) {
	return parseDate(checkoutDateLayouts, s)
}

// shortDate renders a date in the compact day-month form used in task
// reasons, e.g. "15-Jun".
func shortDate(d models.Date) string {
	return d.Time().Format("02-Jan")
}
