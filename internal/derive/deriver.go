package derive

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/estatetools/opsdash/internal/models"
	"github.com/estatetools/opsdash/internal/sheets"
)

// Rent-payment matching window around a due date. Asymmetric so a payment
// made shortly before the due date wins over a stale payment from an earlier
// cycle.
const (
	paymentWindowBefore = 9
	paymentWindowAfter  = 5
)

// Deriver computes candidate tasks from apartment, transaction and
// meter-reading data for an inclusive date window. It holds no state between
// passes.
type Deriver struct {
	log *zap.Logger
}

// NewDeriver creates a deriver.
func NewDeriver(log *zap.Logger) *Deriver {
	return &Deriver{log: log}
}

// Derive walks the apartments table and emits rent-due and check-out tasks
// for the window [start, end]. Output ordering is unspecified; callers sort.
func (d *Deriver) Derive(apartments *sheets.Table, m sheets.Mapping, start, end models.Date, tx TransactionIndex, readings ReadingIndex) ([]*models.Task, error) {
	cols, err := m.Resolve(apartments, sheets.RoleCode, sheets.RoleStart, sheets.RoleEnd, sheets.RoleRealtor)
	if err != nil {
		return nil, err
	}
	// CHECK_OUT is optional; apartments without the column simply never
	// get indicator-based check-out tasks.
	checkoutCol, hasCheckoutCol := apartments.Column(m.Keyword(sheets.TableApartments, sheets.RoleCheckout))

	var out []*models.Task
	checkOutEmitted := make(map[string]bool)
	emitted := make(map[models.TaskKey]bool)

	for i := range apartments.Rows {
		code := apartments.Cell(i, cols[sheets.RoleCode])
		if code == "" {
			continue
		}
		realtor := apartments.Cell(i, cols[sheets.RoleRealtor])
		if realtor == "" {
			realtor = "Unknown"
		}

		latest, hasLatest := tx.Latest(code)
		if hasLatest && latest.IsCheckOut() {
			// Tenant already left; nothing to collect.
			d.log.Debug("apartment_skipped_after_checkout", zap.String("ap_code", code))
			continue
		}

		var checkoutDate, endDate models.Date
		var hasCheckout, hasEnd bool
		if hasCheckoutCol {
			checkoutDate, hasCheckout = ParseCheckoutDate(apartments.Cell(i, checkoutCol))
		}
		endDate, hasEnd = ParseContractDate(apartments.Cell(i, cols[sheets.RoleEnd]))

		upcomingCheckout := (hasCheckout && inWindow(checkoutDate, start, end)) ||
			(hasEnd && inWindow(endDate, start, end))

		lastReading := readings[code]

		// Rent-due derivation keyed to the contract start's day-of-month.
		if contractStart, ok := ParseContractDate(apartments.Cell(i, cols[sheets.RoleStart])); ok {
			payDay := contractStart.Day()
			for due := start; !due.After(end); due = due.AddDays(1) {
				if due.Day() != payDay {
					continue
				}
				task := d.rentTask(code, realtor, due, tx[code], upcomingCheckout)
				applyContext(task, latest, hasLatest, lastReading)
				out = append(out, task)
				emitted[task.Key()] = true
			}
		}

		// One check-out task per apartment per pass; the explicit
		// indicator date wins over the contract end date.
		if !checkOutEmitted[code] {
			var due models.Date
			switch {
			case hasCheckout && inWindow(checkoutDate, start, end):
				due = checkoutDate
			case hasEnd && inWindow(endDate, start, end):
				due = endDate
			}
			if !due.IsZero() {
				// A check-out falling on a rent due date is already
				// reported by that task's CHECK-OUT suffix; emitting a
				// second task would duplicate the key.
				key := models.TaskKey{ApCode: code, DueDate: due.String()}
				if emitted[key] {
					checkOutEmitted[code] = true
				} else {
					task := models.NewTask(code, fmt.Sprintf("Check-out on %s", shortDate(due)), due, realtor, models.TaskStatusCheckOut)
					applyContext(task, latest, hasLatest, lastReading)
					out = append(out, task)
					emitted[key] = true
					checkOutEmitted[code] = true
				}
			}
		}
	}

	d.log.Info("tasks_derived",
		zap.String("window_start", start.String()),
		zap.String("window_end", end.String()),
		zap.Int("count", len(out)),
	)
	return out, nil
}

// rentTask builds the Paid/Unpaid task for one due date by searching the
// apartment's transactions (most recent first) for a rent payment inside the
// matching window.
func (d *Deriver) rentTask(code, realtor string, due models.Date, events []Transaction, upcomingCheckout bool) *models.Task {
	windowStart := due.AddDays(-paymentWindowBefore)
	windowEnd := due.AddDays(paymentWindowAfter)

	for _, ev := range events {
		if !ev.IsRent() {
			continue
		}
		if inWindow(ev.Date, windowStart, windowEnd) {
			reason := fmt.Sprintf("Rent due %s, Paid on %s", shortDate(due), shortDate(ev.Date))
			return models.NewTask(code, reason, due, realtor, models.TaskStatusPaid)
		}
	}

	reason := fmt.Sprintf("Rent due on %s (UNPAID)", shortDate(due))
	if upcomingCheckout {
		reason += " - 🚪 CHECK-OUT"
	}
	return models.NewTask(code, reason, due, realtor, models.TaskStatusUnpaid)
}

func applyContext(task *models.Task, latest Transaction, hasLatest bool, lastReading models.Date) {
	if hasLatest {
		task.LastTransactionDate = latest.Date
		task.LastTransactionType = latest.TaskType
	}
	task.LastUTReadingDate = lastReading
}

// inWindow reports start <= d <= end.
func inWindow(d, start, end models.Date) bool {
	return !d.Before(start) && !d.After(end)
}
