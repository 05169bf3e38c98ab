package todo

import (
	"sort"

	"github.com/estatetools/opsdash/internal/models"
)

// Sort orders the active list in place: incomplete tasks before complete
// ones, undated tasks before dated ones, then ascending due date. Ties keep
// their relative order.
func Sort(tasks []*models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.Complete() != b.Complete() {
			return !a.Complete()
		}
		aUndated, bUndated := a.DueDate.IsZero(), b.DueDate.IsZero()
		if aUndated != bUndated {
			return aUndated
		}
		if aUndated {
			return false
		}
		return a.DueDate.Before(b.DueDate)
	})
}
