package todo

import (
	"github.com/estatetools/opsdash/internal/models"
)

// Reconcile merges a freshly derived task list with the previous active
// list. Derived tasks win on reason, status and context; the old task's
// user-owned fields (checkboxes, note, check time) are carried over when the
// identity key matches. Manual tasks from the old list survive unless a
// derived task now occupies their key; everything else from the old list is
// dropped. The result is unsorted.
func Reconcile(old, derived []*models.Task) []*models.Task {
	oldByKey := make(map[models.TaskKey]*models.Task, len(old))
	for _, task := range old {
		oldByKey[task.Key()] = task
	}

	derivedKeys := make(map[models.TaskKey]bool, len(derived))
	out := make([]*models.Task, 0, len(derived))
	for _, task := range derived {
		key := task.Key()
		derivedKeys[key] = true
		if prev, ok := oldByKey[key]; ok {
			task.Checked = prev.Checked.Clone()
			task.Note = prev.Note
			if prev.CheckTime != nil {
				ct := *prev.CheckTime
				task.CheckTime = &ct
			}
		}
		out = append(out, task)
	}

	for _, task := range old {
		if task.Manual && !derivedKeys[task.Key()] {
			out = append(out, task)
		}
	}
	return out
}
