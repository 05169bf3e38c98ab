package todo

import (
	"testing"
	"time"

	"github.com/estatetools/opsdash/internal/models"
)

func completedTask(code string, due models.Date) *models.Task {
	task := models.NewTask(code, "done", due, "Ana", models.TaskStatusPaid)
	for _, name := range models.CheckboxNames {
		task.Checked[name] = true
	}
	return task
}

func TestSort_Order(t *testing.T) {
	t.Parallel()

	complete := completedTask("C1", models.NewDate(2024, time.June, 1))
	undated := models.NewTask("M1", "Manually added", models.Date{}, "Ana", models.TaskStatusPending)
	early := models.NewTask("A1", "rent", models.NewDate(2024, time.June, 5), "Ana", models.TaskStatusUnpaid)
	late := models.NewTask("A2", "rent", models.NewDate(2024, time.June, 25), "Ana", models.TaskStatusUnpaid)

	tasks := []*models.Task{complete, late, early, undated}
	Sort(tasks)

	wantOrder := []string{"M1", "A1", "A2", "C1"}
	for i, code := range wantOrder {
		if tasks[i].ApCode != code {
			t.Fatalf("position %d = %s, want %s (full order: %v)", i, tasks[i].ApCode, code, codes(tasks))
		}
	}
}

func TestSort_CompleteUndatedStillAfterIncompleteDated(t *testing.T) {
	t.Parallel()

	completeUndated := completedTask("C1", models.Date{})
	incompleteDated := models.NewTask("A1", "rent", models.NewDate(2024, time.June, 5), "Ana", models.TaskStatusUnpaid)

	tasks := []*models.Task{completeUndated, incompleteDated}
	Sort(tasks)

	if tasks[0].ApCode != "A1" {
		t.Errorf("completeness must dominate datedness, got order %v", codes(tasks))
	}
}

func TestSort_Stable(t *testing.T) {
	t.Parallel()

	due := models.NewDate(2024, time.June, 5)
	first := models.NewTask("A1", "rent", due, "Ana", models.TaskStatusUnpaid)
	second := models.NewTask("A2", "rent", due, "Ana", models.TaskStatusUnpaid)

	tasks := []*models.Task{first, second}
	Sort(tasks)
	Sort(tasks)

	if tasks[0].ApCode != "A1" || tasks[1].ApCode != "A2" {
		t.Errorf("equal-key tasks reordered: %v", codes(tasks))
	}
}

func codes(tasks []*models.Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.ApCode
	}
	return out
}
