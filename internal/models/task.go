package models

import (
	"fmt"
	"time"
)

// TaskStatus represents the payment/lifecycle state of a task
type TaskStatus string

const (
	TaskStatusUnpaid   TaskStatus = "Unpaid"
	TaskStatusPaid     TaskStatus = "Paid"
	TaskStatusCheckOut TaskStatus = "Check-out"
	TaskStatusPending  TaskStatus = "Pending"
)

// Checkbox names, in display order. Every task carries exactly these four.
const (
	CheckboxTelegram = "TELEGRAM"
	CheckboxEmail    = "EMAIL"
	CheckboxUTData   = "UT_DATA"
	CheckboxWrite    = "WRITE"
)

var CheckboxNames = []string{CheckboxTelegram, CheckboxEmail, CheckboxUTData, CheckboxWrite}

// CheckState holds the per-task checkbox flags, keyed by checkbox name.
type CheckState map[string]bool

// NewCheckState returns a CheckState with every known checkbox unset.
func NewCheckState() CheckState {
	cs := make(CheckState, len(CheckboxNames))
	for _, name := range CheckboxNames {
		cs[name] = false
	}
	return cs
}

// Set flips the named checkbox, rejecting unknown names.
func (cs CheckState) Set(name string, value bool) error {
	if _, ok := cs[name]; !ok {
		known := false
		for _, n := range CheckboxNames {
			if n == name {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unknown checkbox %q", name)
		}
	}
	cs[name] = value
	return nil
}

// Complete reports whether every checkbox is checked.
func (cs CheckState) Complete() bool {
	for _, name := range CheckboxNames {
		if !cs[name] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (cs CheckState) Clone() CheckState {
	out := make(CheckState, len(cs))
	for k, v := range cs {
		out[k] = v
	}
	return out
}

// Normalize fills in any checkbox missing from a loaded document. Stored
// documents from older builds may lack flags added since.
func (cs *CheckState) Normalize() {
	if *cs == nil {
		*cs = NewCheckState()
		return
	}
	for _, name := range CheckboxNames {
		if _, ok := (*cs)[name]; !ok {
			(*cs)[name] = false
		}
	}
}

// TaskKey identifies a task by apartment code and due date. DueDate is the
// canonical "YYYY-MM-DD" string, or "" for undated tasks.
type TaskKey struct {
	ApCode  string
	DueDate string
}

func (k TaskKey) String() string {
	if k.DueDate == "" {
		return k.ApCode
	}
	return k.ApCode + "@" + k.DueDate
}

// Task is one actionable item on the operations list, either derived from
// apartment data or added by hand.
type Task struct {
	ApCode  string     `json:"ap_code"`
	Reason  string     `json:"reason"`
	DueDate Date       `json:"due_date"`
	Realtor string     `json:"realtor"`
	Status  TaskStatus `json:"status"`
	Manual  bool       `json:"manual"`
	Checked CheckState `json:"checked"`
	// CheckTime is set when the task is marked checked; nil otherwise.
	CheckTime *time.Time `json:"check_time"`
	Note      string     `json:"note"`

	// Context fields refreshed from the latest source data. Absent values
	// stay zero and render as null.
	LastTransactionDate Date   `json:"last_transaction_date"`
	LastTransactionType string `json:"last_transaction_type"`
	LastUTReadingDate   Date   `json:"last_ut_reading_date"`
}

// NewTask builds a task with a fresh checkbox set and empty note.
func NewTask(apCode, reason string, due Date, realtor string, status TaskStatus) *Task {
	return &Task{
		ApCode:  apCode,
		Reason:  reason,
		DueDate: due,
		Realtor: realtor,
		Status:  status,
		Checked: NewCheckState(),
	}
}

// Key returns the task's identity key.
func (t *Task) Key() TaskKey {
	return TaskKey{ApCode: t.ApCode, DueDate: t.DueDate.String()}
}

// Complete reports whether all four checkboxes are checked.
func (t *Task) Complete() bool {
	return t.Checked.Complete()
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	cp := *t
	cp.Checked = t.Checked.Clone()
	if t.CheckTime != nil {
		ct := *t.CheckTime
		cp.CheckTime = &ct
	}
	return &cp
}

// Normalize repairs a task loaded from storage: missing checkbox flags are
// filled in and an empty status defaults to Pending.
func (t *Task) Normalize() {
	t.Checked.Normalize()
	if t.Status == "" {
		t.Status = TaskStatusPending
	}
}

// Document is the persisted shape of the whole task list.
type Document struct {
	TodoList []*Task `json:"todo_list"`
	TrashBin []*Task `json:"trash_bin"`
}

// Normalize repairs every task in the document.
func (d *Document) Normalize() {
	if d.TodoList == nil {
		d.TodoList = []*Task{}
	}
	if d.TrashBin == nil {
		d.TrashBin = []*Task{}
	}
	for _, t := range d.TodoList {
		t.Normalize()
	}
	for _, t := range d.TrashBin {
		t.Normalize()
	}
}
